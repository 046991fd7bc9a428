package taint_test

import (
	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/securego/pysec/pyast"
	"github.com/securego/pysec/taint"
)

var _ = Describe("Analyzer", func() {
	Context("request handlers", func() {
		It("should report tainted markup returned from a route", func() {
			result := analyze(`from bottle import request, route

@route('/')
def root():
    return "<p>" + request.query.field + "</p>"
`)
			Expect(result.Findings).To(HaveLen(1))
			f := result.Findings[0]
			Expect(f.Line).To(Equal(5))
			Expect(f.Categories).To(Equal([]string{"XSS"}))
			Expect(f.Level).To(Equal(taint.XSS))
			Expect(f.Handler).To(Equal(taint.Route{Method: "GET", Path: "/"}))
			Expect(f.Message).To(Equal("tainted return value reaches GET / handler root (XSS)"))
		})

		It("should not report sanitized output", func() {
			result := analyze(`from bottle import request, route, html_escape

@route('/')
def root():
    return "<p>" + html_escape(request.query.field) + "</p>"
`)
			Expect(result.Findings).To(BeEmpty())
			Expect(result.Handlers.Len()).To(Equal(1))
		})

		It("should not report categories the handler does not care about", func() {
			result := analyze(`from bottle import request, route

@route('/save')
def save():
    return request.forms.name
`)
			Expect(result.Findings).To(BeEmpty())
		})

		It("should ignore returns outside registered handlers", func() {
			result := analyze(`from bottle import request

def helper():
    return request.query.value
`)
			Expect(result.Findings).To(BeEmpty())
			Expect(result.Handlers.Len()).To(Equal(0))
		})

		It("should resolve sources through module attributes", func() {
			result := analyze(`import bottle

@bottle.route('/x')
def x():
    return bottle.request.params.id
`)
			Expect(findingLines(result)).To(Equal([]int{5}))
		})

		It("should bind the first component of a dotted import", func() {
			result := analyze(`import bottle.ext

@bottle.route('/x')
def x():
    return bottle.request.GET.id
`)
			Expect(findingLines(result)).To(Equal([]int{5}))
		})

		It("should follow aliases", func() {
			result := analyze(`from bottle import request as req, route as r, html_escape as esc

@r('/a')
def a():
    return req.query.v

@r('/b')
def b():
    return esc(req.query.v)
`)
			Expect(findingLines(result)).To(Equal([]int{5}))
		})
	})

	Context("handler registration", func() {
		It("should take the method from the method keyword", func() {
			result := analyze(`from bottle import route

@route('/form', method='post')
def form():
    return ''
`)
			Expect(result.Handlers.Entries()).To(HaveLen(1))
			Expect(result.Handlers.Entries()[0].Route).To(Equal(taint.Route{Method: "POST", Path: "/form"}))
		})

		It("should use the sink default method", func() {
			result := analyze(`from bottle import post

@post('/submit')
def submit():
    return ''
`)
			h, ok := result.Handlers.Lookup(taint.Route{Method: "POST", Path: "/submit"})
			Expect(ok).To(BeTrue())
			Expect(h.Name).To(Equal("submit"))
			Expect(h.Line).To(Equal(4))
		})

		It("should not register non-literal paths or unknown decorators", func() {
			result := analyze(`from bottle import route
import functools

PATH = '/x'

@route(PATH)
def a():
    return ''

@functools.lru_cache(1)
def b():
    return ''

@route
def c():
    return ''
`)
			Expect(result.Handlers.Len()).To(Equal(0))
			Expect(result.Gaps).ToNot(BeEmpty())
		})

		It("should not register functions with several decorators", func() {
			result := analyze(`from bottle import request, route
import functools

@functools.wraps
@route('/')
def root():
    return request.query.v
`)
			Expect(result.Handlers.Len()).To(Equal(0))
			Expect(result.Findings).To(BeEmpty())
		})

		It("should replace a re-registered route in place", func() {
			result := analyze(`from bottle import route

@route('/')
def first():
    return ''

@route('/other')
def other():
    return ''

@route('/')
def second():
    return ''
`)
			entries := result.Handlers.Entries()
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Route.Path).To(Equal("/"))
			Expect(entries[0].Handler.Name).To(Equal("second"))
			Expect(entries[1].Handler.Name).To(Equal("other"))
		})
	})

	Context("assignments", func() {
		It("should propagate through names and interpolation", func() {
			result := analyze(`from bottle import request, route

@route('/1')
def one():
    a = request.query.xss
    return '<p>%s</p>' % a

@route('/2')
def two():
    a, b = request.query.xss1, 'safe'
    return '<p>%s</p>' % (b,)

@route('/3')
def three():
    a, b = request.query.xss1, 'safe'
    return f'<p>{a}</p>'
`)
			Expect(findingLines(result)).To(Equal([]int{6, 16}))
		})

		It("should evaluate every right-hand value before binding", func() {
			result := analyze(`from bottle import request, route

@route('/')
def swap():
    a = request.query.v
    b = ''
    a, b = b, a
    return a
`)
			Expect(result.Findings).To(BeEmpty())
		})

		It("should overwrite module bindings from a function", func() {
			result := analyze(`from bottle import request, route

value = ''

def load():
    value = request.query.v

@route('/')
def show():
    load()
    return value
`)
			Expect(findingLines(result)).To(Equal([]int{11}))
		})

		It("should keep parameters local", func() {
			result := analyze(`from bottle import request, route

name = request.query.name

@route('/<name>')
def show(name):
    return name
`)
			Expect(result.Findings).To(BeEmpty())
		})

		It("should treat augmented assignment as concatenation", func() {
			result := analyze(`from bottle import request, route

@route('/')
def show():
    out = '<p>'
    out += request.query.v
    return out
`)
			Expect(findingLines(result)).To(Equal([]int{7}))
		})

		It("should record unsupported targets as gaps", func() {
			result := analyze(`from bottle import request

class Holder:
    pass

h = Holder()
h.value = request.query.v
a = b = request.query.v
`)
			Expect(result.Gaps).To(ContainElement(HaveField("Kind", pyast.Assign)))
		})
	})

	Context("control flow", func() {
		It("should merge both arms of a conditional", func() {
			result := analyze(`from bottle import request, route

@route('/')
def root():
    if request.query.key == 'secret':
        a = request.query.value
    else:
        a = 'default value'
    return a

@route('/2')
def root2():
    a = 'default value'
    if request.query.key == 'secret':
        a = request.query.value1
    elif request.query.key == 'secret2':
        a = request.query.value2
    return a

@route('/3')
def root3():
    if request.query.key == 'secret':
        a = 'x'
    else:
        a = 'y'
    return a
`)
			Expect(findingLines(result)).To(Equal([]int{9, 18}))
		})

		It("should report returns inside either arm", func() {
			result := analyze(`from bottle import request, route

@route('/')
def root():
    if request.query.debug:
        return request.query.value
    return 'ok'
`)
			Expect(findingLines(result)).To(Equal([]int{6}))
		})

		It("should bind loop targets to the iterable", func() {
			result := analyze(`from bottle import request, route

@route('/')
def root():
    out = ''
    for item in request.query.items:
        out = out + item
    return out

@route('/w')
def w():
    out = ''
    while len(out) < 10:
        out = out + request.query.v
    return out
`)
			Expect(findingLines(result)).To(Equal([]int{8, 15}))
		})

		It("should walk statements nested in unmodeled blocks", func() {
			result := analyze(`from bottle import request, route

@route('/')
def root():
    try:
        a = request.query.v
    except Exception:
        pass
    return a
`)
			Expect(findingLines(result)).To(Equal([]int{9}))
		})
	})

	Context("dictionaries", func() {
		It("should track literal keys separately", func() {
			result := analyze(`from bottle import request, route

@route('/a')
def a():
    d = {'a': request.query.value, 'b': 'default value'}
    return d['a']

@route('/b')
def b():
    d = {'a': request.query.value, 'b': 'default value'}
    return d['b']

@route('/dynamic-read')
def dynamic_read():
    d = {'a': request.query.value, 'b': 'default value'}
    return d[request.query.key]

@route('/dynamic-write')
def dynamic_write():
    d = {'a': request.query.value, 'b': 'default value'}
    d[request.query.key1] = request.query.value1
    return d['b']

@route('/literal-write')
def literal_write():
    d = {'a': request.query.value, 'b': 'default value'}
    d['c'] = request.query.value1
    return d['b']

@route('/literal-write-c')
def literal_write_c():
    d = {'a': request.query.value, 'b': 'default value'}
    d['c'] = request.query.value1
    return d['c']
`)
			Expect(findingLines(result)).To(Equal([]int{6, 22, 34}))
		})

		It("should keep storing into a dictionary merged after a branch", func() {
			result := analyze(`from bottle import request, route

@route('/if')
def after_if():
    d = {}
    if request.query.flag:
        d['a'] = 'x'
    d['b'] = request.query.value
    return d['b']

@route('/for')
def after_for():
    d = {}
    for k in request.query.keys:
        d['a'] = 'x'
    d[request.query.key] = request.query.value
    return d['b']

@route('/clean')
def clean_key():
    d = {}
    if request.query.flag:
        d['a'] = 'x'
    d['b'] = request.query.value
    return d['a']
`)
			Expect(findingLines(result)).To(Equal([]int{9, 17}))
			for _, g := range result.Gaps {
				Expect(g.Detail).ToNot(ContainSubstring("non-dictionary"))
			}
		})

		It("should store into every dictionary alternative of a merged name", func() {
			result := analyze(`from bottle import request, route

@route('/')
def mixed():
    d = 'plain'
    if request.query.flag:
        d = {}
    d['b'] = request.query.value
    return d['b']
`)
			Expect(findingLines(result)).To(Equal([]int{9}))
		})
	})

	Context("lambdas and classes", func() {
		It("should scope lambda parameters and class bodies", func() {
			result := analyze(`from bottle import request, route

class View:
    secret = request.query.v

f = lambda x: x + request.query.v

@route('/')
def root():
    return f('a')
`)
			Expect(result.Findings).To(BeEmpty())
		})
	})

	Context("side table", func() {
		It("should expose the computed value of expression nodes", func() {
			root := parse(`from bottle import request
a = request.query.v
`)
			result, err := taint.NewAnalyzer(newBottleCatalog()).Analyze(root)
			Expect(err).ToNot(HaveOccurred())
			assign := root.Body[1]
			v, ok := result.ValueOf(assign.X)
			Expect(ok).To(BeTrue())
			Expect(v.Level()).To(Equal(taint.XSS | taint.Generic))
		})
	})

	Context("source method calls", func() {
		It("should carry the argument taint of calls on request fields", func() {
			result := analyze(`from bottle import request, route

@route('/get')
def get():
    return request.query.get('x')

@route('/item')
def item():
    return request.query['x']

@route('/attr')
def attr():
    return request.query.x
`)
			Expect(findingLines(result)).To(Equal([]int{9, 13}))
		})
	})

	Context("resolution gaps", func() {
		It("should name the dotted path of unmodeled subscript stores", func() {
			result := analyze(`from bottle import request
cfg.items['a'] = request.query.v
`)
			var details []string
			for _, g := range result.Gaps {
				details = append(details, g.Detail)
			}
			Expect(details).To(ContainElement(`subscript store on Attribute "cfg.items"`))
		})

		It("should log gaps with the module name", func() {
			core, logs := observer.New(zapcore.DebugLevel)
			a := taint.NewAnalyzer(newBottleCatalog(),
				taint.WithLogger(zap.New(core)),
				taint.WithModuleName("views"))
			_, err := a.Analyze(parse("x = missing\n"))
			Expect(err).ToNot(HaveOccurred())

			gaps := logs.FilterMessage("resolution gap").All()
			Expect(gaps).ToNot(BeEmpty())
			Expect(gaps[0].ContextMap()).To(HaveKeyWithValue("module", "views"))
		})
	})

	Context("repeated runs", func() {
		It("should produce identical findings", func() {
			root := parse(`from bottle import request, route

@route('/')
def root():
    if request.query.k:
        return request.query.a
    return request.GET.b
`)
			analyzer := taint.NewAnalyzer(newBottleCatalog())
			first, err := analyzer.Analyze(root)
			Expect(err).ToNot(HaveOccurred())
			second, err := analyzer.Analyze(root)
			Expect(err).ToNot(HaveOccurred())
			Expect(first.Findings).To(HaveLen(2))
			Expect(cmp.Diff(first.Findings, second.Findings)).To(BeEmpty())
		})
	})

	Context("invalid trees", func() {
		It("should reject a nil tree", func() {
			_, err := taint.NewAnalyzer(newBottleCatalog()).Analyze(nil)
			Expect(err).To(MatchError(taint.ErrStructuralInvariant))
		})

		It("should degrade unknown nodes to zero taint", func() {
			root := &pyast.Node{Kind: pyast.Module, Line: 1, Body: []*pyast.Node{
				{Kind: pyast.Kind(99), Line: 1},
				{Kind: pyast.Assign, Line: 2,
					Targets: []*pyast.Node{{Kind: pyast.Name, Line: 2, Name: "a"}},
					X:       &pyast.Node{Kind: pyast.Kind(42), Line: 2}},
			}}
			result, err := taint.NewAnalyzer(newBottleCatalog()).Analyze(root)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Gaps).To(HaveLen(2))
			v, ok := result.ValueOf(root.Body[1].X)
			Expect(ok).To(BeTrue())
			Expect(taint.Truthy(v)).To(BeFalse())
		})
	})
})
