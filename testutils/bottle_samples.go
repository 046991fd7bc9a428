package testutils

import "github.com/securego/pysec"

var (
	// SampleCodeXSSBasicGet returns query values straight into markup
	SampleCodeXSSBasicGet = []CodeSample{{[]string{`"""Basic XSS in the GET request.

curl -S http://localhost:8000/?xss=<script>alert(1)</script>

"""
from bottle import request, route, run


@route('/')
def root():
    return '<p>%s</p>' % request.query.xss


@route('/2')
def root2():
    return '<p>%s, %s</p>' % (request.query.xss1, request.query.xss2)


@route('/3')
def root3():
    a = request.query.xss
    return '<p>%s</p>' % a


@route('/4')
def root4():
    a = request.query.xss
    return '<p>%s</p>' % (a,)


@route('/5')
def root5():
    return '<p>' + request.query.xss + '</p>'


@route('/6')
def root6():
    a, b = request.query.xss1, request.query.xss2
    return '<p>%s, %s</p>' % (a, b)

if __name__ == '__main__':
    run(port=8000)
`}, 6, 6, pysec.NewConfig()}}

	// SampleCodeBranches taints values through conditionals and elif chains
	SampleCodeBranches = []CodeSample{{[]string{`"""Conditional structures."""
from bottle import request, route, run


@route('/')
def root():
    if request.query.key == 'secret':
        a = request.query.value
    else:
        a = 'default value'
    return a


@route('/2')
def root2():
    if request.query.key == 'secret':
        a = request.query.value1
    elif request.query.key == 'secret2':
        a = request.query.value2
    else:
        a = 'default value'
    return a


@route('/3')
def root3():
    """Nested else holding an if."""
    if request.query.key == 'secret':
        a = request.query.value1
    else:
        if request.query.key == 'secret2':
            a = request.query.value2
        else:
            a = 'default value'
    return a


@route('/4')
def root4():
    a = 'default value'
    if request.query.key == 'secret':
        a = request.query.value1
    elif request.query.key == 'secret2':
        a = request.query.value2
    return a


@route('/5')
def root5():
    a = request.query.value
    if request.query.key == 'secret':
        a = 'constant'
    else:
        a = 'other constant'
    return a
`}, 4, 5, pysec.NewConfig()}}

	// SampleCodeDictionary tracks literal and dynamic dictionary keys
	SampleCodeDictionary = []CodeSample{{[]string{`from bottle import request, route, run


@route('/')
def root():
    d = {
        'a': request.query.value,
        'b': 'default value'
    }
    return d['a']


@route('/2')
def root2():
    d = {
        'a': request.query.value,
        'b': 'default value'
    }
    return d['b']


@route('/3')
def root3():
    d = {
        'a': request.query.value,
        'b': 'default value'
    }
    return d[request.query.key]


@route('/4')
def root4():
    d = {
        'a': request.query.value,
        'b': 'default value'
    }
    d[request.query.key1] = request.query.value1
    return d['b']


@route('/5')
def root5():
    d = {
        'a': request.query.value,
        'b': 'default value'
    }
    d[request.query.key1] = request.query.value1
    return d[request.query.key]


@route('/6')
def root6():
    d = {
        'a': request.query.value,
        'b': 'default value'
    }
    d['c'] = request.query.value1
    return d['b']


@route('/7')
def root7():
    d = {
        'a': request.query.value,
        'b': 'default value'
    }
    d['c'] = request.query.value1
    return d['c']


@route('/8')
def root8():
    d = {}
    if request.query.flag:
        d['a'] = 'x'
    d['b'] = request.query.value
    return d['b']


@route('/9')
def root9():
    d = {}
    for k in request.query.keys:
        d['a'] = 'x'
    d[request.query.key] = request.query.value
    return d['b']


@route('/10')
def root10():
    d = {}
    if request.query.flag:
        d['a'] = 'x'
    d['b'] = request.query.value
    return d['a']
`}, 6, 10, pysec.NewConfig()}}

	// SampleCodeSanitized escapes query values before rendering
	SampleCodeSanitized = []CodeSample{{[]string{`from bottle import request, route, html_escape
import bottle


@route('/')
def root():
    return '<p>%s</p>' % html_escape(request.query.xss)


@bottle.post('/submit')
def submit():
    return bottle.html_escape(request.forms.name)


@route('/raw')
def raw():
    return request.query.xss
`}, 1, 3, pysec.NewConfig()}, {[]string{`from bottle import request, route


@route('/first')
def first():
    return request.query.a


@route('/second')
def second():
    return request.query.b
`, `from bottle import request, get


@get('/third')
def third():
    return request.cookies.session
`}, 3, 3, pysec.NewConfig()}}
)
