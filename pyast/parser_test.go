package pyast_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/securego/pysec/pyast"
)

func mustParse(src string) *pyast.File {
	file, err := pyast.Parse(context.Background(), []byte(src), "test.py")
	Expect(err).ToNot(HaveOccurred())
	return file
}

var _ = Describe("Parser", func() {
	It("should reject invalid UTF-8", func() {
		_, err := pyast.Parse(context.Background(), []byte{0xff, 0xfe, 'a'}, "bad.py")
		Expect(err).To(MatchError(pyast.ErrInvalidContent))
	})

	It("should honor a canceled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := pyast.Parse(ctx, []byte("a = 1\n"), "a.py")
		Expect(err).To(MatchError(context.Canceled))
	})

	It("should convert imports", func() {
		file := mustParse("import os.path\nimport bottle as b\nfrom bottle import request, route as r\nfrom . import views\nfrom x import *\n")
		body := file.Root.Body
		Expect(body).To(HaveLen(5))

		Expect(body[0].Kind).To(Equal(pyast.Import))
		Expect(body[0].Names).To(Equal([]pyast.Alias{{Name: "os.path"}}))
		Expect(body[1].Names[0].Bound()).To(Equal("b"))

		Expect(body[2].Kind).To(Equal(pyast.ImportFrom))
		Expect(body[2].Module).To(Equal("bottle"))
		Expect(body[2].Names).To(Equal([]pyast.Alias{{Name: "request"}, {Name: "route", AsName: "r"}}))
		Expect(body[2].Line).To(Equal(3))

		Expect(body[3].Module).To(Equal("."))
		Expect(body[3].Names).To(Equal([]pyast.Alias{{Name: "views"}}))
		Expect(body[4].Names).To(Equal([]pyast.Alias{{Name: "*"}}))
	})

	It("should convert decorated functions", func() {
		file := mustParse(`@route('/x', method='POST')
def handler(a, b=1, *args, c: int = 2, **kw):
    return a
`)
		fn := file.Root.Body[0]
		Expect(fn.Kind).To(Equal(pyast.FunctionDef))
		Expect(fn.Name).To(Equal("handler"))
		Expect(fn.Line).To(Equal(2))
		Expect(fn.Params).To(Equal([]string{"a", "b", "args", "c", "kw"}))

		Expect(fn.Decorators).To(HaveLen(1))
		dec := fn.Decorators[0]
		Expect(dec.Kind).To(Equal(pyast.Call))
		Expect(dec.X.Name).To(Equal("route"))
		Expect(dec.Args).To(HaveLen(1))
		Expect(dec.Args[0].IsStringLiteral()).To(BeTrue())
		Expect(dec.Args[0].Value).To(Equal("/x"))
		Expect(dec.Keywords).To(HaveLen(1))
		Expect(dec.Keywords[0].Name).To(Equal("method"))
		Expect(dec.Keywords[0].Value.Value).To(Equal("POST"))

		Expect(fn.Body).To(HaveLen(1))
		Expect(fn.Body[0].Kind).To(Equal(pyast.Return))
		Expect(fn.Body[0].X.Name).To(Equal("a"))
	})

	It("should convert expressions", func() {
		file := mustParse(`a = '<p>%s</p>' % (x, y)
b = "<p>" + request.query.v + "</p>"
c = f"<b>{name}</b>"
d = {'k': v, other: w, **rest}
e = d['k']
f = g(1, *args, key=2, **kw)
h = lambda p: p
`)
		body := file.Root.Body
		Expect(body).To(HaveLen(7))
		for _, s := range body {
			Expect(s.Kind).To(Equal(pyast.Assign))
			Expect(s.Targets).To(HaveLen(1))
		}

		mod := body[0].X
		Expect(mod.Kind).To(Equal(pyast.BinOp))
		Expect(mod.Op).To(Equal(pyast.OpMod))
		Expect(mod.Y.Kind).To(Equal(pyast.Tuple))
		Expect(mod.Y.Elts).To(HaveLen(2))

		concat := body[1].X
		Expect(concat.Op).To(Equal(pyast.OpAdd))
		path, ok := pyast.DottedName(concat.X.Y)
		Expect(ok).To(BeTrue())
		Expect(path).To(Equal("request.query.v"))

		fstr := body[2].X
		Expect(fstr.Kind).To(Equal(pyast.FormattedString))
		Expect(fstr.Elts).To(HaveLen(1))
		Expect(fstr.Elts[0].Name).To(Equal("name"))

		dict := body[3].X
		Expect(dict.Kind).To(Equal(pyast.Dict))
		Expect(dict.Keys).To(HaveLen(3))
		Expect(dict.Keys[0].IsStringLiteral()).To(BeTrue())
		Expect(dict.Keys[1].Kind).To(Equal(pyast.Name))
		Expect(dict.Keys[2]).To(BeNil())
		Expect(dict.Elts).To(HaveLen(3))

		sub := body[4].X
		Expect(sub.Kind).To(Equal(pyast.Subscript))
		Expect(sub.Y.Value).To(Equal("k"))

		call := body[5].X
		Expect(call.Kind).To(Equal(pyast.Call))
		Expect(call.Args).To(HaveLen(2))
		Expect(call.Star).To(BeTrue())
		Expect(call.DoubleStar).To(BeTrue())
		Expect(call.Keywords).To(HaveLen(1))

		lambda := body[6].X
		Expect(lambda.Kind).To(Equal(pyast.Lambda))
		Expect(lambda.Params).To(Equal([]string{"p"}))
		Expect(lambda.X.Name).To(Equal("p"))
	})

	It("should lower tuple and augmented assignments", func() {
		file := mustParse("a, b = x, y\na += z\na = b = c\n")
		body := file.Root.Body

		Expect(body[0].Targets[0].Kind).To(Equal(pyast.Tuple))
		Expect(body[0].X.Kind).To(Equal(pyast.Tuple))

		aug := body[1]
		Expect(aug.Kind).To(Equal(pyast.Assign))
		Expect(aug.X.Kind).To(Equal(pyast.BinOp))
		Expect(aug.X.Op).To(Equal(pyast.OpAdd))
		Expect(aug.X.X.Name).To(Equal("a"))
		Expect(aug.X.Y.Name).To(Equal("z"))

		Expect(body[2].Targets).To(HaveLen(2))
		Expect(body[2].X.Name).To(Equal("c"))
	})

	It("should nest elif chains in the else arm", func() {
		file := mustParse(`if a:
    x = 1
elif b:
    x = 2
else:
    x = 3
`)
		top := file.Root.Body[0]
		Expect(top.Kind).To(Equal(pyast.If))
		Expect(top.Body).To(HaveLen(1))
		Expect(top.Orelse).To(HaveLen(1))
		elif := top.Orelse[0]
		Expect(elif.Kind).To(Equal(pyast.If))
		Expect(elif.Line).To(Equal(3))
		Expect(elif.Test.Name).To(Equal("b"))
		Expect(elif.Orelse).To(HaveLen(1))
		Expect(elif.Orelse[0].Line).To(Equal(6))
	})

	It("should convert loops", func() {
		file := mustParse(`for i in items:
    pass
else:
    done = 1
while running:
    step()
`)
		loop := file.Root.Body[0]
		Expect(loop.Kind).To(Equal(pyast.For))
		Expect(loop.Target.Name).To(Equal("i"))
		Expect(loop.X.Name).To(Equal("items"))
		Expect(loop.Orelse).To(HaveLen(1))

		w := file.Root.Body[1]
		Expect(w.Kind).To(Equal(pyast.While))
		Expect(w.Test.Name).To(Equal("running"))
		Expect(w.Body[0].Kind).To(Equal(pyast.ExprStmt))
	})

	It("should keep statements nested in unmodeled blocks", func() {
		file := mustParse(`try:
    a = 1
except ValueError:
    b = 2
finally:
    c = 3
with open(p) as fh:
    d = 4
`)
		try := file.Root.Body[0]
		Expect(try.Kind).To(Equal(pyast.Unknown))
		Expect(try.Body).To(HaveLen(3))
		Expect(try.Body[2].Targets[0].Name).To(Equal("c"))

		with := file.Root.Body[1]
		Expect(with.Kind).To(Equal(pyast.Unknown))
		Expect(with.Body).To(HaveLen(1))
	})

	It("should report syntax errors and still convert the rest", func() {
		file := mustParse("a = 1\ndef broken(:\n    pass\nb = 2\n")
		Expect(file.Errors).ToNot(BeEmpty())
		Expect(file.Root.Kind).To(Equal(pyast.Module))
		Expect(file.Lines).To(Equal(5))
	})

	It("should unquote string literals", func() {
		file := mustParse(`a = r'raw'
b = """doc"""
c = 'x' 'y'
`)
		Expect(file.Root.Body[0].X.Value).To(Equal("raw"))
		Expect(file.Root.Body[1].X.Value).To(Equal("doc"))
		Expect(file.Root.Body[2].X.Value).To(Equal("xy"))
	})
})

var _ = Describe("Node", func() {
	It("should print kinds by name", func() {
		Expect(pyast.Call.String()).To(Equal("Call"))
		Expect(pyast.Kind(99).String()).To(Equal("Kind(99)"))
	})

	It("should build dotted names only from name chains", func() {
		n := &pyast.Node{Kind: pyast.Attribute, Name: "b", X: &pyast.Node{Kind: pyast.Name, Name: "a"}}
		path, ok := pyast.DottedName(n)
		Expect(ok).To(BeTrue())
		Expect(path).To(Equal("a.b"))

		_, ok = pyast.DottedName(&pyast.Node{Kind: pyast.Attribute, Name: "b", X: &pyast.Node{Kind: pyast.Call}})
		Expect(ok).To(BeFalse())
	})
})
