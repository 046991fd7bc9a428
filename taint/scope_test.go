package taint_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/securego/pysec/taint"
)

var _ = Describe("ScopeStack", func() {
	var stack *taint.ScopeStack

	BeforeEach(func() {
		stack = taint.NewScopeStack("app")
	})

	It("should start with a module scope that cannot be popped", func() {
		Expect(stack.Depth()).To(Equal(1))
		Expect(stack.Innermost().Kind).To(Equal(taint.ModuleScope))
		_, err := stack.Pop()
		Expect(err).To(MatchError(taint.ErrStructuralInvariant))
		Expect(stack.Depth()).To(Equal(1))
	})

	It("should look names up from the innermost scope outwards", func() {
		stack.Assign("a", taint.Scalar(taint.XSS))
		stack.Push(taint.NewScope(taint.FunctionScope, "f"))
		stack.Declare("a", taint.Scalar(taint.DB))

		v, err := stack.Lookup("a")
		Expect(err).ToNot(HaveOccurred())
		Expect(v).To(Equal(taint.Value(taint.Scalar(taint.DB))))

		_, err = stack.Pop()
		Expect(err).ToNot(HaveOccurred())
		v, err = stack.Lookup("a")
		Expect(err).ToNot(HaveOccurred())
		Expect(v).To(Equal(taint.Value(taint.Scalar(taint.XSS))))
	})

	It("should report unbound names", func() {
		_, err := stack.Lookup("missing")
		Expect(err).To(MatchError(taint.ErrNotFound))
		Expect(stack.LookupOr("missing", taint.Scalar(taint.None))).To(Equal(taint.Value(taint.Scalar(taint.None))))
	})

	It("should overwrite the nearest existing binding instead of shadowing", func() {
		stack.Assign("a", taint.Scalar(taint.None))
		stack.Push(taint.NewScope(taint.FunctionScope, "f"))
		stack.Assign("a", taint.Scalar(taint.XSS))
		stack.Assign("b", taint.Scalar(taint.DB))
		Expect(stack.Innermost().Len()).To(Equal(1))

		_, err := stack.Pop()
		Expect(err).ToNot(HaveOccurred())
		Expect(stack.LookupOr("a", nil)).To(Equal(taint.Value(taint.Scalar(taint.XSS))))
		_, err = stack.Lookup("b")
		Expect(err).To(MatchError(taint.ErrNotFound))
	})

	It("should isolate forks from each other and from the original", func() {
		stack.Assign("a", taint.Scalar(taint.None))
		stack.Push(taint.NewScope(taint.FunctionScope, "f"))
		fork := stack.Fork()

		fork.Assign("a", taint.Scalar(taint.XSS))
		fork.Assign("local", taint.Scalar(taint.DB))
		stack.Assign("other", taint.Scalar(taint.SQLI))

		Expect(stack.LookupOr("a", nil)).To(Equal(taint.Value(taint.Scalar(taint.None))))
		_, err := stack.Lookup("local")
		Expect(err).To(HaveOccurred())
		_, err = fork.Lookup("other")
		Expect(err).To(HaveOccurred())
		Expect(fork.Depth()).To(Equal(stack.Depth()))
	})

	Context("merge", func() {
		It("should keep equal bindings and join differing ones", func() {
			stack.Assign("same", taint.Scalar(taint.DB))
			left, right := stack.Fork(), stack.Fork()
			left.Assign("a", taint.Scalar(taint.XSS))
			right.Assign("a", taint.Scalar(taint.None))
			left.Assign("only", taint.Scalar(taint.SQLI))

			Expect(taint.Merge(stack, left, right)).To(Succeed())

			Expect(stack.LookupOr("same", nil)).To(Equal(taint.Value(taint.Scalar(taint.DB))))
			a := stack.LookupOr("a", nil)
			Expect(a).To(BeAssignableToTypeOf(taint.List{}))
			Expect(taint.Truthy(a)).To(BeTrue())
			Expect(taint.Truthy(taint.And(a, taint.XSS))).To(BeTrue())
			Expect(taint.Truthy(taint.And(a, taint.Generic))).To(BeFalse())

			only := stack.LookupOr("only", nil)
			Expect(only.(taint.List).Len()).To(Equal(1))
		})

		It("should reject stacks of different depth", func() {
			left, right := stack.Fork(), stack.Fork()
			left.Push(taint.NewScope(taint.FunctionScope, "f"))
			Expect(taint.Merge(stack, left, right)).To(MatchError(taint.ErrStructuralInvariant))
		})

		It("should reject scopes of different kinds", func() {
			stack.Push(taint.NewScope(taint.FunctionScope, "f"))
			left, right := stack.Fork(), stack.Fork()
			_, err := right.Pop()
			Expect(err).ToNot(HaveOccurred())
			right.Push(taint.NewScope(taint.ClassScope, "C"))
			Expect(taint.Merge(stack, left, right)).To(MatchError(taint.ErrStructuralInvariant))
		})
	})
})
