package taint_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/securego/pysec/taint"
)

var _ = Describe("Dictionary", func() {
	var (
		x = taint.Scalar(taint.XSS)
		y = taint.Scalar(taint.DB)
		d *taint.Dictionary
	)

	BeforeEach(func() {
		d = taint.NewDictionary().
			Store("a", true, x).
			Store("b", true, taint.Scalar(taint.None))
	})

	It("should look up literal keys individually", func() {
		Expect(d.HasDynamic()).To(BeFalse())
		Expect(d.Lookup("a", true).Level()).To(Equal(taint.XSS))
		Expect(d.Lookup("b", true).Level()).To(Equal(taint.None))
		Expect(d.Lookup("missing", true).Level()).To(Equal(taint.None))
		Expect(d.Lookup("", false).Level()).To(Equal(taint.None))
	})

	It("should widen every key after a dynamic store", func() {
		widened := d.Store("", false, y)
		Expect(widened.HasDynamic()).To(BeTrue())
		Expect(widened.Lookup("a", true).Level()).To(Equal(taint.XSS | taint.DB))
		Expect(widened.Lookup("b", true).Level()).To(Equal(taint.DB))
		Expect(widened.Lookup("", false).Level()).To(Equal(taint.DB))

		again := widened.Store("c", true, taint.Scalar(taint.None))
		Expect(again.HasDynamic()).To(BeTrue())
		Expect(again.Lookup("c", true).Level()).To(Equal(taint.DB))
	})

	It("should not change the receiver on store", func() {
		_ = d.Store("", false, y)
		_ = d.Store("b", true, y)
		Expect(d.HasDynamic()).To(BeFalse())
		Expect(d.Lookup("b", true).Level()).To(Equal(taint.None))
	})

	It("should keep a literal store local to its key", func() {
		stored := d.Store("c", true, taint.Scalar(taint.SQLI))
		Expect(stored.Lookup("b", true).Level()).To(Equal(taint.None))
		Expect(stored.Lookup("c", true).Level()).To(Equal(taint.SQLI))
	})

	It("should report the union of its contents as its level", func() {
		Expect(d.Level()).To(Equal(taint.XSS))
		Expect(d.Store("", false, y).Level()).To(Equal(taint.XSS | taint.DB))
	})

	It("should compare structurally", func() {
		other := taint.NewDictionary().Store("b", true, taint.Scalar(taint.None)).Store("a", true, x)
		Expect(d.Equal(other)).To(BeTrue())
		Expect(d.Equal(d.Store("", false, taint.Scalar(taint.None)))).To(BeFalse())
	})
})
