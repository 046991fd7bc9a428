package pysec_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"

	"github.com/securego/pysec"
	"github.com/securego/pysec/taint"
)

var _ = Describe("Issue", func() {
	lines := []string{
		"@route('/')",
		"def root():",
		"    return request.query.xss",
		"",
	}

	Context("when creating issues from a finding", func() {
		It("should create one issue per category", func() {
			finding := taint.Finding{
				Line:    3,
				Level:   taint.XSS | taint.SQLI,
				Message: "tainted return value reaches GET / handler root (xss, sqli)",
				Handler: taint.Route{Method: "GET", Path: "/"},
			}
			issues := pysec.NewIssues("app.py", lines, finding)
			Expect(issues).To(HaveLen(2))
			Expect(issues[0].RuleID).To(Equal(pysec.RuleXSS))
			Expect(issues[1].RuleID).To(Equal(pysec.RuleSQLI))
			Expect(issues[0].Cwe.ID).To(Equal("79"))
			Expect(issues[1].Cwe.ID).To(Equal("89"))
		})

		It("should fill location, snippet and handler", func() {
			finding := taint.Finding{Line: 3, Level: taint.XSS, Message: "msg", Handler: taint.Route{Method: "GET", Path: "/"}}
			issue := pysec.NewIssues("app.py", lines, finding)[0]
			Expect(issue.File).To(Equal("app.py"))
			Expect(issue.Line).To(Equal("3"))
			Expect(issue.Col).To(Equal("5"))
			Expect(issue.Handler).To(Equal("GET /"))
			Expect(issue.FileLocation()).To(Equal("app.py:3"))
			Expect(issue.Code).To(Equal("2: def root():\n3:     return request.query.xss\n4: \n"))
			Expect(issue.What).To(HavePrefix("Request data reaches HTML output unescaped: "))
			Expect(issue.Severity).To(Equal(pysec.High))
		})

		It("should clip the snippet at file boundaries", func() {
			finding := taint.Finding{Line: 1, Level: taint.DB}
			issue := pysec.NewIssues("app.py", lines[:1], finding)[0]
			Expect(issue.Code).To(Equal("1: @route('/')\n"))
			Expect(issue.RuleID).To(Equal(pysec.RuleDB))
		})

		It("should create nothing for an empty level", func() {
			Expect(pysec.NewIssues("app.py", lines, taint.Finding{Line: 3})).To(BeEmpty())
		})
	})

	Context("when looking up rules", func() {
		It("should map categories to rules", func() {
			rule, ok := pysec.RuleForCategory(taint.SQLI)
			Expect(ok).To(BeTrue())
			Expect(rule.ID).To(Equal("PY102"))

			_, ok = pysec.RuleForCategory(taint.Generic)
			Expect(ok).To(BeFalse())
		})

		It("should return the weakness of a rule", func() {
			Expect(pysec.GetCweByRule("PY103").ID).To(Equal("20"))
			Expect(pysec.GetCweByRule("G101")).To(BeNil())
		})
	})

	Context("when serializing scores", func() {
		It("should render scores by name", func() {
			data, err := json.Marshal(pysec.Medium)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal(`"MEDIUM"`))

			out, err := yaml.Marshal(map[string]pysec.Score{"severity": pysec.High})
			Expect(err).NotTo(HaveOccurred())
			Expect(string(out)).To(Equal("severity: HIGH\n"))
			Expect(pysec.Score(7).String()).To(Equal("UNDEFINED"))
		})

		It("should parse score names", func() {
			s, err := pysec.ParseScore(" medium ")
			Expect(err).NotTo(HaveOccurred())
			Expect(s).To(Equal(pysec.Medium))

			_, err = pysec.ParseScore("critical")
			Expect(err).To(HaveOccurred())
		})
	})
})
