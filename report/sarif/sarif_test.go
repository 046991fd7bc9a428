package sarif_test

import (
	"bytes"
	"regexp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/securego/pysec"
	"github.com/securego/pysec/report/sarif"
)

func newIssue(ruleID string) *pysec.Issue {
	return &pysec.Issue{
		File:       "/home/src/project/app.py",
		Line:       "5",
		Col:        "5",
		RuleID:     ruleID,
		What:       "Request data reaches HTML output unescaped: tainted return value reaches GET / handler root (xss)",
		Confidence: pysec.Medium,
		Severity:   pysec.High,
		Code:       "4: def root():\n5:     return request.query.xss\n6: \n",
		Cwe:        pysec.GetCweByRule(ruleID),
		Handler:    "GET /",
	}
}

var _ = Describe("Sarif Formatter", func() {
	Context("when converting to Sarif issues", func() {
		It("sarif formatted report should contain the result", func() {
			buf := new(bytes.Buffer)
			reportInfo := pysec.NewReportInfo([]*pysec.Issue{}, &pysec.Metrics{}, map[string][]pysec.Error{}).WithVersion("v1.0.0")
			err := sarif.WriteReport(buf, reportInfo, []string{})
			Expect(err).ShouldNot(HaveOccurred())
			Expect(buf.String()).To(ContainSubstring("\"results\": ["))
			Expect(buf.String()).To(ContainSubstring("\"semanticVersion\": \"1.0.0\""))
		})

		It("sarif formatted report should contain the suppressed results", func() {
			suppressed := newIssue(pysec.RuleXSS)
			suppressed.NoSec = true

			reportInfo := pysec.NewReportInfo([]*pysec.Issue{suppressed}, &pysec.Metrics{}, map[string][]pysec.Error{})
			buf := new(bytes.Buffer)
			Expect(sarif.WriteReport(buf, reportInfo, []string{})).To(Succeed())
			result := buf.String()

			hasResults, _ := regexp.MatchString(`"results": \[(\s*){`, result)
			Expect(hasResults).To(BeTrue())
			hasSuppressions, _ := regexp.MatchString(`"suppressions": \[(\s*){`, result)
			Expect(hasSuppressions).To(BeTrue())
			Expect(result).To(ContainSubstring(`"kind": "inSource"`))
		})

		It("sarif formatted report should contain the one line code snippet", func() {
			reportInfo := pysec.NewReportInfo([]*pysec.Issue{newIssue(pysec.RuleXSS)}, &pysec.Metrics{}, nil)
			sarifReport, err := sarif.GenerateReport([]string{}, reportInfo)
			Expect(err).ShouldNot(HaveOccurred())
			region := sarifReport.Runs[0].Results[0].Locations[0].PhysicalLocation.Region
			Expect(region.Snippet.Text).Should(Equal("return request.query.xss"))
			Expect(region.StartLine).Should(Equal(5))
			Expect(region.StartColumn).Should(Equal(5))
			Expect(region.SourceLanguage).Should(Equal("python"))
		})

		It("sarif formatted report should use paths relative to the roots", func() {
			reportInfo := pysec.NewReportInfo([]*pysec.Issue{newIssue(pysec.RuleXSS)}, &pysec.Metrics{}, nil)
			sarifReport, err := sarif.GenerateReport([]string{"/home/src/project"}, reportInfo)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(sarifReport.Runs[0].Results[0].Locations[0].PhysicalLocation.ArtifactLocation.URI).Should(Equal("app.py"))
		})

		It("sarif formatted report should describe rules without the finding message", func() {
			reportInfo := pysec.NewReportInfo([]*pysec.Issue{newIssue(pysec.RuleXSS)}, &pysec.Metrics{}, nil)
			sarifReport, err := sarif.GenerateReport(nil, reportInfo)
			Expect(err).ShouldNot(HaveOccurred())
			rule := sarifReport.Runs[0].Tool.Driver.Rules[0]
			Expect(rule.ShortDescription.Text).Should(Equal("Request data reaches HTML output unescaped"))
			Expect(rule.Relationships[0].Target.ID).Should(Equal("79"))
			Expect(sarifReport.Runs[0].Taxonomies[0].Taxa[0].ID).Should(Equal("79"))
		})

		It("sarif formatted report should reject malformed lines", func() {
			broken := newIssue(pysec.RuleXSS)
			broken.Line = "five"
			_, err := sarif.GenerateReport(nil, pysec.NewReportInfo([]*pysec.Issue{broken}, &pysec.Metrics{}, nil))
			Expect(err).Should(HaveOccurred())
		})

		It("sarif formatted report should have proper rule index", func() {
			var issues []*pysec.Issue
			for _, rule := range []string{pysec.RuleDB, pysec.RuleXSS, pysec.RuleSQLI, pysec.RuleXSS, pysec.RuleDB} {
				issues = append(issues, newIssue(rule))
			}
			reportInfo := pysec.NewReportInfo(issues, &pysec.Metrics{}, map[string][]pysec.Error{})

			sarifReport, err := sarif.GenerateReport([]string{}, reportInfo)
			Expect(err).ShouldNot(HaveOccurred())

			resultRuleIndexes := map[string]int{}
			for _, result := range sarifReport.Runs[0].Results {
				resultRuleIndexes[result.RuleID] = result.RuleIndex
			}
			driverRuleIndexes := map[string]int{}
			for ruleIndex, rule := range sarifReport.Runs[0].Tool.Driver.Rules {
				driverRuleIndexes[rule.ID] = ruleIndex
			}
			Expect(resultRuleIndexes).Should(Equal(driverRuleIndexes))
			Expect(driverRuleIndexes).Should(Equal(map[string]int{"PY101": 0, "PY102": 1, "PY103": 2}))
		})
	})
})
