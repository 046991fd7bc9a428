package junit

import (
	"html"

	"github.com/securego/pysec"
)

func generatePlaintext(issue *pysec.Issue) string {
	return "Results:\n" +
		"[" + issue.File + ":" + issue.Line + "] - " +
		issue.What + " (Handler: " + issue.Handler +
		", Confidence: " + issue.Confidence.String() +
		", Severity: " + issue.Severity.String() +
		", CWE: " + issue.Cwe.SprintID() + ")\n" + "> " + html.EscapeString(issue.Code)
}

// GenerateReport converts a pysec report to a JUnit report with one
// testsuite per rule.
func GenerateReport(data *pysec.ReportInfo) Report {
	var xmlReport Report
	testsuites := map[string]int{}

	for _, issue := range data.Issues {
		index, ok := testsuites[issue.RuleID]
		if !ok {
			xmlReport.Testsuites = append(xmlReport.Testsuites, NewTestsuite(issue.RuleID))
			index = len(xmlReport.Testsuites) - 1
			testsuites[issue.RuleID] = index
		}
		failure := NewFailure("Found 1 vulnerability. See stacktrace for details.", generatePlaintext(issue))
		testcase := NewTestcase(issue.FileLocation(), failure)

		xmlReport.Testsuites[index].Testcases = append(xmlReport.Testsuites[index].Testcases, testcase)
		xmlReport.Testsuites[index].Tests++
	}
	return xmlReport
}
