package golint

import (
	"fmt"
	"io"

	"github.com/securego/pysec"
)

// WriteReport write a report in golint format to the output writer
func WriteReport(w io.Writer, data *pysec.ReportInfo) error {
	// Output Sample:
	// /tmp/app.py:5:5: [CWE-79] Request data reaches HTML output unescaped: ... (Rule:PY101, Severity:HIGH, Confidence:MEDIUM)

	for _, issue := range data.Issues {
		what := issue.What
		if issue.Cwe != nil && issue.Cwe.ID != "" {
			what = fmt.Sprintf("[%s] %s", issue.Cwe.SprintID(), issue.What)
		}

		_, err := fmt.Fprintf(w, "%s:%s:%s: %s (Rule:%s, Severity:%s, Confidence:%s)\n",
			issue.File,
			issue.Line,
			issue.Col,
			what,
			issue.RuleID,
			issue.Severity.String(),
			issue.Confidence.String(),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
