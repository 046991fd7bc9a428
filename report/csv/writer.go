package csv

import (
	"encoding/csv"
	"io"

	"github.com/securego/pysec"
)

// WriteReport write a report in csv format to the output writer
func WriteReport(w io.Writer, data *pysec.ReportInfo) error {
	out := csv.NewWriter(w)
	defer out.Flush()
	for _, issue := range data.Issues {
		err := out.Write([]string{
			issue.File,
			issue.Line,
			issue.RuleID,
			issue.What,
			issue.Handler,
			issue.Severity.String(),
			issue.Confidence.String(),
			issue.Code,
			issue.Cwe.SprintID(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
