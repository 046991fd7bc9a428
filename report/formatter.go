// (c) Copyright 2016 Hewlett Packard Enterprise Development LP
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package report

import (
	"io"

	"github.com/securego/pysec"
	"github.com/securego/pysec/report/csv"
	"github.com/securego/pysec/report/golint"
	"github.com/securego/pysec/report/json"
	"github.com/securego/pysec/report/junit"
	"github.com/securego/pysec/report/sarif"
	"github.com/securego/pysec/report/sonar"
	"github.com/securego/pysec/report/text"
	"github.com/securego/pysec/report/yaml"
)

// Formats lists the accepted output formats.
var Formats = []string{"json", "yaml", "csv", "junit-xml", "text", "sonarqube", "golint", "sarif"}

// CreateReport generates a report based for the supplied issues and metrics given
// the specified format. The formats currently accepted are: json, yaml, csv, junit-xml, sonarqube, golint, sarif and text.
func CreateReport(w io.Writer, format string, enableColor bool, rootPaths []string, data *pysec.ReportInfo) error {
	var err error
	if format != "json" && format != "sarif" {
		data.Issues = filterOutSuppressedIssues(data.Issues)
	}
	switch format {
	case "json":
		err = json.WriteReport(w, data)
	case "yaml":
		err = yaml.WriteReport(w, data)
	case "csv":
		err = csv.WriteReport(w, data)
	case "junit-xml":
		err = junit.WriteReport(w, data)
	case "text":
		err = text.WriteReport(w, data, enableColor)
	case "sonarqube":
		err = sonar.WriteReport(w, data, rootPaths)
	case "golint":
		err = golint.WriteReport(w, data)
	case "sarif":
		err = sarif.WriteReport(w, data, rootPaths)
	default:
		err = text.WriteReport(w, data, enableColor)
	}
	return err
}

func filterOutSuppressedIssues(issues []*pysec.Issue) []*pysec.Issue {
	nonSuppressedIssues := []*pysec.Issue{}
	for _, issue := range issues {
		if !issue.NoSec {
			nonSuppressedIssues = append(nonSuppressedIssues, issue)
		}
	}
	return nonSuppressedIssues
}
