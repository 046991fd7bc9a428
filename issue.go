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

package pysec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/securego/pysec/cwe"
	"github.com/securego/pysec/taint"
)

// Score type used by severity and confidence values
type Score int

const (
	// Low severity or confidence
	Low Score = iota
	// Medium severity or confidence
	Medium
	// High severity or confidence
	High
)

// SnippetOffset defines the number of lines captured before
// the beginning and after the end of a code snippet
const SnippetOffset = 1

// Rule IDs, one per taint category.
const (
	RuleXSS  = "PY101"
	RuleSQLI = "PY102"
	RuleDB   = "PY103"
)

// RuleInfo describes the rule reported for one taint category.
type RuleInfo struct {
	ID         string
	Category   taint.Level
	What       string
	Severity   Score
	Confidence Score
	CweID      string
}

// Rules lists every rule pysec reports, in category order.
var Rules = []RuleInfo{
	{ID: RuleXSS, Category: taint.XSS, What: "Request data reaches HTML output unescaped", Severity: High, Confidence: Medium, CweID: "79"},
	{ID: RuleSQLI, Category: taint.SQLI, What: "Request data reaches a query unsanitized", Severity: High, Confidence: Medium, CweID: "89"},
	{ID: RuleDB, Category: taint.DB, What: "Unvalidated request data reaches storage", Severity: Medium, Confidence: Low, CweID: "20"},
}

// RuleForCategory returns the rule of a single taint category.
func RuleForCategory(category taint.Level) (RuleInfo, bool) {
	for _, r := range Rules {
		if r.Category == category {
			return r, true
		}
	}
	return RuleInfo{}, false
}

// GetCweByRule retrieves a cwe weakness for a given RuleID
func GetCweByRule(id string) *cwe.Weakness {
	for _, r := range Rules {
		if r.ID == id {
			return cwe.Get(r.CweID)
		}
	}
	return nil
}

// Issue is returned by pysec if it discovers a tainted flow in the scanned code.
type Issue struct {
	Severity   Score         `json:"severity"`   // issue severity (how problematic it is)
	Confidence Score         `json:"confidence"` // issue confidence (how sure we are we found it)
	Cwe        *cwe.Weakness `json:"cwe"`        // Cwe associated with RuleID
	RuleID     string        `json:"rule_id"`    // Rule identifier
	What       string        `json:"details"`    // Human readable explanation
	File       string        `json:"file"`       // File name we found it in
	Code       string        `json:"code"`       // Impacted code line
	Line       string        `json:"line"`       // Line number in file
	Col        string        `json:"column"`     // Column number in line
	Handler    string        `json:"handler"`    // Route of the handler returning the value
	NoSec      bool          `json:"nosec"`      // true if the issue is nosec
}

// FileLocation point out the file path and line number in file
func (i *Issue) FileLocation() string {
	return fmt.Sprintf("%s:%s", i.File, i.Line)
}

// MarshalJSON is used convert a Score object into a JSON representation
func (c Score) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// MarshalYAML is used convert a Score object into a YAML representation
func (c Score) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// String converts a Score into a string
func (c Score) String() string {
	switch c {
	case High:
		return "HIGH"
	case Medium:
		return "MEDIUM"
	case Low:
		return "LOW"
	}
	return "UNDEFINED"
}

// ParseScore parses a severity or confidence name.
func ParseScore(s string) (Score, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return Low, nil
	case "MEDIUM":
		return Medium, nil
	case "HIGH":
		return High, nil
	}
	return Low, fmt.Errorf("unknown score %q", s)
}

// codeSnippet renders the source lines start..end (1-based, inclusive)
// prefixed by their line number.
func codeSnippet(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	var buf bytes.Buffer
	for pos := start; pos <= end; pos++ {
		fmt.Fprintf(&buf, "%d: %s\n", pos, lines[pos-1])
	}
	return buf.String()
}

// NewIssues converts a finding into one issue per category it carries.
func NewIssues(file string, lines []string, f taint.Finding) []*Issue {
	code := codeSnippet(lines, f.Line-SnippetOffset, f.Line+SnippetOffset)
	col := 1
	if f.Line >= 1 && f.Line <= len(lines) {
		col = len(lines[f.Line-1]) - len(strings.TrimLeft(lines[f.Line-1], " \t")) + 1
	}

	var issues []*Issue
	for _, c := range []taint.Level{taint.XSS, taint.SQLI, taint.DB} {
		if !f.Level.Has(c) {
			continue
		}
		rule, _ := RuleForCategory(c)
		issues = append(issues, &Issue{
			File:       file,
			Line:       strconv.Itoa(f.Line),
			Col:        strconv.Itoa(col),
			RuleID:     rule.ID,
			What:       fmt.Sprintf("%s: %s", rule.What, f.Message),
			Confidence: rule.Confidence,
			Severity:   rule.Severity,
			Code:       code,
			Cwe:        cwe.Get(rule.CweID),
			Handler:    f.Handler.String(),
		})
	}
	return issues
}
