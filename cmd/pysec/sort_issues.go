package main

import (
	"sort"
	"strconv"

	"github.com/securego/pysec"
)

func lineNumber(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

type sortBySeverity []*pysec.Issue

func (s sortBySeverity) Len() int { return len(s) }

func (s sortBySeverity) Less(i, j int) bool {
	if s[i].Severity == s[j].Severity {
		if s[i].RuleID == s[j].RuleID {
			if s[i].File == s[j].File {
				return lineNumber(s[i].Line) > lineNumber(s[j].Line)
			}
			return s[i].File > s[j].File
		}
		return s[i].RuleID > s[j].RuleID
	}
	return s[i].Severity > s[j].Severity
}

func (s sortBySeverity) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

// sortIssues sorts the issues by severity in descending order
func sortIssues(issues []*pysec.Issue) {
	sort.Sort(sortBySeverity(issues))
}
