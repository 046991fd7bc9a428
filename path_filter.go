package pysec

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/securego/pysec/internal/cache"
)

// PathExcludeRule drops the listed rule IDs for files whose path matches
// the Path regex. "*" drops every rule.
type PathExcludeRule struct {
	Path  string   `json:"path"`
	Rules []string `json:"rules"`
}

type pathRule struct {
	source PathExcludeRule
	re     *regexp.Regexp
	all    bool
	ids    map[string]struct{}
}

func (r pathRule) excludes(ruleID string) bool {
	if r.all {
		return true
	}
	_, ok := r.ids[ruleID]
	return ok
}

// PathExclusionFilter applies path based rule exclusions to issues.
type PathExclusionFilter struct {
	rules []pathRule
}

// NewPathExclusionFilter compiles the exclusion rules. Unknown rule IDs are
// rejected.
func NewPathExclusionFilter(rules []PathExcludeRule) (*PathExclusionFilter, error) {
	f := &PathExclusionFilter{}
	for i, rule := range rules {
		if rule.Path == "" {
			return nil, fmt.Errorf("exclude-rules[%d]: path cannot be empty", i)
		}
		re, err := regexp.Compile(rule.Path)
		if err != nil {
			return nil, fmt.Errorf("exclude-rules[%d]: invalid path regex %q: %w", i, rule.Path, err)
		}
		compiled := pathRule{source: rule, re: re, ids: map[string]struct{}{}}
		for _, id := range rule.Rules {
			id = strings.ToUpper(strings.TrimSpace(id))
			switch {
			case id == "*":
				compiled.all = true
			case id == "":
			case GetCweByRule(id) == nil:
				return nil, fmt.Errorf("exclude-rules[%d]: unknown rule %q", i, id)
			default:
				compiled.ids[id] = struct{}{}
			}
		}
		f.rules = append(f.rules, compiled)
	}
	return f, nil
}

// ShouldExclude reports whether ruleID is excluded for filePath.
func (f *PathExclusionFilter) ShouldExclude(filePath, ruleID string) bool {
	if f == nil {
		return false
	}
	normalized := filepath.ToSlash(strings.ReplaceAll(filePath, "\\", "/"))
	for _, rule := range f.rules {
		if rule.excludes(ruleID) && cache.RegexMatch(rule.re, normalized) {
			return true
		}
	}
	return false
}

// FilterIssues removes excluded issues and returns how many were dropped.
func (f *PathExclusionFilter) FilterIssues(issues []*Issue) ([]*Issue, int) {
	if f == nil || len(f.rules) == 0 {
		return issues, 0
	}
	kept := issues[:0:0]
	for _, i := range issues {
		if f.ShouldExclude(i.File, i.RuleID) {
			continue
		}
		kept = append(kept, i)
	}
	return kept, len(issues) - len(kept)
}

// ParseCLIExcludeRules parses "path:rule1,rule2;path2:rule3".
func ParseCLIExcludeRules(input string) ([]PathExcludeRule, error) {
	var rules []PathExcludeRule
	for i, part := range strings.Split(input, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sep := strings.LastIndex(part, ":")
		if sep < 0 {
			return nil, fmt.Errorf("exclude-rules part %d: missing ':' separator in %q", i+1, part)
		}
		path, list := strings.TrimSpace(part[:sep]), strings.TrimSpace(part[sep+1:])
		if path == "" {
			return nil, fmt.Errorf("exclude-rules part %d: path pattern cannot be empty", i+1)
		}
		var ids []string
		for _, id := range strings.Split(list, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("exclude-rules part %d: rules list cannot be empty", i+1)
		}
		rules = append(rules, PathExcludeRule{Path: path, Rules: ids})
	}
	return rules, nil
}

// MergeExcludeRules puts command line rules before configuration file rules.
func MergeExcludeRules(configRules, cliRules []PathExcludeRule) []PathExcludeRule {
	merged := make([]PathExcludeRule, 0, len(cliRules)+len(configRules))
	merged = append(merged, cliRules...)
	return append(merged, configRules...)
}

func (f *PathExclusionFilter) String() string {
	if f == nil || len(f.rules) == 0 {
		return "PathExclusionFilter{empty}"
	}
	parts := make([]string, 0, len(f.rules))
	for _, rule := range f.rules {
		if rule.all {
			parts = append(parts, rule.source.Path+":*")
			continue
		}
		ids := make([]string, 0, len(rule.ids))
		for id := range rule.ids {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		parts = append(parts, fmt.Sprintf("%s:[%s]", rule.source.Path, strings.Join(ids, ",")))
	}
	return fmt.Sprintf("PathExclusionFilter{%s}", strings.Join(parts, "; "))
}
