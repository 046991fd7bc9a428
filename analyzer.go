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

// Package pysec holds the central scanning logic used by pysec: it parses
// Python files, runs the taint engine on each of them and collects issues,
// handler registrations, errors and metrics.
package pysec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/securego/pysec/pyast"
	"github.com/securego/pysec/taint"
)

// Metrics used when reporting information about a scanning run.
type Metrics struct {
	NumFiles    int `json:"files"`
	NumLines    int `json:"lines"`
	NumNosec    int `json:"nosec"`
	NumFound    int `json:"found"`
	NumHandlers int `json:"handlers"`
}

// HandlerInfo is a request handler found while scanning.
type HandlerInfo struct {
	File       string   `json:"file"`
	Method     string   `json:"method"`
	Path       string   `json:"path"`
	Name       string   `json:"name"`
	Line       int      `json:"line"`
	Categories []string `json:"categories"`
}

// nosecPattern matches "#nosec" and "# nosec", optionally followed by the
// rule IDs it applies to.
var nosecPattern = regexp.MustCompile(`#\s*nosec\b([^#]*)`)

var ruleIDPattern = regexp.MustCompile(`PY\d{3}`)

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithConcurrency bounds the number of files analyzed in parallel.
func WithConcurrency(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithPathFilter drops issues excluded for their file path.
func WithPathFilter(f *PathExclusionFilter) AnalyzerOption {
	return func(a *Analyzer) {
		a.pathFilter = f
	}
}

// WithRuleSelection keeps only the included rule IDs (all when empty) minus
// the excluded ones.
func WithRuleSelection(include, exclude []string) AnalyzerOption {
	return func(a *Analyzer) {
		a.include = idSet(include)
		a.exclude = idSet(exclude)
	}
}

func idSet(ids []string) map[string]bool {
	set := map[string]bool{}
	for _, id := range ids {
		if id = strings.ToUpper(strings.TrimSpace(id)); id != "" {
			set[id] = true
		}
	}
	return set
}

// Analyzer is the main object of pysec. It analyzes files with the taint
// engine and accumulates the results of every processed file.
type Analyzer struct {
	config      Config
	logger      *zap.Logger
	parser      *pyast.Parser
	engine      *taint.Analyzer
	ignoreNosec bool
	showIgnored bool
	concurrency int
	pathFilter  *PathExclusionFilter
	include     map[string]bool
	exclude     map[string]bool

	mu       sync.Mutex
	issues   []*Issue
	handlers []HandlerInfo
	errors   map[string][]Error
	stats    *Metrics
}

// NewAnalyzer builds a new analyzer resolving rules through catalog.
func NewAnalyzer(conf Config, catalog taint.Catalog, logger *zap.Logger, opts ...AnalyzerOption) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if conf == nil {
		conf = NewConfig()
	}
	ignoreNoSec, _ := conf.IsGlobalEnabled(Nosec)
	showIgnored, _ := conf.IsGlobalEnabled(ShowIgnored)
	concurrency, err := conf.GetGlobalInt(Concurrency, runtime.GOMAXPROCS(0))
	if err != nil {
		logger.Warn("invalid concurrency setting", zap.Error(err))
	}

	a := &Analyzer{
		config:      conf,
		logger:      logger,
		parser:      pyast.NewParser(pyast.WithLogger(logger)),
		engine:      taint.NewAnalyzer(catalog, taint.WithLogger(logger)),
		ignoreNosec: ignoreNoSec,
		showIgnored: showIgnored,
		concurrency: concurrency,
		include:     map[string]bool{},
		exclude:     map[string]bool{},
		errors:      map[string][]Error{},
		stats:       &Metrics{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.concurrency < 1 {
		a.concurrency = 1
	}
	return a
}

// fileResult is what one file contributes to the report.
type fileResult struct {
	file     string
	lines    int
	issues   []*Issue
	handlers []HandlerInfo
	errors   []Error
	nosec    int
	skipped  bool
}

// Process analyzes the given Python files. Files are analyzed concurrently
// and merged in path order, so the report does not depend on scheduling.
// Per-file failures are recorded as errors; only cancellation aborts.
func (a *Analyzer) Process(ctx context.Context, paths ...string) error {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	results := make([]fileResult, len(sorted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, path := range sorted {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a.logger.Debug("checking file", zap.String("file", path))
			src, err := os.ReadFile(path)
			if err != nil {
				results[i] = fileResult{file: path, skipped: true, errors: []Error{{Err: err.Error()}}}
				return nil
			}
			results[i] = a.check(gctx, path, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("processing files: %w", err)
	}

	for _, r := range results {
		a.merge(r)
	}
	return nil
}

// ProcessSource analyzes one in-memory source file.
func (a *Analyzer) ProcessSource(ctx context.Context, filename string, src []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.merge(a.check(ctx, filename, src))
	return nil
}

func (a *Analyzer) check(ctx context.Context, filename string, src []byte) fileResult {
	r := fileResult{file: filename}
	file, err := a.parser.Parse(ctx, src, filename)
	if err != nil {
		a.logger.Warn("parse failed", zap.String("file", filename), zap.Error(err))
		r.skipped = true
		r.errors = append(r.errors, Error{Err: err.Error()})
		return r
	}
	r.lines = file.Lines
	for _, e := range file.Errors {
		r.errors = append(r.errors, Error{Line: e.Line, Column: e.Column, Err: e.Msg})
	}

	result, err := a.engine.Analyze(file.Root)
	if err != nil {
		if errors.Is(err, taint.ErrStructuralInvariant) {
			a.logger.Warn("analysis aborted", zap.String("file", filename), zap.Error(err))
		}
		r.errors = append(r.errors, Error{Err: err.Error()})
		return r
	}

	lines := strings.Split(string(src), "\n")
	for _, f := range result.Findings {
		for _, issue := range NewIssues(filename, lines, f) {
			if !a.selected(issue.RuleID) {
				continue
			}
			if a.pathFilter.ShouldExclude(filename, issue.RuleID) {
				continue
			}
			if a.suppressed(lines, f.Line, issue.RuleID) {
				issue.NoSec = true
				r.nosec++
			}
			r.issues = append(r.issues, issue)
		}
	}
	for _, e := range result.Handlers.Entries() {
		r.handlers = append(r.handlers, HandlerInfo{
			File:       filename,
			Method:     e.Route.Method,
			Path:       e.Route.Path,
			Name:       e.Handler.Name,
			Line:       e.Handler.Line,
			Categories: e.Handler.Level.Names(),
		})
	}
	a.logger.Debug("file checked",
		zap.String("file", filename),
		zap.Int("findings", len(result.Findings)),
		zap.Int("handlers", result.Handlers.Len()),
		zap.Int("gaps", len(result.Gaps)))
	return r
}

func (a *Analyzer) selected(ruleID string) bool {
	if len(a.include) > 0 && !a.include[ruleID] {
		return false
	}
	return !a.exclude[ruleID]
}

// suppressed reports whether the source line carries a nosec comment that
// applies to ruleID.
func (a *Analyzer) suppressed(lines []string, line int, ruleID string) bool {
	if a.ignoreNosec || line < 1 || line > len(lines) {
		return false
	}
	m := nosecPattern.FindStringSubmatch(lines[line-1])
	if m == nil {
		return false
	}
	ids := ruleIDPattern.FindAllString(strings.ToUpper(m[1]), -1)
	if len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if id == ruleID {
			return true
		}
	}
	return false
}

func (a *Analyzer) merge(r fileResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(r.errors) > 0 {
		a.errors[r.file] = append(a.errors[r.file], r.errors...)
	}
	if r.skipped {
		return
	}
	a.stats.NumFiles++
	a.stats.NumLines += r.lines
	a.stats.NumNosec += r.nosec
	a.stats.NumHandlers += len(r.handlers)
	for _, issue := range r.issues {
		if !issue.NoSec || a.showIgnored {
			a.stats.NumFound++
		}
	}
	a.issues = append(a.issues, r.issues...)
	a.handlers = append(a.handlers, r.handlers...)
}

// Report returns the current issues discovered, the metrics about the scan
// and the errors per file.
func (a *Analyzer) Report() ([]*Issue, *Metrics, map[string][]Error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sortErrors(a.errors)
	stats := *a.stats
	return append([]*Issue(nil), a.issues...), &stats, a.errors
}

// Handlers returns the request handlers found so far.
func (a *Analyzer) Handlers() []HandlerInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]HandlerInfo(nil), a.handlers...)
}

// Config returns the analyzer configuration.
func (a *Analyzer) Config() Config {
	return a.config
}

// Reset clears issues, handlers, errors and metrics.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.issues = nil
	a.handlers = nil
	a.errors = map[string][]Error{}
	a.stats = &Metrics{}
}
