// Package taint propagates taint through a Python syntax tree built by
// package pyast. Sources seed taint on attribute chains, values flow through
// expressions and assignments on a lexical scope stack, branching control
// flow is forked and merged, and a return statement inside a registered
// request handler that still carries one of the handler's categories is
// reported as a Finding.
//
// The analysis over-approximates: unknown constructs degrade to zero taint
// and are recorded as resolution gaps instead of stopping the run.
package taint

import (
	"fmt"
	"strings"

	"github.com/securego/pysec/pyast"
)

// SinkRule describes a decorator that registers a request handler.
type SinkRule struct {
	// Level holds the categories the handler's return value must not carry.
	Level Level
	// PathArg is the positional argument holding the route path.
	PathArg int
	// MethodKeyword is the keyword argument naming the HTTP method.
	MethodKeyword string
	// DefaultMethod applies when the method keyword is absent.
	DefaultMethod string
}

// Catalog answers rule lookups. Unmatched lookups return the zero level.
type Catalog interface {
	// LookupSource matches a dotted attribute path against source prefixes.
	LookupSource(path string) (Level, bool)
	// LookupSink matches the full name of a decorator callable.
	LookupSink(decorator string) (SinkRule, bool)
	// LookupSanitizer returns the categories a callable strips.
	LookupSanitizer(name string) Level
}

// Route identifies a registered request handler.
type Route struct {
	Method string `json:"method" yaml:"method"`
	Path   string `json:"path" yaml:"path"`
}

func (r Route) String() string {
	return r.Method + " " + r.Path
}

// Handler is a function registered by a sink decorator.
type Handler struct {
	Name  string      `json:"name" yaml:"name"`
	Line  int         `json:"line" yaml:"line"`
	Level Level       `json:"level" yaml:"level"`
	Node  *pyast.Node `json:"-" yaml:"-"`
}

// Finding is a tainted value returned from a handler.
type Finding struct {
	Line       int      `json:"line" yaml:"line"`
	Categories []string `json:"categories" yaml:"categories"`
	Level      Level    `json:"level" yaml:"level"`
	Message    string   `json:"message" yaml:"message"`
	Handler    Route    `json:"handler" yaml:"handler"`
}

func newFinding(line int, masked Level, route Route, handler *Handler) Finding {
	names := masked.Names()
	return Finding{
		Line:       line,
		Categories: names,
		Level:      masked,
		Message: fmt.Sprintf("tainted return value reaches %s %s handler %s (%s)",
			route.Method, route.Path, handler.Name, strings.Join(names, ", ")),
		Handler: route,
	}
}

// Entry is one route of a Registry.
type Entry struct {
	Route   Route    `json:"route" yaml:"route"`
	Handler *Handler `json:"handler" yaml:"handler"`
}

// Registry maps routes to handlers in first-registration order. Registering
// an existing route replaces its handler in place.
type Registry struct {
	entries []Entry
	index   map[Route]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: map[Route]int{}}
}

// Register binds route to h.
func (r *Registry) Register(route Route, h *Handler) {
	if i, ok := r.index[route]; ok {
		r.entries[i].Handler = h
		return
	}
	r.index[route] = len(r.entries)
	r.entries = append(r.entries, Entry{Route: route, Handler: h})
}

// Lookup returns the handler of route.
func (r *Registry) Lookup(route Route) (*Handler, bool) {
	i, ok := r.index[route]
	if !ok {
		return nil, false
	}
	return r.entries[i].Handler, true
}

// Len returns the number of routes.
func (r *Registry) Len() int { return len(r.entries) }

// Entries returns the routes in registration order.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Result is the outcome of one analysis run.
type Result struct {
	Findings []Finding
	Handlers *Registry
	Gaps     []ResolutionGap

	values map[*pyast.Node]Value
}

// ValueOf returns the value computed for an expression node.
func (r *Result) ValueOf(n *pyast.Node) (Value, bool) {
	v, ok := r.values[n]
	return v, ok
}
