package taint

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/securego/pysec/pyast"
)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger that receives resolution gaps at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithModuleName names the module scope. The name is attached to every
// logged resolution gap.
func WithModuleName(name string) Option {
	return func(a *Analyzer) {
		a.module = name
	}
}

// Analyzer walks a module tree and reports tainted handler returns. It keeps
// no state between calls to Analyze and may be reused.
type Analyzer struct {
	catalog Catalog
	logger  *zap.Logger
	module  string
}

// NewAnalyzer creates an Analyzer that resolves sources, sinks and
// sanitizers through catalog.
func NewAnalyzer(catalog Catalog, opts ...Option) *Analyzer {
	a := &Analyzer{
		catalog: catalog,
		logger:  zap.NewNop(),
		module:  "__main__",
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("taint")
	return a
}

// Analyze runs a single depth-first pass over root. A structural invariant
// violation aborts the run and no result is returned.
func (a *Analyzer) Analyze(root *pyast.Node) (*Result, error) {
	if root == nil {
		return nil, fmt.Errorf("analyze nil tree: %w", ErrStructuralInvariant)
	}
	w := &walker{
		catalog: a.catalog,
		logger:  a.logger.With(zap.String("module", a.module)),
		stack:   NewScopeStack(a.module),
		result: &Result{
			Handlers: NewRegistry(),
			values:   map[*pyast.Node]Value{},
		},
	}
	if root.Kind == pyast.Module {
		w.block(root.Body)
	} else {
		w.stmt(root)
	}
	if w.err != nil {
		return nil, w.err
	}
	if w.stack.Depth() != 1 {
		return nil, fmt.Errorf("scope stack depth %d after walk: %w", w.stack.Depth(), ErrStructuralInvariant)
	}
	return w.result, nil
}

// walker holds the state of one Analyze call.
type walker struct {
	catalog Catalog
	logger  *zap.Logger
	stack   *ScopeStack
	result  *Result
	err     error
}

func (w *walker) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *walker) gap(n *pyast.Node, format string, args ...any) {
	g := ResolutionGap{Line: n.Line, Kind: n.Kind, Detail: fmt.Sprintf(format, args...)}
	w.result.Gaps = append(w.result.Gaps, g)
	w.logger.Debug("resolution gap",
		zap.Int("line", g.Line),
		zap.Stringer("kind", g.Kind),
		zap.String("detail", g.Detail))
}

func (w *walker) record(n *pyast.Node, v Value) Value {
	w.result.values[n] = v
	return v
}

func (w *walker) block(stmts []*pyast.Node) {
	for _, s := range stmts {
		if w.err != nil {
			return
		}
		w.stmt(s)
	}
}

func (w *walker) stmt(n *pyast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case pyast.Module:
		w.block(n.Body)
	case pyast.Import, pyast.ImportFrom:
		w.importNames(n)
	case pyast.Assign:
		w.assign(n)
	case pyast.FunctionDef:
		w.functionDef(n)
	case pyast.ClassDef:
		w.classDef(n)
	case pyast.Return:
		w.ret(n)
	case pyast.If:
		w.branch(w.eval(n.Test), nil, n.Body, n.Orelse)
	case pyast.While:
		w.branch(w.eval(n.Test), nil, n.Body, n.Orelse)
	case pyast.For:
		w.branch(w.eval(n.X), n.Target, n.Body, n.Orelse)
	case pyast.ExprStmt:
		w.eval(n.X)
	case pyast.Unknown:
		w.record(n, Scalar(None))
		w.block(n.Body)
	case pyast.Name, pyast.Attribute, pyast.Literal, pyast.BinOp, pyast.FormattedString,
		pyast.Call, pyast.Tuple, pyast.Dict, pyast.Subscript, pyast.Lambda:
		w.eval(n)
	default:
		w.gap(n, "unhandled statement kind")
	}
}

func (w *walker) eval(n *pyast.Node) Value {
	if n == nil {
		return Scalar(None)
	}
	switch n.Kind {
	case pyast.Literal:
		return w.record(n, Scalar(None))
	case pyast.Name:
		v, err := w.stack.Lookup(n.Name)
		if err != nil {
			w.gap(n, "unresolved name %q", n.Name)
			v = Scalar(None)
		}
		return w.record(n, v)
	case pyast.Attribute:
		return w.record(n, w.attribute(n))
	case pyast.BinOp:
		x, y := w.eval(n.X), w.eval(n.Y)
		return w.record(n, Scalar(Combine(x.Level(), y.Level())))
	case pyast.FormattedString, pyast.Tuple:
		var level Level
		for _, e := range n.Elts {
			level |= w.eval(e).Level()
		}
		return w.record(n, Scalar(level))
	case pyast.Call:
		return w.record(n, w.call(n))
	case pyast.Dict:
		return w.record(n, w.dict(n))
	case pyast.Subscript:
		return w.record(n, w.subscript(n))
	case pyast.Lambda:
		return w.record(n, w.lambda(n))
	case pyast.Unknown:
		w.block(n.Body)
		return w.record(n, Scalar(None))
	case pyast.Module, pyast.FunctionDef, pyast.ClassDef, pyast.Import, pyast.ImportFrom,
		pyast.Assign, pyast.Return, pyast.If, pyast.For, pyast.While, pyast.ExprStmt:
		w.gap(n, "statement in expression position")
		return w.record(n, Scalar(None))
	default:
		w.gap(n, "unhandled expression kind")
		return w.record(n, Scalar(None))
	}
}

// resolve turns a placeholder naming a catalog source into its taint.
func (w *walker) resolve(v Value) Value {
	p, ok := v.(Placeholder)
	if !ok {
		return v
	}
	if level, ok := w.catalog.LookupSource(p.Path); ok {
		return ConstAttr(level)
	}
	return v
}

func (w *walker) attribute(n *pyast.Node) Value {
	base := w.eval(n.X)
	v, ok := base.Attr(n.Name)
	if !ok {
		w.gap(n, "attribute %q missing on %s", n.Name, base)
		return Scalar(None)
	}
	return w.resolve(v)
}

func (w *walker) importNames(n *pyast.Node) {
	for _, alias := range n.Names {
		if alias.Name == "*" {
			w.gap(n, "wildcard import from %q", n.Module)
			continue
		}
		path, bound := alias.Name, alias.Bound()
		if n.Kind == pyast.ImportFrom {
			path = strings.TrimSuffix(n.Module, ".") + "." + alias.Name
		} else if alias.AsName == "" {
			// `import a.b` binds `a`
			path, _, _ = strings.Cut(alias.Name, ".")
			bound = path
		}
		w.stack.Assign(bound, w.resolve(Placeholder{Path: path}))
	}
}

func (w *walker) call(n *pyast.Node) Value {
	callee := w.eval(n.X)
	args := make([]Value, len(n.Args))
	for i, arg := range n.Args {
		args[i] = w.eval(arg)
	}
	for _, kw := range n.Keywords {
		w.eval(kw.Value)
	}
	if p, ok := callee.(Placeholder); ok {
		if mask := w.catalog.LookupSanitizer(p.Path); !mask.Empty() {
			callee = Callable{Rule: StripRule, Mask: mask}
		}
	}
	if len(args) == 1 && !n.Star && !n.DoubleStar {
		return callee.Call(args[0])
	}
	if len(args) > 0 {
		return args[0]
	}
	return Scalar(None)
}

func (w *walker) dict(n *pyast.Node) Value {
	d := NewDictionary()
	for i, key := range n.Keys {
		if key != nil {
			w.eval(key)
		}
		var v Value = Scalar(None)
		if i < len(n.Elts) {
			v = w.eval(n.Elts[i])
		}
		if key.IsStringLiteral() {
			d = d.Store(key.Value, true, v)
		} else {
			d = d.Store("", false, v)
		}
	}
	return d
}

func (w *walker) subscript(n *pyast.Node) Value {
	base := w.eval(n.X)
	w.eval(n.Y)
	key, literal := "", n.Y.IsStringLiteral()
	if literal {
		key = n.Y.Value
	}
	switch b := base.(type) {
	case *Dictionary:
		return b.Lookup(key, literal)
	case List:
		var out List
		for _, e := range b.Values() {
			if d, ok := e.(*Dictionary); ok {
				out.add(d.Lookup(key, literal))
				continue
			}
			out.add(Scalar(e.Level()))
		}
		return out
	}
	return Scalar(base.Level())
}

func (w *walker) lambda(n *pyast.Node) Value {
	w.stack.Push(NewScope(LambdaScope, "<lambda>"))
	for _, p := range n.Params {
		w.stack.Declare(p, Scalar(None))
	}
	w.eval(n.X)
	if _, err := w.stack.Pop(); err != nil {
		w.fail(fmt.Errorf("line %d: %w", n.Line, err))
	}
	return Callable{Rule: Identity}
}

func (w *walker) assign(n *pyast.Node) {
	value := w.eval(n.X)
	if len(n.Targets) != 1 {
		w.gap(n, "assignment with %d targets", len(n.Targets))
		return
	}
	target := n.Targets[0]
	switch target.Kind {
	case pyast.Name:
		w.stack.Assign(target.Name, value)
		w.record(target, value)
	case pyast.Tuple:
		if n.X.Kind != pyast.Tuple || len(n.X.Elts) != len(target.Elts) {
			w.gap(n, "tuple assignment without matching tuple value")
			return
		}
		// every right-hand value is computed before any name is rebound
		values := make([]Value, len(n.X.Elts))
		for i, e := range n.X.Elts {
			values[i] = w.result.values[e]
		}
		for i, t := range target.Elts {
			if t.Kind != pyast.Name {
				w.gap(t, "unsupported tuple assignment target")
				continue
			}
			w.stack.Assign(t.Name, values[i])
			w.record(t, values[i])
		}
	case pyast.Subscript:
		w.storeSubscript(n, target, value)
	default:
		w.gap(n, "unsupported assignment target %s", target.Kind)
	}
}

func (w *walker) storeSubscript(n, target *pyast.Node, value Value) {
	w.eval(target.Y)
	if target.X.Kind != pyast.Name {
		if path, ok := pyast.DottedName(target.X); ok {
			w.gap(n, "subscript store on %s %q", target.X.Kind, path)
		} else {
			w.gap(n, "subscript store on %s", target.X.Kind)
		}
		return
	}
	v, err := w.stack.Lookup(target.X.Name)
	if err != nil {
		w.gap(n, "subscript store on unresolved name %q", target.X.Name)
		return
	}
	key, literal := "", target.Y.IsStringLiteral()
	if literal {
		key = target.Y.Value
	}
	switch b := v.(type) {
	case *Dictionary:
		w.stack.Assign(target.X.Name, b.Store(key, literal, value))
	case List:
		// a dictionary bound in one branch only: store into every
		// dictionary alternative and keep the others as they are
		stored := false
		out := make([]Value, 0, b.Len())
		for _, e := range b.Values() {
			if d, ok := e.(*Dictionary); ok {
				e = d.Store(key, literal, value)
				stored = true
			}
			out = append(out, e)
		}
		if !stored {
			w.gap(n, "subscript store on non-dictionary %q", target.X.Name)
			return
		}
		w.stack.Assign(target.X.Name, NewList(out...))
	default:
		w.gap(n, "subscript store on non-dictionary %q", target.X.Name)
	}
}

func (w *walker) functionDef(n *pyast.Node) {
	for _, dec := range n.Decorators {
		w.eval(dec)
	}
	w.stack.Declare(n.Name, Callable{Rule: Identity})

	scope := NewScope(FunctionScope, n.Name)
	if route, h, ok := w.registration(n); ok {
		scope.handler = h
		scope.route = route
		w.result.Handlers.Register(route, h)
		w.logger.Debug("handler registered",
			zap.String("route", route.String()),
			zap.String("handler", h.Name),
			zap.Stringer("level", h.Level))
	}
	w.stack.Push(scope)
	for _, p := range n.Params {
		w.stack.Declare(p, Scalar(None))
	}
	w.block(n.Body)
	if _, err := w.stack.Pop(); err != nil {
		w.fail(fmt.Errorf("line %d: leaving %s: %w", n.Line, n.Name, err))
	}
}

// registration recognizes `@sink(path, method=...)` on a function.
func (w *walker) registration(n *pyast.Node) (Route, *Handler, bool) {
	if len(n.Decorators) != 1 {
		if len(n.Decorators) > 1 {
			w.gap(n, "%d decorators on %s, handler not registered", len(n.Decorators), n.Name)
		}
		return Route{}, nil, false
	}
	dec := n.Decorators[0]
	if dec.Kind != pyast.Call {
		return Route{}, nil, false
	}
	callee, _ := w.result.values[dec.X].(Placeholder)
	if callee.Path == "" {
		return Route{}, nil, false
	}
	rule, ok := w.catalog.LookupSink(callee.Path)
	if !ok {
		return Route{}, nil, false
	}
	if rule.PathArg >= len(dec.Args) || !dec.Args[rule.PathArg].IsStringLiteral() {
		w.gap(dec, "route path of %s is not a string literal", callee.Path)
		return Route{}, nil, false
	}
	method := rule.DefaultMethod
	if len(dec.Keywords) == 1 {
		kw := dec.Keywords[0]
		if kw.Name == rule.MethodKeyword && kw.Value.IsStringLiteral() {
			method = strings.ToUpper(kw.Value.Value)
		}
	}
	route := Route{Method: method, Path: dec.Args[rule.PathArg].Value}
	return route, &Handler{Name: n.Name, Line: n.Line, Level: rule.Level, Node: n}, true
}

func (w *walker) classDef(n *pyast.Node) {
	for _, dec := range n.Decorators {
		w.eval(dec)
	}
	w.stack.Declare(n.Name, Callable{Rule: Identity})
	w.stack.Push(NewScope(ClassScope, n.Name))
	w.block(n.Body)
	if _, err := w.stack.Pop(); err != nil {
		w.fail(fmt.Errorf("line %d: leaving class %s: %w", n.Line, n.Name, err))
	}
}

func (w *walker) ret(n *pyast.Node) {
	var value Value = Scalar(None)
	if n.X != nil {
		value = w.eval(n.X)
	}
	scope := w.stack.Innermost()
	h := scope.Handler()
	if h == nil {
		return
	}
	masked := And(value, h.Level)
	if !Truthy(masked) {
		return
	}
	w.result.Findings = append(w.result.Findings, newFinding(n.Line, masked.Level(), scope.route, h))
}

// branch forks the stack for the two arms of an if, for or while, walks
// both arms and merges them back. target, when set, receives the selector
// value at the start of the first arm.
func (w *walker) branch(selector Value, target *pyast.Node, body, orelse []*pyast.Node) {
	base := w.stack
	left, right := base.Fork(), base.Fork()

	w.stack = left
	if target != nil {
		if target.Kind == pyast.Name {
			w.stack.Assign(target.Name, selector)
			w.record(target, selector)
		} else {
			w.gap(target, "unsupported loop target %s", target.Kind)
		}
	}
	w.block(body)

	w.stack = right
	w.block(orelse)

	w.stack = base
	if w.err != nil {
		return
	}
	if err := merge(base, left, right); err != nil {
		w.fail(err)
	}
}
