package pyast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"go.uber.org/zap"
)

// ErrInvalidContent is returned for source that is not valid UTF-8.
var ErrInvalidContent = errors.New("content is not valid UTF-8")

// SyntaxError is a location where the grammar could not match the input.
// The tree around it is still converted.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

// File is a parsed Python source file.
type File struct {
	Name   string
	Root   *Node
	Lines  int
	Errors []SyntaxError
}

// Parser converts Python source into a Module tree. It is safe for
// concurrent use; every Parse call owns its tree-sitter parser.
type Parser struct {
	logger *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for conversion notes.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewParser creates a Python front-end.
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("pyast")
	return p
}

// Parse parses src with a default Parser.
func Parse(ctx context.Context, src []byte, filename string) (*File, error) {
	return NewParser().Parse(ctx, src, filename)
}

// Parse parses src and converts the concrete tree into a Module node.
func (p *Parser) Parse(ctx context.Context, src []byte, filename string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse %s canceled: %w", filename, err)
	}
	if !utf8.Valid(src) {
		return nil, fmt.Errorf("parse %s: %w", filename, ErrInvalidContent)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("parse %s: tree-sitter returned no root node", filename)
	}

	c := &converter{src: src, logger: p.logger.With(zap.String("file", filename))}
	file := &File{
		Name:  filename,
		Lines: strings.Count(string(src), "\n") + 1,
		Root: &Node{
			Kind: Module,
			Line: 1,
			Body: c.block(root),
		},
	}
	if root.HasError() {
		collectErrors(root, &file.Errors)
	}
	return file, nil
}

func collectErrors(n *sitter.Node, out *[]SyntaxError) {
	if n == nil {
		return
	}
	if n.IsError() || n.IsMissing() {
		msg := "unexpected " + n.Type()
		if n.IsMissing() {
			msg = "missing " + n.Type()
		}
		*out = append(*out, SyntaxError{
			Line:   int(n.StartPoint().Row) + 1,
			Column: int(n.StartPoint().Column) + 1,
			Msg:    msg,
		})
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		collectErrors(n.Child(i), out)
	}
}

type converter struct {
	src    []byte
	logger *zap.Logger
}

func (c *converter) text(n *sitter.Node) string {
	return string(c.src[n.StartByte():n.EndByte()])
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// namedChildren returns the named children of n, comments excluded.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// block converts the statements of a module or block node.
func (c *converter) block(n *sitter.Node) []*Node {
	var out []*Node
	for _, child := range namedChildren(n) {
		if stmt := c.stmt(child); stmt != nil {
			out = append(out, stmt)
		}
	}
	return out
}

func (c *converter) stmt(n *sitter.Node) *Node {
	switch n.Type() {
	case "expression_statement":
		return c.exprStmt(n)
	case "import_statement":
		return c.importStmt(n)
	case "import_from_statement":
		return c.importFrom(n)
	case "function_definition":
		return c.functionDef(n, nil)
	case "class_definition":
		return c.classDef(n, nil)
	case "decorated_definition":
		return c.decorated(n)
	case "return_statement":
		ret := &Node{Kind: Return, Line: line(n)}
		if kids := namedChildren(n); len(kids) > 0 {
			ret.X = c.exprList(kids, line(n))
		}
		return ret
	case "if_statement":
		return c.ifStmt(n)
	case "for_statement":
		return c.forStmt(n)
	case "while_statement":
		loop := &Node{
			Kind: While,
			Line: line(n),
			Test: c.expr(n.ChildByFieldName("condition")),
			Body: c.block(n.ChildByFieldName("body")),
		}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			loop.Orelse = c.block(alt.ChildByFieldName("body"))
		}
		return loop
	}
	return c.unknownStmt(n)
}

// unknownStmt keeps the statements nested in an unmodeled statement
// (try/except/finally, with, match...) reachable, in source order.
func (c *converter) unknownStmt(n *sitter.Node) *Node {
	u := &Node{Kind: Unknown, Line: line(n), Name: n.Type()}
	c.collectBlocks(n, &u.Body)
	return u
}

func (c *converter) collectBlocks(n *sitter.Node, out *[]*Node) {
	for _, child := range namedChildren(n) {
		if child.Type() == "block" {
			*out = append(*out, c.block(child)...)
			continue
		}
		switch child.Type() {
		case "except_clause", "except_group_clause", "else_clause", "finally_clause",
			"case_clause", "block_wrapper":
			c.collectBlocks(child, out)
		}
	}
}

func (c *converter) exprStmt(n *sitter.Node) *Node {
	kids := namedChildren(n)
	if len(kids) == 1 {
		switch kids[0].Type() {
		case "assignment":
			return c.assignment(kids[0])
		case "augmented_assignment":
			return c.augAssignment(kids[0])
		}
	}
	if len(kids) == 0 {
		return nil
	}
	return &Node{Kind: ExprStmt, Line: line(n), X: c.exprList(kids, line(n))}
}

func (c *converter) assignment(n *sitter.Node) *Node {
	a := &Node{Kind: Assign, Line: line(n)}
	// a = b = c nests assignments on the right-hand side.
	cur := n
	for cur != nil && cur.Type() == "assignment" {
		a.Targets = append(a.Targets, c.expr(cur.ChildByFieldName("left")))
		right := cur.ChildByFieldName("right")
		if right == nil {
			// annotated declaration without value: `x: int`
			return &Node{Kind: Unknown, Line: line(n), Name: "annotation"}
		}
		if right.Type() != "assignment" {
			a.X = c.expr(right)
			break
		}
		cur = right
	}
	return a
}

func (c *converter) augAssignment(n *sitter.Node) *Node {
	target := c.expr(n.ChildByFieldName("left"))
	value := c.expr(n.ChildByFieldName("right"))
	op := OpOther
	if opNode := n.ChildByFieldName("operator"); opNode != nil {
		switch opNode.Type() {
		case "+=":
			op = OpAdd
		case "%=":
			op = OpMod
		}
	}
	return &Node{
		Kind:    Assign,
		Line:    line(n),
		Targets: []*Node{target},
		X:       &Node{Kind: BinOp, Line: line(n), Op: op, X: target, Y: value},
	}
}

func (c *converter) importStmt(n *sitter.Node) *Node {
	imp := &Node{Kind: Import, Line: line(n)}
	for _, child := range namedChildren(n) {
		if alias, ok := c.alias(child); ok {
			imp.Names = append(imp.Names, alias)
		}
	}
	return imp
}

func (c *converter) importFrom(n *sitter.Node) *Node {
	imp := &Node{Kind: ImportFrom, Line: line(n)}
	sawImport := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "import":
			sawImport = true
		case "relative_import":
			imp.Module = c.text(child)
		case "wildcard_import":
			imp.Names = append(imp.Names, Alias{Name: "*"})
		case "dotted_name", "aliased_import":
			if !sawImport {
				imp.Module = c.text(child)
				continue
			}
			if alias, ok := c.alias(child); ok {
				imp.Names = append(imp.Names, alias)
			}
		}
	}
	return imp
}

func (c *converter) alias(n *sitter.Node) (Alias, bool) {
	switch n.Type() {
	case "dotted_name", "identifier":
		return Alias{Name: c.text(n)}, true
	case "aliased_import":
		name := n.ChildByFieldName("name")
		as := n.ChildByFieldName("alias")
		if name == nil {
			return Alias{}, false
		}
		alias := Alias{Name: c.text(name)}
		if as != nil {
			alias.AsName = c.text(as)
		}
		return alias, true
	}
	return Alias{}, false
}

func (c *converter) decorated(n *sitter.Node) *Node {
	var decorators []*Node
	for _, child := range namedChildren(n) {
		if child.Type() == "decorator" {
			if kids := namedChildren(child); len(kids) > 0 {
				decorators = append(decorators, c.expr(kids[0]))
			}
		}
	}
	def := n.ChildByFieldName("definition")
	if def == nil {
		return c.unknownStmt(n)
	}
	switch def.Type() {
	case "function_definition":
		return c.functionDef(def, decorators)
	case "class_definition":
		return c.classDef(def, decorators)
	}
	return c.unknownStmt(n)
}

func (c *converter) functionDef(n *sitter.Node, decorators []*Node) *Node {
	fn := &Node{
		Kind:       FunctionDef,
		Line:       line(n),
		Decorators: decorators,
		Params:     c.params(n.ChildByFieldName("parameters")),
		Body:       c.block(n.ChildByFieldName("body")),
	}
	if name := n.ChildByFieldName("name"); name != nil {
		fn.Name = c.text(name)
	}
	return fn
}

func (c *converter) classDef(n *sitter.Node, decorators []*Node) *Node {
	cls := &Node{
		Kind:       ClassDef,
		Line:       line(n),
		Decorators: decorators,
		Body:       c.block(n.ChildByFieldName("body")),
	}
	if name := n.ChildByFieldName("name"); name != nil {
		cls.Name = c.text(name)
	}
	return cls
}

func (c *converter) params(n *sitter.Node) []string {
	var out []string
	for _, p := range namedChildren(n) {
		switch p.Type() {
		case "identifier":
			out = append(out, c.text(p))
		case "default_parameter", "typed_default_parameter":
			if name := p.ChildByFieldName("name"); name != nil {
				out = append(out, c.text(name))
			}
		case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
			for _, k := range namedChildren(p) {
				if k.Type() == "identifier" {
					out = append(out, c.text(k))
					break
				}
			}
		}
	}
	return out
}

func (c *converter) ifStmt(n *sitter.Node) *Node {
	root := &Node{
		Kind: If,
		Line: line(n),
		Test: c.expr(n.ChildByFieldName("condition")),
		Body: c.block(n.ChildByFieldName("consequence")),
	}
	// elif chains become nested ifs in the else arm.
	tail := root
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "elif_clause":
			elif := &Node{
				Kind: If,
				Line: line(child),
				Test: c.expr(child.ChildByFieldName("condition")),
				Body: c.block(child.ChildByFieldName("consequence")),
			}
			tail.Orelse = []*Node{elif}
			tail = elif
		case "else_clause":
			tail.Orelse = c.block(child.ChildByFieldName("body"))
		}
	}
	return root
}

func (c *converter) forStmt(n *sitter.Node) *Node {
	loop := &Node{
		Kind:   For,
		Line:   line(n),
		Target: c.expr(n.ChildByFieldName("left")),
		X:      c.expr(n.ChildByFieldName("right")),
		Body:   c.block(n.ChildByFieldName("body")),
	}
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		loop.Orelse = c.block(alt.ChildByFieldName("body"))
	}
	return loop
}

// exprList turns `a, b` (several expressions in one statement) into a Tuple.
func (c *converter) exprList(kids []*sitter.Node, ln int) *Node {
	if len(kids) == 1 {
		return c.expr(kids[0])
	}
	t := &Node{Kind: Tuple, Line: ln}
	for _, k := range kids {
		t.Elts = append(t.Elts, c.expr(k))
	}
	return t
}

func (c *converter) expr(n *sitter.Node) *Node {
	if n == nil {
		return &Node{Kind: Unknown}
	}
	ln := line(n)
	switch n.Type() {
	case "identifier":
		return &Node{Kind: Name, Line: ln, Name: c.text(n)}
	case "attribute":
		a := &Node{Kind: Attribute, Line: ln, X: c.expr(n.ChildByFieldName("object"))}
		if attr := n.ChildByFieldName("attribute"); attr != nil {
			a.Name = c.text(attr)
		}
		return a
	case "string":
		return c.str(n)
	case "concatenated_string":
		return c.concatenated(n)
	case "integer", "float", "true", "false", "none", "ellipsis":
		return &Node{Kind: Literal, Line: ln, Lit: LitOther, Value: c.text(n)}
	case "binary_operator":
		b := &Node{
			Kind: BinOp,
			Line: ln,
			X:    c.expr(n.ChildByFieldName("left")),
			Y:    c.expr(n.ChildByFieldName("right")),
		}
		if op := n.ChildByFieldName("operator"); op != nil {
			switch op.Type() {
			case "+":
				b.Op = OpAdd
			case "%":
				b.Op = OpMod
			}
		}
		return b
	case "boolean_operator":
		return &Node{
			Kind: BinOp,
			Line: ln,
			X:    c.expr(n.ChildByFieldName("left")),
			Y:    c.expr(n.ChildByFieldName("right")),
		}
	case "comparison_operator", "conditional_expression":
		return c.fold(namedChildren(n), ln)
	case "not_operator", "unary_operator", "await":
		kids := namedChildren(n)
		if len(kids) == 0 {
			return &Node{Kind: Unknown, Line: ln, Name: n.Type()}
		}
		return c.expr(kids[len(kids)-1])
	case "parenthesized_expression":
		kids := namedChildren(n)
		if len(kids) == 1 {
			return c.expr(kids[0])
		}
		return c.exprList(kids, ln)
	case "tuple", "list", "set", "expression_list", "pattern_list", "tuple_pattern", "list_pattern":
		t := &Node{Kind: Tuple, Line: ln}
		for _, k := range namedChildren(n) {
			t.Elts = append(t.Elts, c.expr(k))
		}
		return t
	case "dictionary":
		return c.dict(n)
	case "subscript":
		s := &Node{Kind: Subscript, Line: ln, X: c.expr(n.ChildByFieldName("value"))}
		if idx := n.ChildByFieldName("subscript"); idx != nil {
			s.Y = c.expr(idx)
		}
		return s
	case "call":
		return c.call(n)
	case "lambda":
		l := &Node{
			Kind:   Lambda,
			Line:   ln,
			Params: c.params(n.ChildByFieldName("parameters")),
			X:      c.expr(n.ChildByFieldName("body")),
		}
		return l
	case "keyword_argument":
		return c.expr(n.ChildByFieldName("value"))
	case "list_splat", "dictionary_splat":
		if kids := namedChildren(n); len(kids) > 0 {
			return c.expr(kids[0])
		}
	case "assignment":
		return c.assignment(n)
	}
	c.logger.Debug("unmodeled expression", zap.String("type", n.Type()), zap.Int("line", ln))
	return &Node{Kind: Unknown, Line: ln, Name: n.Type()}
}

// fold lowers n-ary constructs (comparisons, conditional expressions) into
// a left-leaning BinOp chain so every operand contributes taint.
func (c *converter) fold(kids []*sitter.Node, ln int) *Node {
	if len(kids) == 0 {
		return &Node{Kind: Unknown, Line: ln}
	}
	acc := c.expr(kids[0])
	for _, k := range kids[1:] {
		acc = &Node{Kind: BinOp, Line: ln, X: acc, Y: c.expr(k)}
	}
	return acc
}

func (c *converter) call(n *sitter.Node) *Node {
	call := &Node{Kind: Call, Line: line(n), X: c.expr(n.ChildByFieldName("function"))}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return call
	}
	if args.Type() == "generator_expression" {
		call.Args = []*Node{{Kind: Unknown, Line: line(args), Name: args.Type()}}
		return call
	}
	for _, arg := range namedChildren(args) {
		switch arg.Type() {
		case "keyword_argument":
			kw := Keyword{Value: c.expr(arg.ChildByFieldName("value"))}
			if name := arg.ChildByFieldName("name"); name != nil {
				kw.Name = c.text(name)
			}
			call.Keywords = append(call.Keywords, kw)
		case "list_splat":
			call.Star = true
			call.Args = append(call.Args, c.expr(arg))
		case "dictionary_splat":
			call.DoubleStar = true
		default:
			call.Args = append(call.Args, c.expr(arg))
		}
	}
	return call
}

func (c *converter) dict(n *sitter.Node) *Node {
	d := &Node{Kind: Dict, Line: line(n)}
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "pair":
			d.Keys = append(d.Keys, c.expr(child.ChildByFieldName("key")))
			d.Elts = append(d.Elts, c.expr(child.ChildByFieldName("value")))
		case "dictionary_splat":
			d.Keys = append(d.Keys, nil)
			d.Elts = append(d.Elts, c.expr(child))
		}
	}
	return d
}

func (c *converter) str(n *sitter.Node) *Node {
	var interpolations []*Node
	for _, child := range namedChildren(n) {
		if child.Type() != "interpolation" {
			continue
		}
		if kids := namedChildren(child); len(kids) > 0 {
			interpolations = append(interpolations, c.expr(kids[0]))
		}
	}
	if len(interpolations) > 0 {
		return &Node{Kind: FormattedString, Line: line(n), Elts: interpolations}
	}
	return &Node{Kind: Literal, Line: line(n), Lit: LitString, Value: unquote(c.text(n))}
}

func (c *converter) concatenated(n *sitter.Node) *Node {
	var (
		parts []*Node
		text  strings.Builder
		plain = true
	)
	for _, child := range namedChildren(n) {
		part := c.str(child)
		parts = append(parts, part)
		if part.Kind != Literal {
			plain = false
		}
		text.WriteString(part.Value)
	}
	if plain {
		return &Node{Kind: Literal, Line: line(n), Lit: LitString, Value: text.String()}
	}
	f := &Node{Kind: FormattedString, Line: line(n)}
	for _, part := range parts {
		if part.Kind == FormattedString {
			f.Elts = append(f.Elts, part.Elts...)
		}
	}
	return f
}

// unquote strips the prefix letters and the quotes of a Python string
// literal. Escape sequences are left as written.
func unquote(raw string) string {
	s := strings.TrimLeft(raw, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}
