// Package pyast defines the syntax tree consumed by the taint engine and a
// Python front-end that builds it from source text.
//
// The tree is a closed enumeration of node kinds. Constructs the engine does
// not model are kept as Unknown nodes so that statements nested inside them
// (try, with, ...) are still reachable.
package pyast

import "fmt"

// Kind is the discriminant of a Node.
type Kind int

const (
	// Unknown is any construct that is not modeled. Body holds nested statements.
	Unknown Kind = iota
	// Module is the root of a file. Body holds the statements.
	Module
	// FunctionDef is a function definition: Name, Params, Decorators, Body.
	FunctionDef
	// Lambda is a lambda expression: Params and the body expression in X.
	Lambda
	// ClassDef is a class definition: Name, Decorators, Body.
	ClassDef
	// Import is `import a.b as c`: Names.
	Import
	// ImportFrom is `from m import a as b`: Module, Names.
	ImportFrom
	// Name is an identifier read or write: Name.
	Name
	// Attribute is X.Name.
	Attribute
	// Literal is a string, number or constant: Value, Lit.
	Literal
	// BinOp is X <Op> Y. Comparisons, boolean operators and conditional
	// expressions are lowered to BinOp with OpOther.
	BinOp
	// FormattedString is an f-string or implicit concatenation: Elts holds
	// the interpolated expressions.
	FormattedString
	// Call is X(Args..., Keywords...). Star and DoubleStar flag spreads.
	Call
	// Tuple is a tuple, list or set display: Elts.
	Tuple
	// Dict is a dictionary display: Keys and Elts (values). A nil key is a
	// `**spread` entry.
	Dict
	// Subscript is X[Y].
	Subscript
	// Assign is Targets = X.
	Assign
	// Return is `return X`; X may be nil.
	Return
	// If is `if Test: Body else: Orelse`.
	If
	// For is `for Target in X: Body else: Orelse`.
	For
	// While is `while Test: Body else: Orelse`.
	While
	// ExprStmt is an expression evaluated for its effects: X.
	ExprStmt
)

var kindNames = [...]string{
	Unknown:         "Unknown",
	Module:          "Module",
	FunctionDef:     "FunctionDef",
	Lambda:          "Lambda",
	ClassDef:        "ClassDef",
	Import:          "Import",
	ImportFrom:      "ImportFrom",
	Name:            "Name",
	Attribute:       "Attribute",
	Literal:         "Literal",
	BinOp:           "BinOp",
	FormattedString: "FormattedString",
	Call:            "Call",
	Tuple:           "Tuple",
	Dict:            "Dict",
	Subscript:       "Subscript",
	Assign:          "Assign",
	Return:          "Return",
	If:              "If",
	For:             "For",
	While:           "While",
	ExprStmt:        "ExprStmt",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Op is a binary operator.
type Op int

const (
	// OpOther covers every operator without special meaning for taint.
	OpOther Op = iota
	// OpAdd is `+`, string concatenation.
	OpAdd
	// OpMod is `%`, printf-style interpolation.
	OpMod
)

// LitKind tells string literals apart from the rest.
type LitKind int

const (
	// LitOther is a number, boolean, None or ellipsis.
	LitOther LitKind = iota
	// LitString is a plain (non-interpolated) string.
	LitString
)

// Alias is one imported name.
type Alias struct {
	Name   string
	AsName string
}

// Bound returns the name the import binds in the importing scope.
func (a Alias) Bound() string {
	if a.AsName != "" {
		return a.AsName
	}
	return a.Name
}

// Keyword is a `name=value` call argument.
type Keyword struct {
	Name  string
	Value *Node
}

// Node is one syntax tree node. Field usage depends on Kind, see the Kind
// constants. Nodes are never modified after the front-end returns them.
type Node struct {
	Kind Kind
	Line int

	Name   string
	Module string
	Value  string
	Lit    LitKind
	Op     Op

	X    *Node
	Y    *Node
	Test *Node

	Target  *Node
	Targets []*Node

	Elts       []*Node
	Keys       []*Node
	Args       []*Node
	Keywords   []Keyword
	Star       bool
	DoubleStar bool

	Params     []string
	Decorators []*Node
	Names      []Alias

	Body   []*Node
	Orelse []*Node
}

// IsStringLiteral reports whether n is a plain string literal.
func (n *Node) IsStringLiteral() bool {
	return n != nil && n.Kind == Literal && n.Lit == LitString
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case Name, FunctionDef, ClassDef:
		return fmt.Sprintf("%s(%s)@%d", n.Kind, n.Name, n.Line)
	case Attribute:
		return fmt.Sprintf("%s(.%s)@%d", n.Kind, n.Name, n.Line)
	case Literal:
		return fmt.Sprintf("%s(%q)@%d", n.Kind, n.Value, n.Line)
	}
	return fmt.Sprintf("%s@%d", n.Kind, n.Line)
}

// DottedName returns the textual dotted path of a Name/Attribute chain
// (e.g. "request.query.value") and false for any other shape.
func DottedName(n *Node) (string, bool) {
	switch {
	case n == nil:
		return "", false
	case n.Kind == Name:
		return n.Name, true
	case n.Kind == Attribute:
		base, ok := DottedName(n.X)
		if !ok {
			return "", false
		}
		return base + "." + n.Name, true
	}
	return "", false
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
