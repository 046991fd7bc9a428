package taint

import (
	"fmt"
	"sort"
	"strings"
)

// Value is the taint carried by an expression. Values are immutable once
// built and may be shared freely between forked scope stacks.
type Value interface {
	// Level is the union of every category the value may carry.
	Level() Level
	// Attr resolves an attribute access on the value.
	Attr(name string) (Value, bool)
	// Call applies the value as a callable to a single argument.
	Call(arg Value) Value
	// Equal is structural equality.
	Equal(other Value) bool
	String() string
}

// Truthy reports whether v could cause harm.
func Truthy(v Value) bool {
	return v != nil && !v.Level().Empty()
}

// And keeps the categories of mask in v. For a List only the elements that
// keep a category survive.
func And(v Value, mask Level) Value {
	if l, ok := v.(List); ok {
		return l.And(mask)
	}
	return Scalar(v.Level() & mask)
}

// Scalar is a bare taint level.
type Scalar Level

func (s Scalar) Level() Level { return Level(s) }
func (s Scalar) Attr(string) (Value, bool) { return nil, false }
func (s Scalar) Call(arg Value) Value { return arg }
func (s Scalar) String() string { return "Scalar(" + Level(s).String() + ")" }
func (s Scalar) Equal(other Value) bool {
	o, ok := other.(Scalar)
	return ok && o == s
}

// ConstAttr answers every attribute access with a copy of itself. It models
// request objects whose every field carries the same taint.
type ConstAttr Level

func (c ConstAttr) Level() Level { return Level(c) }
func (c ConstAttr) Attr(string) (Value, bool) { return c, true }

// Call passes the argument through: request.query.get('x') carries the
// argument's taint, not the source's. Attribute and subscript reads keep
// the source level.
func (c ConstAttr) Call(arg Value) Value { return arg }

func (c ConstAttr) String() string { return "ConstAttr(" + Level(c).String() + ")" }
func (c ConstAttr) Equal(other Value) bool {
	o, ok := other.(ConstAttr)
	return ok && o == c
}

// Attributes is a level plus named nested values.
type Attributes struct {
	level Level
	attrs map[string]Value
}

// NewAttributes copies attrs into a new Attributes value.
func NewAttributes(level Level, attrs map[string]Value) *Attributes {
	a := &Attributes{level: level, attrs: make(map[string]Value, len(attrs))}
	for k, v := range attrs {
		a.attrs[k] = v
	}
	return a
}

func (a *Attributes) Level() Level { return a.level }

func (a *Attributes) Attr(name string) (Value, bool) {
	v, ok := a.attrs[name]
	return v, ok
}

func (a *Attributes) Call(arg Value) Value { return arg }

func (a *Attributes) Equal(other Value) bool {
	o, ok := other.(*Attributes)
	if !ok || o.level != a.level || len(o.attrs) != len(a.attrs) {
		return false
	}
	for k, v := range a.attrs {
		ov, ok := o.attrs[k]
		if !ok || !ov.Equal(v) {
			return false
		}
	}
	return true
}

func (a *Attributes) String() string {
	names := make([]string, 0, len(a.attrs))
	for k := range a.attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = k + ": " + a.attrs[k].String()
	}
	return fmt.Sprintf("Attributes(%s){%s}", a.level, strings.Join(parts, ", "))
}

// CallRule says how a Callable maps its argument to a result.
type CallRule int

const (
	// Identity returns the argument.
	Identity CallRule = iota
	// Constant returns the callable's own level.
	Constant
	// StripRule removes the callable's mask from the argument.
	StripRule
)

func (r CallRule) String() string {
	switch r {
	case Identity:
		return "identity"
	case Constant:
		return "constant"
	case StripRule:
		return "strip"
	}
	return fmt.Sprintf("CallRule(%d)", int(r))
}

// Callable is a function value. For StripRule, Mask holds the categories
// the function removes; a sanitizer itself carries no taint.
type Callable struct {
	Rule CallRule
	Mask Level
}

func (c Callable) Level() Level {
	if c.Rule == Constant {
		return c.Mask
	}
	return None
}

func (c Callable) Attr(string) (Value, bool) { return nil, false }

func (c Callable) Call(arg Value) Value {
	switch c.Rule {
	case Constant:
		return Scalar(c.Mask)
	case StripRule:
		return Scalar(Strip(arg.Level(), c.Mask))
	}
	return arg
}

func (c Callable) Equal(other Value) bool {
	o, ok := other.(Callable)
	return ok && o == c
}

func (c Callable) String() string {
	return fmt.Sprintf("Callable(%s, %s)", c.Rule, c.Mask)
}

// Placeholder stands for an imported name that is not itself a source. It
// keeps the fully qualified path so that attribute chains and calls can be
// resolved against the catalog later.
type Placeholder struct {
	Path string
}

func (p Placeholder) Level() Level { return None }

func (p Placeholder) Attr(name string) (Value, bool) {
	return Placeholder{Path: p.Path + "." + name}, true
}

func (p Placeholder) Call(arg Value) Value { return arg }

func (p Placeholder) Equal(other Value) bool {
	o, ok := other.(Placeholder)
	return ok && o == p
}

func (p Placeholder) String() string { return "Placeholder(" + p.Path + ")" }
