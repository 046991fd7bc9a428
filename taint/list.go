package taint

import "strings"

// List is a phi aggregate: the set of values a name may hold after
// control flow joins. It never nests and never holds duplicates.
type List struct {
	elems []Value
}

// NewList builds a List from values, flattening nested lists and dropping
// duplicates. Element order is first-seen order.
func NewList(values ...Value) List {
	var l List
	for _, v := range values {
		l.add(v)
	}
	return l
}

func (l *List) add(v Value) {
	if v == nil {
		return
	}
	if nested, ok := v.(List); ok {
		for _, e := range nested.elems {
			l.add(e)
		}
		return
	}
	for _, e := range l.elems {
		if e.Equal(v) {
			return
		}
	}
	l.elems = append(l.elems, v)
}

// Values returns a copy of the alternatives.
func (l List) Values() []Value {
	return append([]Value(nil), l.elems...)
}

// Len returns the number of alternatives.
func (l List) Len() int { return len(l.elems) }

// Level is the union of the element levels, so a list is truthy when any
// element is.
func (l List) Level() Level {
	var level Level
	for _, e := range l.elems {
		level |= e.Level()
	}
	return level
}

// And masks every element with mask and keeps the ones left non-empty.
func (l List) And(mask Level) List {
	var out List
	for _, e := range l.elems {
		if masked := e.Level() & mask; !masked.Empty() {
			out.add(Scalar(masked))
		}
	}
	return out
}

func (l List) Attr(name string) (Value, bool) {
	var (
		out   List
		found bool
	)
	for _, e := range l.elems {
		if v, ok := e.Attr(name); ok {
			out.add(v)
			found = true
		}
	}
	if !found {
		return nil, false
	}
	return out, true
}

func (l List) Call(arg Value) Value {
	var out List
	for _, e := range l.elems {
		out.add(e.Call(arg))
	}
	return out
}

// Equal compares lists as sets.
func (l List) Equal(other Value) bool {
	o, ok := other.(List)
	if !ok || len(o.elems) != len(l.elems) {
		return false
	}
	for _, e := range l.elems {
		if !o.contains(e) {
			return false
		}
	}
	return true
}

func (l List) contains(v Value) bool {
	for _, e := range l.elems {
		if e.Equal(v) {
			return true
		}
	}
	return false
}

func (l List) String() string {
	parts := make([]string, len(l.elems))
	for i, e := range l.elems {
		parts[i] = e.String()
	}
	return "List[" + strings.Join(parts, ", ") + "]"
}
