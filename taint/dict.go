package taint

import (
	"fmt"
	"sort"
	"strings"
)

// Dictionary tracks taint per literal string key plus one fallback level for
// every value written under a key that is not a literal. Once such a dynamic
// write happened, any key may have been overwritten, so literal lookups also
// see the fallback.
type Dictionary struct {
	keys     map[string]Value
	fallback Level
	dynamic  bool
}

// NewDictionary returns an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{keys: map[string]Value{}}
}

// HasDynamic reports whether a non-literal key was ever stored.
func (d *Dictionary) HasDynamic() bool { return d.dynamic }

// Fallback is the union of every value stored under a non-literal key.
func (d *Dictionary) Fallback() Level { return d.fallback }

// Lookup reads d[key]. For a non-literal key only the fallback is known.
func (d *Dictionary) Lookup(key string, literal bool) Value {
	if !literal {
		return Scalar(d.fallback)
	}
	v, ok := d.keys[key]
	if !ok {
		v = Scalar(None)
	}
	if d.dynamic {
		return Scalar(v.Level() | d.fallback)
	}
	return v
}

// Store returns a copy of d with d[key] = v. d itself is left untouched.
func (d *Dictionary) Store(key string, literal bool, v Value) *Dictionary {
	out := &Dictionary{
		keys:     make(map[string]Value, len(d.keys)+1),
		fallback: d.fallback,
		dynamic:  d.dynamic,
	}
	for k, kv := range d.keys {
		out.keys[k] = kv
	}
	if literal {
		out.keys[key] = v
		return out
	}
	out.dynamic = true
	out.fallback |= v.Level()
	return out
}

// Level is the union of every value the dictionary may hold.
func (d *Dictionary) Level() Level {
	level := d.fallback
	for _, v := range d.keys {
		level |= v.Level()
	}
	return level
}

func (d *Dictionary) Attr(string) (Value, bool) { return nil, false }

func (d *Dictionary) Call(arg Value) Value { return arg }

func (d *Dictionary) Equal(other Value) bool {
	o, ok := other.(*Dictionary)
	if !ok {
		return false
	}
	if o == d {
		return true
	}
	if o.fallback != d.fallback || o.dynamic != d.dynamic || len(o.keys) != len(d.keys) {
		return false
	}
	for k, v := range d.keys {
		ov, ok := o.keys[k]
		if !ok || !ov.Equal(v) {
			return false
		}
	}
	return true
}

func (d *Dictionary) String() string {
	keys := make([]string, 0, len(d.keys))
	for k := range d.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%q: %s", k, d.keys[k])
	}
	return fmt.Sprintf("Dictionary{%s; dynamic=%t fallback=%s}",
		strings.Join(parts, ", "), d.dynamic, d.fallback)
}
