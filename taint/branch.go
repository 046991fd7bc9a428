package taint

import (
	"fmt"
	"sort"
)

// merge joins the stacks produced by two control-flow arms back into base.
// Per scope, names bound to equal values in both arms keep that value;
// everything else becomes a List of the distinct values observed.
func merge(base, left, right *ScopeStack) error {
	if left.Depth() != base.Depth() || right.Depth() != base.Depth() {
		return fmt.Errorf("merge of stacks with depths %d/%d into %d: %w",
			left.Depth(), right.Depth(), base.Depth(), ErrStructuralInvariant)
	}
	for i, scope := range base.scopes {
		l, r := left.scopes[i], right.scopes[i]
		if l.Kind != scope.Kind || r.Kind != scope.Kind {
			return fmt.Errorf("merge of %s/%s scopes into %s scope at depth %d: %w",
				l.Kind, r.Kind, scope.Kind, i, ErrStructuralInvariant)
		}
		scope.bindings = mergeBindings(l.bindings, r.bindings)
		scope.shared = false
	}
	return nil
}

func mergeBindings(left, right map[string]Value) map[string]Value {
	out := make(map[string]Value, len(left))
	for _, name := range unionNames(left, right) {
		lv, lok := left[name]
		rv, rok := right[name]
		switch {
		case lok && rok && lv.Equal(rv):
			out[name] = lv
		case lok && rok:
			out[name] = NewList(lv, rv)
		case lok:
			out[name] = NewList(lv)
		default:
			out[name] = NewList(rv)
		}
	}
	return out
}

// unionNames returns the keys of both maps, sorted.
func unionNames(left, right map[string]Value) []string {
	names := make([]string, 0, len(left)+len(right))
	for k := range left {
		names = append(names, k)
	}
	for k := range right {
		if _, ok := left[k]; !ok {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}
