package taint

import "fmt"

// ScopeKind is the lexical construct that opened a scope.
type ScopeKind int

const (
	ModuleScope ScopeKind = iota
	FunctionScope
	ClassScope
	LambdaScope
)

func (k ScopeKind) String() string {
	switch k {
	case ModuleScope:
		return "module"
	case FunctionScope:
		return "function"
	case ClassScope:
		return "class"
	case LambdaScope:
		return "lambda"
	}
	return fmt.Sprintf("ScopeKind(%d)", int(k))
}

// Scope holds the bindings of one lexical scope. The bindings map may be
// shared with a forked copy; it is cloned before the first write.
type Scope struct {
	Kind ScopeKind
	Name string

	handler  *Handler
	route    Route
	bindings map[string]Value
	shared   bool
}

// NewScope creates an empty scope.
func NewScope(kind ScopeKind, name string) *Scope {
	return &Scope{Kind: kind, Name: name, bindings: map[string]Value{}}
}

// Handler returns the handler registered for this scope, if any.
func (s *Scope) Handler() *Handler { return s.handler }

// Get returns the binding of name in this scope only.
func (s *Scope) Get(name string) (Value, bool) {
	v, ok := s.bindings[name]
	return v, ok
}

// Len returns the number of bound names.
func (s *Scope) Len() int { return len(s.bindings) }

func (s *Scope) set(name string, v Value) {
	if s.shared {
		clone := make(map[string]Value, len(s.bindings)+1)
		for k, bv := range s.bindings {
			clone[k] = bv
		}
		s.bindings = clone
		s.shared = false
	}
	s.bindings[name] = v
}

// ScopeStack is the chain of lexical scopes, innermost last. The module
// scope at the bottom is never popped.
type ScopeStack struct {
	scopes []*Scope
}

// NewScopeStack returns a stack holding a single module scope.
func NewScopeStack(module string) *ScopeStack {
	return &ScopeStack{scopes: []*Scope{NewScope(ModuleScope, module)}}
}

// Depth returns the number of scopes on the stack.
func (st *ScopeStack) Depth() int { return len(st.scopes) }

// Innermost returns the top of the stack.
func (st *ScopeStack) Innermost() *Scope { return st.scopes[len(st.scopes)-1] }

// Push makes s the innermost scope.
func (st *ScopeStack) Push(s *Scope) *Scope {
	st.scopes = append(st.scopes, s)
	return s
}

// Pop removes the innermost scope. Popping the module scope is an error.
func (st *ScopeStack) Pop() (*Scope, error) {
	if len(st.scopes) <= 1 {
		return nil, fmt.Errorf("pop on scope stack of depth %d: %w", len(st.scopes), ErrStructuralInvariant)
	}
	top := st.scopes[len(st.scopes)-1]
	st.scopes = st.scopes[:len(st.scopes)-1]
	return top, nil
}

// Lookup searches name from the innermost scope outwards.
func (st *ScopeStack) Lookup(name string) (Value, error) {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if v, ok := st.scopes[i].bindings[name]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
}

// LookupOr is Lookup with a default for unbound names.
func (st *ScopeStack) LookupOr(name string, def Value) Value {
	v, err := st.Lookup(name)
	if err != nil {
		return def
	}
	return v
}

// Assign overwrites the nearest existing binding of name, or binds it in
// the innermost scope when it is unbound everywhere.
func (st *ScopeStack) Assign(name string, v Value) {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if _, ok := st.scopes[i].bindings[name]; ok {
			st.scopes[i].set(name, v)
			return
		}
	}
	st.Innermost().set(name, v)
}

// Declare binds name in the innermost scope, shadowing outer bindings.
func (st *ScopeStack) Declare(name string, v Value) {
	st.Innermost().set(name, v)
}

// Fork returns an independent copy of the stack. Binding maps are shared
// until either side writes to them.
func (st *ScopeStack) Fork() *ScopeStack {
	out := &ScopeStack{scopes: make([]*Scope, len(st.scopes))}
	for i, s := range st.scopes {
		s.shared = true
		out.scopes[i] = &Scope{
			Kind:     s.Kind,
			Name:     s.Name,
			handler:  s.handler,
			route:    s.route,
			bindings: s.bindings,
			shared:   true,
		}
	}
	return out
}
