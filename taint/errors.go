package taint

import (
	"errors"
	"fmt"

	"github.com/securego/pysec/pyast"
)

var (
	// ErrStructuralInvariant means the analyzer state became inconsistent
	// (scope stack underflow, merge of differently shaped stacks). The
	// current input is abandoned.
	ErrStructuralInvariant = errors.New("structural invariant violated")
	// ErrNotFound is returned by ScopeStack.Lookup for unbound names.
	ErrNotFound = errors.New("name not bound")
	// ErrUnknownCategory is returned when parsing a category name fails.
	ErrUnknownCategory = errors.New("unknown taint category")
)

// ResolutionGap records a construct that could not be resolved and was
// given zero taint. Gaps never stop the analysis.
type ResolutionGap struct {
	Line   int        `json:"line"`
	Kind   pyast.Kind `json:"kind"`
	Detail string     `json:"detail"`
}

func (g ResolutionGap) String() string {
	return fmt.Sprintf("line %d: %s: %s", g.Line, g.Kind, g.Detail)
}
