package irparse

import (
	"fmt"

	"github.com/karim/optc/internal/ir"
)

// Scope maps names to IR values during parsing.
//
// WHAT IS RESOLVED WHERE?
// The IR has exactly two name spaces: '@' names (functions and globals)
// live in the module scope, '%' names (parameters and instruction results)
// live in the scope of the enclosing function. Function scopes chain to the
// module scope so one Resolve call answers both.
//
// DESIGN CHOICE: Parent pointers rather than an explicit stack because the
// nesting is fixed and shallow, and a fresh function scope can simply be
// discarded when the function body ends.
type Scope struct {
	parent  *Scope
	symbols map[string]ir.Value
}

// NewScope creates a scope nested inside parent (nil for the module scope).
func NewScope(parent *Scope) *Scope {
	return &Scope{
		parent:  parent,
		symbols: make(map[string]ir.Value),
	}
}

// Define binds name to value in this scope. Redefinition in the same scope
// is an error; shadowing an outer scope is not possible because the two
// name spaces use different sigils.
func (s *Scope) Define(name string, v ir.Value) error {
	if _, exists := s.symbols[name]; exists {
		return fmt.Errorf("redefinition of %q", name)
	}
	s.symbols[name] = v
	return nil
}

// Resolve looks name up in this scope and its ancestors.
func (s *Scope) Resolve(name string) (ir.Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.symbols[name]; ok {
			return v, true
		}
	}
	return nil, false
}
