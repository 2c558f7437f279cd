// Package types implements the value type system for the IR.
//
// DESIGN PHILOSOPHY:
// The IR is typed so that passes and the verifier can check operand
// compatibility without consulting any frontend. The type system is
// deliberately small:
// 1. Primitive types (int, float, bool)
// 2. void for functions that produce no value
// 3. ptr<T> for memory operations (alloca, load, store, gep)
//
// KEY DESIGN CHOICES:
// - Structural equality everywhere (ptr<int> == ptr<int>)
// - No implicit conversions; mixed-type operands are a verifier error
// - Singletons for primitives so identity comparison also works
package types

import "fmt"

// Type is the interface that all types implement.
//
// DESIGN CHOICE: Use an interface rather than a struct with a "kind" field because:
// - Type-safe (each type has its own struct)
// - Pattern matching via type switches
// - Follows Go conventions (ast.Node, etc.)
type Type interface {
	// String returns a human-readable representation of the type
	String() string

	// Equals checks if this type is identical to another type
	Equals(other Type) bool
}

// VoidType represents the absence of a value (void functions).
type VoidType struct{}

func (v *VoidType) String() string         { return "void" }
func (v *VoidType) Equals(other Type) bool { _, ok := other.(*VoidType); return ok }

// IntType represents a 64-bit signed integer.
type IntType struct{}

func (i *IntType) String() string         { return "int" }
func (i *IntType) Equals(other Type) bool { _, ok := other.(*IntType); return ok }

// FloatType represents a 64-bit floating-point number.
type FloatType struct{}

func (f *FloatType) String() string         { return "float" }
func (f *FloatType) Equals(other Type) bool { _, ok := other.(*FloatType); return ok }

// BoolType represents a boolean.
type BoolType struct{}

func (b *BoolType) String() string         { return "bool" }
func (b *BoolType) Equals(other Type) bool { _, ok := other.(*BoolType); return ok }

// PointerType represents a pointer to a value of type Elem.
//
// Allocas, globals, and gep results are pointer-typed; load and store
// operate through them. There is no pointer arithmetic beyond gep.
type PointerType struct {
	Elem Type
}

func (p *PointerType) String() string { return fmt.Sprintf("ptr<%s>", p.Elem) }

func (p *PointerType) Equals(other Type) bool {
	o, ok := other.(*PointerType)
	return ok && p.Elem.Equals(o.Elem)
}

// Singleton instances for the primitive types.
//
// DESIGN CHOICE: Exported vars rather than constructors because:
// - Primitives carry no state, one instance is enough
// - Enables cheap identity comparison in hot paths
// - Matches how the rest of the codebase spells types (types.Int)
var (
	Void  = &VoidType{}
	Int   = &IntType{}
	Float = &FloatType{}
	Bool  = &BoolType{}
)

// NewPointer returns a pointer type with the given element type.
func NewPointer(elem Type) *PointerType {
	return &PointerType{Elem: elem}
}

// IsNumeric returns true for types that support arithmetic.
func IsNumeric(t Type) bool {
	switch t.(type) {
	case *IntType, *FloatType:
		return true
	default:
		return false
	}
}
