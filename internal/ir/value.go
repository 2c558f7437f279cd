// Package ir implements the register-based Intermediate Representation.
//
// WHAT IS IR?
// IR is a low-level representation of the program that sits between a
// frontend and machine code. It is organized as a Module of Functions, each
// containing BasicBlocks of Instructions connected by control-flow edges.
//
// DESIGN PHILOSOPHY:
// We use a Three-Address Code (TAC) style IR similar to LLVM:
// - Each instruction reads an ordered list of operands and produces at most one value
// - Control flow is explicit: every block ends in exactly one terminator
// - Every value tracks its uses, so analyses can walk def-use chains in
//   both directions without rescanning the function
//
// WHY USE LISTS?
// A use list records every operand slot that currently references a value.
// This makes "is this result consumed anywhere?" an O(1) query, which the
// optimizer depends on. The lists are maintained automatically by the
// operand mutators - passes never touch them by hand, which removes the
// dangling-reference failure mode of manual bookkeeping.
package ir

import (
	"fmt"

	"github.com/karim/optc/internal/types"
)

// Value is anything that can appear as an instruction operand: a constant,
// a function parameter, a global, a function (as a callee), or another
// instruction's result.
//
// DESIGN CHOICE: Use an interface rather than a single struct with a "kind"
// field because:
// - Type-safe pattern matching via type switches
// - Call-specific accessors only exist on *Call, function-specific ones on
//   *Function, so invalid downcasts are impossible
// - Follows the AST/types design elsewhere in the codebase
type Value interface {
	// Name returns the value's name, without any sigil. Empty for constants
	// and for instructions that produce no result.
	Name() string

	// Type is the type of the value this produces when used as an operand.
	Type() types.Type

	// Uses returns the use list: one entry per operand slot that currently
	// references this value. The returned slice is live; callers that
	// mutate the IR while iterating must copy it first.
	Uses() []*Use

	// Ident returns the operand-reference spelling of the value
	// ("%t1", "@main", "42", "true").
	Ident() string

	// String returns the definition form (a full instruction line for
	// instructions, the Ident for everything else).
	String() string

	addUse(u *Use)
	removeUse(user Value, index int)
}

// Use records a single operand slot referencing a value.
//
// User is the referencing value (an instruction, or a global variable whose
// initializer names the value) and Index is the operand slot within it.
type Use struct {
	User  Value
	Index int
}

// usable is the embeddable base supplying use-list plumbing.
type usable struct {
	uses []*Use
}

func (u *usable) Uses() []*Use { return u.uses }

func (u *usable) addUse(use *Use) { u.uses = append(u.uses, use) }

func (u *usable) removeUse(user Value, index int) {
	for i, use := range u.uses {
		if use.User == user && use.Index == index {
			u.uses = append(u.uses[:i], u.uses[i+1:]...)
			return
		}
	}
}

// HasUses reports whether any live operand slot references v.
func HasUses(v Value) bool { return len(v.Uses()) > 0 }

// Const is a compile-time constant.
//
// DESIGN CHOICE: A single Const type holding an interface{} value rather
// than one type per constant kind because:
// - The type field already discriminates (int64, float64, bool)
// - Simplifies the parser and the folder (uniform construction)
type Const struct {
	usable
	typ types.Type

	// Val holds int64, float64, or bool, matching typ.
	Val interface{}
}

// NewConstInt returns an integer constant.
func NewConstInt(v int64) *Const { return &Const{typ: types.Int, Val: v} }

// NewConstFloat returns a floating-point constant.
func NewConstFloat(v float64) *Const { return &Const{typ: types.Float, Val: v} }

// NewConstBool returns a boolean constant.
func NewConstBool(v bool) *Const { return &Const{typ: types.Bool, Val: v} }

func (c *Const) Name() string     { return "" }
func (c *Const) Type() types.Type { return c.typ }

func (c *Const) Ident() string {
	return fmt.Sprintf("%v", c.Val)
}

func (c *Const) String() string { return c.Ident() }

// Param is a function parameter.
type Param struct {
	usable
	name string
	typ  types.Type
}

// NewParam returns a parameter value. Parameters are created through
// Module.NewFunction in normal use.
func NewParam(name string, typ types.Type) *Param {
	return &Param{name: name, typ: typ}
}

func (p *Param) Name() string     { return p.name }
func (p *Param) Type() types.Type { return p.typ }
func (p *Param) Ident() string    { return "%" + p.name }
func (p *Param) String() string   { return p.Ident() }

// ReplaceAllUsesWith rewires every use of old to refer to new instead.
//
// After the call old's use list is empty. The use list is copied before
// iteration because SetOperand mutates it.
func ReplaceAllUsesWith(old, new Value) {
	uses := make([]*Use, len(old.Uses()))
	copy(uses, old.Uses())
	for _, u := range uses {
		switch user := u.User.(type) {
		case Instruction:
			user.SetOperand(u.Index, new)
		case *GlobalVariable:
			user.SetInit(new)
		}
	}
}
