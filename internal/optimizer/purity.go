package optimizer

import "github.com/karim/optc/internal/ir"

// FuncInfo answers "is calling this function observable?" for the whole
// module. Dead code elimination uses it to decide whether a call whose
// result nobody reads can be deleted.
//
// WHAT COUNTS AS A SIDE EFFECT?
// - a store whose address does not trace back to a local alloca
// - a call to a declaration (external code is opaque)
// - a call through a value rather than a named function (indirect)
// - a call to a function already known to be impure
//
// Reads are not side effects here: a function that only loads from a
// global still computes the same nothing when its result is unused.
//
// ALGORITHM:
// Optimistic fixed point over the call graph. Every defined function
// starts out pure; any function observed to have a side effect, or to
// call an impure function, is demoted. Repeat until a full round demotes
// nothing. Cycles (recursion, mutual recursion) need no special casing:
// a pure cycle simply never gets demoted.
type FuncInfo struct {
	pure map[*ir.Function]bool
}

// NewFuncInfo creates an analysis with no facts; call Analyze first.
func NewFuncInfo() *FuncInfo {
	return &FuncInfo{pure: make(map[*ir.Function]bool)}
}

// IsPure reports whether fn is known to be free of side effects.
// Unknown functions (declarations, functions from another module) are
// conservatively impure.
func (fi *FuncInfo) IsPure(fn *ir.Function) bool {
	return fi.pure[fn]
}

// Analyze computes purity for every function in the module.
func (fi *FuncInfo) Analyze(m *ir.Module) {
	fi.pure = make(map[*ir.Function]bool, len(m.Functions))
	for _, fn := range m.Functions {
		if !fn.IsDeclaration() {
			fi.pure[fn] = true
		}
	}

	for changed := true; changed; {
		changed = false
		for _, fn := range m.Functions {
			if !fi.pure[fn] {
				continue
			}
			if fi.hasSideEffects(fn) {
				fi.pure[fn] = false
				changed = true
			}
		}
	}
}

// hasSideEffects scans a function body under the current purity facts.
func (fi *FuncInfo) hasSideEffects(fn *ir.Function) bool {
	for _, bb := range fn.Blocks {
		for _, in := range bb.Instrs {
			switch in := in.(type) {
			case *ir.Store:
				if !isLocalAddress(in.Address()) {
					return true
				}
			case *ir.Call:
				callee, known := in.CalledFunction()
				if !known || !fi.pure[callee] {
					return true
				}
			}
		}
	}
	return false
}

// isLocalAddress reports whether an address provably refers to memory the
// function itself allocated. Anything that cannot be traced to an alloca
// (parameters, globals, loaded pointers) is treated as escaping.
func isLocalAddress(addr ir.Value) bool {
	for {
		switch v := addr.(type) {
		case *ir.Alloca:
			return true
		case *ir.GetElementPtr:
			addr = v.Base()
		case *ir.Copy:
			addr = v.Src()
		default:
			return false
		}
	}
}
