package ir

import "fmt"

// Verify checks that the IR is well-formed. Returns a list of errors found.
//
// CHECKS:
// - Every block of a defined function has a terminator
// - The entry block has no predecessors
// - Predecessor lists agree with terminator successor edges
// - Use-list/operand cross-consistency: every operand slot is recorded in
//   the operand's use list, and every use record points back at a live
//   operand slot
func (m *Module) Verify() []error {
	var errs []error

	for _, fn := range m.Functions {
		if fn.IsDeclaration() {
			continue
		}

		for _, bb := range fn.Blocks {
			if !bb.IsTerminated() {
				errs = append(errs, fmt.Errorf(
					"block %s in function %s has no terminator", bb.Label, fn.name))
			}
		}

		if entry := fn.EntryBlock(); entry != nil && len(entry.Predecessors()) > 0 {
			errs = append(errs, fmt.Errorf(
				"entry block of function %s has predecessors", fn.name))
		}

		errs = append(errs, verifyEdges(fn)...)
		errs = append(errs, verifyUses(fn)...)
	}

	return errs
}

func verifyEdges(fn *Function) []error {
	var errs []error
	for _, bb := range fn.Blocks {
		for _, succ := range bb.Successors() {
			if !containsBlock(succ.Predecessors(), bb) {
				errs = append(errs, fmt.Errorf(
					"function %s: %s targets %s but is missing from its predecessor list",
					fn.name, bb.Label, succ.Label))
			}
		}
		for _, pred := range bb.Predecessors() {
			if !containsBlock(pred.Successors(), bb) {
				errs = append(errs, fmt.Errorf(
					"function %s: %s lists predecessor %s that does not target it",
					fn.name, bb.Label, pred.Label))
			}
		}
	}
	return errs
}

func verifyUses(fn *Function) []error {
	var errs []error
	check := func(in Instruction) {
		for i, op := range in.Operands() {
			if op == nil {
				errs = append(errs, fmt.Errorf(
					"function %s: %s has a nil operand at slot %d", fn.name, in.String(), i))
				continue
			}
			if !hasUseRecord(op, in, i) {
				errs = append(errs, fmt.Errorf(
					"function %s: operand %d of %q is missing from the use list of %s",
					fn.name, i, in.String(), op.Ident()))
			}
		}
		for _, u := range in.Uses() {
			user, ok := u.User.(Instruction)
			if !ok {
				continue
			}
			if u.Index >= user.NumOperands() || user.Operand(u.Index) != in {
				errs = append(errs, fmt.Errorf(
					"function %s: stale use record of %s in %q",
					fn.name, in.Ident(), user.String()))
			}
		}
	}
	for _, bb := range fn.Blocks {
		for _, in := range bb.Instrs {
			check(in)
		}
		if t := bb.Terminator(); t != nil {
			check(t)
		}
	}
	return errs
}

func hasUseRecord(v Value, user Value, index int) bool {
	for _, u := range v.Uses() {
		if u.User == user && u.Index == index {
			return true
		}
	}
	return false
}

func containsBlock(list []*BasicBlock, bb *BasicBlock) bool {
	for _, b := range list {
		if b == bb {
			return true
		}
	}
	return false
}
