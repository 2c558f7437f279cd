package ir

import "strings"

// BasicBlock is a straight-line sequence of instructions with a single
// entry point and a single terminator.
//
// DESIGN CHOICE: The terminator lives in its own slot rather than at the
// tail of the instruction list because:
// - "every block ends in exactly one terminator" becomes a structural
//   property instead of a convention passes must re-check
// - sweeping the instruction list can never remove a terminator by accident
// - an emptied-but-terminated block and a malformed unterminated block are
//   trivially distinguishable (Empty() vs IsTerminated())
type BasicBlock struct {
	// Label is the unique name of this block within its function.
	Label string

	// Instrs are the non-terminator instructions, in program order.
	Instrs []Instruction

	term   Terminator
	preds  []*BasicBlock
	parent *Function
}

// Parent returns the owning function.
func (bb *BasicBlock) Parent() *Function { return bb.parent }

// Terminator returns the block's terminator, or nil if not yet set.
func (bb *BasicBlock) Terminator() Terminator { return bb.term }

// IsTerminated reports whether the block has a terminator.
func (bb *BasicBlock) IsTerminated() bool { return bb.term != nil }

// Empty reports whether the block has no non-terminator instructions.
func (bb *BasicBlock) Empty() bool { return len(bb.Instrs) == 0 }

// Predecessors returns the blocks whose terminators target this block.
// The slice is maintained by SetTerminator and block erasure; it is live.
func (bb *BasicBlock) Predecessors() []*BasicBlock { return bb.preds }

// Successors returns the blocks this block's terminator can transfer to.
func (bb *BasicBlock) Successors() []*BasicBlock {
	if bb.term == nil {
		return nil
	}
	return bb.term.Successors()
}

// Append adds a non-terminator instruction at the end of the block.
func (bb *BasicBlock) Append(in Instruction) {
	in.setParent(bb)
	bb.Instrs = append(bb.Instrs, in)
}

// SetTerminator installs the block's terminator and wires the control-flow
// edges: this block is added to every successor's predecessor list.
//
// Replacing an existing terminator first unwires the old edges and severs
// the old terminator's operand references.
func (bb *BasicBlock) SetTerminator(t Terminator) {
	if bb.term != nil {
		bb.detachTerminator()
	}
	bb.term = t
	if t == nil {
		return
	}
	t.setParent(bb)
	for _, succ := range t.Successors() {
		succ.preds = append(succ.preds, bb)
	}
}

// detachTerminator unwires edges and operand uses of the current
// terminator and clears the slot.
func (bb *BasicBlock) detachTerminator() {
	t := bb.term
	if t == nil {
		return
	}
	for _, succ := range t.Successors() {
		succ.removePred(bb)
	}
	t.RemoveAllOperands()
	t.setParent(nil)
	bb.term = nil
}

func (bb *BasicBlock) removePred(pred *BasicBlock) {
	for i, p := range bb.preds {
		if p == pred {
			bb.preds = append(bb.preds[:i], bb.preds[i+1:]...)
			return
		}
	}
}

// EraseInstruction removes a non-terminator instruction from the block.
//
// The caller must sever the instruction's outgoing references first
// (RemoveAllOperands); erasure itself only detaches it from the container.
func (bb *BasicBlock) EraseInstruction(in Instruction) bool {
	for i, cur := range bb.Instrs {
		if cur == in {
			bb.Instrs = append(bb.Instrs[:i], bb.Instrs[i+1:]...)
			in.setParent(nil)
			return true
		}
	}
	return false
}

// String returns the block in assembly form.
func (bb *BasicBlock) String() string {
	var sb strings.Builder
	sb.WriteString(bb.Label)
	sb.WriteString(":")
	if len(bb.preds) > 0 {
		sb.WriteString(" ; preds:")
		for _, p := range bb.preds {
			sb.WriteString(" ")
			sb.WriteString(p.Label)
		}
	}
	sb.WriteString("\n")
	for _, in := range bb.Instrs {
		sb.WriteString("  ")
		sb.WriteString(in.String())
		sb.WriteString("\n")
	}
	if bb.term != nil {
		sb.WriteString("  ")
		sb.WriteString(bb.term.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
