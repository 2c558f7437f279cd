package optimizer

import "github.com/karim/optc/internal/ir"

// DeadCodePass removes instructions whose results are never observed and
// basic blocks that can no longer be entered.
//
// WHAT IS DEAD CODE?
// An instruction is dead when deleting it cannot change what the program
// does: nothing reads its result and it has no side effect of its own.
// A basic block is dead when no terminator anywhere targets it, so control
// can never arrive.
//
// ALGORITHM (mark and sweep, per function):
// 1. mark: seed a worklist with every critical instruction, then pull the
//    operand chains of critical instructions into the live set
// 2. sweep: delete the instructions that were never marked
// 3. prune: delete blocks the sweep emptied that have no predecessors
// 4. repeat from 1 until a full round deletes nothing
//
// WHY ITERATE?
// Criticality is judged against the current use lists. In a chain
// %a -> %b where only dead %b reads %a, the first round deletes %b only;
// deleting %b is what makes %a deletable. Each round peels one layer, so
// a chain of depth N finishes in N rounds. Pruning cascades the same way:
// erasing a block unwires its successor edges, which can strand the next
// block in the chain for the following round.
type DeadCodePass struct {
	funcInfo *FuncInfo
	live     map[ir.Instruction]bool

	removed       int
	blocksRemoved int
}

// NewDeadCodePass creates the pass. Purity facts are computed fresh on
// every Run so earlier passes can change the module freely.
func NewDeadCodePass() *DeadCodePass {
	return &DeadCodePass{funcInfo: NewFuncInfo()}
}

// Name returns the pass name for logs.
func (p *DeadCodePass) Name() string {
	return "dead code elimination"
}

// Removed returns the number of instructions deleted by the most recent
// Run. A second Run on an already-clean module reports zero.
func (p *DeadCodePass) Removed() int { return p.removed }

// BlocksRemoved returns the number of blocks deleted by the most recent Run.
func (p *DeadCodePass) BlocksRemoved() int { return p.blocksRemoved }

// Run eliminates dead code in every defined function of the module.
func (p *DeadCodePass) Run(m *ir.Module) error {
	p.removed = 0
	p.blocksRemoved = 0
	p.funcInfo.Analyze(m)

	for _, fn := range m.Functions {
		if fn.IsDeclaration() {
			continue
		}
		for {
			p.mark(fn)
			swept := p.sweep(fn)
			pruned := p.prune(fn)
			p.removed += swept
			p.blocksRemoved += pruned
			if swept == 0 && pruned == 0 {
				break
			}
		}
	}
	return nil
}

// isCritical reports whether an instruction must survive this round.
//
// THE RULES, IN ORDER:
// 1. terminators: control flow is always observable
// 2. stores: they mutate memory someone else may read
// 3. calls: critical unless the callee is statically known, defined in
//    this module, and proven pure - an indirect call or a call into
//    external code could do anything
// 4. everything else: critical exactly when something still reads its
//    result, judged against the use list as it stands right now
func (p *DeadCodePass) isCritical(in ir.Instruction) bool {
	switch in := in.(type) {
	case *ir.Ret, *ir.Jump, *ir.Branch:
		return true
	case *ir.Store:
		return true
	case *ir.Call:
		callee, known := in.CalledFunction()
		if !known {
			return true
		}
		if callee.IsDeclaration() || !p.funcInfo.IsPure(callee) {
			return true
		}
	}
	return ir.HasUses(in)
}

// mark rebuilds the live set for one function.
func (p *DeadCodePass) mark(fn *ir.Function) {
	p.live = make(map[ir.Instruction]bool)
	var worklist []ir.Instruction

	enqueue := func(in ir.Instruction) {
		if !p.live[in] {
			p.live[in] = true
			worklist = append(worklist, in)
		}
	}

	for _, bb := range fn.Blocks {
		for _, in := range bb.Instrs {
			if p.isCritical(in) {
				enqueue(in)
			}
		}
		if t := bb.Terminator(); t != nil {
			enqueue(t)
		}
	}

	// Everything a live instruction reads is live too.
	for len(worklist) > 0 {
		in := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, op := range in.Operands() {
			if dep, ok := op.(ir.Instruction); ok {
				enqueue(dep)
			}
		}
	}
}

// sweep deletes every unmarked instruction in the function and returns
// how many it deleted.
//
// DESIGN CHOICE: Collect first, delete after. Deleting while walking
// bb.Instrs would shift the slice under the iteration; collecting also
// keeps the use-list bookkeeping (sever operands, then erase) in one
// obvious place.
func (p *DeadCodePass) sweep(fn *ir.Function) int {
	count := 0
	for _, bb := range fn.Blocks {
		if bb.Empty() || !bb.IsTerminated() {
			continue
		}
		var dead []ir.Instruction
		for _, in := range bb.Instrs {
			if !p.live[in] {
				dead = append(dead, in)
			}
		}
		for _, in := range dead {
			in.RemoveAllOperands()
			bb.EraseInstruction(in)
			count++
		}
	}
	return count
}

// prune deletes blocks that are instruction-empty and have no
// predecessors. The entry block stays even when empty: it is the
// function's way in regardless of edges.
//
// Erasing a block detaches its terminator, which removes this block from
// its successors' predecessor lists; a successor stranded by that is
// picked up on the next round of the fixed point.
func (p *DeadCodePass) prune(fn *ir.Function) int {
	entry := fn.EntryBlock()
	var doomed []*ir.BasicBlock
	for _, bb := range fn.Blocks {
		if bb == entry {
			continue
		}
		if bb.Empty() && len(bb.Predecessors()) == 0 {
			doomed = append(doomed, bb)
		}
	}
	for _, bb := range doomed {
		fn.EraseBlock(bb)
	}
	return len(doomed)
}

// SweepGlobally removes module-level symbols nothing references: defined
// functions with an empty use list (the entry function is exempt - the
// runtime calls it even though no instruction does) and globals with an
// empty use list. Declarations are kept only if used.
//
// Returns the number of functions and globals removed.
//
// One pass only. Erasing a function severs the uses its body held, which
// can orphan further symbols; callers wanting the closure run the whole
// optimizer again, matching how the pass pipeline drives every other
// cascade here.
func SweepGlobally(m *ir.Module) (funcs, globals int) {
	for _, fn := range append([]*ir.Function(nil), m.Functions...) {
		if fn.Name() == ir.EntryFunctionName {
			continue
		}
		if !ir.HasUses(fn) {
			m.EraseFunction(fn)
			funcs++
		}
	}
	for _, g := range append([]*ir.GlobalVariable(nil), m.Globals...) {
		if !ir.HasUses(g) {
			m.EraseGlobal(g)
			globals++
		}
	}
	return funcs, globals
}
