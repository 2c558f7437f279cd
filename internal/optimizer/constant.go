package optimizer

import "github.com/karim/optc/internal/ir"

// ConstantFoldingPass evaluates instructions whose operands are all
// constants and rewrites their users to read the result directly.
//
// ALGORITHM:
// 1. Walk every instruction; if it folds, replace all its uses with the
//    folded constant
// 2. Repeat until a full walk folds nothing, so chains like
//    (1+2)*3 collapse completely
//
// The folded instructions themselves are left in place with empty use
// lists; dead code elimination deletes them. Keeping deletion in one pass
// keeps this one trivial.
//
// WHAT IS NOT FOLDED:
// - division and modulo by zero (the fold would hide a runtime fault)
// - anything touching memory or control flow
type ConstantFoldingPass struct {
	folded int
}

// NewConstantFoldingPass creates the pass.
func NewConstantFoldingPass() *ConstantFoldingPass {
	return &ConstantFoldingPass{}
}

// Name returns the pass name for logs.
func (p *ConstantFoldingPass) Name() string {
	return "constant folding"
}

// Folded returns the number of instructions folded by the most recent Run.
func (p *ConstantFoldingPass) Folded() int { return p.folded }

// Run folds constants in every defined function of the module.
func (p *ConstantFoldingPass) Run(m *ir.Module) error {
	p.folded = 0
	for _, fn := range m.Functions {
		for changed := true; changed; {
			changed = false
			for _, bb := range fn.Blocks {
				for _, in := range bb.Instrs {
					if c, ok := p.fold(in); ok && ir.HasUses(in) {
						ir.ReplaceAllUsesWith(in, c)
						p.folded++
						changed = true
					}
				}
			}
		}
	}
	return nil
}

// fold evaluates one instruction if all of its inputs are constants.
func (p *ConstantFoldingPass) fold(in ir.Instruction) (*ir.Const, bool) {
	switch in := in.(type) {
	case *ir.BinaryOp:
		left, ok := in.Left().(*ir.Const)
		if !ok {
			return nil, false
		}
		right, ok := in.Right().(*ir.Const)
		if !ok {
			return nil, false
		}
		return foldBinary(in.Op, left, right)
	case *ir.UnaryOp:
		src, ok := in.Src().(*ir.Const)
		if !ok {
			return nil, false
		}
		return foldUnary(in.Op, src)
	case *ir.Copy:
		src, ok := in.Src().(*ir.Const)
		if !ok {
			return nil, false
		}
		return src, true
	}
	return nil, false
}

func foldBinary(op ir.BinaryOperator, left, right *ir.Const) (*ir.Const, bool) {
	switch l := left.Val.(type) {
	case int64:
		r, ok := right.Val.(int64)
		if !ok {
			return nil, false
		}
		return foldIntBinary(op, l, r)
	case float64:
		r, ok := right.Val.(float64)
		if !ok {
			return nil, false
		}
		return foldFloatBinary(op, l, r)
	case bool:
		r, ok := right.Val.(bool)
		if !ok {
			return nil, false
		}
		return foldBoolBinary(op, l, r)
	}
	return nil, false
}

func foldIntBinary(op ir.BinaryOperator, l, r int64) (*ir.Const, bool) {
	switch op {
	case ir.OpAdd:
		return ir.NewConstInt(l + r), true
	case ir.OpSub:
		return ir.NewConstInt(l - r), true
	case ir.OpMul:
		return ir.NewConstInt(l * r), true
	case ir.OpDiv:
		if r == 0 {
			return nil, false
		}
		return ir.NewConstInt(l / r), true
	case ir.OpMod:
		if r == 0 {
			return nil, false
		}
		return ir.NewConstInt(l % r), true
	case ir.OpAnd:
		return ir.NewConstInt(l & r), true
	case ir.OpOr:
		return ir.NewConstInt(l | r), true
	case ir.OpXor:
		return ir.NewConstInt(l ^ r), true
	case ir.OpShl:
		if r < 0 || r >= 64 {
			return nil, false
		}
		return ir.NewConstInt(l << uint(r)), true
	case ir.OpShr:
		if r < 0 || r >= 64 {
			return nil, false
		}
		return ir.NewConstInt(l >> uint(r)), true
	case ir.OpEq:
		return ir.NewConstBool(l == r), true
	case ir.OpNe:
		return ir.NewConstBool(l != r), true
	case ir.OpLt:
		return ir.NewConstBool(l < r), true
	case ir.OpLe:
		return ir.NewConstBool(l <= r), true
	case ir.OpGt:
		return ir.NewConstBool(l > r), true
	case ir.OpGe:
		return ir.NewConstBool(l >= r), true
	}
	return nil, false
}

func foldFloatBinary(op ir.BinaryOperator, l, r float64) (*ir.Const, bool) {
	switch op {
	case ir.OpAdd:
		return ir.NewConstFloat(l + r), true
	case ir.OpSub:
		return ir.NewConstFloat(l - r), true
	case ir.OpMul:
		return ir.NewConstFloat(l * r), true
	case ir.OpDiv:
		if r == 0 {
			return nil, false
		}
		return ir.NewConstFloat(l / r), true
	case ir.OpEq:
		return ir.NewConstBool(l == r), true
	case ir.OpNe:
		return ir.NewConstBool(l != r), true
	case ir.OpLt:
		return ir.NewConstBool(l < r), true
	case ir.OpLe:
		return ir.NewConstBool(l <= r), true
	case ir.OpGt:
		return ir.NewConstBool(l > r), true
	case ir.OpGe:
		return ir.NewConstBool(l >= r), true
	}
	return nil, false
}

func foldBoolBinary(op ir.BinaryOperator, l, r bool) (*ir.Const, bool) {
	switch op {
	case ir.OpAnd:
		return ir.NewConstBool(l && r), true
	case ir.OpOr:
		return ir.NewConstBool(l || r), true
	case ir.OpXor:
		return ir.NewConstBool(l != r), true
	case ir.OpEq:
		return ir.NewConstBool(l == r), true
	case ir.OpNe:
		return ir.NewConstBool(l != r), true
	}
	return nil, false
}

func foldUnary(op ir.UnaryOperator, src *ir.Const) (*ir.Const, bool) {
	switch v := src.Val.(type) {
	case int64:
		if op == ir.OpNeg {
			return ir.NewConstInt(-v), true
		}
	case float64:
		if op == ir.OpNeg {
			return ir.NewConstFloat(-v), true
		}
	case bool:
		if op == ir.OpNot {
			return ir.NewConstBool(!v), true
		}
	}
	return nil, false
}
