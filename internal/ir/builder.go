package ir

import (
	"fmt"

	"github.com/karim/optc/internal/types"
)

// Builder constructs IR instructions with correct operand and use-list
// bookkeeping.
//
// DESIGN CHOICE: All construction funnels through the builder because:
// - Use lists must be updated on every operand attachment; hand-rolled
//   struct literals would silently skip that
// - The insert point (current block) mirrors how both the parser and tests
//   emit straight-line code
// - Result types are inferred in exactly one place
type Builder struct {
	module   *Module
	block    *BasicBlock
	nextTemp int
}

// NewBuilder creates a builder for the given module.
func NewBuilder(m *Module) *Builder {
	return &Builder{module: m}
}

// Module returns the module being built.
func (b *Builder) Module() *Module { return b.module }

// SetInsertBlock directs subsequent Create calls to append to bb.
func (b *Builder) SetInsertBlock(bb *BasicBlock) { b.block = bb }

// InsertBlock returns the current insert point.
func (b *Builder) InsertBlock() *BasicBlock { return b.block }

// tempName generates a fresh result name when the caller passes "".
func (b *Builder) tempName(name string) string {
	if name != "" {
		return name
	}
	b.nextTemp++
	return fmt.Sprintf("t%d", b.nextTemp)
}

// CreateBinary appends result = op(left, right). Comparison operators
// produce bool; everything else produces the left operand's type.
func (b *Builder) CreateBinary(op BinaryOperator, name string, left, right Value) *BinaryOp {
	typ := left.Type()
	if op.IsComparison() {
		typ = types.Bool
	}
	in := &BinaryOp{Op: op}
	in.init(in, b.tempName(name), typ)
	in.addOperand(left)
	in.addOperand(right)
	b.block.Append(in)
	return in
}

// CreateUnary appends result = op(src).
func (b *Builder) CreateUnary(op UnaryOperator, name string, src Value) *UnaryOp {
	in := &UnaryOp{Op: op}
	in.init(in, b.tempName(name), src.Type())
	in.addOperand(src)
	b.block.Append(in)
	return in
}

// CreateCopy appends result = copy src.
func (b *Builder) CreateCopy(name string, src Value) *Copy {
	in := &Copy{}
	in.init(in, b.tempName(name), src.Type())
	in.addOperand(src)
	b.block.Append(in)
	return in
}

// CreateLoad appends result = load addr. The result type is the pointee
// type when addr is pointer-typed.
func (b *Builder) CreateLoad(name string, addr Value) *Load {
	typ := addr.Type()
	if pt, ok := typ.(*types.PointerType); ok {
		typ = pt.Elem
	}
	in := &Load{}
	in.init(in, b.tempName(name), typ)
	in.addOperand(addr)
	b.block.Append(in)
	return in
}

// CreateStore appends store val, addr.
func (b *Builder) CreateStore(val, addr Value) *Store {
	in := &Store{}
	in.init(in, "", types.Void)
	in.addOperand(val)
	in.addOperand(addr)
	b.block.Append(in)
	return in
}

// CreateAlloca appends result = alloca elem; the result is ptr<elem>.
func (b *Builder) CreateAlloca(name string, elem types.Type) *Alloca {
	in := &Alloca{Allocated: elem}
	in.init(in, b.tempName(name), types.NewPointer(elem))
	b.block.Append(in)
	return in
}

// CreateGEP appends result = gep base, index.
func (b *Builder) CreateGEP(name string, base, index Value) *GetElementPtr {
	in := &GetElementPtr{}
	in.init(in, b.tempName(name), base.Type())
	in.addOperand(base)
	in.addOperand(index)
	b.block.Append(in)
	return in
}

// CreatePhi appends an (initially empty) phi of the given type; incoming
// edges are attached with AddIncoming.
func (b *Builder) CreatePhi(name string, typ types.Type) *Phi {
	in := &Phi{}
	in.init(in, b.tempName(name), typ)
	b.block.Append(in)
	return in
}

// CreateCall appends result = call callee(args...). name must be empty
// when the callee returns void.
func (b *Builder) CreateCall(name string, callee Value, args ...Value) *Call {
	in := &Call{}
	in.init(in, name, callee.Type())
	in.addOperand(callee)
	for _, arg := range args {
		in.addOperand(arg)
	}
	b.block.Append(in)
	return in
}

// CreateRet installs ret [v] as the current block's terminator. Pass nil
// for a void return.
func (b *Builder) CreateRet(v Value) *Ret {
	in := &Ret{}
	in.init(in, "", types.Void)
	if v != nil {
		in.addOperand(v)
	}
	b.block.SetTerminator(in)
	return in
}

// CreateJump installs jmp target as the current block's terminator.
func (b *Builder) CreateJump(target *BasicBlock) *Jump {
	in := &Jump{Target: target}
	in.init(in, "", types.Void)
	b.block.SetTerminator(in)
	return in
}

// CreateBranch installs br cond, then, else as the current block's
// terminator.
func (b *Builder) CreateBranch(cond Value, then, els *BasicBlock) *Branch {
	in := &Branch{True: then, False: els}
	in.init(in, "", types.Void)
	in.addOperand(cond)
	b.block.SetTerminator(in)
	return in
}
