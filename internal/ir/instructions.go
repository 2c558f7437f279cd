package ir

import (
	"fmt"
	"strings"

	"github.com/karim/optc/internal/types"
)

// Instruction is a single IR operation owned by a basic block.
//
// Ordinary instructions live in the block's instruction list; terminators
// (Ret, Jump, Branch) live in the block's terminator slot. Both satisfy
// this interface so analyses can treat them uniformly.
type Instruction interface {
	Value

	// Parent returns the owning basic block, or nil if detached.
	Parent() *BasicBlock

	// Operands returns the ordered operand list. The slice is live.
	Operands() []Value

	// Operand returns the i-th operand.
	Operand(i int) Value

	// NumOperands returns the number of operand slots.
	NumOperands() int

	// SetOperand replaces operand i, updating both use lists.
	SetOperand(i int, v Value)

	// RemoveAllOperands severs every outgoing reference this instruction
	// holds: it removes itself from the use list of everything it used.
	// Required before erasing the instruction.
	RemoveAllOperands()

	// IsTerminator reports whether this instruction ends a block.
	IsTerminator() bool

	setParent(bb *BasicBlock)
}

// Terminator is an instruction that ends a basic block and names its
// control-flow successors.
type Terminator interface {
	Instruction

	// Successors returns the blocks control can transfer to.
	Successors() []*BasicBlock
}

// instruction is the shared operand/use-list plumbing embedded by every
// concrete instruction type.
//
// DESIGN CHOICE: The embedded base keeps a self reference to the outer
// instruction because use records must name the concrete instruction, not
// the embedded struct. init(self) is called by every constructor.
type instruction struct {
	usable
	name     string // result name, empty when the instruction produces no value
	typ      types.Type
	parent   *BasicBlock
	operands []Value
	self     Instruction
}

func (in *instruction) init(self Instruction, name string, typ types.Type) {
	in.self = self
	in.name = name
	in.typ = typ
}

func (in *instruction) Name() string         { return in.name }
func (in *instruction) Type() types.Type     { return in.typ }
func (in *instruction) Parent() *BasicBlock  { return in.parent }
func (in *instruction) setParent(b *BasicBlock) { in.parent = b }
func (in *instruction) Operands() []Value    { return in.operands }
func (in *instruction) Operand(i int) Value  { return in.operands[i] }
func (in *instruction) NumOperands() int     { return len(in.operands) }
func (in *instruction) IsTerminator() bool   { return false }

func (in *instruction) Ident() string { return "%" + in.name }

// addOperand appends an operand slot and records the use.
func (in *instruction) addOperand(v Value) {
	if v != nil {
		v.addUse(&Use{User: in.self, Index: len(in.operands)})
	}
	in.operands = append(in.operands, v)
}

func (in *instruction) SetOperand(i int, v Value) {
	if old := in.operands[i]; old != nil {
		old.removeUse(in.self, i)
	}
	in.operands[i] = v
	if v != nil {
		v.addUse(&Use{User: in.self, Index: i})
	}
}

func (in *instruction) RemoveAllOperands() {
	for i, op := range in.operands {
		if op != nil {
			op.removeUse(in.self, i)
		}
	}
	in.operands = nil
}

// operandIdent prints an operand reference, tolerating nil slots that can
// occur transiently during parsing.
func operandIdent(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.Ident()
}

// BinaryOperator identifies a binary arithmetic, comparison, or logical
// operation.
type BinaryOperator int

const (
	// Arithmetic
	OpAdd BinaryOperator = iota
	OpSub
	OpMul
	OpDiv
	OpMod

	// Comparison (result type bool)
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// Logical / bitwise
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
)

// String returns the assembly mnemonic; it doubles as the parser's opcode
// spelling so modules print in parseable form.
func (op BinaryOperator) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpMod:
		return "mod"
	case OpEq:
		return "eq"
	case OpNe:
		return "ne"
	case OpLt:
		return "lt"
	case OpLe:
		return "le"
	case OpGt:
		return "gt"
	case OpGe:
		return "ge"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	case OpShl:
		return "shl"
	case OpShr:
		return "shr"
	default:
		return "?"
	}
}

// IsComparison reports whether the operator produces a bool.
func (op BinaryOperator) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// BinaryOp computes result = op(left, right). Operand 0 is the left operand.
type BinaryOp struct {
	instruction
	Op BinaryOperator
}

func (b *BinaryOp) Left() Value  { return b.Operand(0) }
func (b *BinaryOp) Right() Value { return b.Operand(1) }

func (b *BinaryOp) String() string {
	return fmt.Sprintf("%s = %s %s, %s", b.Ident(), b.Op, operandIdent(b.Left()), operandIdent(b.Right()))
}

// UnaryOperator identifies a unary operation.
type UnaryOperator int

const (
	OpNeg UnaryOperator = iota // arithmetic negation
	OpNot                      // logical not
)

func (op UnaryOperator) String() string {
	switch op {
	case OpNeg:
		return "neg"
	case OpNot:
		return "not"
	default:
		return "?"
	}
}

// UnaryOp computes result = op(operand).
type UnaryOp struct {
	instruction
	Op UnaryOperator
}

func (u *UnaryOp) Src() Value { return u.Operand(0) }

func (u *UnaryOp) String() string {
	return fmt.Sprintf("%s = %s %s", u.Ident(), u.Op, operandIdent(u.Src()))
}

// Copy propagates a value: result = src.
type Copy struct {
	instruction
}

func (c *Copy) Src() Value { return c.Operand(0) }

func (c *Copy) String() string {
	return fmt.Sprintf("%s = copy %s", c.Ident(), operandIdent(c.Src()))
}

// Load reads a value from memory: result = *address.
type Load struct {
	instruction
}

func (l *Load) Address() Value { return l.Operand(0) }

func (l *Load) String() string {
	return fmt.Sprintf("%s = load %s", l.Ident(), operandIdent(l.Address()))
}

// Store writes a value to memory: *address = value. Produces no result.
// Operand 0 is the stored value, operand 1 the address.
type Store struct {
	instruction
}

func (s *Store) Value() Value   { return s.Operand(0) }
func (s *Store) Address() Value { return s.Operand(1) }

func (s *Store) String() string {
	return fmt.Sprintf("store %s, %s", operandIdent(s.Value()), operandIdent(s.Address()))
}

// Alloca reserves stack space for one value of the allocated type and
// produces a pointer to it.
type Alloca struct {
	instruction
	Allocated types.Type
}

func (a *Alloca) String() string {
	return fmt.Sprintf("%s = alloca %s", a.Ident(), a.Allocated)
}

// GetElementPtr computes an element address: result = &base[index].
type GetElementPtr struct {
	instruction
}

func (g *GetElementPtr) Base() Value  { return g.Operand(0) }
func (g *GetElementPtr) Index() Value { return g.Operand(1) }

func (g *GetElementPtr) String() string {
	return fmt.Sprintf("%s = gep %s, %s", g.Ident(), operandIdent(g.Base()), operandIdent(g.Index()))
}

// Phi merges values flowing in from different predecessors.
//
// Operand i carries the value incoming from blocks[i]. The blocks are not
// operands (blocks are not values); they are kept in a parallel slice.
type Phi struct {
	instruction
	blocks []*BasicBlock
}

// NumIncoming returns the number of incoming edges.
func (p *Phi) NumIncoming() int { return len(p.blocks) }

// Incoming returns the i-th incoming value and its source block.
func (p *Phi) Incoming(i int) (Value, *BasicBlock) {
	return p.Operand(i), p.blocks[i]
}

// AddIncoming appends an incoming edge.
func (p *Phi) AddIncoming(v Value, bb *BasicBlock) {
	p.addOperand(v)
	p.blocks = append(p.blocks, bb)
}

// SetIncomingBlock replaces the source block of the i-th incoming edge.
func (p *Phi) SetIncomingBlock(i int, bb *BasicBlock) {
	p.blocks[i] = bb
}

func (p *Phi) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s = phi ", p.Ident())
	for i := range p.blocks {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "[%s, %s]", operandIdent(p.Operand(i)), p.blocks[i].Label)
	}
	return sb.String()
}

// Call invokes a function: result = call callee(args...).
//
// Operand 0 is the called value; the remaining operands are the arguments.
// The callee is usually a *Function but may be any pointer-typed value for
// indirect calls.
type Call struct {
	instruction
}

// Callee returns operand 0, the called value.
func (c *Call) Callee() Value { return c.Operand(0) }

// Args returns the argument operands.
func (c *Call) Args() []Value { return c.Operands()[1:] }

// CalledFunction returns the statically known callee, if there is one.
// For indirect calls ok is false.
func (c *Call) CalledFunction() (*Function, bool) {
	f, ok := c.Callee().(*Function)
	return f, ok
}

func (c *Call) String() string {
	var sb strings.Builder
	if c.name != "" {
		fmt.Fprintf(&sb, "%s = ", c.Ident())
	}
	fmt.Fprintf(&sb, "call %s(", operandIdent(c.Callee()))
	for i, arg := range c.Args() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(operandIdent(arg))
	}
	sb.WriteString(")")
	return sb.String()
}

// Terminators

// Ret returns from the function, optionally with a value.
type Ret struct {
	instruction
}

// Value returns the returned value, or nil for a void return.
func (r *Ret) Value() Value {
	if r.NumOperands() == 0 {
		return nil
	}
	return r.Operand(0)
}

func (r *Ret) IsTerminator() bool          { return true }
func (r *Ret) Successors() []*BasicBlock  { return nil }

func (r *Ret) String() string {
	if v := r.Value(); v != nil {
		return fmt.Sprintf("ret %s", operandIdent(v))
	}
	return "ret"
}

// Jump transfers control unconditionally to Target.
type Jump struct {
	instruction
	Target *BasicBlock
}

func (j *Jump) IsTerminator() bool         { return true }
func (j *Jump) Successors() []*BasicBlock  { return []*BasicBlock{j.Target} }

func (j *Jump) String() string {
	return fmt.Sprintf("jmp %s", j.Target.Label)
}

// Branch transfers control to True or False depending on the boolean
// condition in operand 0.
type Branch struct {
	instruction
	True  *BasicBlock
	False *BasicBlock
}

func (b *Branch) Cond() Value { return b.Operand(0) }

func (b *Branch) IsTerminator() bool        { return true }
func (b *Branch) Successors() []*BasicBlock { return []*BasicBlock{b.True, b.False} }

func (b *Branch) String() string {
	return fmt.Sprintf("br %s, %s, %s", operandIdent(b.Cond()), b.True.Label, b.False.Label)
}
