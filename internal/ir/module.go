package ir

import (
	"fmt"
	"strings"

	"github.com/karim/optc/internal/types"
)

// EntryFunctionName is the reserved name of the program entry point.
// The entry function is never removed, regardless of its use count.
const EntryFunctionName = "main"

// Function is a function definition or declaration.
//
// A declaration has no blocks (it is defined externally); a definition owns
// an ordered block list whose first block is the entry block. As a Value a
// function can appear as a call operand; its use list records every call
// site, which is what decides its liveness at module scope.
type Function struct {
	usable
	name    string
	retType types.Type

	// Params are the function's parameter values, usable as operands
	// inside the body.
	Params []*Param

	// Blocks are the basic blocks in declaration order. Empty for
	// declarations. The first block is the entry block.
	Blocks []*BasicBlock

	parent *Module
}

func (f *Function) Name() string     { return f.name }
func (f *Function) Type() types.Type { return f.retType }
func (f *Function) Ident() string    { return "@" + f.name }
func (f *Function) Parent() *Module  { return f.parent }

// IsDeclaration reports whether the function has no body in this module.
func (f *Function) IsDeclaration() bool { return len(f.Blocks) == 0 }

// EntryBlock returns the function's entry block, or nil for declarations.
func (f *Function) EntryBlock() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NewBlock creates a basic block with the given label and appends it to
// the function.
func (f *Function) NewBlock(label string) *BasicBlock {
	bb := &BasicBlock{Label: label, parent: f}
	f.Blocks = append(f.Blocks, bb)
	return bb
}

// EraseBlock removes an instruction-empty, predecessor-free block from the
// function, severing its terminator's edges and operand references.
//
// Returns false (and leaves the IR untouched) if the block still has
// instructions or predecessors, or does not belong to this function.
func (f *Function) EraseBlock(bb *BasicBlock) bool {
	if !bb.Empty() || len(bb.Predecessors()) > 0 {
		return false
	}
	for i, cur := range f.Blocks {
		if cur == bb {
			bb.detachTerminator()
			f.Blocks = append(f.Blocks[:i], f.Blocks[i+1:]...)
			bb.parent = nil
			return true
		}
	}
	return false
}

// dispose severs every outgoing reference held by the function body, so
// that use counts of everything it referenced (callees, globals) drop.
// Called when the function is erased from its module.
func (f *Function) dispose() {
	for _, bb := range f.Blocks {
		for _, in := range bb.Instrs {
			in.RemoveAllOperands()
		}
		if t := bb.Terminator(); t != nil {
			t.RemoveAllOperands()
		}
	}
	f.Blocks = nil
}

// String returns the function in assembly form.
func (f *Function) String() string {
	var sb strings.Builder
	if f.IsDeclaration() {
		sb.WriteString("declare ")
	} else {
		sb.WriteString("func ")
	}
	sb.WriteString(f.Ident())
	sb.WriteString("(")
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", p.Ident(), p.Type())
	}
	sb.WriteString(") ")
	sb.WriteString(f.retType.String())
	if f.IsDeclaration() {
		sb.WriteString("\n")
		return sb.String()
	}
	sb.WriteString(" {\n")
	for _, bb := range f.Blocks {
		sb.WriteString(bb.String())
	}
	sb.WriteString("}\n")
	return sb.String()
}

// GlobalVariable is a module-level variable. As a Value it is a pointer to
// its element type, like an alloca.
type GlobalVariable struct {
	usable
	name   string
	elem   types.Type
	init   Value
	parent *Module
}

func (g *GlobalVariable) Name() string     { return g.name }
func (g *GlobalVariable) Type() types.Type { return types.NewPointer(g.elem) }
func (g *GlobalVariable) Elem() types.Type { return g.elem }
func (g *GlobalVariable) Ident() string    { return "@" + g.name }

// Init returns the initializer, or nil.
func (g *GlobalVariable) Init() Value { return g.init }

// SetInit installs the initializer, maintaining use lists. An initializer
// that names another global keeps that global alive for the symbol sweep.
func (g *GlobalVariable) SetInit(v Value) {
	if g.init != nil {
		g.init.removeUse(g, 0)
	}
	g.init = v
	if v != nil {
		v.addUse(&Use{User: g, Index: 0})
	}
}

func (g *GlobalVariable) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "global %s: %s", g.Ident(), g.elem)
	if g.init != nil {
		fmt.Fprintf(&sb, " = %s", g.init.Ident())
	}
	return sb.String()
}

// Module is the top-level IR container: an ordered collection of functions
// and global variables. Identity of both is by declaration order.
type Module struct {
	Name      string
	Functions []*Function
	Globals   []*GlobalVariable
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// NewFunction creates a function (a declaration until blocks are added)
// and appends it to the module.
func (m *Module) NewFunction(name string, ret types.Type, params ...*Param) *Function {
	f := &Function{name: name, retType: ret, Params: params, parent: m}
	m.Functions = append(m.Functions, f)
	return f
}

// NewGlobal creates a global variable and appends it to the module.
func (m *Module) NewGlobal(name string, elem types.Type) *GlobalVariable {
	g := &GlobalVariable{name: name, elem: elem, parent: m}
	m.Globals = append(m.Globals, g)
	return g
}

// LookupFunction returns the function with the given name, or nil.
func (m *Module) LookupFunction(name string) *Function {
	for _, f := range m.Functions {
		if f.name == name {
			return f
		}
	}
	return nil
}

// LookupGlobal returns the global with the given name, or nil.
func (m *Module) LookupGlobal(name string) *GlobalVariable {
	for _, g := range m.Globals {
		if g.name == name {
			return g
		}
	}
	return nil
}

// EraseFunction removes a function from the module. The body's outgoing
// references are severed first so use counts of its callees drop.
func (m *Module) EraseFunction(f *Function) bool {
	for i, cur := range m.Functions {
		if cur == f {
			f.dispose()
			m.Functions = append(m.Functions[:i], m.Functions[i+1:]...)
			f.parent = nil
			return true
		}
	}
	return false
}

// EraseGlobal removes a global variable from the module, dropping its
// initializer reference first.
func (m *Module) EraseGlobal(g *GlobalVariable) bool {
	for i, cur := range m.Globals {
		if cur == g {
			g.SetInit(nil)
			m.Globals = append(m.Globals[:i], m.Globals[i+1:]...)
			g.parent = nil
			return true
		}
	}
	return false
}

// String returns the module in assembly form.
func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; module %s\n", m.Name)
	for _, g := range m.Globals {
		sb.WriteString(g.String())
		sb.WriteString("\n")
	}
	if len(m.Globals) > 0 {
		sb.WriteString("\n")
	}
	for _, f := range m.Functions {
		sb.WriteString(f.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
