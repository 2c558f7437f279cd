package optimizer

import (
	"testing"

	"github.com/karim/optc/internal/ir"
	"github.com/karim/optc/internal/irparse"
)

// parseModule builds a module from IR assembly, failing the test on any
// parse or verify error.
func parseModule(t *testing.T, source string) *ir.Module {
	t.Helper()
	m, errs := irparse.Parse(source, "test.ir")
	if len(errs) != 0 {
		t.Fatalf("parse errors in fixture: %v", errs)
	}
	if verrs := m.Verify(); len(verrs) != 0 {
		t.Fatalf("fixture does not verify: %v", verrs)
	}
	return m
}

// runDCE runs one dead code elimination pass and re-verifies the module.
func runDCE(t *testing.T, m *ir.Module) *DeadCodePass {
	t.Helper()
	pass := NewDeadCodePass()
	if err := pass.Run(m); err != nil {
		t.Fatalf("dead code pass failed: %v", err)
	}
	if errs := m.Verify(); len(errs) != 0 {
		t.Fatalf("module does not verify after dead code pass: %v", errs)
	}
	return pass
}

// countInstrs counts non-terminator instructions in a function.
func countInstrs(fn *ir.Function) int {
	n := 0
	for _, bb := range fn.Blocks {
		n += len(bb.Instrs)
	}
	return n
}

func TestDeadCodeElimination(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		validate func(t *testing.T, m *ir.Module, pass *DeadCodePass)
	}{
		{
			// The stored sum is critical; the sibling product nobody
			// reads is not.
			name: "store keeps its operand chain alive",
			source: `
func @f(%a: int, %b: int) void {
entry:
  %x = alloca int
  %t1 = add %a, %b
  store %t1, %x
  %t2 = mul %a, %b
  ret
}
`,
			validate: func(t *testing.T, m *ir.Module, pass *DeadCodePass) {
				entry := m.LookupFunction("f").EntryBlock()
				if got := len(entry.Instrs); got != 3 {
					t.Fatalf("expected 3 surviving instructions, got %d", got)
				}
				if pass.Removed() != 1 {
					t.Errorf("removed = %d, want 1", pass.Removed())
				}
				for _, in := range entry.Instrs {
					if b, ok := in.(*ir.BinaryOp); ok && b.Op == ir.OpMul {
						t.Errorf("the unused multiply survived")
					}
				}
			},
		},
		{
			// External code is opaque; the call must stay even though
			// nothing reads a result.
			name: "call to a declaration is always critical",
			source: `
declare @output(int) void

func @main() int {
entry:
  call @output(42)
  ret 0
}
`,
			validate: func(t *testing.T, m *ir.Module, pass *DeadCodePass) {
				entry := m.LookupFunction("main").EntryBlock()
				if len(entry.Instrs) != 1 {
					t.Fatalf("expected the call to survive, got %d instructions", len(entry.Instrs))
				}
				if _, ok := entry.Instrs[0].(*ir.Call); !ok {
					t.Errorf("surviving instruction is not the call")
				}
			},
		},
		{
			// A pure callee and an unread result add up to a no-op.
			name: "unused call to a pure function is removed",
			source: `
func @double(%x: int) int {
entry:
  %r = mul %x, 2
  ret %r
}

func @main() int {
entry:
  %unused = call @double(21)
  ret 0
}
`,
			validate: func(t *testing.T, m *ir.Module, pass *DeadCodePass) {
				entry := m.LookupFunction("main").EntryBlock()
				if len(entry.Instrs) != 0 {
					t.Errorf("expected the call to be removed, got %d instructions", len(entry.Instrs))
				}
			},
		},
		{
			// The callee stores through its parameter, so every call to
			// it is observable.
			name: "unused call to an impure function survives",
			source: `
global @sink: int

func @record(%x: int) void {
entry:
  store %x, @sink
  ret
}

func @main() int {
entry:
  call @record(7)
  ret 0
}
`,
			validate: func(t *testing.T, m *ir.Module, pass *DeadCodePass) {
				entry := m.LookupFunction("main").EntryBlock()
				if len(entry.Instrs) != 1 {
					t.Errorf("expected the call to survive, got %d instructions", len(entry.Instrs))
				}
			},
		},
		{
			// Calls through a value could go anywhere; keep them.
			name: "indirect call survives",
			source: `
func @double(%x: int) int {
entry:
  %r = mul %x, 2
  ret %r
}

func @main() int {
entry:
  %fp = copy @double
  %unused = call %fp(21)
  ret 0
}
`,
			validate: func(t *testing.T, m *ir.Module, pass *DeadCodePass) {
				entry := m.LookupFunction("main").EntryBlock()
				if len(entry.Instrs) != 2 {
					t.Errorf("expected copy and call to survive, got %d instructions", len(entry.Instrs))
				}
			},
		},
		{
			// Round one empties the orphan block, pruning erases it, and
			// the block it jumped to is stranded and erased next round.
			name: "unreachable blocks are emptied then pruned",
			source: `
func @f() int {
entry:
  ret 0
orphan:
  %x = add 1, 2
  jmp tail
tail:
  ret 1
}
`,
			validate: func(t *testing.T, m *ir.Module, pass *DeadCodePass) {
				fn := m.LookupFunction("f")
				if len(fn.Blocks) != 1 {
					t.Fatalf("expected only the entry block, got %d blocks", len(fn.Blocks))
				}
				if fn.Blocks[0].Label != "entry" {
					t.Errorf("surviving block = %q, want entry", fn.Blocks[0].Label)
				}
				if pass.BlocksRemoved() != 2 {
					t.Errorf("blocks removed = %d, want 2", pass.BlocksRemoved())
				}
			},
		},
		{
			// %a is read only by dead %b: round one removes %b, round two
			// removes %a. The fixed point must peel the whole chain.
			name: "dead chains cascade across rounds",
			source: `
func @f(%n: int) int {
entry:
  %a = add %n, 1
  %b = mul %a, 2
  %c = sub %b, 3
  ret %n
}
`,
			validate: func(t *testing.T, m *ir.Module, pass *DeadCodePass) {
				fn := m.LookupFunction("f")
				if got := countInstrs(fn); got != 0 {
					t.Errorf("expected the whole chain removed, got %d instructions", got)
				}
				if pass.Removed() != 3 {
					t.Errorf("removed = %d, want 3", pass.Removed())
				}
			},
		},
		{
			// A phi in a live loop keeps its incoming values alive.
			name: "live loop with phi is untouched",
			source: `
func @count(%n: int) int {
entry:
  jmp head
head:
  %i = phi int [0, entry], [%i1, body]
  %c = lt %i, %n
  br %c, body, exit
body:
  %i1 = add %i, 1
  jmp head
exit:
  ret %i
}
`,
			validate: func(t *testing.T, m *ir.Module, pass *DeadCodePass) {
				fn := m.LookupFunction("count")
				if len(fn.Blocks) != 4 {
					t.Errorf("expected 4 blocks, got %d", len(fn.Blocks))
				}
				if pass.Removed() != 0 {
					t.Errorf("removed = %d, want 0", pass.Removed())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := parseModule(t, tt.source)
			pass := runDCE(t, m)
			tt.validate(t, m, pass)
		})
	}
}

func TestDeadCodeIsIdempotent(t *testing.T) {
	m := parseModule(t, `
func @f(%n: int) int {
entry:
  %a = add %n, 1
  %b = mul %a, 2
  ret %n
}
`)
	runDCE(t, m)

	second := runDCE(t, m)
	if second.Removed() != 0 || second.BlocksRemoved() != 0 {
		t.Errorf("second run removed %d instructions and %d blocks, want 0 and 0",
			second.Removed(), second.BlocksRemoved())
	}
}

func TestDeadCodeNeverRemovesTerminators(t *testing.T) {
	m := parseModule(t, `
func @f(%b: bool) int {
entry:
  br %b, yes, no
yes:
  ret 1
no:
  ret 0
}
`)
	runDCE(t, m)

	for _, bb := range m.LookupFunction("f").Blocks {
		if !bb.IsTerminated() {
			t.Errorf("block %q lost its terminator", bb.Label)
		}
	}
}

func TestSweepGlobally(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		validate func(t *testing.T, m *ir.Module, funcs, globals int)
	}{
		{
			name: "uncalled helper is removed, entry function stays",
			source: `
func @helper() int {
entry:
  ret 1
}

func @main() int {
entry:
  ret 0
}
`,
			validate: func(t *testing.T, m *ir.Module, funcs, globals int) {
				if funcs != 1 {
					t.Errorf("functions removed = %d, want 1", funcs)
				}
				if m.LookupFunction("helper") != nil {
					t.Errorf("@helper survived")
				}
				if m.LookupFunction("main") == nil {
					t.Errorf("@main was removed")
				}
			},
		},
		{
			name: "referenced symbols are kept",
			source: `
global @counter: int = 0

func @helper() int {
entry:
  %v = load @counter
  ret %v
}

func @main() int {
entry:
  %r = call @helper()
  ret %r
}
`,
			validate: func(t *testing.T, m *ir.Module, funcs, globals int) {
				if funcs != 0 || globals != 0 {
					t.Errorf("removed %d functions and %d globals, want none", funcs, globals)
				}
			},
		},
		{
			name: "unused global and unused declaration are removed",
			source: `
global @stale: int = 9

declare @never(int) void

func @main() int {
entry:
  ret 0
}
`,
			validate: func(t *testing.T, m *ir.Module, funcs, globals int) {
				if funcs != 1 {
					t.Errorf("functions removed = %d, want 1", funcs)
				}
				if globals != 1 {
					t.Errorf("globals removed = %d, want 1", globals)
				}
				if len(m.Globals) != 0 {
					t.Errorf("expected no globals to survive")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := parseModule(t, tt.source)
			funcs, globals := SweepGlobally(m)
			if errs := m.Verify(); len(errs) != 0 {
				t.Fatalf("module does not verify after global sweep: %v", errs)
			}
			tt.validate(t, m, funcs, globals)
		})
	}
}

// Removing dead calls can orphan their callees; the combination of the
// dead code pass and the global sweep must take both out.
func TestDeadCallThenGlobalSweep(t *testing.T) {
	m := parseModule(t, `
func @double(%x: int) int {
entry:
  %r = mul %x, 2
  ret %r
}

func @main() int {
entry:
  %unused = call @double(21)
  ret 0
}
`)
	runDCE(t, m)

	funcs, _ := SweepGlobally(m)
	if funcs != 1 {
		t.Errorf("functions removed = %d, want 1", funcs)
	}
	if m.LookupFunction("double") != nil {
		t.Errorf("@double survived despite having no remaining callers")
	}
}
