package optimizer

import (
	"testing"

	"github.com/karim/optc/internal/ir"
)

// runFold runs one constant folding pass and re-verifies the module.
func runFold(t *testing.T, m *ir.Module) *ConstantFoldingPass {
	t.Helper()
	pass := NewConstantFoldingPass()
	if err := pass.Run(m); err != nil {
		t.Fatalf("constant folding failed: %v", err)
	}
	if errs := m.Verify(); len(errs) != 0 {
		t.Fatalf("module does not verify after constant folding: %v", errs)
	}
	return pass
}

// retConst digs the constant out of a function's entry ret.
func retConst(t *testing.T, m *ir.Module, name string) *ir.Const {
	t.Helper()
	ret := m.LookupFunction(name).EntryBlock().Terminator().(*ir.Ret)
	c, ok := ret.Value().(*ir.Const)
	if !ok {
		t.Fatalf("@%s does not return a constant, got %v", name, ret.Value())
	}
	return c
}

func TestConstantFolding(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   interface{}
	}{
		{
			name: "chained arithmetic collapses",
			source: `
func @f() int {
entry:
  %a = add 1, 2
  %b = mul %a, 3
  %c = sub %b, 4
  ret %c
}
`,
			want: int64(5),
		},
		{
			name: "comparison folds to bool",
			source: `
func @f() bool {
entry:
  %c = lt 3, 4
  ret %c
}
`,
			want: true,
		},
		{
			name: "float arithmetic folds",
			source: `
func @f() float {
entry:
  %x = mul 2.5, 4.0
  ret %x
}
`,
			want: float64(10),
		},
		{
			name: "negation folds",
			source: `
func @f() int {
entry:
  %n = neg 7
  ret %n
}
`,
			want: int64(-7),
		},
		{
			name: "copy of a constant propagates",
			source: `
func @f() int {
entry:
  %c = copy 42
  ret %c
}
`,
			want: int64(42),
		},
		{
			name: "boolean logic folds",
			source: `
func @f() bool {
entry:
  %t = not false
  %r = and %t, true
  ret %r
}
`,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := parseModule(t, tt.source)
			runFold(t, m)
			if got := retConst(t, m, "f").Val; got != tt.want {
				t.Errorf("folded value = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestConstantFoldingSkipsDivisionByZero(t *testing.T) {
	m := parseModule(t, `
func @f() int {
entry:
  %d = div 1, 0
  ret %d
}
`)
	pass := runFold(t, m)
	if pass.Folded() != 0 {
		t.Errorf("folded = %d, want 0", pass.Folded())
	}
	entry := m.LookupFunction("f").EntryBlock()
	if len(entry.Instrs) != 1 {
		t.Errorf("the division must stay in place")
	}
}

func TestConstantFoldingLeavesNonConstants(t *testing.T) {
	m := parseModule(t, `
func @f(%x: int) int {
entry:
  %a = add %x, 1
  ret %a
}
`)
	pass := runFold(t, m)
	if pass.Folded() != 0 {
		t.Errorf("folded = %d, want 0", pass.Folded())
	}
}

// Folding strands the original instructions with empty use lists; the
// default pipeline lets dead code elimination clean them up.
func TestFoldingThenDeadCodeLeavesOnlyTheResult(t *testing.T) {
	m := parseModule(t, `
func @f() int {
entry:
  %a = add 1, 2
  %b = mul %a, 3
  ret %b
}
`)
	opt := NewOptimizer()
	if err := opt.Optimize(m); err != nil {
		t.Fatalf("optimize failed: %v", err)
	}
	if errs := m.Verify(); len(errs) != 0 {
		t.Fatalf("module does not verify after optimization: %v", errs)
	}

	fn := m.LookupFunction("f")
	if got := countInstrs(fn); got != 0 {
		t.Errorf("expected all instructions folded away, got %d", got)
	}
	if c := retConst(t, m, "f"); c.Val != int64(9) {
		t.Errorf("ret value = %v, want 9", c.Val)
	}

	stats := opt.Stats()
	if stats.ConstantsFolded != 2 {
		t.Errorf("constants folded = %d, want 2", stats.ConstantsFolded)
	}
	if stats.InstructionsRemoved != 2 {
		t.Errorf("instructions removed = %d, want 2", stats.InstructionsRemoved)
	}
}
