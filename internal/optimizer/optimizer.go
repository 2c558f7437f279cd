package optimizer

import (
	"fmt"

	"github.com/karim/optc/internal/ir"
)

// Pass represents an optimization pass that can be applied to IR.
//
// DESIGN PHILOSOPHY:
// Each optimization is a separate pass that can be:
// - Enabled/disabled independently
// - Reordered based on effectiveness
// - Tested in isolation
// - Composed with other passes
//
// DESIGN CHOICE: Passes run over the whole module rather than one function
// at a time because dead code elimination needs interprocedural facts (is
// this callee pure? is this function ever called?) that a per-function
// interface cannot see.
type Pass interface {
	// Name returns a human-readable name for this pass
	Name() string

	// Run executes this optimization pass on the given module
	// Returns an error if the pass fails
	Run(m *ir.Module) error
}

// Optimizer coordinates the execution of optimization passes.
//
// DESIGN CHOICE: Separate optimizer from passes because:
// - Optimizer manages pass ordering and iteration
// - Passes focus on their specific transformation
// - Allows for meta-optimization (choosing which passes to run)
type Optimizer struct {
	// passes is the list of optimization passes to run
	passes []Pass

	// verbose enables detailed logging
	verbose bool
}

// NewOptimizer creates a new optimizer with default passes.
//
// DEFAULT PASS ORDER:
// 1. Constant folding - reduces code, enables other optimizations
// 2. Dead code elimination - removes code constant folding makes redundant
func NewOptimizer() *Optimizer {
	return &Optimizer{
		passes: []Pass{
			NewConstantFoldingPass(),
			NewDeadCodePass(),
		},
	}
}

// AddPass adds a custom optimization pass.
func (o *Optimizer) AddPass(pass Pass) {
	o.passes = append(o.passes, pass)
}

// SetVerbose enables or disables verbose logging.
func (o *Optimizer) SetVerbose(verbose bool) {
	o.verbose = verbose
}

// Optimize runs all passes once, in order, over the module.
//
// DESIGN CHOICE: No outer fixed-point loop here. The passes that need
// iteration (dead code elimination) run their own fixed point internally,
// where "did anything change" is cheap to observe; iterating the whole
// pipeline would re-pay analysis costs for nothing.
func (o *Optimizer) Optimize(m *ir.Module) error {
	for _, pass := range o.passes {
		if o.verbose {
			fmt.Printf("  Running %s...\n", pass.Name())
		}
		if err := pass.Run(m); err != nil {
			return fmt.Errorf("pass %s failed: %w", pass.Name(), err)
		}
	}
	return nil
}

// Stats aggregates counters from the passes that keep them.
func (o *Optimizer) Stats() Stats {
	var s Stats
	for _, pass := range o.passes {
		switch p := pass.(type) {
		case *DeadCodePass:
			s.InstructionsRemoved += p.Removed()
			s.BlocksRemoved += p.BlocksRemoved()
		case *ConstantFoldingPass:
			s.ConstantsFolded += p.Folded()
		}
	}
	return s
}

// Stats tracks what the optimizer accomplished, for reporting and for
// regression tests that assert effectiveness.
type Stats struct {
	// InstructionsRemoved is the number of instructions eliminated
	InstructionsRemoved int

	// BlocksRemoved is the number of basic blocks eliminated
	BlocksRemoved int

	// ConstantsFolded is the number of constant expressions folded
	ConstantsFolded int
}

// String returns a human-readable summary of optimization statistics.
func (s Stats) String() string {
	return fmt.Sprintf("Optimization Stats:\n"+
		"  Instructions removed: %d\n"+
		"  Blocks removed: %d\n"+
		"  Constants folded: %d\n",
		s.InstructionsRemoved,
		s.BlocksRemoved,
		s.ConstantsFolded)
}
