// Package main provides the IR optimizer entry point.
//
// This demonstrates the complete optimization pipeline:
// 1. Lexical Analysis (tokenization of IR assembly)
// 2. Parsing (building the in-memory module)
// 3. Verification (structural soundness before touching anything)
// 4. Optimization (constant folding, dead code elimination)
// 5. Global symbol sweep (dropping functions and globals nothing uses)
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/karim/optc/internal/irparse"
	"github.com/karim/optc/internal/optimizer"
)

func main() {
	verbose := flag.Bool("verbose", false, "log each optimization pass as it runs")
	noOpt := flag.Bool("no-opt", false, "parse, verify, and print without optimizing")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <ir-file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	filename := flag.Arg(0)

	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	module, errors := irparse.Parse(string(source), filename)
	if len(errors) > 0 {
		fmt.Fprintf(os.Stderr, "Parsing errors:\n")
		for _, err := range errors {
			fmt.Fprintf(os.Stderr, "  %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("✓ Parsing successful\n")

	// Verify IR before optimization
	verifyErrors := module.Verify()
	if len(verifyErrors) > 0 {
		fmt.Fprintf(os.Stderr, "\nIR verification errors:\n")
		for _, err := range verifyErrors {
			fmt.Fprintf(os.Stderr, "  %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("✓ Verification successful\n")

	if *noOpt {
		fmt.Printf("\n=== IR ===\n\n")
		fmt.Println(module.String())
		return
	}

	fmt.Printf("\n=== Unoptimized IR ===\n\n")
	fmt.Println(module.String())

	opt := optimizer.NewOptimizer()
	opt.SetVerbose(*verbose)

	if err := opt.Optimize(module); err != nil {
		fmt.Fprintf(os.Stderr, "\nOptimization error: %v\n", err)
		os.Exit(1)
	}

	funcsRemoved, globalsRemoved := optimizer.SweepGlobally(module)

	fmt.Printf("✓ Optimization successful\n")
	fmt.Printf("Dead code pass erased %d instructions\n", opt.Stats().InstructionsRemoved)

	// Verify IR after optimization
	verifyErrors = module.Verify()
	if len(verifyErrors) > 0 {
		fmt.Fprintf(os.Stderr, "\nIR verification errors after optimization:\n")
		for _, err := range verifyErrors {
			fmt.Fprintf(os.Stderr, "  %v\n", err)
		}
		os.Exit(1)
	}

	stats := opt.Stats()
	fmt.Printf("\n=== Optimization Summary ===\n")
	fmt.Printf("File: %s\n", filename)
	fmt.Printf("Constants folded: %d\n", stats.ConstantsFolded)
	fmt.Printf("Instructions removed: %d\n", stats.InstructionsRemoved)
	fmt.Printf("Blocks removed: %d\n", stats.BlocksRemoved)
	fmt.Printf("Functions removed: %d\n", funcsRemoved)
	fmt.Printf("Globals removed: %d\n", globalsRemoved)

	fmt.Printf("\n=== Optimized IR ===\n\n")
	fmt.Println(module.String())
}
