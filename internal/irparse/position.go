// Package irparse provides lexing and parsing for the textual IR format.
// It transforms IR assembly text into an ir.Module that the optimizer
// passes consume.
package irparse

import "fmt"

// Position represents a location in an IR source file.
//
// DESIGN CHOICE: Position is a value type (not a pointer) because:
// 1. It's small and immutable once created
// 2. Copying is cheap and avoids pointer chasing
// 3. No need for nil state - invalid positions can use zero values
type Position struct {
	// Filename is the name of the source file.
	Filename string

	// Line is the 1-based line number.
	Line int

	// Column is the 1-based column number.
	Column int

	// Offset is the 0-based byte offset from the start of the file.
	Offset int
}

// String returns the position in the GCC/Clang "file:line:column" format,
// which editors and CI systems turn into clickable links.
func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// IsValid returns true if the position has a line number.
func (p Position) IsValid() bool { return p.Line > 0 }
