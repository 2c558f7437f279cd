package irparse

// TokenType represents the type of a token.
//
// DESIGN CHOICE: We use an int-based enum (via iota) rather than strings because:
// 1. Faster comparisons (integer vs string comparison)
// 2. Less memory (1 int vs string pointer + length + data)
// 3. Type safety (compiler catches typos)
type TokenType int

const (
	// Special tokens

	// TokenEOF marks the end of the input. Using a token instead of an
	// error simplifies the parser (no special case for end of input) and
	// gives "unexpected end of file" errors a position.
	TokenEOF TokenType = iota

	// TokenInvalid represents a lexical error. The lexer returns it
	// together with an error so the parser can recover and keep scanning.
	TokenInvalid

	// TokenComment is a ';' comment running to end of line. Comments are
	// tokenized rather than skipped so tools that care about them can see
	// them; the parser simply discards them.
	TokenComment

	// Literals

	// TokenNumber is an integer or floating-point literal, optionally
	// with a leading minus. The lexeme keeps the raw text; the parser
	// decides int vs float from the presence of '.' or an exponent.
	TokenNumber

	// TokenTrue and TokenFalse are the boolean literals.
	TokenTrue
	TokenFalse

	// Identifiers

	// TokenIdentifier is a bare word: an opcode mnemonic, a type name, or
	// a block label. Opcodes are not keywords - the parser dispatches on
	// the lexeme, which keeps the lexer independent of the opcode set.
	TokenIdentifier

	// TokenLocalIdent is a %-prefixed name for a value local to a
	// function (instruction results and parameters). The lexeme excludes
	// the sigil.
	TokenLocalIdent

	// TokenGlobalIdent is an @-prefixed name for a module-level symbol
	// (functions and global variables). The lexeme excludes the sigil.
	TokenGlobalIdent

	// Keywords (structural only)

	TokenFunc    // func
	TokenDeclare // declare
	TokenGlobal  // global

	// Delimiters

	TokenLeftParen    // (
	TokenRightParen   // )
	TokenLeftBrace    // {
	TokenRightBrace   // }
	TokenLeftBracket  // [
	TokenRightBracket // ]
	TokenComma        // ,
	TokenColon        // :
	TokenAssign       // =
)

// String returns a human-readable name for the token type.
func (tt TokenType) String() string {
	switch tt {
	case TokenEOF:
		return "EOF"
	case TokenInvalid:
		return "invalid"
	case TokenComment:
		return "comment"
	case TokenNumber:
		return "number"
	case TokenTrue:
		return "true"
	case TokenFalse:
		return "false"
	case TokenIdentifier:
		return "identifier"
	case TokenLocalIdent:
		return "local identifier"
	case TokenGlobalIdent:
		return "global identifier"
	case TokenFunc:
		return "'func'"
	case TokenDeclare:
		return "'declare'"
	case TokenGlobal:
		return "'global'"
	case TokenLeftParen:
		return "'('"
	case TokenRightParen:
		return "')'"
	case TokenLeftBrace:
		return "'{'"
	case TokenRightBrace:
		return "'}'"
	case TokenLeftBracket:
		return "'['"
	case TokenRightBracket:
		return "']'"
	case TokenComma:
		return "','"
	case TokenColon:
		return "':'"
	case TokenAssign:
		return "'='"
	default:
		return "unknown"
	}
}

// Token represents a single lexical token.
//
// DESIGN CHOICE: Token is a value type (not pointer) because tokens are
// small, immutable after creation, and cheap to copy.
type Token struct {
	// Type is the token type.
	Type TokenType

	// Lexeme is the token's text. For sigiled identifiers the sigil is
	// stripped; for everything else it is the raw source slice.
	Lexeme string

	// Position is where the token starts.
	Position Position
}

// keywords maps structural keyword spellings to their token types.
// Opcode mnemonics and type names are deliberately not here.
var keywords = map[string]TokenType{
	"func":    TokenFunc,
	"declare": TokenDeclare,
	"global":  TokenGlobal,
	"true":    TokenTrue,
	"false":   TokenFalse,
}

// LookupKeyword returns the keyword token type for text, or
// TokenIdentifier if it is not a keyword.
func LookupKeyword(text string) TokenType {
	if tt, ok := keywords[text]; ok {
		return tt
	}
	return TokenIdentifier
}
