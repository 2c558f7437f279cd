package irparse

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Lexer performs lexical analysis on IR assembly, converting it into a
// stream of tokens.
//
// DESIGN CHOICE: We use a struct with methods rather than a functional
// approach because:
// - State management is clearer (current position, line, column)
// - Error handling is simpler (errors can reference lexer state)
// - It matches Go idioms (similar to bufio.Scanner)
type Lexer struct {
	// source is the complete input. Storing it whole simplifies lookahead
	// and position tracking; IR files comfortably fit in memory.
	source string

	// filename is the name of the source file (for error reporting).
	filename string

	// start is the byte offset of the token being scanned.
	start int

	// current is the byte offset being examined.
	current int

	// line is the current line number (1-based).
	line int

	// lineStart is the byte offset where the current line started.
	// Column numbers are derived: column = current - lineStart + 1.
	lineStart int
}

// NewLexer creates a lexer for the given source text.
func NewLexer(source, filename string) *Lexer {
	return &Lexer{
		source:   source,
		filename: filename,
		line:     1,
	}
}

// NextToken returns the next token from the source.
//
// The parser calls this repeatedly until it gets TokenEOF. Lexical errors
// return a TokenInvalid together with an error so the parser can recover
// and report multiple problems in one pass.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()
	l.start = l.current

	if l.isAtEnd() {
		return l.makeToken(TokenEOF, ""), nil
	}

	ch, _ := l.advance()

	if isLetter(ch) {
		return l.scanIdentifier(), nil
	}
	if isDigit(ch) {
		return l.scanNumber(), nil
	}

	switch ch {
	case '(':
		return l.makeToken(TokenLeftParen, "("), nil
	case ')':
		return l.makeToken(TokenRightParen, ")"), nil
	case '{':
		return l.makeToken(TokenLeftBrace, "{"), nil
	case '}':
		return l.makeToken(TokenRightBrace, "}"), nil
	case '[':
		return l.makeToken(TokenLeftBracket, "["), nil
	case ']':
		return l.makeToken(TokenRightBracket, "]"), nil
	case ',':
		return l.makeToken(TokenComma, ","), nil
	case ':':
		return l.makeToken(TokenColon, ":"), nil
	case '=':
		return l.makeToken(TokenAssign, "="), nil

	case ';':
		return l.scanComment(), nil

	case '%':
		return l.scanSigiled(TokenLocalIdent)
	case '@':
		return l.scanSigiled(TokenGlobalIdent)

	case '-':
		// Negative number literal. '-' appears nowhere else in the grammar.
		if isDigit(l.peek()) {
			return l.scanNumber(), nil
		}
		return l.makeToken(TokenInvalid, ""), l.error("unexpected '-'")

	default:
		return l.makeToken(TokenInvalid, ""),
			l.error(fmt.Sprintf("unexpected character: %q", ch))
	}
}

// advance reads and returns the next character, advancing the position.
func (l *Lexer) advance() (rune, int) {
	if l.isAtEnd() {
		return 0, 0
	}
	ch, size := utf8.DecodeRuneInString(l.source[l.current:])
	l.current += size
	return ch, size
}

// peek returns the current character without advancing. Returns 0 at EOF.
func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	ch, _ := utf8.DecodeRuneInString(l.source[l.current:])
	return ch
}

func (l *Lexer) isAtEnd() bool { return l.current >= len(l.source) }

// skipWhitespace skips spaces, tabs, carriage returns, and newlines,
// keeping the line accounting up to date.
func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() {
		switch l.peek() {
		case ' ', '\r', '\t':
			l.advance()
		case '\n':
			l.advance()
			l.line++
			l.lineStart = l.current
		default:
			return
		}
	}
}

// scanIdentifier scans a bare identifier or structural keyword.
func (l *Lexer) scanIdentifier() Token {
	for !l.isAtEnd() {
		ch := l.peek()
		if isLetter(ch) || isDigit(ch) {
			l.advance()
		} else {
			break
		}
	}
	text := l.source[l.start:l.current]
	return l.makeToken(LookupKeyword(text), text)
}

// scanSigiled scans the name after a '%' or '@' sigil. The sigil itself is
// excluded from the lexeme.
func (l *Lexer) scanSigiled(tt TokenType) (Token, error) {
	if !isLetter(l.peek()) && !isDigit(l.peek()) {
		return l.makeToken(TokenInvalid, ""),
			l.error("expected a name after the sigil")
	}
	nameStart := l.current
	for !l.isAtEnd() {
		ch := l.peek()
		if isLetter(ch) || isDigit(ch) || ch == '.' {
			l.advance()
		} else {
			break
		}
	}
	return l.makeToken(tt, l.source[nameStart:l.current]), nil
}

// scanNumber scans an integer or float literal. A leading '-' has already
// been consumed when present. The lexer does not validate ranges; the
// parser converts and reports overflow.
func (l *Lexer) scanNumber() Token {
	for !l.isAtEnd() && isDigit(l.peek()) {
		l.advance()
	}
	if !l.isAtEnd() && l.peek() == '.' {
		l.advance()
		for !l.isAtEnd() && isDigit(l.peek()) {
			l.advance()
		}
	}
	if !l.isAtEnd() && (l.peek() == 'e' || l.peek() == 'E') {
		saved := l.current
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if l.isAtEnd() || !isDigit(l.peek()) {
			// Not an exponent after all - backtrack.
			l.current = saved
		} else {
			for !l.isAtEnd() && isDigit(l.peek()) {
				l.advance()
			}
		}
	}
	return l.makeToken(TokenNumber, l.source[l.start:l.current])
}

// scanComment scans a ';' comment running to end of line.
func (l *Lexer) scanComment() Token {
	for !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
	return l.makeToken(TokenComment, l.source[l.start:l.current])
}

// makeToken creates a token starting at the scan start position.
func (l *Lexer) makeToken(tt TokenType, lexeme string) Token {
	return Token{
		Type:   tt,
		Lexeme: lexeme,
		Position: Position{
			Filename: l.filename,
			Line:     l.line,
			Column:   l.start - l.lineStart + 1,
			Offset:   l.start,
		},
	}
}

// error creates a lexical error annotated with the current position.
func (l *Lexer) error(msg string) error {
	pos := Position{
		Filename: l.filename,
		Line:     l.line,
		Column:   l.start - l.lineStart + 1,
		Offset:   l.start,
	}
	return fmt.Errorf("%s: %s", pos, msg)
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}
