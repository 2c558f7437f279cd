package irparse

import "testing"

// collectTokens drains the lexer, returning tokens (without EOF) and any
// lexical errors.
func collectTokens(t *testing.T, source string) ([]Token, []error) {
	t.Helper()
	l := NewLexer(source, "test.ir")
	var tokens []Token
	var errs []error
	for {
		tok, err := l.NextToken()
		if err != nil {
			errs = append(errs, err)
		}
		if tok.Type == TokenEOF {
			return tokens, errs
		}
		tokens = append(tokens, tok)
	}
}

func TestLexerTokenSequence(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []TokenType
	}{
		{
			name:   "global definition",
			source: "global @counter: int = 0",
			want: []TokenType{
				TokenGlobal, TokenGlobalIdent, TokenColon,
				TokenIdentifier, TokenAssign, TokenNumber,
			},
		},
		{
			name:   "function header",
			source: "func @add(%a: int, %b: int) int {",
			want: []TokenType{
				TokenFunc, TokenGlobalIdent, TokenLeftParen,
				TokenLocalIdent, TokenColon, TokenIdentifier, TokenComma,
				TokenLocalIdent, TokenColon, TokenIdentifier,
				TokenRightParen, TokenIdentifier, TokenLeftBrace,
			},
		},
		{
			name:   "instruction with literals",
			source: "%x = add %a, 42",
			want: []TokenType{
				TokenLocalIdent, TokenAssign, TokenIdentifier,
				TokenLocalIdent, TokenComma, TokenNumber,
			},
		},
		{
			name:   "phi incoming list",
			source: "[%x, entry], [0, body]",
			want: []TokenType{
				TokenLeftBracket, TokenLocalIdent, TokenComma,
				TokenIdentifier, TokenRightBracket, TokenComma,
				TokenLeftBracket, TokenNumber, TokenComma,
				TokenIdentifier, TokenRightBracket,
			},
		},
		{
			name:   "booleans and comment",
			source: "br true, a, b ; taken\nret false",
			want: []TokenType{
				TokenIdentifier, TokenTrue, TokenComma,
				TokenIdentifier, TokenComma, TokenIdentifier,
				TokenComment, TokenIdentifier, TokenFalse,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, errs := collectTokens(t, tt.source)
			if len(errs) != 0 {
				t.Fatalf("unexpected lexical errors: %v", errs)
			}
			if len(tokens) != len(tt.want) {
				t.Fatalf("token count = %d, want %d", len(tokens), len(tt.want))
			}
			for i, tok := range tokens {
				if tok.Type != tt.want[i] {
					t.Errorf("token %d = %s, want %s", i, tok.Type, tt.want[i])
				}
			}
		})
	}
}

func TestLexerStripsSigils(t *testing.T) {
	tokens, errs := collectTokens(t, "%t0 @main %loop.count")
	if len(errs) != 0 {
		t.Fatalf("unexpected lexical errors: %v", errs)
	}
	want := []string{"t0", "main", "loop.count"}
	for i, lexeme := range want {
		if tokens[i].Lexeme != lexeme {
			t.Errorf("token %d lexeme = %q, want %q", i, tokens[i].Lexeme, lexeme)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		source string
		lexeme string
	}{
		{"42", "42"},
		{"-7", "-7"},
		{"3.5", "3.5"},
		{"-2.25", "-2.25"},
		{"1e9", "1e9"},
		{"2.5e-3", "2.5e-3"},
	}
	for _, tt := range tests {
		tokens, errs := collectTokens(t, tt.source)
		if len(errs) != 0 {
			t.Fatalf("%q: unexpected lexical errors: %v", tt.source, errs)
		}
		if len(tokens) != 1 || tokens[0].Type != TokenNumber {
			t.Fatalf("%q: expected a single number token, got %v", tt.source, tokens)
		}
		if tokens[0].Lexeme != tt.lexeme {
			t.Errorf("%q: lexeme = %q, want %q", tt.source, tokens[0].Lexeme, tt.lexeme)
		}
	}
}

func TestLexerPositions(t *testing.T) {
	tokens, errs := collectTokens(t, "entry:\n  ret 0\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected lexical errors: %v", errs)
	}
	// "ret" starts at line 2, column 3.
	ret := tokens[2]
	if ret.Lexeme != "ret" {
		t.Fatalf("expected 'ret', got %q", ret.Lexeme)
	}
	if ret.Position.Line != 2 || ret.Position.Column != 3 {
		t.Errorf("position = %d:%d, want 2:3", ret.Position.Line, ret.Position.Column)
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"bare sigil", "% = add"},
		{"unknown character", "#"},
		{"stray minus", "- foo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := collectTokens(t, tt.source)
			if len(errs) == 0 {
				t.Errorf("expected a lexical error for %q", tt.source)
			}
		})
	}
}
