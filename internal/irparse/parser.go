package irparse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/karim/optc/internal/ir"
	"github.com/karim/optc/internal/types"
)

// Parser converts a stream of tokens into an ir.Module.
//
// PARSING STRATEGY:
// Plain recursive descent. The grammar is line-oriented assembly with no
// expression nesting, so there is no precedence to manage.
//
// ERROR HANDLING STRATEGY:
// - Report errors but continue parsing (find multiple errors in one pass)
// - Use panic/recover for recovery at instruction boundaries
// - All accumulated errors are returned to the caller
//
// NAME RESOLUTION:
// '@' symbols must be introduced (global, declare, or func) before use;
// forward calls are written with an explicit declare that a later func of
// the same name completes, exactly like C prototypes. '%' locals must be
// defined before use except inside phi incoming lists, where back edges
// make forward references unavoidable; those are backpatched after the
// function body.
type Parser struct {
	lexer *Lexer

	// current and next give one token of lookahead, needed to tell a block
	// label ("body:") from an opcode at the start of an instruction.
	current  Token
	next     Token
	previous Token

	errors []error

	module      *ir.Module
	builder     *ir.Builder
	moduleScope *Scope

	// Per-function state, reset by parseFunc.
	fn        *ir.Function
	locals    *Scope
	blocks    map[string]*ir.BasicBlock
	blockDefs []string
	fixups    []fixup
}

// fixup is a phi operand slot waiting for a local defined later in the
// function body.
type fixup struct {
	instr ir.Instruction
	index int
	name  string
	pos   Position
}

// parseBail is the panic value used for recovery at instruction
// boundaries; anything else re-panics.
type parseBail struct{}

// NewParser creates a parser reading from the given lexer.
func NewParser(l *Lexer) *Parser {
	p := &Parser{lexer: l}
	// Prime the two-token window.
	p.advance()
	p.advance()
	return p
}

// ParseModule parses a complete IR file.
//
// Returns the module and any errors encountered. The module is returned
// even on error; it may be structurally incomplete but is safe to print.
func (p *Parser) ParseModule(name string) (*ir.Module, []error) {
	p.module = ir.NewModule(name)
	p.builder = ir.NewBuilder(p.module)
	p.moduleScope = NewScope(nil)

	for !p.isAtEnd() {
		switch p.current.Type {
		case TokenGlobal:
			p.parseTopLevel(p.parseGlobal)
		case TokenDeclare:
			p.parseTopLevel(p.parseDeclare)
		case TokenFunc:
			p.parseTopLevel(p.parseFunc)
		default:
			p.errorAt(p.current.Position,
				fmt.Sprintf("expected 'global', 'declare', or 'func', found %s", p.current.Type))
			p.advance()
		}
	}

	return p.module, p.errors
}

// parseTopLevel runs one top-level production, recovering at the next
// top-level keyword if it bails out (a malformed header or label skips the
// rest of its declaration, not the rest of the file).
func (p *Parser) parseTopLevel(parse func()) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseBail); !ok {
				panic(r)
			}
			for !p.isAtEnd() {
				switch p.current.Type {
				case TokenFunc, TokenDeclare, TokenGlobal:
					return
				}
				p.advance()
			}
		}
	}()
	parse()
}

// parseGlobal parses: global @name : type [= init]
// init is a constant or the name of an already-defined global.
func (p *Parser) parseGlobal() {
	p.expect(TokenGlobal)
	name := p.expect(TokenGlobalIdent).Lexeme
	p.expect(TokenColon)
	typ := p.parseType()

	g := p.module.NewGlobal(name, typ)
	if err := p.moduleScope.Define(name, g); err != nil {
		p.errorAt(p.previous.Position, err.Error())
	}

	if p.match(TokenAssign) {
		g.SetInit(p.parseGlobalInit())
	}
}

// parseGlobalInit parses a global initializer: a literal or another
// global's name.
func (p *Parser) parseGlobalInit() ir.Value {
	switch p.current.Type {
	case TokenNumber, TokenTrue, TokenFalse:
		return p.parseLiteral()
	case TokenGlobalIdent:
		tok := p.advanceToken()
		v, ok := p.moduleScope.Resolve(tok.Lexeme)
		if !ok {
			p.errorAt(tok.Position, fmt.Sprintf("use of undefined symbol @%s", tok.Lexeme))
			return ir.NewConstInt(0)
		}
		return v
	default:
		p.errorAt(p.current.Position,
			fmt.Sprintf("expected an initializer, found %s", p.current.Type))
		return ir.NewConstInt(0)
	}
}

// parseDeclare parses: declare @name ( type, ... ) type
// A declaration introduces an externally defined function; a later func of
// the same name may complete it with a body.
func (p *Parser) parseDeclare() {
	p.expect(TokenDeclare)
	name := p.expect(TokenGlobalIdent).Lexeme

	p.expect(TokenLeftParen)
	var params []*ir.Param
	for p.current.Type != TokenRightParen && !p.isAtEnd() {
		if len(params) > 0 {
			p.expect(TokenComma)
		}
		typ := p.parseType()
		params = append(params, ir.NewParam(fmt.Sprintf("arg%d", len(params)), typ))
	}
	p.expect(TokenRightParen)
	ret := p.parseType()

	fn := p.module.NewFunction(name, ret, params...)
	if err := p.moduleScope.Define(name, fn); err != nil {
		p.errorAt(p.previous.Position, err.Error())
	}
}

// parseFunc parses: func @name ( %p : type, ... ) type { block+ }
func (p *Parser) parseFunc() {
	p.expect(TokenFunc)
	nameTok := p.expect(TokenGlobalIdent)
	name := nameTok.Lexeme

	p.expect(TokenLeftParen)
	var params []*ir.Param
	for p.current.Type != TokenRightParen && !p.isAtEnd() {
		if len(params) > 0 {
			p.expect(TokenComma)
		}
		pname := p.expect(TokenLocalIdent).Lexeme
		p.expect(TokenColon)
		typ := p.parseType()
		params = append(params, ir.NewParam(pname, typ))
	}
	p.expect(TokenRightParen)
	ret := p.parseType()

	// A preceding declare of the same name is completed here; anything
	// else with this name is a redefinition.
	fn := p.module.LookupFunction(name)
	switch {
	case fn == nil:
		fn = p.module.NewFunction(name, ret, params...)
		if err := p.moduleScope.Define(name, fn); err != nil {
			p.errorAt(nameTok.Position, err.Error())
		}
	case fn.IsDeclaration():
		fn.Params = params
	default:
		p.errorAt(nameTok.Position, fmt.Sprintf("redefinition of function @%s", name))
		fn = p.module.NewFunction(name, ret, params...)
	}

	p.fn = fn
	p.locals = NewScope(p.moduleScope)
	p.blocks = make(map[string]*ir.BasicBlock)
	p.blockDefs = nil
	p.fixups = nil

	for _, param := range fn.Params {
		if err := p.locals.Define(param.Name(), param); err != nil {
			p.errorAt(nameTok.Position, err.Error())
		}
	}

	p.expect(TokenLeftBrace)
	for p.current.Type != TokenRightBrace && !p.isAtEnd() {
		p.parseBlock()
	}
	p.expect(TokenRightBrace)

	p.finishFunc()
}

// parseBlock parses one labeled block: label ':' instruction*
func (p *Parser) parseBlock() {
	labelTok := p.expect(TokenIdentifier)
	p.expect(TokenColon)
	label := labelTok.Lexeme

	for _, defined := range p.blockDefs {
		if defined == label {
			p.errorAt(labelTok.Position, fmt.Sprintf("duplicate block label %q", label))
		}
	}
	bb := p.blockRef(label)
	p.blockDefs = append(p.blockDefs, label)
	p.builder.SetInsertBlock(bb)

	for !p.isAtEnd() {
		if p.current.Type == TokenRightBrace {
			return
		}
		// A bare identifier followed by ':' starts the next block.
		if p.current.Type == TokenIdentifier && p.next.Type == TokenColon {
			return
		}
		p.parseInstruction()
	}
}

// finishFunc backpatches phi forward references, reports undefined block
// labels, and puts the block list into label-definition order.
func (p *Parser) finishFunc() {
	for _, fx := range p.fixups {
		v, ok := p.locals.Resolve(fx.name)
		if !ok {
			p.errorAt(fx.pos, fmt.Sprintf("use of undefined value %%%s", fx.name))
			continue
		}
		fx.instr.SetOperand(fx.index, v)
	}

	ordered := make([]*ir.BasicBlock, 0, len(p.blockDefs))
	seen := make(map[string]bool, len(p.blockDefs))
	for _, label := range p.blockDefs {
		ordered = append(ordered, p.blocks[label])
		seen[label] = true
	}
	for label := range p.blocks {
		if !seen[label] {
			p.errorAt(p.previous.Position,
				fmt.Sprintf("function @%s: block %q is referenced but never defined", p.fn.Name(), label))
			ordered = append(ordered, p.blocks[label])
		}
	}
	p.fn.Blocks = ordered
}

// blockRef returns the block with the given label, creating it on first
// reference so branches can target blocks defined later in the body.
func (p *Parser) blockRef(label string) *ir.BasicBlock {
	if bb, ok := p.blocks[label]; ok {
		return bb
	}
	bb := p.fn.NewBlock(label)
	p.blocks[label] = bb
	return bb
}

// parseInstruction parses one instruction, recovering at the next
// plausible instruction start on error.
func (p *Parser) parseInstruction() {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseBail); !ok {
				panic(r)
			}
			p.synchronize()
		}
	}()

	if p.builder.InsertBlock().IsTerminated() {
		p.errorAt(p.current.Position,
			fmt.Sprintf("block %q already has a terminator", p.builder.InsertBlock().Label))
		panic(parseBail{})
	}

	if p.current.Type == TokenLocalIdent {
		name := p.advanceToken().Lexeme
		p.expect(TokenAssign)
		opTok := p.expect(TokenIdentifier)
		p.parseValueInstruction(name, opTok)
		return
	}

	opTok := p.expect(TokenIdentifier)
	switch opTok.Lexeme {
	case "store":
		val := p.parseOperand()
		p.expect(TokenComma)
		addr := p.parseOperand()
		p.builder.CreateStore(val, addr)
	case "call":
		p.parseCall("")
	case "ret":
		if _, ok := p.fn.Type().(*types.VoidType); ok {
			p.builder.CreateRet(nil)
		} else {
			p.builder.CreateRet(p.parseOperand())
		}
	case "jmp":
		target := p.blockRef(p.expect(TokenIdentifier).Lexeme)
		p.builder.CreateJump(target)
	case "br":
		cond := p.parseOperand()
		p.expect(TokenComma)
		then := p.blockRef(p.expect(TokenIdentifier).Lexeme)
		p.expect(TokenComma)
		els := p.blockRef(p.expect(TokenIdentifier).Lexeme)
		p.builder.CreateBranch(cond, then, els)
	default:
		p.errorAt(opTok.Position, fmt.Sprintf("unknown opcode %q", opTok.Lexeme))
		panic(parseBail{})
	}
}

// binaryOps maps mnemonics to binary operators.
var binaryOps = map[string]ir.BinaryOperator{
	"add": ir.OpAdd, "sub": ir.OpSub, "mul": ir.OpMul, "div": ir.OpDiv,
	"mod": ir.OpMod, "eq": ir.OpEq, "ne": ir.OpNe, "lt": ir.OpLt,
	"le": ir.OpLe, "gt": ir.OpGt, "ge": ir.OpGe, "and": ir.OpAnd,
	"or": ir.OpOr, "xor": ir.OpXor, "shl": ir.OpShl, "shr": ir.OpShr,
}

// parseValueInstruction parses the right-hand side of "%name = op ...".
func (p *Parser) parseValueInstruction(name string, opTok Token) {
	var result ir.Value

	if op, ok := binaryOps[opTok.Lexeme]; ok {
		left := p.parseOperand()
		p.expect(TokenComma)
		right := p.parseOperand()
		result = p.builder.CreateBinary(op, name, left, right)
	} else {
		switch opTok.Lexeme {
		case "neg":
			result = p.builder.CreateUnary(ir.OpNeg, name, p.parseOperand())
		case "not":
			result = p.builder.CreateUnary(ir.OpNot, name, p.parseOperand())
		case "copy":
			result = p.builder.CreateCopy(name, p.parseOperand())
		case "load":
			result = p.builder.CreateLoad(name, p.parseOperand())
		case "alloca":
			result = p.builder.CreateAlloca(name, p.parseType())
		case "gep":
			base := p.parseOperand()
			p.expect(TokenComma)
			index := p.parseOperand()
			result = p.builder.CreateGEP(name, base, index)
		case "phi":
			result = p.parsePhi(name)
		case "call":
			result = p.parseCall(name)
		default:
			p.errorAt(opTok.Position, fmt.Sprintf("unknown opcode %q", opTok.Lexeme))
			panic(parseBail{})
		}
	}

	if err := p.locals.Define(name, result); err != nil {
		p.errorAt(opTok.Position, err.Error())
	}
}

// parsePhi parses: phi type [value, label], [value, label], ...
// Incoming values may forward-reference locals defined later (back edges);
// those slots are filled in by finishFunc.
func (p *Parser) parsePhi(name string) ir.Value {
	typ := p.parseType()
	phi := p.builder.CreatePhi(name, typ)

	for first := true; first || p.match(TokenComma); first = false {
		p.expect(TokenLeftBracket)

		index := phi.NumIncoming()
		if p.current.Type == TokenLocalIdent {
			tok := p.advanceToken()
			if v, ok := p.locals.Resolve(tok.Lexeme); ok {
				phi.AddIncoming(v, nil)
			} else {
				phi.AddIncoming(nil, nil)
				p.fixups = append(p.fixups, fixup{instr: phi, index: index, name: tok.Lexeme, pos: tok.Position})
			}
		} else {
			phi.AddIncoming(p.parseOperand(), nil)
		}

		p.expect(TokenComma)
		label := p.expect(TokenIdentifier).Lexeme
		phi.SetIncomingBlock(index, p.blockRef(label))
		p.expect(TokenRightBracket)
	}
	return phi
}

// parseCall parses: call callee ( operand, ... )
// The callee is an '@' symbol or a '%' local (indirect call).
func (p *Parser) parseCall(name string) ir.Value {
	var callee ir.Value
	switch p.current.Type {
	case TokenGlobalIdent:
		tok := p.advanceToken()
		v, ok := p.moduleScope.Resolve(tok.Lexeme)
		if !ok {
			p.errorAt(tok.Position, fmt.Sprintf("call to undefined symbol @%s (declare it first)", tok.Lexeme))
			panic(parseBail{})
		}
		callee = v
	case TokenLocalIdent:
		callee = p.parseOperand()
	default:
		p.errorAt(p.current.Position,
			fmt.Sprintf("expected a callee, found %s", p.current.Type))
		panic(parseBail{})
	}

	p.expect(TokenLeftParen)
	var args []ir.Value
	for p.current.Type != TokenRightParen && !p.isAtEnd() {
		if len(args) > 0 {
			p.expect(TokenComma)
		}
		args = append(args, p.parseOperand())
	}
	p.expect(TokenRightParen)

	return p.builder.CreateCall(name, callee, args...)
}

// parseOperand parses a value reference: a literal, a defined local, or a
// module-level symbol.
func (p *Parser) parseOperand() ir.Value {
	switch p.current.Type {
	case TokenNumber, TokenTrue, TokenFalse:
		return p.parseLiteral()
	case TokenLocalIdent:
		tok := p.advanceToken()
		v, ok := p.locals.Resolve(tok.Lexeme)
		if !ok {
			p.errorAt(tok.Position, fmt.Sprintf("use of undefined value %%%s", tok.Lexeme))
			panic(parseBail{})
		}
		return v
	case TokenGlobalIdent:
		tok := p.advanceToken()
		v, ok := p.moduleScope.Resolve(tok.Lexeme)
		if !ok {
			p.errorAt(tok.Position, fmt.Sprintf("use of undefined symbol @%s", tok.Lexeme))
			panic(parseBail{})
		}
		return v
	default:
		p.errorAt(p.current.Position,
			fmt.Sprintf("expected an operand, found %s", p.current.Type))
		panic(parseBail{})
	}
}

// parseLiteral converts a literal token into a constant.
func (p *Parser) parseLiteral() ir.Value {
	tok := p.advanceToken()
	switch tok.Type {
	case TokenTrue:
		return ir.NewConstBool(true)
	case TokenFalse:
		return ir.NewConstBool(false)
	default:
		text := tok.Lexeme
		if strings.ContainsAny(text, ".eE") {
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				p.errorAt(tok.Position, fmt.Sprintf("invalid float literal %q", text))
				return ir.NewConstFloat(0)
			}
			return ir.NewConstFloat(f)
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			p.errorAt(tok.Position, fmt.Sprintf("invalid integer literal %q", text))
			return ir.NewConstInt(0)
		}
		return ir.NewConstInt(n)
	}
}

// parseType parses a type name.
func (p *Parser) parseType() types.Type {
	tok := p.expect(TokenIdentifier)
	switch tok.Lexeme {
	case "int":
		return types.Int
	case "float":
		return types.Float
	case "bool":
		return types.Bool
	case "void":
		return types.Void
	default:
		p.errorAt(tok.Position, fmt.Sprintf("unknown type %q", tok.Lexeme))
		return types.Int
	}
}

// Token plumbing

// advance pulls the next token into the lookahead window. Comments are
// skipped here; lexical errors are accumulated.
func (p *Parser) advance() {
	p.previous = p.current
	p.current = p.next
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			p.errors = append(p.errors, err)
		}
		if tok.Type == TokenComment {
			continue
		}
		p.next = tok
		return
	}
}

// advanceToken consumes and returns the current token.
func (p *Parser) advanceToken() Token {
	tok := p.current
	p.advance()
	return tok
}

// expect consumes the current token if it has the given type, otherwise
// reports an error and bails out of the enclosing instruction.
func (p *Parser) expect(tt TokenType) Token {
	if p.current.Type == tt {
		return p.advanceToken()
	}
	p.errorAt(p.current.Position,
		fmt.Sprintf("expected %s, found %s", tt, p.current.Type))
	panic(parseBail{})
}

// match consumes the current token if it has the given type.
func (p *Parser) match(tt TokenType) bool {
	if p.current.Type == tt {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) isAtEnd() bool { return p.current.Type == TokenEOF }

// synchronize skips tokens until something that can start an instruction,
// a block label, or the end of the function body.
func (p *Parser) synchronize() {
	if !p.isAtEnd() {
		p.advance()
	}
	for !p.isAtEnd() {
		switch p.current.Type {
		case TokenLocalIdent, TokenRightBrace, TokenFunc, TokenDeclare, TokenGlobal:
			return
		case TokenIdentifier:
			if p.next.Type == TokenColon {
				return
			}
			if _, ok := binaryOps[p.current.Lexeme]; ok {
				return
			}
			switch p.current.Lexeme {
			case "store", "call", "ret", "jmp", "br":
				return
			}
		}
		p.advance()
	}
}

// errorAt records a parse error with its source position.
func (p *Parser) errorAt(pos Position, msg string) {
	p.errors = append(p.errors, fmt.Errorf("%s: %s", pos, msg))
}

// Parse is a convenience wrapper: lex and parse source in one call.
func Parse(source, filename string) (*ir.Module, []error) {
	name := filename
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, ".ir")
	return NewParser(NewLexer(source, filename)).ParseModule(name)
}
