// Package parse implements the hand-written, precedence-climbing C parser
// and the declaration-to-IR lowering driving one translation unit through
// to internal/ir, grounded on a std/compiler/parser.go-style Parser
// (peek/advance/at/match/expect) idiom, generalized from a Go-subset
// grammar to C's.
package parse

import (
	"fmt"

	"github.com/pkg/errors"

	"j5.nz/cc64/internal/ast"
	"j5.nz/cc64/internal/ctype"
	"j5.nz/cc64/internal/ir"
	"j5.nz/cc64/internal/token"
)

// Parser drives recursive-descent parsing of one translation unit's
// already-preprocessed token stream, resolving types against a shared
// ctype.Interner as it goes. Each function body is parsed into its full
// ast.Stmt tree and then lowered into internal/ir in one subsequent walk
// (so a goto can resolve a label the parse has not reached yet),
// matching a Parser/CodeGen division of labor generalized from a
// single-pass form.
type Parser struct {
	toks []token.Token
	pos  int

	types *ctype.Interner
	scope *scope

	Globals   map[string]*Global
	Functions []*ir.Function

	compoundLiterals *compoundLiteralSink
	literalCounter   *ast.CompoundLiteralCounter // exported in internal/ast for cross-package use

	stringLiterals []stringLiteral
	stringCounter  stringLabelCounter

	// lastParamNames remembers the most recently parsed function
	// parameter list's names, set by parseDeclarator's "(" case; a
	// function definition reads this immediately after parsing its
	// declarator to bind parameter names to stack slots.
	lastParamNames []string

	// builder is non-nil while lowering the body of the function
	// currently being parsed; loopExits/switchStack track the enclosing
	// break/continue/case targets for the statement currently nested
	// inside them, mirroring a CodeGen's block-label stacks.
	builder     *ir.Builder
	loopExits   []loopTargets
	switchStack []*switchContext

	// lowerScope resolves variable names to their IR stack slot while
	// lowering a function body's statement tree; rebuilt fresh per
	// function, separately from scope (the parse-time symbol table),
	// since lowering runs as its own pass after the whole body is parsed.
	lowerScope  *scope
	labelBlocks map[string]ir.BlockID
}

type loopTargets struct {
	continueBlock ir.BlockID
	breakBlock    ir.BlockID
}

type switchContext struct {
	valueTy      ctype.TypeID
	cases        []ir.CaseLabel
	defaultBlock ir.BlockID
	hasDefault   bool
	breakBlock   ir.BlockID
}

// Global is a file-scope declaration: a variable (possibly with a static
// initializer) or a function prototype.
type Global struct {
	Name     string
	Type     ctype.TypeID
	IsStatic bool
	IsExtern bool
	Init     []ast.InitEntry
}

// New returns a parser over toks, sharing types for every type it resolves
// or creates.
func New(toks []token.Token, types *ctype.Interner) *Parser {
	return &Parser{
		toks:             toks,
		types:            types,
		scope:            newScope(nil),
		Globals:          make(map[string]*Global),
		compoundLiterals: &compoundLiteralSink{},
		literalCounter:   ast.NewCompoundLiteralCounter(),
	}
}

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOI}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(off int) token.Token {
	i := p.pos + off
	if i >= len(p.toks) {
		return token.Token{Kind: token.EOI}
	}
	return p.toks[i]
}

func (p *Parser) advance() token.Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) match(s string) bool {
	if p.peek().Is(s) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(s string) (token.Token, error) {
	t := p.peek()
	if !t.Is(s) {
		return t, errors.WithStack(fmt.Errorf("%s: expected %q, got %q", t.Pos, s, t.Spelling()))
	}
	return p.advance(), nil
}

func (p *Parser) atEOF() bool {
	return p.peek().Kind == token.EOI
}

// ParseTranslationUnit parses the entire token stream as a sequence of
// top-level declarations and function definitions.
func (p *Parser) ParseTranslationUnit() error {
	for !p.atEOF() {
		if err := p.parseExternalDeclaration(); err != nil {
			return err
		}
	}
	return nil
}

// CompoundLiteralData is one hoisted compound-literal static initializer,
// exported so the translation-unit driver can flush it into the object
// emitter's .data section.
type CompoundLiteralData struct {
	Label string
	Init  []ast.InitEntry
	Size  int64
}

// CompoundLiterals returns every compound literal hoisted to file scope
// while parsing, in hoisting order.
func (p *Parser) CompoundLiterals() []CompoundLiteralData {
	out := make([]CompoundLiteralData, len(p.compoundLiterals.entries))
	for i, e := range p.compoundLiterals.entries {
		out[i] = CompoundLiteralData{Label: e.label, Init: e.init, Size: e.size}
	}
	return out
}
