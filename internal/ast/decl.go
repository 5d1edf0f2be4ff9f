package ast

import (
	"fmt"

	"j5.nz/cc64/internal/ctype"
)

// Declarator is one declared name with its resolved type and optional
// initializer, grounded on original_source/src/parser/variables.h's
// declaration shape.
type Declarator struct {
	Name        string
	Type        ctype.TypeID
	IsExtern    bool
	IsStatic    bool
	Initializer []InitEntry
	// VarIndex is the index into the owning ir.Function's Vars slice a
	// local declarator was registered at when the parser first saw it;
	// -1 for file-scope declarators, which have no stack slot.
	VarIndex int
}

// StmtKind tags Stmt's variant.
type StmtKind int

const (
	SExpr StmtKind = iota
	SDeclaration
	SIf
	SWhile
	SDoWhile
	SFor
	SReturn
	SBreak
	SContinue
	SCompound
	SSwitch
	SCase
	SDefault
	SLabel
	SGoto
)

// Stmt is one statement node; the parser builds a function body's full
// statement tree first and lowers it into internal/ir in a separate pass.
type Stmt struct {
	Kind StmtKind

	Expr *Expr // SExpr, SReturn (nil for bare "return;")
	Decl *Declarator // SDeclaration

	Cond *Expr  // SIf, SWhile, SDoWhile, SFor, SSwitch, SCase
	Then *Stmt  // SIf
	Else *Stmt  // SIf

	Init *Stmt // SFor
	Post *Expr // SFor
	Body *Stmt // SWhile, SDoWhile, SFor

	Stmts []Stmt // SCompound

	Label string // SLabel, SGoto
}

// CompoundLiteralCounter hands out the synthetic .compoundliteralN labels
// compound-literal hoisting needs.
type CompoundLiteralCounter struct{ n int }

func (c *CompoundLiteralCounter) next() string {
	n := c.n
	c.n++
	return fmt.Sprintf(".compoundliteral%d", n)
}

// EmitStatic is the narrow contract compound-literal hoisting needs from
// its caller: somewhere to write the hoisted literal's flattened
// initializer bytes, labeled, into static storage (ultimately .data via
// internal/objfile, but ast itself has no dependency on objfile).
type EmitStatic interface {
	EmitStaticInitializer(label string, entries []InitEntry, size int64, typeSize func(ctype.TypeID) int64)
}

// HoistCompoundLiterals walks e and its subexpressions and gives every
// not-yet-labeled ECompoundLiteral node, wherever it appears, a fresh
// static label (stored in CompoundLabel on the node itself) and emits its
// initializer via sink. Call callees are not walked.
func HoistCompoundLiterals(e *Expr, counter *CompoundLiteralCounter, sink EmitStatic, typeSize func(ctype.TypeID) int64) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ECompoundLiteral:
		if e.CompoundLabel == "" {
			e.CompoundLabel = counter.next()
			sink.EmitStaticInitializer(e.CompoundLabel, e.Initializer, typeSize(e.CompoundType), typeSize)
		}
	}
	HoistCompoundLiterals(e.Operand, counter, sink, typeSize)
	HoistCompoundLiterals(e.Left, counter, sink, typeSize)
	HoistCompoundLiterals(e.Right, counter, sink, typeSize)
	HoistCompoundLiterals(e.Base, counter, sink, typeSize)
	HoistCompoundLiterals(e.Cond, counter, sink, typeSize)
	HoistCompoundLiterals(e.Then, counter, sink, typeSize)
	HoistCompoundLiterals(e.Else, counter, sink, typeSize)
	for i := range e.Args {
		HoistCompoundLiterals(&e.Args[i], counter, sink, typeSize)
	}
}

// NewCompoundLiteralCounter returns a fresh counter for one translation
// unit (compound-literal labels are unique per TU, matching the
// original's single global counter).
func NewCompoundLiteralCounter() *CompoundLiteralCounter {
	return &CompoundLiteralCounter{}
}
