// Package ast defines the expression and declaration tree the parser
// builds and the constant folder reduces, grounded on
// original_source/src/parser/expression.h's node shapes.
package ast

import "j5.nz/cc64/internal/ctype"

// ExprKind tags Expr's variant, grounded on expression.h's expr_type enum.
type ExprKind int

const (
	EVariable ExprKind = iota
	ECall
	EConstant
	ECompoundLiteral
	EMember    // a.b or a->b, Arrow distinguishes which
	EAddressOf
	EIndirection
	EUnary // Op: "-", "!", "~", "++", "--" (pre/post distinguished by PostfixIncDec)
	ECast
	EPointerAdd
	EPointerSub
	EPointerDiff
	EBinary // arithmetic/comparison/logical, Op names the operator spelling
	EAssign // Op == "" for plain assignment, else the compound op ("+=" etc.)
	EConditional
	EComma
	EArrayToPointerDecay
	EVAStart
	EVAEnd
	EVAArg
	EVACopy
	EAlignof
	ESizeof
	EGenericSelection
)

// Expr is one node of the expression tree. Which fields are meaningful is
// determined by Kind; every node carries a DataType once type checking has
// resolved it.
type Expr struct {
	Kind     ExprKind
	DataType ctype.TypeID

	// EVariable
	Name string

	// ECall
	Callee Expr
	Args   []Expr

	// EConstant
	Const Constant

	// ECompoundLiteral
	CompoundType ctype.TypeID
	Initializer  []InitEntry
	// CompoundLabel is set by compound-literal hoisting once the literal
	// has been assigned a synthetic .compoundliteralN label and emitted
	// into .data; empty until hoisting runs.
	CompoundLabel string

	// EMember
	Base  *Expr
	Field string
	Arrow bool

	// EAddressOf, EIndirection, EUnary, ECast, EAlignof, ESizeof,
	// EArrayToPointerDecay: Operand is the single subexpression.
	Operand *Expr
	Op      string
	PostfixIncDec bool

	// EPointerAdd, EPointerSub, EPointerDiff, EBinary, EAssign, EComma:
	// Left/Right are the two subexpressions. ElementSize is filled in
	// for the pointer-arithmetic kinds (the scale factor the IR lowering
	// multiplies the integer operand by).
	Left, Right *Expr
	ElementSize int64

	// EConditional
	Cond, Then, Else *Expr

	// EVAArg, EVACopy
	VAList *Expr
	VAType ctype.TypeID

	// EGenericSelection
	Controlling  *Expr
	Associations []GenericAssoc
	DefaultExpr  *Expr
}

// GenericAssoc is one `type: expr` (or `default: expr`) association of a
// _Generic selection.
type GenericAssoc struct {
	Type ctype.TypeID
	// IsDefault marks the `default` association; Type is meaningless
	// when true.
	IsDefault bool
	Expr      Expr
}

// InitEntry is one flattened entry of an aggregate initializer: a byte
// offset plus a payload that is either an expression or a raw string
// slice, and (for bitfield members) the bit offset and width within that
// byte, produced by initializer expansion.
type InitEntry struct {
	ByteOffset int64
	Expr       *Expr
	StringData []byte
	IsBitfield bool
	BitOffset  int
	BitWidth   int
}
