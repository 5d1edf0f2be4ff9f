// Package ctype implements the hash-consed C type system: structural
// interning of types (so pointer equality of TypeID implies structural
// equality), struct/union/enum identity records, and the classification
// and adjustment rules the parser and IR builder need, grounded on
// original_source/src/types.c and types.h.
package ctype

// SimpleType enumerates the C arithmetic and void basic types, grounded
// one-for-one on types.h's enum simple_type.
type SimpleType int

const (
	Void SimpleType = iota
	Bool
	Char
	SignedChar
	UnsignedChar
	Short
	UnsignedShort
	Int
	UnsignedInt
	Long
	UnsignedLong
	LongLong
	UnsignedLongLong
	Float
	Double
	LongDouble
	FloatComplex
	DoubleComplex
	LongDoubleComplex
	simpleTypeCount
)

func (s SimpleType) String() string {
	switch s {
	case Void:
		return "void"
	case Bool:
		return "_Bool"
	case Char:
		return "char"
	case SignedChar:
		return "signed char"
	case UnsignedChar:
		return "unsigned char"
	case Short:
		return "short"
	case UnsignedShort:
		return "unsigned short"
	case Int:
		return "int"
	case UnsignedInt:
		return "unsigned int"
	case Long:
		return "long"
	case UnsignedLong:
		return "unsigned long"
	case LongLong:
		return "long long"
	case UnsignedLongLong:
		return "unsigned long long"
	case Float:
		return "float"
	case Double:
		return "double"
	case LongDouble:
		return "long double"
	case FloatComplex:
		return "float _Complex"
	case DoubleComplex:
		return "double _Complex"
	case LongDoubleComplex:
		return "long double _Complex"
	default:
		return "<unknown simple type>"
	}
}

// Kind is the tag of Type's structural union, mirroring types.h's
// `enum { TY_SIMPLE, TY_POINTER, TY_ARRAY, ... }`.
type Kind int

const (
	KindSimple Kind = iota
	KindPointer
	KindArray
	KindIncompleteArray
	KindVariableLengthArray
	KindStruct
	KindEnum
	KindFunction
)

// TypeID is an opaque handle into an Interner's arena. Two TypeIDs compare
// equal (==) exactly when the types they name are structurally equal —
// the hash-consing invariant this package maintains.
type TypeID int32

// Type is one hash-consed node of the type system. Which fields are
// meaningful depends on Kind, mirroring the C original's tagged union
// (types.h's struct type uses a flexible-array-member `children` for
// struct/function child types; here Elem, Return and Params play that
// role directly).
type Type struct {
	Kind    Kind
	IsConst bool

	Simple SimpleType // KindSimple

	Elem TypeID // KindPointer, KindArray, KindIncompleteArray, KindVariableLengthArray

	ArrayLen int64 // KindArray: element count
	VLALen   VLAExpr // KindVariableLengthArray: the (opaque) length expression

	Struct *StructData // KindStruct
	Enum   *EnumData   // KindEnum

	Return     TypeID   // KindFunction
	Params     []TypeID // KindFunction
	IsVariadic bool     // KindFunction
}

// VLAExpr is an opaque handle to whatever expression representation the
// parser uses for a variable-length array's runtime length; ctype only
// needs to carry it opaquely (VLA types are never hash-consed: every VLA
// request yields a distinct type, even for the very same length
// expression instance).
type VLAExpr interface{}
