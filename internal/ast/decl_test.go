package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"j5.nz/cc64/internal/ctype"
)

type fakeSink struct {
	calls []string
}

func (f *fakeSink) EmitStaticInitializer(label string, entries []InitEntry, size int64, typeSize func(ctype.TypeID) int64) {
	f.calls = append(f.calls, label)
}

func TestHoistCompoundLiteralsAssignsSequentialLabels(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)

	lit1 := &Expr{Kind: ECompoundLiteral, CompoundType: intTy}
	lit2 := &Expr{Kind: ECompoundLiteral, CompoundType: intTy}
	root := &Expr{Kind: EBinary, Op: "+", Left: lit1, Right: lit2}

	counter := NewCompoundLiteralCounter()
	sink := &fakeSink{}
	HoistCompoundLiterals(root, counter, sink, func(ctype.TypeID) int64 { return 4 })

	require.Len(t, sink.calls, 2)
	assert.Equal(t, ".compoundliteral0", lit1.CompoundLabel)
	assert.Equal(t, ".compoundliteral1", lit2.CompoundLabel)
	assert.ElementsMatch(t, []string{".compoundliteral0", ".compoundliteral1"}, sink.calls)
}

func TestHoistCompoundLiteralsIsIdempotentPerNode(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)

	lit := &Expr{Kind: ECompoundLiteral, CompoundType: intTy}
	counter := NewCompoundLiteralCounter()
	sink := &fakeSink{}
	typeSize := func(ctype.TypeID) int64 { return 4 }

	HoistCompoundLiterals(lit, counter, sink, typeSize)
	HoistCompoundLiterals(lit, counter, sink, typeSize)

	assert.Len(t, sink.calls, 1, "a node already labeled must not be re-emitted")
}

func TestHoistCompoundLiteralsRecursesIntoNestedSubexpressions(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)

	lit := &Expr{Kind: ECompoundLiteral, CompoundType: intTy}
	call := &Expr{Kind: ECall, Args: []Expr{*lit}}

	counter := NewCompoundLiteralCounter()
	sink := &fakeSink{}
	HoistCompoundLiterals(call, counter, sink, func(ctype.TypeID) int64 { return 4 })

	require.Len(t, sink.calls, 1)
	assert.Equal(t, ".compoundliteral0", call.Args[0].CompoundLabel)
}
