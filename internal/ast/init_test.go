package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"j5.nz/cc64/internal/ctype"
)

func sizeOfStub(types *ctype.Interner) func(ctype.TypeID) int64 {
	return func(id ctype.TypeID) int64 {
		t := types.Lookup(id)
		switch t.Kind {
		case ctype.KindSimple:
			switch t.Simple {
			case ctype.Int:
				return 4
			case ctype.Double:
				return 8
			}
		}
		return 4
	}
}

func TestExpandInitializerFlattensAnArrayInOrder(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)
	arrTy := types.Array(intTy, 3)

	items := []InitItem{
		{Scalar: constExpr(intTy, 1)},
		{Scalar: constExpr(intTy, 2)},
		{Scalar: constExpr(intTy, 3)},
	}
	entries := ExpandInitializer(types, arrTy, items, 0, sizeOfStub(types))
	require.Len(t, entries, 3)
	assert.Equal(t, int64(0), entries[0].ByteOffset)
	assert.Equal(t, int64(4), entries[1].ByteOffset)
	assert.Equal(t, int64(8), entries[2].ByteOffset)
}

func TestExpandInitializerArrayDesignatorRepositionsCursor(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)
	arrTy := types.Array(intTy, 5)

	items := []InitItem{
		{Designators: []Designator{{Index: 2}}, Scalar: constExpr(intTy, 99)},
		{Scalar: constExpr(intTy, 100)}, // continues from index 3
	}
	entries := ExpandInitializer(types, arrTy, items, 0, sizeOfStub(types))
	require.Len(t, entries, 2)
	assert.Equal(t, int64(8), entries[0].ByteOffset)
	assert.Equal(t, int64(12), entries[1].ByteOffset)
}

func TestExpandInitializerStructFieldDesignator(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)
	sd := ctype.NewStructData("point", false)
	sd.Fields = []ctype.Field{
		{Name: "x", Type: intTy, Bitfield: -1, Offset: 0},
		{Name: "y", Type: intTy, Bitfield: -1, Offset: 4},
	}
	structTy := types.Struct(sd)

	items := []InitItem{
		{Designators: []Designator{{Field: "y"}}, Scalar: constExpr(intTy, 7)},
	}
	entries := ExpandInitializer(types, structTy, items, 0, sizeOfStub(types))
	require.Len(t, entries, 1)
	assert.Equal(t, int64(4), entries[0].ByteOffset, "designator .y must select the second field's offset")
}

func TestExpandInitializerUnionOnlyInitializesOneMember(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)
	sd := ctype.NewStructData("u", true)
	sd.Fields = []ctype.Field{
		{Name: "i", Type: intTy, Bitfield: -1, Offset: 0},
		{Name: "j", Type: intTy, Bitfield: -1, Offset: 0},
	}
	unionTy := types.Struct(sd)

	items := []InitItem{
		{Scalar: constExpr(intTy, 1)},
		{Scalar: constExpr(intTy, 2)}, // must be ignored: unions take only the first
	}
	entries := ExpandInitializer(types, unionTy, items, 0, sizeOfStub(types))
	require.Len(t, entries, 1)
}

func TestExpandInitializerBitfieldEntryCarriesBitOffsetAndWidth(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)
	sd := ctype.NewStructData("flags", false)
	sd.Fields = []ctype.Field{{Name: "a", Type: intTy, Bitfield: 3, BitOffset: 0, Offset: 0}}
	structTy := types.Struct(sd)

	items := []InitItem{{Scalar: constExpr(intTy, 5)}}
	entries := ExpandInitializer(types, structTy, items, 0, sizeOfStub(types))
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsBitfield)
	assert.Equal(t, 3, entries[0].BitWidth)
}
