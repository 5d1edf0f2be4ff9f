package objfile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSectionCreatesOnFirstUseAndReusesAfter(t *testing.T) {
	a := NewAssembler(nil)

	text := a.SetSection(".text")
	require.NotNil(t, text)
	assert.Equal(t, ".text", a.Current().Name)

	a.SetSection(".data")
	assert.Equal(t, ".data", a.Current().Name)

	textAgain := a.SetSection(".text")
	assert.Same(t, text, textAgain, "re-selecting an existing section returns the same Section")
}

func TestWriteAndReserveReturnCumulativeOffsets(t *testing.T) {
	a := NewAssembler(nil)
	a.SetSection(".text")

	off1 := a.Write([]byte{0x90, 0x90})
	assert.Equal(t, int64(0), off1)

	off2 := a.Write([]byte{0xc3})
	assert.Equal(t, int64(2), off2)

	a.SetSection(".bss")
	off3 := a.Reserve(16)
	assert.Equal(t, int64(0), off3)
	off4 := a.Reserve(8)
	assert.Equal(t, int64(16), off4)
}

func TestSymbolSetUpsertsByName(t *testing.T) {
	a := NewAssembler(nil)
	a.SetSection(".text")
	a.Write(make([]byte, 4))

	a.SymbolSet("foo", 0, 4, BindGlobal, TypeFunc)
	a.SymbolSet("foo", 4, 8, BindLocal, TypeObject)

	idx, ok := a.symbolIndex["foo"]
	require.True(t, ok)
	sym := a.symbols[idx]
	assert.Equal(t, int64(4), sym.Value)
	assert.Equal(t, int64(8), sym.Size)
	assert.Equal(t, BindLocal, sym.Bind)
	assert.Equal(t, TypeObject, sym.Type)

	// no duplicate entry was created by the second call.
	count := 0
	for _, s := range a.symbols {
		if s.Name == "foo" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestDeclareExternIsIdempotent(t *testing.T) {
	a := NewAssembler(nil)
	a.DeclareExtern("printf")
	n := len(a.symbols)
	a.DeclareExtern("printf")
	assert.Equal(t, n, len(a.symbols), "declaring the same extern twice must not grow the symbol table")
}

func TestSymbolRelocateDeclaresUndefinedSymbolAndRecordsRela(t *testing.T) {
	a := NewAssembler(nil)
	a.SetSection(".text")
	a.Write(make([]byte, 8))

	a.SymbolRelocate(4, "memcpy", RelaPLT32, -4)

	idx, ok := a.symbolIndex["memcpy"]
	require.True(t, ok)
	assert.Equal(t, -1, a.symbols[idx].Section, "an externally-relocated symbol with no local definition is undefined")

	require.Len(t, a.Current().relas, 1)
	rela := a.Current().relas[0]
	assert.Equal(t, int64(4), rela.Offset)
	assert.Equal(t, "memcpy", rela.Symbol)
	assert.Equal(t, RelaPLT32, rela.Type)
	assert.Equal(t, int64(-4), rela.Addend)
	assert.Equal(t, RelaType(4), rela.Type, "R_X86_64_PLT32 is psABI code 4, not just whatever RelaPLT32 happens to be")
}

func TestRelaTypeConstantsMatchX8664PsabiCodes(t *testing.T) {
	assert.Equal(t, RelaType(0), RelaNone, "R_X86_64_NONE")
	assert.Equal(t, RelaType(1), Rela64, "R_X86_64_64")
	assert.Equal(t, RelaType(2), RelaPC32, "R_X86_64_PC32")
	assert.Equal(t, RelaType(4), RelaPLT32, "R_X86_64_PLT32")
	assert.Equal(t, RelaType(10), Rela32, "R_X86_64_32")
	assert.Equal(t, RelaType(11), Rela32S, "R_X86_64_32S")
}

func TestFinishProducesAValidElf64Header(t *testing.T) {
	a := NewAssembler(nil)
	a.SetSection(".text")
	a.Write([]byte{0x55, 0x48, 0x89, 0xe5, 0x5d, 0xc3})
	a.SymbolSet("main", 0, 6, BindGlobal, TypeFunc)

	out, err := a.Finish()
	require.NoError(t, err)

	assert.Equal(t, []byte{0x7f, 'E', 'L', 'F'}, out[0:4])
	assert.Equal(t, byte(2), out[4], "EI_CLASS must be ELFCLASS64")
	assert.Equal(t, byte(1), out[5], "EI_DATA must be ELFDATA2LSB")
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(out[16:]), "e_type must be ET_REL")
	assert.Equal(t, uint16(0x3e), binary.LittleEndian.Uint16(out[18:]), "e_machine must be EM_X86_64")
	shoff := binary.LittleEndian.Uint64(out[40:])
	assert.Equal(t, uint64(128), shoff)
}

func TestFinishErrorsOnRelocationAgainstUnknownSymbol(t *testing.T) {
	a := NewAssembler(nil)
	a.SetSection(".text")
	a.Write(make([]byte, 4))
	a.Current().relas = append(a.Current().relas, Rela{Offset: 0, Symbol: "nope", Type: RelaPLT32})

	_, err := a.Finish()
	assert.Error(t, err)
}
