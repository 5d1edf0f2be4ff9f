package naivex64

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"j5.nz/cc64/internal/ctype"
	"j5.nz/cc64/internal/ir"
	"j5.nz/cc64/internal/objfile"
)

// buildAdd constructs `int add(int a, int b) { return a + b; }` directly
// against the IR builder, the same shape internal/parse's lowering
// produces for a trivial arithmetic function.
func buildAdd(types *ctype.Interner) *ir.Function {
	intTy := types.Simple(ctype.Int)
	ptrInt := types.Pointer(intTy)

	b := ir.NewBuilder("add", true, intTy)
	ai := b.AddVariable("a", intTy, 4, true)
	bi := b.AddVariable("b", intTy, 4, true)

	aAddr := b.AddressOfLocal(b.Variable(ai).StackSlot, ptrInt)
	aVal := b.Load(intTy, aAddr)
	bAddr := b.AddressOfLocal(b.Variable(bi).StackSlot, ptrInt)
	bVal := b.Load(intTy, bAddr)
	sum := b.Binary(ir.Add, intTy, aVal, bVal)
	b.Return(sum)

	return b.Finish()
}

func TestCompileSimpleFunctionDefinesATextSymbol(t *testing.T) {
	types := ctype.NewInterner()
	fn := buildAdd(types)
	require.NoError(t, ir.Verify(fn))

	asm := objfile.NewAssembler(nil)
	backend := New(asm, types)
	require.NoError(t, backend.Compile(fn))

	out, err := asm.Finish()
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Equal(t, []byte{0x7f, 'E', 'L', 'F'}, out[0:4])
}

func TestCompileRejectsUnsupportedOpcodes(t *testing.T) {
	types := ctype.NewInterner()
	voidTy := types.Simple(ctype.Void)

	b := ir.NewBuilder("weird", false, voidTy)
	t0 := b.NewTemp()
	b.Emit(ir.Instruction{Op: ir.OpStackAlloc, Dest: t0, Type: voidTy})
	b.ReturnZero()
	fn := b.Finish()

	asm := objfile.NewAssembler(nil)
	backend := New(asm, types)
	err := backend.Compile(fn)
	assert.Error(t, err)
}

func TestFloatConstantsShareOneRodataSlot(t *testing.T) {
	types := ctype.NewInterner()
	doubleTy := types.Simple(ctype.Double)

	b := ir.NewBuilder("twice_pi", true, doubleTy)
	c1 := b.Constant(ir.Constant{IsFloat: true, Float: 3.14, Type: doubleTy})
	c2 := b.Constant(ir.Constant{IsFloat: true, Float: 3.14, Type: doubleTy})
	sum := b.Binary(ir.FltAdd, doubleTy, c1, c2)
	b.Return(sum)
	fn := b.Finish()
	require.NoError(t, ir.Verify(fn))

	asm := objfile.NewAssembler(nil)
	backend := New(asm, types)
	require.NoError(t, backend.Compile(fn))

	asm.SetSection(".rodata")
	assert.Equal(t, int64(8), asm.Current().Size(), "two identical float constants must share one 8-byte rodata slot")
}

// buildAbs constructs `int abs_(int n) { if (n < 0) return -n; return n; }`,
// exercising ExitIf's two-target lowering and OpNegateInt.
func buildAbs(types *ctype.Interner) *ir.Function {
	intTy := types.Simple(ctype.Int)
	ptrInt := types.Pointer(intTy)

	b := ir.NewBuilder("abs_", true, intTy)
	ni := b.AddVariable("n", intTy, 4, true)
	nAddr := b.AddressOfLocal(b.Variable(ni).StackSlot, ptrInt)
	nVal := b.Load(intTy, nAddr)
	zero := b.Constant(ir.Constant{Int: 0, Type: intTy})
	cmp := b.Binary(ir.ILess, intTy, nVal, zero)

	negBlock := b.NewBlock("neg")
	posBlock := b.NewBlock("pos")
	b.If(cmp, negBlock, posBlock)

	b.SetBlock(negBlock)
	nVal2 := b.Load(intTy, nAddr)
	neg := b.NewTemp()
	b.Emit(ir.Instruction{Op: ir.OpNegateInt, Dest: neg, Type: intTy, Args: []ir.Temporary{nVal2}})
	b.Return(neg)

	b.SetBlock(posBlock)
	nVal3 := b.Load(intTy, nAddr)
	b.Return(nVal3)

	return b.Finish()
}

func TestCompileLowersConditionalBranchesToBothTargets(t *testing.T) {
	types := ctype.NewInterner()
	fn := buildAbs(types)
	require.NoError(t, ir.Verify(fn))

	asm := objfile.NewAssembler(nil)
	backend := New(asm, types)
	require.NoError(t, backend.Compile(fn))

	out, err := asm.Finish()
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

// buildCallsite constructs `int callTwo(int x) { return identity(x) + 1; }`
// to exercise OpCall's integer-argument lowering.
func buildCallsite(types *ctype.Interner) *ir.Function {
	intTy := types.Simple(ctype.Int)
	ptrInt := types.Pointer(intTy)

	b := ir.NewBuilder("callTwo", true, intTy)
	xi := b.AddVariable("x", intTy, 4, true)
	xAddr := b.AddressOfLocal(b.Variable(xi).StackSlot, ptrInt)
	xVal := b.Load(intTy, xAddr)

	result := b.Call(intTy, "identity", []ir.Temporary{xVal})
	one := b.Constant(ir.Constant{Int: 1, Type: intTy})
	sum := b.Binary(ir.Add, intTy, result, one)
	b.Return(sum)

	return b.Finish()
}

func TestCompileLowersCallsAndRecordsAnUndefinedSymbolRelocation(t *testing.T) {
	types := ctype.NewInterner()
	fn := buildCallsite(types)
	require.NoError(t, ir.Verify(fn))

	asm := objfile.NewAssembler(nil)
	backend := New(asm, types)
	require.NoError(t, backend.Compile(fn))

	out, err := asm.Finish()
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
