package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"j5.nz/cc64/internal/ctype"
)

func TestVerifyRejectsMissingTerminator(t *testing.T) {
	fn := &Function{Name: "f", Blocks: []Block{{ID: 0}}}
	err := Verify(fn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no terminator")
}

func TestVerifyRejectsOutOfRangeJump(t *testing.T) {
	fn := &Function{Name: "f", Blocks: []Block{
		{ID: 0, Exit: BlockExit{Kind: ExitJump, JumpTarget: 5}},
	}}
	err := Verify(fn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestVerifyRejectsVAOpcodeInNonVariadicFunction(t *testing.T) {
	types := ctype.NewInterner()
	voidTy := types.Simple(ctype.Void)
	fn := &Function{
		Name: "f",
		Blocks: []Block{
			{ID: 0, Instructions: []Instruction{{Op: OpVAStart, Type: voidTy}}, Exit: BlockExit{Kind: ExitReturnZero}},
		},
	}
	err := Verify(fn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variadic opcode")
}

func TestVerifyAcceptsVAOpcodeWhenUsesVA(t *testing.T) {
	types := ctype.NewInterner()
	voidTy := types.Simple(ctype.Void)
	fn := &Function{
		Name:   "f",
		UsesVA: true,
		Blocks: []Block{
			{ID: 0, Instructions: []Instruction{{Op: OpVAStart, Type: voidTy}}, Exit: BlockExit{Kind: ExitReturnZero}},
		},
	}
	assert.NoError(t, Verify(fn))
}

func TestPruneUnreachableDropsDeadBlocksAndRemapsTargets(t *testing.T) {
	fn := &Function{
		Name: "f",
		Blocks: []Block{
			{ID: 0, Exit: BlockExit{Kind: ExitJump, JumpTarget: 2}}, // entry jumps straight to block 2
			{ID: 1, Exit: BlockExit{Kind: ExitReturnZero}},          // unreachable
			{ID: 2, Exit: BlockExit{Kind: ExitReturnZero}},
		},
	}
	PruneUnreachable(fn)

	require.Len(t, fn.Blocks, 2, "the unreachable block must be dropped")
	assert.Equal(t, BlockID(0), fn.Blocks[0].ID)
	assert.Equal(t, BlockID(1), fn.Blocks[1].ID)
	assert.Equal(t, BlockID(1), fn.Blocks[0].Exit.JumpTarget, "surviving jump target must be remapped to its new index")
}

func TestBuilderEmitsExpectedBlockStructure(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)

	b := NewBuilder("f", true, intTy)
	c1 := b.Constant(Constant{Int: 1, Type: intTy})
	c2 := b.Constant(Constant{Int: 2, Type: intTy})
	sum := b.Binary(Add, intTy, c1, c2)
	b.Return(sum)

	fn := b.Finish()
	require.NoError(t, Verify(fn))
	assert.Len(t, fn.Blocks, 1)
	assert.Len(t, fn.Blocks[0].Instructions, 3)
	assert.Equal(t, ExitReturn, fn.Blocks[0].Exit.Kind)
}
