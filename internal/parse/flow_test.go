package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"j5.nz/cc64/internal/ctype"
	"j5.nz/cc64/internal/ir"
	"j5.nz/cc64/internal/preproc"
	"j5.nz/cc64/internal/token"
)

func parseSource(t *testing.T, src string) *Parser {
	t.Helper()
	sources := token.NewSourceStack()
	sources.Push("test.c", token.NewLexer("test.c", []byte(src)))
	pp := preproc.New(sources, nil)
	toks, err := pp.Tokenize()
	require.NoError(t, err)

	p := New(toks, ctype.NewInterner())
	require.NoError(t, p.ParseTranslationUnit())
	return p
}

// TestSwitchWithoutDefaultFallsThrough guards the fix to lowerSwitch: a
// switch with no matching case and no default clause must fall through to
// the statement after the switch, not jump into the function's entry
// block (ir.BlockID's zero value).
func TestSwitchWithoutDefaultFallsThrough(t *testing.T) {
	p := parseSource(t, `
int classify(int x) {
	int result = 0;
	switch (x) {
	case 1:
		result = 10;
		break;
	case 2:
		result = 20;
		break;
	}
	return result;
}
`)
	require.Len(t, p.Functions, 1)
	fn := p.Functions[0]
	require.NoError(t, ir.Verify(fn))

	var sw *ir.BlockExit
	for i := range fn.Blocks {
		if fn.Blocks[i].Exit.Kind == ir.ExitSwitch {
			sw = &fn.Blocks[i].Exit
			break
		}
	}
	require.NotNil(t, sw, "expected exactly one switch terminator")
	assert.False(t, sw.HasDefault)
	assert.NotEqual(t, ir.BlockID(0), sw.DefaultBlock,
		"a switch with no default must not fall through to the function's entry block")
}

func TestSwitchWithDefaultUsesItsOwnBlock(t *testing.T) {
	p := parseSource(t, `
int classify(int x) {
	int result = 0;
	switch (x) {
	case 1:
		result = 10;
		break;
	default:
		result = -1;
		break;
	}
	return result;
}
`)
	require.Len(t, p.Functions, 1)
	fn := p.Functions[0]
	require.NoError(t, ir.Verify(fn))

	var sw *ir.BlockExit
	for i := range fn.Blocks {
		if fn.Blocks[i].Exit.Kind == ir.ExitSwitch {
			sw = &fn.Blocks[i].Exit
			break
		}
	}
	require.NotNil(t, sw)
	assert.True(t, sw.HasDefault)
}
