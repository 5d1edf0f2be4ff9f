package preproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"j5.nz/cc64/internal/token"
)

func tokenizeSource(t *testing.T, src string) []token.Token {
	t.Helper()
	sources := token.NewSourceStack()
	sources.Push("t.c", token.NewLexer("t.c", []byte(src)))
	pp := New(sources, nil)
	toks, err := pp.Tokenize()
	require.NoError(t, err)
	return toks
}

func spellings(toks []token.Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Spelling()
	}
	return out
}

func TestObjectLikeMacroExpansion(t *testing.T) {
	toks := tokenizeSource(t, "#define N 42\nint x = N;")
	assert.Equal(t, []string{"int", "x", "=", "42", ";"}, spellings(toks))
}

func TestFunctionLikeMacroExpansionSubstitutesArguments(t *testing.T) {
	toks := tokenizeSource(t, "#define ADD(a, b) ((a) + (b))\nADD(1, 2)")
	assert.Equal(t, []string{"(", "(", "1", ")", "+", "(", "2", ")", ")"}, spellings(toks))
}

func TestFunctionLikeMacroNotFollowedByParenIsNotInvoked(t *testing.T) {
	toks := tokenizeSource(t, "#define ADD(a, b) ((a) + (b))\nADD;")
	assert.Equal(t, []string{"ADD", ";"}, spellings(toks))
}

func TestMacroDoesNotExpandWithinItsOwnReplacement(t *testing.T) {
	toks := tokenizeSource(t, "#define X X\nX")
	assert.Equal(t, []string{"X"}, spellings(toks))
}

func TestStringizeOperatorQuotesArgumentSpelling(t *testing.T) {
	toks := tokenizeSource(t, "#define STR(x) #x\nSTR(hello world)")
	require.Len(t, toks, 1)
	assert.Equal(t, `"hello world"`, toks[0].Spelling())
}

func TestTokenPasteOperatorConcatenatesNeighbors(t *testing.T) {
	toks := tokenizeSource(t, "#define CAT(a, b) a ## b\nCAT(foo, bar)")
	require.Len(t, toks, 1)
	assert.Equal(t, "foobar", toks[0].Spelling())
}

func TestVariadicMacroCollectsTrailingArgumentsIntoVAArgs(t *testing.T) {
	toks := tokenizeSource(t, "#define LOG(fmt, ...) printf(fmt, __VA_ARGS__)\nLOG(\"x\", 1, 2)")
	assert.Equal(t, []string{"printf", "(", `"x"`, ",", "1", ",", "2", ")"}, spellings(toks))
}

func TestUndefRemovesADefinitionWithoutError(t *testing.T) {
	toks := tokenizeSource(t, "#define X 1\n#undef X\nX")
	assert.Equal(t, []string{"X"}, spellings(toks), "X is no longer a macro once undefined")
}

func TestUndefOfUnknownNameIsNotAnError(t *testing.T) {
	assert.NotPanics(t, func() {
		tokenizeSource(t, "#undef NEVER_DEFINED\n")
	})
}

func TestIfdefGuardsTokensOnDefinedState(t *testing.T) {
	toks := tokenizeSource(t, "#define FEATURE\n#ifdef FEATURE\nyes\n#else\nno\n#endif\n")
	assert.Equal(t, []string{"yes"}, spellings(toks))
}

func TestIfndefTakesTheElseBranchWhenDefined(t *testing.T) {
	toks := tokenizeSource(t, "#define FEATURE\n#ifndef FEATURE\nyes\n#else\nno\n#endif\n")
	assert.Equal(t, []string{"no"}, spellings(toks))
}

func TestNestedConditionalInsideASkippedBranchStaysSkipped(t *testing.T) {
	toks := tokenizeSource(t, "#if 0\n#if 1\ninner\n#endif\n#endif\nouter\n")
	assert.Equal(t, []string{"outer"}, spellings(toks))
}

func TestElifChainTakesOnlyTheFirstTrueBranch(t *testing.T) {
	toks := tokenizeSource(t, "#if 0\na\n#elif 1\nb\n#elif 1\nc\n#else\nd\n#endif\n")
	assert.Equal(t, []string{"b"}, spellings(toks))
}

func TestUnterminatedIfAtEndOfInputIsAnError(t *testing.T) {
	sources := token.NewSourceStack()
	sources.Push("t.c", token.NewLexer("t.c", []byte("#if 1\nx\n")))
	pp := New(sources, nil)
	_, err := pp.Tokenize()
	assert.Error(t, err)
}

func TestElseWithoutMatchingIfIsAnError(t *testing.T) {
	sources := token.NewSourceStack()
	sources.Push("t.c", token.NewLexer("t.c", []byte("#else\n")))
	pp := New(sources, nil)
	_, err := pp.Tokenize()
	assert.Error(t, err)
}

func TestUnrecognizedDirectiveIsAFatalError(t *testing.T) {
	sources := token.NewSourceStack()
	sources.Push("t.c", token.NewLexer("t.c", []byte("#bogus\nx\n")))
	pp := New(sources, nil)
	_, err := pp.Tokenize()
	assert.Error(t, err)
}
