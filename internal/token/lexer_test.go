package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	l := NewLexer("test.c", []byte(src))
	var toks []Token
	for {
		tok, ok := l.Next()
		if !ok {
			return toks
		}
		toks = append(toks, tok)
	}
}

func TestLexerScansIdentifiersNumbersAndPunctuators(t *testing.T) {
	toks := lexAll(t, "int x = 42 + 1;")
	require.Len(t, toks, 7)
	assert.Equal(t, Ident, toks[0].Kind)
	assert.Equal(t, "int", toks[0].Spelling())
	assert.Equal(t, Ident, toks[1].Kind)
	assert.Equal(t, "x", toks[1].Spelling())
	assert.Equal(t, Punct, toks[2].Kind)
	assert.Equal(t, "=", toks[2].Spelling())
	assert.Equal(t, Number, toks[3].Kind)
	assert.Equal(t, "42", toks[3].Spelling())
	assert.Equal(t, Punct, toks[6].Kind)
	assert.Equal(t, ";", toks[6].Spelling())
}

func TestLexerMaximalMunchesMultiCharPunctuators(t *testing.T) {
	toks := lexAll(t, "a->b c<<=1 d...e")
	var spellings []string
	for _, tok := range toks {
		if tok.Kind == Punct {
			spellings = append(spellings, tok.Spelling())
		}
	}
	assert.Equal(t, []string{"->", "<<=", "..."}, spellings)
}

func TestLexerSkipsLineAndBlockComments(t *testing.T) {
	toks := lexAll(t, "a // trailing comment\nb /* block\nspanning */ c")
	require.Len(t, toks, 3)
	assert.Equal(t, "a", toks[0].Spelling())
	assert.Equal(t, "b", toks[1].Spelling())
	assert.Equal(t, "c", toks[2].Spelling())
	assert.True(t, toks[1].FirstOfLine, "b starts a fresh logical line after the // comment's newline")
}

func TestLexerRecognizesDirectiveStartOnlyAtLineStart(t *testing.T) {
	toks := lexAll(t, "#define X 1\na # b")
	require.Len(t, toks, 7)
	assert.Equal(t, DirectiveStart, toks[0].Kind)
	assert.Equal(t, Punct, toks[5].Kind, "a mid-line # is a plain punctuator, not a directive start")
	assert.Equal(t, "#", toks[5].Spelling())
}

func TestLexerScansStringAndCharLiteralsWithEscapes(t *testing.T) {
	toks := lexAll(t, `"a\"b" 'x' L"wide"`)
	require.Len(t, toks, 3)
	assert.Equal(t, String, toks[0].Kind)
	assert.Equal(t, `"a\"b"`, toks[0].Spelling())
	assert.Equal(t, CharConst, toks[1].Kind)
	assert.Equal(t, String, toks[2].Kind)
	assert.Equal(t, `L"wide"`, toks[2].Spelling())
}

func TestLexerScansPPNumbersIncludingFloatSuffixAndExponent(t *testing.T) {
	toks := lexAll(t, "3.14e+10f 0x1p-2 .5")
	require.Len(t, toks, 3)
	for _, tok := range toks {
		assert.Equal(t, Number, tok.Kind)
	}
	assert.Equal(t, "3.14e+10f", toks[0].Spelling())
	assert.Equal(t, "0x1p-2", toks[1].Spelling())
	assert.Equal(t, ".5", toks[2].Spelling())
}

func TestLexerTracksPrecededByWhitespace(t *testing.T) {
	toks := lexAll(t, "a+ b")
	require.Len(t, toks, 3)
	assert.False(t, toks[1].PrecededByWhitespace, "the '+' directly follows 'a'")
	assert.True(t, toks[2].PrecededByWhitespace, "'b' is preceded by a space")
}

func TestStringViewInternReturnsSharedAllocationForEqualContent(t *testing.T) {
	a := NewStringView([]byte("hello"))
	b := NewStringView([]byte("hello"))
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Intern(), b.Intern())
}

func TestTokenIsAndIsIdentMatchExactSpelling(t *testing.T) {
	toks := lexAll(t, "foo ==")
	require.Len(t, toks, 2)
	assert.True(t, toks[0].IsIdent("foo"))
	assert.False(t, toks[0].IsIdent("bar"))
	assert.True(t, toks[1].Is("=="))
	assert.False(t, toks[0].Is("=="))
}
