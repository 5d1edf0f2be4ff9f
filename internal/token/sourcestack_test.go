package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceStackPopsExhaustedFramesAndFallsThrough(t *testing.T) {
	s := NewSourceStack()
	s.Push("outer.c", NewLexer("outer.c", []byte("a")))
	s.Push("inner.h", NewLexer("inner.h", []byte("b")))

	assert.Equal(t, 2, s.Depth())

	tok, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, "b", tok.Spelling(), "the innermost (included) source is consumed first")

	tok, ok = s.Next()
	require.True(t, ok)
	assert.Equal(t, "a", tok.Spelling(), "inner.h is exhausted and popped, falling back to outer.c")
	assert.Equal(t, 1, s.Depth())

	_, ok = s.Next()
	assert.False(t, ok)
	assert.True(t, s.Empty())
}

func TestSourceStackDisablePathIsIdempotentAndPathSpecific(t *testing.T) {
	s := NewSourceStack()
	s.DisablePath("foo.h")
	s.DisablePath("foo.h")
	assert.True(t, s.IsDisabled("foo.h"))
	assert.False(t, s.IsDisabled("bar.h"))
}

func TestSourceStackSetLineAdjustsReportedLineAndFilename(t *testing.T) {
	s := NewSourceStack()
	s.Push("a.c", NewLexer("a.c", []byte("x\ny\nz")))

	s.SetLine(100, "injected.h")
	assert.Equal(t, "injected.h", s.CurrentPath())

	tok, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, "x", tok.Spelling())
	assert.Equal(t, 100, tok.Pos.Line)
	assert.Equal(t, "injected.h", tok.Pos.Path)

	tok, ok = s.Next()
	require.True(t, ok)
	assert.Equal(t, "y", tok.Spelling())
	assert.Equal(t, 101, tok.Pos.Line, "line delta persists across subsequent tokens from the same frame")
}

func TestSourceStackSetLineOnEmptyStackIsANoOp(t *testing.T) {
	s := NewSourceStack()
	assert.NotPanics(t, func() {
		s.SetLine(5, "x.c")
	})
}
