package objfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRodataRegistryDedupesIdenticalContent(t *testing.T) {
	r := NewDefaultRodataRegistry()

	l1 := r.Intern([]byte("hello\x00"))
	l2 := r.Intern([]byte("hello\x00"))
	assert.Equal(t, l1, l2, "interning the same bytes twice must return the same label")

	l3 := r.Intern([]byte("world\x00"))
	assert.NotEqual(t, l1, l3)
}

func TestRodataRegistryHashCollisionFallsBackToByteCompare(t *testing.T) {
	r := NewDefaultRodataRegistry()

	a := r.Intern([]byte{1, 2, 3})
	b := r.Intern([]byte{4, 5, 6})
	c := r.Intern([]byte{1, 2, 3})
	assert.Equal(t, a, c)
	assert.NotEqual(t, a, b)
}

func TestRodataLabelsAreStable(t *testing.T) {
	r := NewDefaultRodataRegistry()
	assert.Equal(t, ".LC0", r.Intern([]byte("a")))
	assert.Equal(t, ".LC1", r.Intern([]byte("b")))
	assert.Equal(t, ".LC0", r.Intern([]byte("a")))
}
