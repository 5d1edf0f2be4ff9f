package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeLookupFallsThroughToParent(t *testing.T) {
	outer := newScope(nil)
	outer.define("x", binding{varIndex: 1})
	inner := newScope(outer)

	b, ok := inner.lookup("x")
	assert.True(t, ok)
	assert.Equal(t, 1, b.varIndex)
}

func TestScopeInnerDefinitionShadowsOuter(t *testing.T) {
	outer := newScope(nil)
	outer.define("x", binding{varIndex: 1})
	inner := newScope(outer)
	inner.define("x", binding{varIndex: 2})

	b, ok := inner.lookup("x")
	assert.True(t, ok)
	assert.Equal(t, 2, b.varIndex, "the innermost binding must win")

	outerB, ok := outer.lookup("x")
	assert.True(t, ok)
	assert.Equal(t, 1, outerB.varIndex, "the outer scope's own binding is untouched by shadowing")
}

func TestScopeLookupMissingNameFails(t *testing.T) {
	s := newScope(nil)
	_, ok := s.lookup("nope")
	assert.False(t, ok)
}

func TestScopeStructTagsAreIndependentOfVariableNamespace(t *testing.T) {
	s := newScope(nil)
	s.define("point", binding{varIndex: 0})
	s.defineStruct("point", nil)

	_, varOK := s.lookup("point")
	_, tagOK := s.lookupStruct("point")
	assert.True(t, varOK)
	assert.True(t, tagOK, "a struct tag and a variable may share a spelling in C's separate tag namespace")
}

func TestScopeTypedefLookupFallsThroughParentChain(t *testing.T) {
	outer := newScope(nil)
	outer.defineTypedef("myint", 7)
	inner := newScope(newScope(outer))

	ty, ok := inner.lookupTypedef("myint")
	assert.True(t, ok)
	assert.Equal(t, uint32(7), uint32(ty))
}
