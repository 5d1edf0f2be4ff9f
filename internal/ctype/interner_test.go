package ctype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimpleInterning(t *testing.T) {
	in := NewInterner()

	a := in.Simple(Int)
	b := in.Simple(Int)
	assert.Equal(t, a, b, "two requests for the same simple type must return the same TypeID")

	c := in.Simple(Long)
	assert.NotEqual(t, a, c)
}

func TestPointerAndArrayInterning(t *testing.T) {
	in := NewInterner()
	intTy := in.Simple(Int)

	p1 := in.Pointer(intTy)
	p2 := in.Pointer(intTy)
	assert.Equal(t, p1, p2, "pointer-to-int must hash-cons to one TypeID")

	arr1 := in.Array(intTy, 4)
	arr2 := in.Array(intTy, 4)
	assert.Equal(t, arr1, arr2)

	arr3 := in.Array(intTy, 8)
	assert.NotEqual(t, arr1, arr3, "arrays of different length are different types")

	assert.NotEqual(t, p1, arr1, "a pointer and an array of the same element are distinct types")
}

func TestConstQualification(t *testing.T) {
	in := NewInterner()
	intTy := in.Simple(Int)

	constInt := in.Const(intTy)
	assert.NotEqual(t, intTy, constInt)
	assert.True(t, in.Lookup(constInt).IsConst)
	assert.False(t, in.Lookup(intTy).IsConst)

	again := in.Const(intTy)
	assert.Equal(t, constInt, again, "requesting const-int twice must hash-cons")
}

func TestStructIdentityIsPerDefinition(t *testing.T) {
	in := NewInterner()

	sd1 := NewStructData("point", false)
	sd2 := NewStructData("point", false)

	t1 := in.Struct(sd1)
	t2 := in.Struct(sd2)
	assert.NotEqual(t, t1, t2, "two separate struct definitions are distinct types even with identical names")

	t1Again := in.Struct(sd1)
	assert.Equal(t, t1, t1Again, "the same *StructData interns to the same TypeID every time")
}

func TestFunctionTypeInterning(t *testing.T) {
	in := NewInterner()
	intTy := in.Simple(Int)
	voidTy := in.Simple(Void)

	f1 := in.Function(intTy, []TypeID{intTy, intTy}, false)
	f2 := in.Function(intTy, []TypeID{intTy, intTy}, false)
	assert.Equal(t, f1, f2)

	variadic := in.Function(intTy, []TypeID{intTy}, true)
	assert.NotEqual(t, f1, variadic)

	different := in.Function(voidTy, []TypeID{intTy, intTy}, false)
	assert.NotEqual(t, f1, different, "a different return type is a different function type")
}

func TestVLAIsNeverDeduplicated(t *testing.T) {
	in := NewInterner()
	intTy := in.Simple(Int)

	v1 := in.VLA(intTy, nil)
	v2 := in.VLA(intTy, nil)
	assert.NotEqual(t, v1, v2, "variably modified types are never hash-consed, even with identical shape")
}
