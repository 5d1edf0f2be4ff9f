package ctype

// Classification predicates, grounded near-verbatim on types.c's
// type_is_integer/type_is_floating/type_is_arithmetic/type_is_real/
// type_is_pointer/type_is_simple.

// IsSimple reports whether t is a KindSimple type.
func (in *Interner) IsSimple(id TypeID) bool {
	return in.Lookup(id).Kind == KindSimple
}

// IsInteger reports whether t denotes one of the standard or extended
// integer types (including _Bool, per 6.2.5p17).
func (in *Interner) IsInteger(id TypeID) bool {
	t := in.Lookup(id)
	if t.Kind != KindSimple {
		return false
	}
	switch t.Simple {
	case Bool, Char, SignedChar, UnsignedChar,
		Short, UnsignedShort, Int, UnsignedInt,
		Long, UnsignedLong, LongLong, UnsignedLongLong:
		return true
	}
	return false
}

// IsFloating reports whether t is a real or complex floating type.
func (in *Interner) IsFloating(id TypeID) bool {
	t := in.Lookup(id)
	if t.Kind != KindSimple {
		return false
	}
	switch t.Simple {
	case Float, Double, LongDouble, FloatComplex, DoubleComplex, LongDoubleComplex:
		return true
	}
	return false
}

// IsArithmetic reports whether t is an integer or floating type
// (6.2.5p18).
func (in *Interner) IsArithmetic(id TypeID) bool {
	return in.IsInteger(id) || in.IsFloating(id)
}

// IsReal reports whether t is arithmetic and not a complex type
// (6.2.5p17).
func (in *Interner) IsReal(id TypeID) bool {
	t := in.Lookup(id)
	if t.Kind != KindSimple {
		return false
	}
	switch t.Simple {
	case FloatComplex, DoubleComplex, LongDoubleComplex:
		return false
	}
	return in.IsArithmetic(id)
}

// IsPointer reports whether t is a pointer type.
func (in *Interner) IsPointer(id TypeID) bool {
	return in.Lookup(id).Kind == KindPointer
}

// IsAggregate reports whether t is a struct, union, or array type
// (6.2.5p21).
func (in *Interner) IsAggregate(id TypeID) bool {
	switch in.Lookup(id).Kind {
	case KindStruct, KindArray, KindIncompleteArray, KindVariableLengthArray:
		return true
	}
	return false
}

// IsFunction reports whether t is a function type.
func (in *Interner) IsFunction(id TypeID) bool {
	return in.Lookup(id).Kind == KindFunction
}

// IsScalar reports whether t is arithmetic or a pointer (6.2.5p21).
func (in *Interner) IsScalar(id TypeID) bool {
	return in.IsArithmetic(id) || in.IsPointer(id)
}
