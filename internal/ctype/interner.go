package ctype

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Interner owns the arena of hash-consed Types: structural equality always
// resolves to the same TypeID. Grounded on types.c's type_create, which
// walks a 1024-bucket chained hashtable and copies a freshly built node in
// on a miss; here the chaining is done with a Go map from hash to the
// bucket's candidate ids, and xxhash.Sum64 replaces the original's
// explicitly weak hand-rolled hash32/hash_str (its own comment: "This is
// not a good hash function").
type Interner struct {
	arena   []Type
	buckets map[uint64][]TypeID
}

// NewInterner returns an empty, ready-to-use interner.
func NewInterner() *Interner {
	return &Interner{buckets: make(map[uint64][]TypeID)}
}

// Lookup returns the Type a TypeID names.
func (in *Interner) Lookup(id TypeID) *Type {
	return &in.arena[id]
}

// intern finds or inserts t, returning its canonical TypeID.
func (in *Interner) intern(t Type) TypeID {
	h := hashType(t)
	for _, cand := range in.buckets[h] {
		if typesEqual(&in.arena[cand], &t) {
			return cand
		}
	}
	id := TypeID(len(in.arena))
	in.arena = append(in.arena, t)
	in.buckets[h] = append(in.buckets[h], id)
	return id
}

// Simple returns the canonical TypeID for a basic arithmetic/void type.
func (in *Interner) Simple(st SimpleType) TypeID {
	return in.intern(Type{Kind: KindSimple, Simple: st})
}

// Pointer returns the canonical TypeID for a pointer to elem.
func (in *Interner) Pointer(elem TypeID) TypeID {
	return in.intern(Type{Kind: KindPointer, Elem: elem})
}

// Array returns the canonical TypeID for a fixed-length array of elem.
func (in *Interner) Array(elem TypeID, n int64) TypeID {
	return in.intern(Type{Kind: KindArray, Elem: elem, ArrayLen: n})
}

// IncompleteArray returns the canonical TypeID for `elem[]`.
func (in *Interner) IncompleteArray(elem TypeID) TypeID {
	return in.intern(Type{Kind: KindIncompleteArray, Elem: elem})
}

// VLA returns the TypeID for a variable-length array of elem whose runtime
// length is len. Unlike the other constructors, variably modified types
// are never deduplicated across distinct length expression instances
// (two textually identical VLA declarations with distinct length
// expressions are distinct types), matching the original's treatment of
// TY_VARIABLE_LENGTH_ARRAY as never hash-consed.
func (in *Interner) VLA(elem TypeID, length VLAExpr) TypeID {
	id := TypeID(len(in.arena))
	in.arena = append(in.arena, Type{Kind: KindVariableLengthArray, Elem: elem, VLALen: length})
	return id
}

// Struct returns the canonical TypeID wrapping sd. Struct/union identity
// is by *StructData pointer (two distinct definitions, even with
// identical shape, are distinct types — matching register_struct's actual
// fresh-identity-per-call behavior, see DESIGN.md), so this is a pure
// wrap rather than a structural intern.
func (in *Interner) Struct(sd *StructData) TypeID {
	return in.intern(Type{Kind: KindStruct, Struct: sd})
}

// Enum returns the canonical TypeID wrapping ed, same identity discipline
// as Struct.
func (in *Interner) Enum(ed *EnumData) TypeID {
	return in.intern(Type{Kind: KindEnum, Enum: ed})
}

// Function returns the canonical TypeID for a function returning ret,
// taking params, variadic or not.
func (in *Interner) Function(ret TypeID, params []TypeID, variadic bool) TypeID {
	return in.intern(Type{Kind: KindFunction, Return: ret, Params: append([]TypeID{}, params...), IsVariadic: variadic})
}

// Const returns the const-qualified version of t.
func (in *Interner) Const(t TypeID) TypeID {
	base := *in.Lookup(t)
	base.IsConst = true
	return in.intern(base)
}

func typesEqual(a, b *Type) bool {
	if a.Kind != b.Kind || a.IsConst != b.IsConst {
		return false
	}
	switch a.Kind {
	case KindSimple:
		return a.Simple == b.Simple
	case KindPointer:
		return a.Elem == b.Elem
	case KindArray:
		return a.Elem == b.Elem && a.ArrayLen == b.ArrayLen
	case KindIncompleteArray:
		return a.Elem == b.Elem
	case KindVariableLengthArray:
		return false // never deduplicated; see VLA doc comment
	case KindStruct:
		return a.Struct == b.Struct
	case KindEnum:
		return a.Enum == b.Enum
	case KindFunction:
		if a.Return != b.Return || a.IsVariadic != b.IsVariadic || len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if a.Params[i] != b.Params[i] {
				return false
			}
		}
		return true
	}
	return false
}

func hashType(t Type) uint64 {
	var buf [32]byte
	buf[0] = byte(t.Kind)
	if t.IsConst {
		buf[1] = 1
	}
	switch t.Kind {
	case KindSimple:
		buf[2] = byte(t.Simple)
	case KindPointer, KindIncompleteArray:
		binary.LittleEndian.PutUint32(buf[4:], uint32(t.Elem))
	case KindArray:
		binary.LittleEndian.PutUint32(buf[4:], uint32(t.Elem))
		binary.LittleEndian.PutUint64(buf[8:], uint64(t.ArrayLen))
	case KindStruct:
		h := xxhash.Sum64(t.Struct.ID[:])
		return h ^ uint64(t.Kind)<<56
	case KindEnum:
		h := xxhash.Sum64(t.Enum.ID[:])
		return h ^ uint64(t.Kind)<<56
	case KindFunction:
		binary.LittleEndian.PutUint32(buf[4:], uint32(t.Return))
		if t.IsVariadic {
			buf[8] = 1
		}
		h := xxhash.Sum64(buf[:])
		for _, p := range t.Params {
			var pb [4]byte
			binary.LittleEndian.PutUint32(pb[:], uint32(p))
			h ^= xxhash.Sum64(pb[:])
		}
		return h
	}
	return xxhash.Sum64(buf[:])
}
