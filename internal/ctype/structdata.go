package ctype

import "github.com/google/uuid"

// Field is one member of a struct or union, grounded on types.h's
// struct_data.fields entry: name, type, optional bitfield width, and byte
// + bit offset within the aggregate.
type Field struct {
	Name     string
	Type     TypeID
	Bitfield int // -1 if this field is not a bitfield
	Offset   int64
	BitOffset int
}

// StructData is the identity record for one struct or union definition.
// Per DESIGN.md's resolution of the "register_struct/register_enum
// unreachable code after unconditional leak" note: every call to
// NewStructData returns a fresh identity keyed by a UUID, matching the
// original's actual (if accidental) behavior of never pooling identical
// struct shapes.
type StructData struct {
	ID         uuid.UUID
	Name       string
	IsUnion    bool
	IsComplete bool
	IsPacked   bool
	Fields     []Field
	Alignment  int64
	Size       int64
	Flexible   bool // trailing flexible array member present
}

// NewStructData allocates a fresh, initially incomplete struct/union
// identity record.
func NewStructData(name string, isUnion bool) *StructData {
	return &StructData{ID: uuid.New(), Name: name, IsUnion: isUnion}
}

// MemberIndex returns the index of the named field, or -1 if no such
// member exists. Grounded on types.c's type_member_idx.
func (s *StructData) MemberIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// EnumData is the identity record for one enum definition: its set of
// enumerator names (values are carried by the parser's constant-folding
// layer, not here, since ctype does not depend on internal/ast).
type EnumData struct {
	ID         uuid.UUID
	Name       string
	IsComplete bool
	Enumerators []string
}

// NewEnumData allocates a fresh, initially incomplete enum identity
// record, same identity discipline as NewStructData.
func NewEnumData(name string) *EnumData {
	return &EnumData{ID: uuid.New(), Name: name}
}

// MergeAnonymous returns a new slice in which the fields of any anonymous
// (unnamed) struct/union members are spliced in place of that member
// (recursively), each spliced field's Offset adjusted by the anonymous
// member's own offset. The input slice is not modified. Grounded on
// types.c's merge_anonymous.
func MergeAnonymous(fields []Field, lookup func(TypeID) *Type) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if f.Name != "" {
			out = append(out, f)
			continue
		}
		t := lookup(f.Type)
		if t == nil || t.Kind != KindStruct {
			out = append(out, f)
			continue
		}
		nested := MergeAnonymous(t.Struct.Fields, lookup)
		for _, nf := range nested {
			out = append(out, Field{
				Name:      nf.Name,
				Type:      nf.Type,
				Bitfield:  nf.Bitfield,
				Offset:    f.Offset + nf.Offset,
				BitOffset: nf.BitOffset,
			})
		}
	}
	return out
}
