package ast

import "j5.nz/cc64/internal/ctype"

// InitItem is one element of a parsed (not yet flattened) initializer: an
// optional designator chain followed by either a scalar expression or a
// nested brace-enclosed list, including designator chains (.field,
// [index]).
type InitItem struct {
	Designators []Designator
	Scalar      *Expr
	String      []byte // a string literal initializing a char array
	Nested      []InitItem
}

// Designator is one `.field` or `[index]` link of a designator chain.
type Designator struct {
	Field string // "" if this is an index designator
	Index int64
}

// ExpandInitializer flattens a parsed initializer list against ty into
// (byte_offset, payload) pairs, resolving designators against the type
// structure and applying the "may
// reset the current offset" rule: a designator explicitly repositions the
// current member/element cursor, and subsequent undesignated items
// continue from there. Only the first link of each item's designator
// chain is applied; further links (`.a.b`, `[1].x`) are ignored.
func ExpandInitializer(in *ctype.Interner, ty ctype.TypeID, items []InitItem, base int64, sizeOf func(ctype.TypeID) int64) []InitEntry {
	t := in.Lookup(ty)
	switch t.Kind {
	case ctype.KindArray, ctype.KindIncompleteArray, ctype.KindVariableLengthArray:
		return expandArrayInit(in, t, items, base, sizeOf)
	case ctype.KindStruct:
		return expandStructInit(in, t, items, base, sizeOf)
	default:
		if len(items) == 0 {
			return nil
		}
		first := items[0]
		if first.Scalar != nil {
			return []InitEntry{{ByteOffset: base, Expr: first.Scalar}}
		}
		if first.String != nil {
			return []InitEntry{{ByteOffset: base, StringData: first.String}}
		}
		return nil
	}
}

func expandArrayInit(in *ctype.Interner, t *ctype.Type, items []InitItem, base int64, sizeOf func(ctype.TypeID) int64) []InitEntry {
	elemSize := sizeOf(t.Elem)
	var out []InitEntry
	var index int64
	for _, item := range items {
		if len(item.Designators) > 0 && item.Designators[0].Field == "" {
			index = item.Designators[0].Index
		}
		offset := base + index*elemSize
		if item.String != nil {
			out = append(out, InitEntry{ByteOffset: offset, StringData: item.String})
		} else if item.Nested != nil {
			out = append(out, ExpandInitializer(in, t.Elem, item.Nested, offset, sizeOf)...)
		} else if item.Scalar != nil {
			out = append(out, InitEntry{ByteOffset: offset, Expr: item.Scalar})
		}
		index++
	}
	return out
}

func expandStructInit(in *ctype.Interner, t *ctype.Type, items []InitItem, base int64, sizeOf func(ctype.TypeID) int64) []InitEntry {
	sd := t.Struct
	var out []InitEntry
	fieldIdx := 0
	for _, item := range items {
		if len(item.Designators) > 0 && item.Designators[0].Field != "" {
			fieldIdx = sd.MemberIndex(item.Designators[0].Field)
			if fieldIdx < 0 {
				fieldIdx = 0
			}
		}
		if fieldIdx >= len(sd.Fields) {
			break
		}
		field := sd.Fields[fieldIdx]
		offset := base + field.Offset

		switch {
		case field.Bitfield >= 0:
			if item.Scalar != nil {
				out = append(out, InitEntry{
					ByteOffset: offset, Expr: item.Scalar,
					IsBitfield: true, BitOffset: field.BitOffset, BitWidth: field.Bitfield,
				})
			}
		case item.String != nil:
			out = append(out, InitEntry{ByteOffset: offset, StringData: item.String})
		case item.Nested != nil:
			out = append(out, ExpandInitializer(in, field.Type, item.Nested, offset, sizeOf)...)
		case item.Scalar != nil:
			out = append(out, InitEntry{ByteOffset: offset, Expr: item.Scalar})
		}

		if sd.IsUnion {
			// A union initializer list (absent designators) initializes
			// only its first member; with a designator, only the named
			// one. Either way, one item is all an initializer list for a
			// union ever supplies.
			break
		}
		fieldIdx++
	}
	return out
}
