package preproc

import "github.com/bits-and-blooms/bitset"

// names interns macro names to small integer ids so hide sets can be
// represented as bitset.BitSet instead of a set of strings, matching the
// density swiss/bitset already buy the rest of this package.
type names struct {
	ids  map[string]uint
	next uint
}

func newNames() *names {
	return &names{ids: make(map[string]uint)}
}

func (n *names) id(name string) uint {
	if id, ok := n.ids[name]; ok {
		return id
	}
	id := n.next
	n.ids[name] = id
	n.next++
	return id
}

// HideSet is the set of macro names that must not be re-expanded within a
// given token, preventing infinite recursion during macro expansion
// (the classic "painted blue" / hide-set algorithm). Grounded on
// directives.c's expand_token_list, which threads an equivalent
// already-expanding set through recursive macro expansion.
type HideSet struct {
	bits *bitset.BitSet
}

// emptyHideSet is shared by every token that has not yet had a macro name
// added to its hide set; copy-on-write below keeps it immutable.
var emptyHideSet = HideSet{bits: bitset.New(0)}

// Contains reports whether name is in the hide set.
func (h HideSet) Contains(n *names, name string) bool {
	if h.bits == nil {
		return false
	}
	return h.bits.Test(n.id(name))
}

// Add returns a new HideSet equal to h with name added, leaving h itself
// unmodified (hide sets are threaded functionally through expansion so
// sibling tokens never see each other's additions).
func (h HideSet) Add(n *names, name string) HideSet {
	var next *bitset.BitSet
	if h.bits == nil {
		next = bitset.New(n.next + 1)
	} else {
		next = h.bits.Clone()
	}
	next.Set(n.id(name))
	return HideSet{bits: next}
}

// Union returns the union of two hide sets (used when a function-like
// macro's expansion inherits the hide sets of both the macro name token
// and its closing parenthesis).
func (h HideSet) Union(o HideSet) HideSet {
	switch {
	case h.bits == nil:
		return o
	case o.bits == nil:
		return h
	}
	return HideSet{bits: h.bits.Union(o.bits)}
}
