package objfile

import "github.com/cespare/xxhash/v2"

// RodataRegistry is the read-only-data backing-store contract: something
// that deduplicates
// constant byte blobs (string literals, floating-point constants, jump
// tables) and hands back a stable label to relocate against. Grounded on
// original_source/src/codegen/rodata.c's content-addressed table.
type RodataRegistry interface {
	// Intern registers data (if not already present) and returns the
	// symbol label identifying it in the .rodata section.
	Intern(data []byte) string
}

// DefaultRodataRegistry is the xxhash-keyed implementation this repository
// ships: content-addressed, so two identical constants anywhere in a
// translation unit share one .rodata slot.
type DefaultRodataRegistry struct {
	byHash map[uint64][]rodataEntry
	next   int
}

type rodataEntry struct {
	data  []byte
	label string
}

// NewDefaultRodataRegistry returns an empty registry.
func NewDefaultRodataRegistry() *DefaultRodataRegistry {
	return &DefaultRodataRegistry{byHash: make(map[uint64][]rodataEntry)}
}

func (r *DefaultRodataRegistry) Intern(data []byte) string {
	h := xxhash.Sum64(data)
	for _, e := range r.byHash[h] {
		if string(e.data) == string(data) {
			return e.label
		}
	}
	label := rodataLabel(r.next)
	r.next++
	r.byHash[h] = append(r.byHash[h], rodataEntry{data: append([]byte{}, data...), label: label})
	return label
}

func rodataLabel(n int) string {
	const digits = "0123456789abcdef"
	if n == 0 {
		return ".LC0"
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{digits[n%16]}, buf...)
		n /= 16
	}
	return ".LC" + string(buf)
}
