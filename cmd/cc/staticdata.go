package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"j5.nz/cc64/internal/ast"
	"j5.nz/cc64/internal/ctype"
	"j5.nz/cc64/internal/naivex64"
	"j5.nz/cc64/internal/objfile"
	"j5.nz/cc64/internal/parse"
)

// flushStaticData writes every string literal, hoisted compound literal,
// and global variable the parser collected into the object emitter's
// .rodata/.data/.bss sections. internal/parse has no dependency on
// internal/objfile, keeping Parser/CodeGen concerns cleanly separated, so
// this glue is the translation-unit driver's job, not the parser's.
func flushStaticData(asm *objfile.Assembler, types *ctype.Interner, p *parse.Parser) error {
	for _, lit := range p.StringLiterals() {
		asm.SetSection(".rodata")
		off := asm.Write(lit.Data)
		asm.SymbolSet(lit.Label, off, int64(len(lit.Data)), objfile.BindLocal, objfile.TypeObject)
	}

	for _, cl := range p.CompoundLiterals() {
		if err := writeInitializedData(asm, types, cl.Label, cl.Init, cl.Size, false); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(p.Globals))
	for name := range p.Globals {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		g := p.Globals[name]
		if g.IsExtern {
			asm.DeclareExtern(name)
			continue
		}
		size := naivex64.SizeOf(types, g.Type)
		if g.Init == nil {
			asm.SetSection(".bss")
			off := asm.Reserve(size)
			bind := objfile.BindGlobal
			if g.IsStatic {
				bind = objfile.BindLocal
			}
			asm.SymbolSet(name, off, size, bind, objfile.TypeObject)
			continue
		}
		if err := writeInitializedData(asm, types, name, g.Init, size, !g.IsStatic); err != nil {
			return err
		}
	}
	return nil
}

type pendingDataReloc struct {
	offset int64
	symbol string
	addend int64
}

// writeInitializedData materializes a flattened initializer into one
// contiguous byte buffer (constant-folding every scalar entry via
// ast.Evaluate), then writes it to .data in a single Assembler.Write call
// and records one Rela64 relocation per address-of-symbol entry —
// Section exposes no in-place patch, so the whole buffer is built before
// ever touching the assembler, mirroring naivex64's own
// local-buffer-then-single-Write discipline for the same reason.
func writeInitializedData(asm *objfile.Assembler, types *ctype.Interner, label string, entries []ast.InitEntry, size int64, global bool) error {
	buf := make([]byte, size)
	var relocs []pendingDataReloc

	for _, e := range entries {
		if e.StringData != nil {
			copy(buf[e.ByteOffset:], e.StringData)
			continue
		}
		if e.Expr == nil {
			continue
		}
		c, ok, err := ast.Evaluate(types, e.Expr)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("static initializer for %q: not a constant expression", label)
		}

		if e.IsBitfield {
			setBitfield(buf, e.ByteOffset, e.BitOffset, e.BitWidth, c.Integer)
			continue
		}

		switch c.Kind {
		case ast.ConstInteger:
			putIntLE(buf[e.ByteOffset:], c.Integer, naivex64.SizeOf(types, c.Type))
		case ast.ConstFloating:
			if naivex64.SizeOf(types, c.Type) == 4 {
				binary.LittleEndian.PutUint32(buf[e.ByteOffset:], math.Float32bits(float32(c.Float)))
			} else {
				binary.LittleEndian.PutUint64(buf[e.ByteOffset:], math.Float64bits(c.Float))
			}
		case ast.ConstLabelPointer:
			relocs = append(relocs, pendingDataReloc{offset: e.ByteOffset, symbol: c.Label, addend: c.Offset})
		case ast.ConstLabel:
			relocs = append(relocs, pendingDataReloc{offset: e.ByteOffset, symbol: c.Label})
		}
	}

	asm.SetSection(".data")
	off := asm.Write(buf)
	for _, r := range relocs {
		asm.SymbolRelocate(off+r.offset, r.symbol, objfile.Rela64, r.addend)
	}
	bind := objfile.BindLocal
	if global {
		bind = objfile.BindGlobal
	}
	asm.SymbolSet(label, off, size, bind, objfile.TypeObject)
	return nil
}

func putIntLE(dst []byte, v int64, size int64) {
	switch size {
	case 1:
		dst[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(dst, uint32(v))
	default:
		binary.LittleEndian.PutUint64(dst, uint64(v))
	}
}

// setBitfield writes the low bitWidth bits of v into buf starting at
// bitOffset within the byte at byteOffset, bit by bit — simple and
// unambiguous rather than reading/masking a machine word, since a
// bitfield can straddle a byte boundary the surrounding struct layout
// already accounted for.
func setBitfield(buf []byte, byteOffset int64, bitOffset, bitWidth int, v int64) {
	for i := 0; i < bitWidth; i++ {
		pos := bitOffset + i
		idx := byteOffset + int64(pos/8)
		bit := uint(pos % 8)
		if (v>>uint(i))&1 != 0 {
			buf[idx] |= 1 << bit
		} else {
			buf[idx] &^= 1 << bit
		}
	}
}
