package objfile

import (
	"encoding/binary"
)

// ELF64 ET_REL constants this writer needs, grounded on elf.c's literal
// header field values (EI_CLASS=2, EI_DATA=1, e_type=1, e_machine=0x3e,
// e_ehsize=64, e_shentsize=64).
const (
	ehdrSize     = 64
	shdrSize     = 64
	symSize      = 24
	relaSize     = 24
	elfMachineX64 = 0x3e
	etRel         = 1

	// shOff is the fixed file offset of the section header table,
	// matching elf.c's SH_OFF constant; the 64 bytes between the end of
	// the ELF header and this offset are left as padding, exactly as
	// the original lays it out.
	shOff = 128
)

const sectionFlagInfoLink = 0x40 // SHF_INFO_LINK

// builtSection is one fully laid-out output section, ready to be written
// into the final byte stream.
type builtSection struct {
	name    string
	typ     SectionType
	flags   SectionFlags
	offset  int64
	size    int64
	link    uint32
	info    uint32
	align   int64
	entsize int64
	data    []byte // empty for NOBITS and for the null section
}

// Finish serializes the assembler's accumulated sections, symbols, and
// relocations into a complete ELF64 ET_REL object file. Grounded closely
// on elf.c's elf_finish: null section, then each logical section, then
// .symtab, then one .rela<name> per section with relocations, then
// .strtab, then .shstrtab.
func (a *Assembler) Finish() ([]byte, error) {
	locals, globals := a.partitionSymbols()
	ordered := append(append([]*Symbol{}, locals...), globals...)
	for i, sym := range ordered {
		sym.index = i
	}
	nLocal := len(locals)

	strtab := newStringTable()
	symtabBytes := make([]byte, 0, len(ordered)*symSize)
	for _, sym := range ordered {
		nameOff := uint32(0)
		if sym.Name != "" {
			nameOff = strtab.add(sym.Name)
		}
		shndx := uint16(0)
		if sym.Section >= 0 {
			shndx = uint16(sym.Section + 1) // +1 for the null section at index 0
		}
		info := byte(sym.Bind)<<4 | byte(sym.Type)
		var entry [symSize]byte
		binary.LittleEndian.PutUint32(entry[0:], nameOff)
		entry[4] = info
		entry[5] = 0
		binary.LittleEndian.PutUint16(entry[6:], shndx)
		binary.LittleEndian.PutUint64(entry[8:], uint64(sym.Value))
		binary.LittleEndian.PutUint64(entry[16:], uint64(sym.Size))
		symtabBytes = append(symtabBytes, entry[:]...)
	}

	var built []builtSection
	built = append(built, builtSection{name: ""}) // SHT_NULL

	for _, sec := range a.sections {
		bs := builtSection{
			name:  sec.Name,
			typ:   sec.Type,
			flags: sec.flagsForOutput(),
			size:  int64(len(sec.data)),
			align: 1,
		}
		if sec.Type != TypeNobits {
			bs.data = sec.data
		}
		built = append(built, bs)
	}

	symtabSecIdx := len(built)
	built = append(built, builtSection{
		name:    ".symtab",
		typ:     TypeSymtab,
		data:    symtabBytes,
		size:    int64(len(symtabBytes)),
		entsize: symSize,
		info:    uint32(nLocal),
		align:   8,
	})

	for i, sec := range a.sections {
		if len(sec.relas) == 0 {
			continue
		}
		relaBytes := make([]byte, 0, len(sec.relas)*relaSize)
		for _, r := range sec.relas {
			symIdx, err := a.symbolRef(r.Symbol)
			if err != nil {
				return nil, err
			}
			var entry [relaSize]byte
			binary.LittleEndian.PutUint64(entry[0:], uint64(r.Offset))
			info := (uint64(symIdx) << 32) | uint64(uint32(r.Type))
			binary.LittleEndian.PutUint64(entry[8:], info)
			binary.LittleEndian.PutUint64(entry[16:], uint64(r.Addend))
			relaBytes = append(relaBytes, entry[:]...)
		}
		built = append(built, builtSection{
			name:    ".rela" + sec.Name,
			typ:     TypeRela,
			flags:   sectionFlagInfoLink,
			data:    relaBytes,
			size:    int64(len(relaBytes)),
			entsize: relaSize,
			link:    uint32(symtabSecIdx),
			info:    uint32(i + 1), // +1 for the null section
			align:   8,
		})
	}

	strtabSecIdx := len(built)
	built = append(built, builtSection{
		name:  ".strtab",
		typ:   TypeStrtab,
		data:  strtab.bytes(),
		size:  int64(len(strtab.bytes())),
		align: 1,
	})
	built[symtabSecIdx].link = uint32(strtabSecIdx)

	shstrtab := newStringTable()
	nameOffsets := make([]uint32, len(built))
	for i, bs := range built {
		if bs.name == "" {
			continue
		}
		nameOffsets[i] = shstrtab.add(bs.name)
	}
	shstrtabSecIdx := len(built)
	built = append(built, builtSection{
		name:  ".shstrtab",
		typ:   TypeStrtab,
		data:  shstrtab.bytes(),
		size:  int64(len(shstrtab.bytes())),
		align: 1,
	})
	nameOffsets = append(nameOffsets, shstrtab.add(".shstrtab"))

	// Lay out file offsets: section header table at shOff, then each
	// section's data packed immediately after, in the same order as the
	// `built` slice (mirrors allocate_sections).
	cursor := int64(shOff) + int64(len(built))*shdrSize
	for i := range built {
		if built[i].typ == TypeNull || built[i].typ == TypeNobits {
			built[i].offset = cursor
			continue
		}
		if built[i].align > 1 {
			cursor = roundUp(cursor, built[i].align)
		}
		built[i].offset = cursor
		cursor += int64(len(built[i].data))
	}

	out := make([]byte, cursor)

	writeEhdr(out, len(built), shstrtabSecIdx)

	for i, bs := range built {
		shOffEntry := shOff + i*shdrSize
		entry := out[shOffEntry : shOffEntry+shdrSize]
		binary.LittleEndian.PutUint32(entry[0:], nameOffsets[i])
		binary.LittleEndian.PutUint32(entry[4:], uint32(bs.typ))
		binary.LittleEndian.PutUint64(entry[8:], uint64(bs.flags))
		binary.LittleEndian.PutUint64(entry[16:], 0) // sh_addr
		binary.LittleEndian.PutUint64(entry[24:], uint64(bs.offset))
		binary.LittleEndian.PutUint64(entry[32:], uint64(bs.size))
		binary.LittleEndian.PutUint32(entry[40:], bs.link)
		binary.LittleEndian.PutUint32(entry[44:], bs.info)
		align := bs.align
		if align == 0 {
			align = 1
		}
		binary.LittleEndian.PutUint64(entry[48:], uint64(align))
		binary.LittleEndian.PutUint64(entry[56:], uint64(bs.entsize))

		if len(bs.data) > 0 {
			copy(out[bs.offset:], bs.data)
		}
	}

	return out, nil
}

func (s *Section) flagsForOutput() SectionFlags {
	return s.Flags
}

func writeEhdr(out []byte, nsections, shstrndx int) {
	out[0] = 0x7f
	out[1] = 'E'
	out[2] = 'L'
	out[3] = 'F'
	out[4] = 2 // EI_CLASS: ELFCLASS64
	out[5] = 1 // EI_DATA: ELFDATA2LSB
	out[6] = 1 // EI_VERSION
	// remaining e_ident bytes (7-15) stay zero.

	binary.LittleEndian.PutUint16(out[16:], etRel)
	binary.LittleEndian.PutUint16(out[18:], elfMachineX64)
	binary.LittleEndian.PutUint32(out[20:], 1) // e_version
	binary.LittleEndian.PutUint64(out[24:], 0) // e_entry: none for ET_REL
	binary.LittleEndian.PutUint64(out[32:], 0) // e_phoff: no program headers
	binary.LittleEndian.PutUint64(out[40:], shOff)
	binary.LittleEndian.PutUint32(out[48:], 0) // e_flags
	binary.LittleEndian.PutUint16(out[52:], ehdrSize)
	binary.LittleEndian.PutUint16(out[54:], 0) // e_phentsize
	binary.LittleEndian.PutUint16(out[56:], 0) // e_phnum
	binary.LittleEndian.PutUint16(out[58:], shdrSize)
	binary.LittleEndian.PutUint16(out[60:], uint16(nsections))
	binary.LittleEndian.PutUint16(out[62:], uint16(shstrndx))
}

func roundUp(v, align int64) int64 {
	if align <= 1 {
		return v
	}
	rem := v % align
	if rem == 0 {
		return v
	}
	return v + (align - rem)
}

// partitionSymbols splits the assembler's symbols (in creation order) into
// locals and globals, preserving relative order within each group; index 0
// (the null symbol) is always first among the locals. Mirrors
// symbol_table_write's "all locals, then all globals" layout.
func (a *Assembler) partitionSymbols() (locals, globals []*Symbol) {
	for _, sym := range a.symbols {
		if sym.Bind == BindLocal {
			locals = append(locals, sym)
		} else {
			globals = append(globals, sym)
		}
	}
	return locals, globals
}

// stringTable is a simple null-terminated-entries string table builder
// shared by .strtab and .shstrtab.
type stringTable struct {
	buf    []byte
	offset map[string]uint32
}

func newStringTable() *stringTable {
	return &stringTable{buf: []byte{0}, offset: make(map[string]uint32)}
}

func (t *stringTable) add(s string) uint32 {
	if off, ok := t.offset[s]; ok {
		return off
	}
	off := uint32(len(t.buf))
	t.buf = append(t.buf, s...)
	t.buf = append(t.buf, 0)
	t.offset[s] = off
	return off
}

func (t *stringTable) bytes() []byte { return t.buf }
