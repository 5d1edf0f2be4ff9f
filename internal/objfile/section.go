package objfile

// SectionFlags mirrors the ELF64 sh_flags bits the assembler actually
// produces.
type SectionFlags uint64

const (
	FlagWrite     SectionFlags = 1 << 0
	FlagAlloc     SectionFlags = 1 << 1
	FlagExecInstr SectionFlags = 1 << 2
)

// SectionType mirrors the ELF64 sh_type values this writer emits.
type SectionType uint32

const (
	TypeNull     SectionType = 0
	TypeProgbits SectionType = 1
	TypeSymtab   SectionType = 2
	TypeStrtab   SectionType = 3
	TypeRela     SectionType = 4
	TypeNobits   SectionType = 8
)

// Section is one logical output section being accumulated before Finish.
// Grounded on elf.c's per-section byte buffer plus its relocation list.
type Section struct {
	Name  string
	Type  SectionType
	Flags SectionFlags
	Align int64

	data  []byte
	relas []Rela

	// symbolIndex is the index (into Assembler.symbols) of this
	// section's implicit STT_SECTION symbol, created the moment the
	// section itself is created — mirrors elf_set_section's behavior of
	// always installing a section symbol up front.
	symbolIndex int
}

// Size returns the number of bytes written to the section so far.
func (s *Section) Size() int64 { return int64(len(s.data)) }

// sectionDefaults returns the correct sh_type/sh_flags for a standard
// section name, rather than hard-coding SHF_ALLOC|SHF_EXECINSTR on every
// PROGBITS section regardless of name. Unknown names default to a plain,
// non-executable, read-only PROGBITS section (closest analogue to
// .rodata's own flags).
func sectionDefaults(name string) (SectionType, SectionFlags) {
	switch name {
	case ".text":
		return TypeProgbits, FlagAlloc | FlagExecInstr
	case ".data":
		return TypeProgbits, FlagAlloc | FlagWrite
	case ".rodata":
		return TypeProgbits, FlagAlloc
	case ".bss":
		return TypeNobits, FlagAlloc | FlagWrite
	default:
		return TypeProgbits, FlagAlloc
	}
}
