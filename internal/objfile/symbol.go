package objfile

// SymbolBind mirrors ELF64's STB_* bind field (only the two values the
// assembler ever produces).
type SymbolBind int

const (
	BindLocal SymbolBind = iota
	BindGlobal
)

// SymbolType mirrors ELF64's STT_* type field.
type SymbolType int

const (
	TypeNotype SymbolType = iota
	TypeObject
	TypeFunc
	TypeSection
)

// Symbol is one entry destined for the final .symtab, grounded on
// elf.c's symbol table bookkeeping (elf_symbol_relocate/elf_symbol_set,
// which create-or-find by name).
type Symbol struct {
	Name    string
	Value   int64
	Size    int64
	Bind    SymbolBind
	Type    SymbolType
	Section int // index into Assembler.sections, or -1 for undefined (extern)
	index   int // position assigned during Finish's local-then-global sort
}

// RelaType mirrors the x86-64 ELF relocation type constants an instruction
// selector would request (R_X86_64_*); objfile treats these opaquely as
// small integers, since interpreting relocation semantics is the linker's
// job, not the object writer's.
type RelaType int

const (
	RelaNone  RelaType = 0  // R_X86_64_NONE
	Rela64    RelaType = 1  // R_X86_64_64
	RelaPC32  RelaType = 2  // R_X86_64_PC32
	RelaPLT32 RelaType = 4  // R_X86_64_PLT32
	Rela32    RelaType = 10 // R_X86_64_32
	Rela32S   RelaType = 11 // R_X86_64_32S
)

// Rela is one RELA relocation entry, grounded on elf.c's rela_write:
// offset within the target section, the symbol referenced, the type, and
// an explicit addend (RELA, as opposed to REL, always carries its addend
// inline rather than in the referencing instruction).
type Rela struct {
	Offset int64
	Symbol string
	Type   RelaType
	Addend int64
}
