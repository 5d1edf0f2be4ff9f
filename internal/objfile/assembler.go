package objfile

import "fmt"

// Assembler accumulates sections, a symbol table, and relocations for one
// relocatable object file, then serializes them to ELF64 ET_REL bytes via
// Finish. Grounded closely on original_source/src/assembler/elf.c, whose
// global mutable state this type collects into one owned value.
type Assembler struct {
	sections     []*Section
	sectionIndex map[string]int
	symbols      []*Symbol
	symbolIndex  map[string]int
	current      *Section
	Rodata       RodataRegistry
}

// NewAssembler returns an empty assembler. rodata may be nil, in which
// case a DefaultRodataRegistry is used.
func NewAssembler(rodata RodataRegistry) *Assembler {
	if rodata == nil {
		rodata = NewDefaultRodataRegistry()
	}
	a := &Assembler{
		sectionIndex: make(map[string]int),
		symbolIndex:  make(map[string]int),
		Rodata:       rodata,
	}
	// Symbol index 0 is always the null (undefined) symbol, per ELF.
	a.symbols = append(a.symbols, &Symbol{Name: "", Section: -1})
	return a
}

// SetSection selects name as the section subsequent Write* calls append
// to, creating it (along with its implicit STT_SECTION symbol) on first
// use. Mirrors elf_set_section.
func (a *Assembler) SetSection(name string) *Section {
	if idx, ok := a.sectionIndex[name]; ok {
		a.current = a.sections[idx]
		return a.current
	}
	typ, flags := sectionDefaults(name)
	sec := &Section{Name: name, Type: typ, Flags: flags, Align: 1}
	idx := len(a.sections)
	a.sections = append(a.sections, sec)
	a.sectionIndex[name] = idx

	sym := &Symbol{Name: name, Bind: BindLocal, Type: TypeSection, Section: idx}
	sec.symbolIndex = len(a.symbols)
	a.symbols = append(a.symbols, sym)

	a.current = sec
	return sec
}

// Current returns the section currently selected by SetSection.
func (a *Assembler) Current() *Section { return a.current }

// Write appends data to the current section, returning the offset it was
// written at.
func (a *Assembler) Write(data []byte) int64 {
	off := int64(len(a.current.data))
	a.current.data = append(a.current.data, data...)
	return off
}

// Reserve advances the current section by n bytes without writing data
// (used for .bss, an SHT_NOBITS section whose "size" is tracked without
// occupying file space).
func (a *Assembler) Reserve(n int64) int64 {
	off := int64(len(a.current.data))
	a.current.data = append(a.current.data, make([]byte, n)...)
	return off
}

// SymbolSet creates-or-updates a symbol definition in the current section
// at the given offset. Mirrors elf_symbol_set.
func (a *Assembler) SymbolSet(name string, offset, size int64, bind SymbolBind, typ SymbolType) {
	secIdx := a.sectionIndex[a.current.Name]
	if idx, ok := a.symbolIndex[name]; ok {
		sym := a.symbols[idx]
		sym.Value = offset
		sym.Size = size
		sym.Bind = bind
		sym.Type = typ
		sym.Section = secIdx
		return
	}
	idx := len(a.symbols)
	a.symbols = append(a.symbols, &Symbol{
		Name: name, Value: offset, Size: size, Bind: bind, Type: typ, Section: secIdx,
	})
	a.symbolIndex[name] = idx
}

// DeclareExtern registers (if not already present) an undefined external
// symbol, for relocations referring to a name with no local definition
// (an extern function or variable).
func (a *Assembler) DeclareExtern(name string) {
	if _, ok := a.symbolIndex[name]; ok {
		return
	}
	idx := len(a.symbols)
	a.symbols = append(a.symbols, &Symbol{Name: name, Bind: BindGlobal, Section: -1})
	a.symbolIndex[name] = idx
}

// SymbolRelocate records a relocation at offset within the current section
// against the named symbol, creating an undefined (extern) symbol entry
// for it if it is not already known. Mirrors elf_symbol_relocate.
func (a *Assembler) SymbolRelocate(offset int64, symbol string, typ RelaType, addend int64) {
	a.DeclareExtern(symbol)
	a.current.relas = append(a.current.relas, Rela{Offset: offset, Symbol: symbol, Type: typ, Addend: addend})
}

// symbolRef resolves a Rela's target name to its final symbol table index;
// Finish calls this only after locals and globals have both been sorted
// and numbered.
func (a *Assembler) symbolRef(name string) (int, error) {
	idx, ok := a.symbolIndex[name]
	if !ok {
		return 0, fmt.Errorf("objfile: relocation against unknown symbol %q", name)
	}
	return a.symbols[idx].index, nil
}
