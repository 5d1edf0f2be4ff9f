package naivex64

import (
	"fmt"

	"j5.nz/cc64/internal/ctype"
	"j5.nz/cc64/internal/ir"
	"j5.nz/cc64/internal/objfile"
)

// Backend lowers internal/ir functions straight to x86-64 machine code
// and writes them into an objfile.Assembler. It performs no register
// allocation at all: every IR variable and temporary lives in its own
// fixed stack slot for the whole function, the "one safe, slow tier"
// naive codegen style a vm/generateVM-shaped backend uses as its
// baseline before an optimizing path.
type Backend struct {
	asm   *objfile.Assembler
	types *ctype.Interner

	rodataSeen map[string]bool
}

// New returns a Backend that writes into asm, resolving types against in.
func New(asm *objfile.Assembler, in *ctype.Interner) *Backend {
	return &Backend{asm: asm, types: in, rodataSeen: make(map[string]bool)}
}

// internRodata registers data with the assembler's content-addressed
// rodata registry and, the first time a given label comes back, actually
// writes the bytes into .rodata and defines its symbol — Intern itself
// only hands back a stable label, grounded on
// original_source/src/codegen/rodata.c leaving the backing store's actual
// section emission to its caller.
func (b *Backend) internRodata(data []byte) string {
	label := b.asm.Rodata.Intern(data)
	if b.rodataSeen[label] {
		return label
	}
	b.rodataSeen[label] = true
	prev := b.asm.Current()
	b.asm.SetSection(".rodata")
	off := b.asm.Write(data)
	b.asm.SymbolSet(label, off, int64(len(data)), objfile.BindLocal, objfile.TypeObject)
	if prev != nil {
		b.asm.SetSection(prev.Name)
	}
	return label
}

// unsupported reports a recognized-but-unimplemented IR shape; naivex64
// is deliberately narrow (integer/pointer arithmetic, comparisons,
// calls, and return), so anything past that fails loudly here rather
// than miscompiling silently.
type unsupported struct{ what string }

func (u *unsupported) Error() string { return "naivex64: unsupported " + u.what }

// Compile lowers fn into the assembler's .text section, recording its
// entry as a global or local function symbol per fn.IsGlobal.
func (b *Backend) Compile(fn *ir.Function) error {
	c := &funcCompiler{
		b:        b,
		fn:       fn,
		tempType: make(map[ir.Temporary]ctype.TypeID),
		labelPos: make(map[ir.BlockID]int64),
	}
	if err := c.run(); err != nil {
		return fmt.Errorf("naivex64: compiling %s: %w", fn.Name, err)
	}

	b.asm.SetSection(".text")
	off := b.asm.Write(c.e.code)
	for _, fx := range c.callFixups {
		b.asm.SymbolRelocate(off+fx.pos, fx.symbol, objfile.RelaPLT32, -4)
	}
	for _, fx := range c.leaFixups {
		b.asm.SymbolRelocate(off+fx.pos, fx.symbol, objfile.RelaPC32, -4)
	}
	bind := objfile.BindLocal
	if fn.IsGlobal {
		bind = objfile.BindGlobal
	}
	b.asm.SymbolSet(fn.Name, off, int64(len(c.e.code)), bind, objfile.TypeFunc)
	return nil
}

// symbolFixup records a placeholder displacement field's local (pre-Write)
// offset, resolved once the function's code has been written into its
// final section so the symbol table index can be looked up.
type symbolFixup struct {
	pos    int64
	symbol string
}

type jumpFixup struct {
	pos    int64
	target ir.BlockID
}

// funcCompiler holds the per-function state a single Compile call needs:
// the code buffer, every temporary's byte size/type (recovered from
// whichever instruction produced it, since ir.Instruction only carries a
// Dest's type at its defining site), and the stack frame layout.
type funcCompiler struct {
	b  *Backend
	fn *ir.Function
	e  encoder

	tempType map[ir.Temporary]ctype.TypeID
	tempBase int64 // first temporary's slot; variables occupy [0, tempBase)
	frame    int64 // total sub rsp size, 16-aligned

	labelPos   map[ir.BlockID]int64
	jumps      []jumpFixup
	callFixups []symbolFixup
	leaFixups  []symbolFixup
}

func (c *funcCompiler) run() error {
	c.classifyTemps()
	c.layoutFrame()

	c.e.pushR(rbp)
	c.e.movRR(rbp, rsp)
	if c.frame > 0 {
		c.e.subRI(rsp, int32(c.frame))
	}
	c.spillParams()

	for i := range c.fn.Blocks {
		blk := &c.fn.Blocks[i]
		c.labelPos[blk.ID] = c.e.pos()
		for _, inst := range blk.Instructions {
			if err := c.lowerInst(inst); err != nil {
				return err
			}
		}
		if err := c.lowerExit(blk.Exit); err != nil {
			return err
		}
	}

	for _, j := range c.jumps {
		target, ok := c.labelPos[j.target]
		if !ok {
			return &unsupported{what: "jump to unknown block"}
		}
		rel := int32(target - (j.pos + 4))
		c.e.patchU32(j.pos, uint32(rel))
	}
	return nil
}

// classifyTemps records, for every instruction that defines a temporary,
// the type it was defined with — the only place that information is
// available, since a Temporary itself is just an opaque index.
func (c *funcCompiler) classifyTemps() {
	for i := range c.fn.Blocks {
		for _, inst := range c.fn.Blocks[i].Instructions {
			switch inst.Op {
			case ir.OpStore, ir.OpVACopy:
				continue
			}
			c.tempType[inst.Dest] = inst.Type
		}
	}
}

func (c *funcCompiler) sizeOf(id ctype.TypeID) int64 { return SizeOf(c.b.types, id) }

// SizeOf computes a type's byte size the same way internal/parse's own
// (unexported) sizeOf does; exported here so cmd/cc's static-data layout
// can stay consistent with what the backend assumes about a value's
// in-memory width without duplicating the switch a third time.
func SizeOf(types *ctype.Interner, id ctype.TypeID) int64 {
	t := types.Lookup(id)
	switch t.Kind {
	case ctype.KindSimple:
		return simpleSize(t.Simple)
	case ctype.KindPointer, ctype.KindFunction:
		return 8
	case ctype.KindArray:
		return t.ArrayLen * SizeOf(types, t.Elem)
	case ctype.KindStruct:
		return t.Struct.Size
	case ctype.KindEnum:
		return 4
	default:
		return 8
	}
}

func simpleSize(st ctype.SimpleType) int64 {
	switch st {
	case ctype.Void:
		return 0
	case ctype.Bool, ctype.Char, ctype.SignedChar, ctype.UnsignedChar:
		return 1
	case ctype.Short, ctype.UnsignedShort:
		return 2
	case ctype.Int, ctype.UnsignedInt, ctype.Float:
		return 4
	default:
		return 8
	}
}

func (c *funcCompiler) isFloat(id ctype.TypeID) bool { return c.b.types.IsFloating(id) }

func (c *funcCompiler) isUnsigned(id ctype.TypeID) bool {
	t := c.b.types.Lookup(id)
	if t.Kind != ctype.KindSimple {
		return false
	}
	switch t.Simple {
	case ctype.Bool, ctype.UnsignedChar, ctype.UnsignedShort, ctype.UnsignedInt, ctype.UnsignedLong, ctype.UnsignedLongLong:
		return true
	}
	return false
}

// varSlot returns the rbp-relative byte offset of local/parameter i.
func (c *funcCompiler) varSlot(i int) int64 { return c.fn.Vars[i].StackSlot }

// tempSlot returns the rbp-relative byte offset reserved for temporary t;
// every temporary gets a full 8-byte slot regardless of its value's
// width, since the naive model always round-trips through 64-bit general
// or xmm registers.
func (c *funcCompiler) tempSlot(t ir.Temporary) int64 {
	return c.tempBase + (int64(t)+1)*8
}

// layoutFrame places every variable's already-assigned StackSlot (set by
// ir.Builder.AddVariable in declaration order) at the bottom of the
// frame, reserves one slot per temporary above that, then rounds the
// total up to a 16-byte boundary (the SysV call-site alignment
// requirement, restored here since push rbp consumes 8 of the 16 bytes
// the call instruction's return address already used).
func (c *funcCompiler) layoutFrame() {
	var maxVar int64
	for _, v := range c.fn.Vars {
		if v.StackSlot > maxVar {
			maxVar = v.StackSlot
		}
	}
	c.tempBase = maxVar

	var maxTemp ir.Temporary = -1
	for t := range c.tempType {
		if t > maxTemp {
			maxTemp = t
		}
	}
	total := c.tempBase
	if maxTemp >= 0 {
		total = c.tempSlot(maxTemp)
	}
	if total%16 != 0 {
		total += 16 - total%16
	}
	c.frame = total
}

// spillParams stores the SysV argument registers a function definition's
// parameters arrived in into their stack slots, classifying each
// parameter independently as integer/pointer or floating per its type
// (no struct-by-value or stack-passed parameters; documented scope
// limit, matching naivex64's "≤6 integer arguments" contract extended
// symmetrically to floats).
func (c *funcCompiler) spillParams() {
	intIdx, fltIdx := 0, 0
	for i, v := range c.fn.Vars {
		if !v.IsParam {
			continue
		}
		slot := c.varSlot(i)
		if c.isFloat(v.Type) {
			if fltIdx >= 8 {
				continue
			}
			c.e.movsdStore(rbp, int(-slot), fltIdx)
			fltIdx++
			continue
		}
		if intIdx >= 6 {
			continue
		}
		c.e.storeMemSized(rbp, int(-slot), argIntRegs[intIdx], c.sizeOf(v.Type))
		intIdx++
	}
}

// loadTempInt loads temporary t's value into dst with a plain 64-bit load
// and no extension (values are always stored full-width in their slot by
// the instruction that produced them).
func (c *funcCompiler) loadTempInt(t ir.Temporary, dst int) {
	c.e.loadMem(dst, rbp, int(-c.tempSlot(t)))
}

func (c *funcCompiler) storeTempInt(t ir.Temporary, src int) {
	c.e.storeMem(rbp, int(-c.tempSlot(t)), src)
}

func (c *funcCompiler) loadTempFloat(t ir.Temporary, dstXmm int) {
	c.e.movsdLoad(dstXmm, rbp, int(-c.tempSlot(t)))
}

func (c *funcCompiler) storeTempFloat(t ir.Temporary, srcXmm int) {
	c.e.movsdStore(rbp, int(-c.tempSlot(t)), srcXmm)
}

func (c *funcCompiler) tempIsFloat(t ir.Temporary) bool {
	ty, ok := c.tempType[t]
	return ok && c.isFloat(ty)
}
