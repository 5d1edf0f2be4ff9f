package ir

import "j5.nz/cc64/internal/ctype"

// Builder incrementally constructs one Function: it owns the current
// insertion block and hands out fresh Temporary and BlockID values.
// There is no single analogous type in the original (which builds
// `struct function` directly from the parser's recursive descent); this
// is the Go idiom a recursive-descent parser naturally reaches for when
// building incrementally, generalized here to block-structured IR.
type Builder struct {
	fn        *Function
	nextTemp  Temporary
	nextSlot  int64
	current   BlockID
}

// NewBuilder starts building a function named name.
func NewBuilder(name string, isGlobal bool, returnTy ctype.TypeID) *Builder {
	b := &Builder{fn: &Function{Name: name, IsGlobal: isGlobal, ReturnTy: returnTy}}
	b.current = b.NewBlock(name + ".entry")
	return b
}

// NewBlock appends a fresh, currently terminator-less block and returns
// its id.
func (b *Builder) NewBlock(label string) BlockID {
	id := BlockID(len(b.fn.Blocks))
	b.fn.Blocks = append(b.fn.Blocks, Block{ID: id, Label: label})
	return id
}

// SetBlock redirects subsequent Emit calls to block id.
func (b *Builder) SetBlock(id BlockID) {
	b.current = id
}

// CurrentBlock returns the block Emit currently appends to.
func (b *Builder) CurrentBlock() BlockID { return b.current }

// NewTemp allocates a fresh temporary.
func (b *Builder) NewTemp() Temporary {
	t := b.nextTemp
	b.nextTemp++
	return t
}

// AddVariable registers a local variable (or parameter) and assigns it a
// stack slot offset, returning its index within Function.Vars.
func (b *Builder) AddVariable(name string, ty ctype.TypeID, size int64, isParam bool) int {
	b.nextSlot += size
	b.fn.Vars = append(b.fn.Vars, Variable{Name: name, Type: ty, IsParam: isParam, StackSlot: b.nextSlot})
	return len(b.fn.Vars) - 1
}

// SetUsesVA marks whether the function being built is variadic, gating
// Verify's rejection of VA opcodes in non-variadic functions.
func (b *Builder) SetUsesVA(v bool) {
	b.fn.UsesVA = v
}

// Variable returns the i'th registered local/parameter.
func (b *Builder) Variable(i int) Variable {
	return b.fn.Vars[i]
}

// AddressOfLocal emits an OpAddressOf for a stack-resident local at the
// given slot, returning the temporary holding its address.
func (b *Builder) AddressOfLocal(slot int64, ptrTy ctype.TypeID) Temporary {
	t := b.NewTemp()
	b.Emit(Instruction{Op: OpAddressOf, Dest: t, Type: ptrTy, Offset: slot})
	return t
}

// AddressOfGlobal emits an OpAddressOf for a file-scope symbol, returning
// the temporary holding its address.
func (b *Builder) AddressOfGlobal(name string, ptrTy ctype.TypeID) Temporary {
	t := b.NewTemp()
	b.Emit(Instruction{Op: OpAddressOf, Dest: t, Type: ptrTy, FunctionName: name})
	return t
}

// Emit appends inst to the current block.
func (b *Builder) Emit(inst Instruction) {
	blk := &b.fn.Blocks[b.current]
	blk.Instructions = append(blk.Instructions, inst)
}

// Constant emits an OpConstant and returns the temporary holding it.
func (b *Builder) Constant(c Constant) Temporary {
	t := b.NewTemp()
	b.Emit(Instruction{Op: OpConstant, Dest: t, Type: c.Type, Const: c})
	return t
}

// Binary emits a binary operator instruction and returns its result
// temporary.
func (b *Builder) Binary(op BinaryOp, ty ctype.TypeID, lhs, rhs Temporary) Temporary {
	t := b.NewTemp()
	b.Emit(Instruction{Op: OpBinary, Dest: t, Type: ty, BinOp: op, Args: []Temporary{lhs, rhs}})
	return t
}

// Load emits a load from the address held in addr.
func (b *Builder) Load(ty ctype.TypeID, addr Temporary) Temporary {
	t := b.NewTemp()
	b.Emit(Instruction{Op: OpLoad, Dest: t, Type: ty, Args: []Temporary{addr}})
	return t
}

// Store emits a store of value to the address held in addr.
func (b *Builder) Store(ty ctype.TypeID, addr, value Temporary) {
	b.Emit(Instruction{Op: OpStore, Type: ty, Args: []Temporary{addr, value}})
}

// Call emits a direct call to a named function.
func (b *Builder) Call(ty ctype.TypeID, name string, args []Temporary) Temporary {
	t := b.NewTemp()
	b.Emit(Instruction{Op: OpCall, Dest: t, Type: ty, FunctionName: name, Args: args})
	return t
}

// VACopy emits a va_list copy: a plain memory copy of the va_list object
// from src to dest (see DESIGN.md — the original declared IR_VA_COPY but
// never emitted it).
func (b *Builder) VACopy(ty ctype.TypeID, dest, src Temporary) {
	b.Emit(Instruction{Op: OpVACopy, Type: ty, Args: []Temporary{dest, src}})
}

// Jump terminates the current block with an unconditional jump.
func (b *Builder) Jump(target BlockID) {
	b.fn.Blocks[b.current].Exit = BlockExit{Kind: ExitJump, JumpTarget: target}
}

// If terminates the current block with a conditional branch.
func (b *Builder) If(cond Temporary, ifTrue, ifFalse BlockID) {
	b.fn.Blocks[b.current].Exit = BlockExit{Kind: ExitIf, Condition: cond, IfTrue: ifTrue, IfFalse: ifFalse}
}

// Return terminates the current block returning value.
func (b *Builder) Return(value Temporary) {
	b.fn.Blocks[b.current].Exit = BlockExit{Kind: ExitReturn, ReturnValue: value}
}

// ReturnZero terminates the current block with the original's implicit
// fall-off-the-end-of-main/void-function return, which synthesizes a zero
// value rather than requiring an explicit return statement.
func (b *Builder) ReturnZero() {
	b.fn.Blocks[b.current].Exit = BlockExit{Kind: ExitReturnZero}
}

// Switch terminates the current block with a multi-way branch.
func (b *Builder) Switch(value Temporary, cases []CaseLabel, def BlockID, hasDefault bool) {
	b.fn.Blocks[b.current].Exit = BlockExit{
		Kind: ExitSwitch, SwitchValue: value, Cases: cases,
		DefaultBlock: def, HasDefault: hasDefault,
	}
}

// Finish returns the completed Function.
func (b *Builder) Finish() *Function {
	return b.fn
}
