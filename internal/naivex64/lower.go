package naivex64

import (
	"encoding/binary"
	"fmt"
	"math"

	"j5.nz/cc64/internal/ir"
)

// lowerInst emits the machine code for one straight-line IR instruction.
// Every operand and result round-trips through its stack slot; there is
// no register allocation, so each case here is a self-contained
// load-compute-store sequence. Anything past the documented subset
// (varargs, the raw stack/register escape-hatch opcodes) reports
// unsupported rather than guessing at a lowering.
func (c *funcCompiler) lowerInst(inst ir.Instruction) error {
	switch inst.Op {
	case ir.OpConstant:
		return c.lowerConstant(inst)
	case ir.OpBinary:
		if inst.BinOp >= ir.FltAdd {
			c.lowerBinaryFloat(inst)
		} else {
			c.lowerBinaryInt(inst)
		}
		return nil
	case ir.OpNegateInt:
		c.loadTempInt(inst.Args[0], rax)
		c.e.negR(rax)
		c.storeTempInt(inst.Dest, rax)
		return nil
	case ir.OpNegateFloat:
		c.loadTempFloat(inst.Args[0], 0)
		signMask := make([]byte, 8)
		binary.LittleEndian.PutUint64(signMask, 1<<63)
		label := c.b.internRodata(signMask)
		pos := c.e.movsdLoadRipPlaceholder(1)
		c.leaFixups = append(c.leaFixups, symbolFixup{pos: pos, symbol: label})
		c.e.xorpd(0, 1)
		c.storeTempFloat(inst.Dest, 0)
		return nil
	case ir.OpBinaryNot:
		c.loadTempInt(inst.Args[0], rax)
		c.e.notR(rax)
		c.storeTempInt(inst.Dest, rax)
		return nil
	case ir.OpLoad:
		return c.lowerLoad(inst)
	case ir.OpStore:
		return c.lowerStore(inst)
	case ir.OpAddressOf:
		return c.lowerAddressOf(inst)
	case ir.OpCall:
		return c.lowerCall(inst)
	case ir.OpCopy:
		c.loadTempInt(inst.Args[0], rax)
		c.storeTempInt(inst.Dest, rax)
		return nil
	case ir.OpIntCast:
		return c.lowerIntCast(inst)
	case ir.OpFloatCast:
		c.loadTempFloat(inst.Args[0], 0)
		c.e.cvttsd2si(rax, 0)
		c.storeTempInt(inst.Dest, rax)
		return nil
	case ir.OpIntFloatCast:
		c.loadTempInt(inst.Args[0], rax)
		c.e.cvtsi2sd(0, rax)
		c.storeTempFloat(inst.Dest, 0)
		return nil
	case ir.OpBoolCast:
		c.loadTempInt(inst.Args[0], rax)
		c.e.xorRR(r11, r11)
		c.e.cmpRI(rax, 0)
		c.e.setcc(ccNE, r11)
		c.storeTempInt(inst.Dest, r11)
		return nil
	default:
		return &unsupported{what: fmt.Sprintf("opcode %d", inst.Op)}
	}
}

func (c *funcCompiler) lowerConstant(inst ir.Instruction) error {
	if inst.Const.IsFloat {
		bits := make([]byte, 8)
		binary.LittleEndian.PutUint64(bits, math.Float64bits(inst.Const.Float))
		label := c.b.internRodata(bits)
		pos := c.e.movsdLoadRipPlaceholder(0)
		c.leaFixups = append(c.leaFixups, symbolFixup{pos: pos, symbol: label})
		c.storeTempFloat(inst.Dest, 0)
		return nil
	}
	c.e.movRegImm64(rax, uint64(inst.Const.Int))
	c.storeTempInt(inst.Dest, rax)
	return nil
}

// lowerBinaryFloat handles the Flt*-prefixed BinaryOp variants: arithmetic
// stores its xmm0 result back to the destination slot, comparisons read
// comisd's flags with the same unsigned-family condition codes an
// unsigned integer compare would use (comisd sets CF/ZF, not SF/OF).
func (c *funcCompiler) lowerBinaryFloat(inst ir.Instruction) {
	c.loadTempFloat(inst.Args[0], 0)
	c.loadTempFloat(inst.Args[1], 1)
	switch inst.BinOp {
	case ir.FltAdd:
		c.e.addsd(0, 1)
		c.storeTempFloat(inst.Dest, 0)
	case ir.FltSub:
		c.e.subsd(0, 1)
		c.storeTempFloat(inst.Dest, 0)
	case ir.FltMul:
		c.e.mulsd(0, 1)
		c.storeTempFloat(inst.Dest, 0)
	case ir.FltDiv:
		c.e.divsd(0, 1)
		c.storeTempFloat(inst.Dest, 0)
	case ir.FltLess:
		c.floatCompare(ccB, inst.Dest)
	case ir.FltGreater:
		c.floatCompare(ccA, inst.Dest)
	case ir.FltLessEq:
		c.floatCompare(ccBE, inst.Dest)
	case ir.FltGreaterEq:
		c.floatCompare(ccAE, inst.Dest)
	case ir.FltEqual:
		c.floatCompare(ccE, inst.Dest)
	case ir.FltNotEqual:
		c.floatCompare(ccNE, inst.Dest)
	}
}

// floatCompare assumes xmm0/xmm1 already hold the two operands; r11 is
// zeroed before comisd so setcc's single-byte write is never polluted by
// a stale register value the way reusing rax (still holding an operand)
// would be.
func (c *funcCompiler) floatCompare(cc byte, dest ir.Temporary) {
	c.e.xorRR(r11, r11)
	c.e.comisd(0, 1)
	c.e.setcc(cc, r11)
	c.storeTempInt(dest, r11)
}

// lowerBinaryInt handles the unsigned/signed integer BinaryOp variants.
// Shift counts arrive in rcx, which conveniently already is the shift
// instructions' implicit cl operand.
func (c *funcCompiler) lowerBinaryInt(inst ir.Instruction) {
	c.loadTempInt(inst.Args[0], rax)
	c.loadTempInt(inst.Args[1], rcx)
	switch inst.BinOp {
	case ir.Add:
		c.e.addRR(rax, rcx)
		c.storeTempInt(inst.Dest, rax)
	case ir.Sub:
		c.e.subRR(rax, rcx)
		c.storeTempInt(inst.Dest, rax)
	case ir.Mul, ir.IMul:
		c.e.imulRR(rax, rcx)
		c.storeTempInt(inst.Dest, rax)
	case ir.Div:
		c.e.xorRR(rdx, rdx)
		c.e.divR(rcx)
		c.storeTempInt(inst.Dest, rax)
	case ir.IDiv:
		c.e.cqo()
		c.e.idivR(rcx)
		c.storeTempInt(inst.Dest, rax)
	case ir.Mod:
		c.e.xorRR(rdx, rdx)
		c.e.divR(rcx)
		c.storeTempInt(inst.Dest, rdx)
	case ir.IMod:
		c.e.cqo()
		c.e.idivR(rcx)
		c.storeTempInt(inst.Dest, rdx)
	case ir.LShift:
		c.e.shlCl(rax)
		c.storeTempInt(inst.Dest, rax)
	case ir.RShift:
		c.e.shrCl(rax)
		c.storeTempInt(inst.Dest, rax)
	case ir.IRShift:
		c.e.sarCl(rax)
		c.storeTempInt(inst.Dest, rax)
	case ir.BXor:
		c.e.xorRR(rax, rcx)
		c.storeTempInt(inst.Dest, rax)
	case ir.BOr:
		c.e.orRR(rax, rcx)
		c.storeTempInt(inst.Dest, rax)
	case ir.BAnd:
		c.e.andRR(rax, rcx)
		c.storeTempInt(inst.Dest, rax)
	case ir.Less:
		c.intCompare(ccB, inst.Dest)
	case ir.ILess:
		c.intCompare(ccL, inst.Dest)
	case ir.Greater:
		c.intCompare(ccA, inst.Dest)
	case ir.IGreater:
		c.intCompare(ccG, inst.Dest)
	case ir.LessEq:
		c.intCompare(ccBE, inst.Dest)
	case ir.ILessEq:
		c.intCompare(ccLE, inst.Dest)
	case ir.GreaterEq:
		c.intCompare(ccAE, inst.Dest)
	case ir.IGreaterEq:
		c.intCompare(ccGE, inst.Dest)
	case ir.Equal:
		c.intCompare(ccE, inst.Dest)
	case ir.NotEqual:
		c.intCompare(ccNE, inst.Dest)
	}
}

// intCompare assumes rax/rcx already hold the two operands and the
// preceding cmpRR(rax, rcx) has not executed yet; r11 is zeroed first for
// the same reason floatCompare zeroes it before touching flags.
func (c *funcCompiler) intCompare(cc byte, dest ir.Temporary) {
	c.e.xorRR(r11, r11)
	c.e.cmpRR(rax, rcx)
	c.e.setcc(cc, r11)
	c.storeTempInt(dest, r11)
}

func (c *funcCompiler) lowerLoad(inst ir.Instruction) error {
	c.loadTempInt(inst.Args[0], r10)
	if c.isFloat(inst.Type) {
		c.e.movsdLoad(0, r10, 0)
		c.storeTempFloat(inst.Dest, 0)
		return nil
	}
	c.e.loadMemSized(rax, r10, 0, c.sizeOf(inst.Type))
	c.storeTempInt(inst.Dest, rax)
	return nil
}

func (c *funcCompiler) lowerStore(inst ir.Instruction) error {
	c.loadTempInt(inst.Args[0], r10)
	if c.isFloat(inst.Type) {
		c.loadTempFloat(inst.Args[1], 0)
		c.e.movsdStore(r10, 0, 0)
		return nil
	}
	c.loadTempInt(inst.Args[1], rax)
	c.e.storeMemSized(r10, 0, rax, c.sizeOf(inst.Type))
	return nil
}

// lowerAddressOf handles both shapes OpAddressOf takes: a local's
// rbp-relative slot (Offset set) or a global symbol reached through a
// RIP-relative lea (FunctionName set).
func (c *funcCompiler) lowerAddressOf(inst ir.Instruction) error {
	if inst.FunctionName != "" {
		pos := c.e.leaRipPlaceholder(rax)
		c.leaFixups = append(c.leaFixups, symbolFixup{pos: pos, symbol: inst.FunctionName})
		c.storeTempInt(inst.Dest, rax)
		return nil
	}
	c.e.leaMem(rax, rbp, int(-inst.Offset))
	c.storeTempInt(inst.Dest, rax)
	return nil
}

// lowerCall classifies each argument as integer/pointer or floating from
// the per-function tempType table built in classifyTemps, loading it
// straight from its stack slot into the designated argument register
// (no staging register needed since argument slots never alias the
// registers being filled). Only the first 6 integer and 8 floating
// arguments are passed; additional arguments are a documented scope
// limit (no 7th-argument stack passing, matching the parameter side).
func (c *funcCompiler) lowerCall(inst ir.Instruction) error {
	intIdx, fltIdx := 0, 0
	for _, arg := range inst.Args {
		if c.tempIsFloat(arg) {
			if fltIdx >= 8 {
				continue
			}
			c.loadTempFloat(arg, fltIdx)
			fltIdx++
			continue
		}
		if intIdx >= 6 {
			continue
		}
		c.loadTempInt(arg, argIntRegs[intIdx])
		intIdx++
	}
	if fltIdx > 0 {
		c.e.movRegImm64(rax, uint64(fltIdx))
	} else {
		c.e.xorRR(rax, rax)
	}

	if inst.FunctionName != "" {
		pos := c.e.callRel32()
		c.callFixups = append(c.callFixups, symbolFixup{pos: pos, symbol: inst.FunctionName})
	} else {
		c.loadTempInt(inst.Callee, r11)
		c.e.callR(r11)
	}

	if c.isFloat(inst.Type) {
		c.storeTempFloat(inst.Dest, 0)
	} else {
		c.storeTempInt(inst.Dest, rax)
	}
	return nil
}

// lowerIntCast truncates (and, for a signed destination, sign-extends)
// the source value to the destination type's width by shifting it to the
// top of the register and back, since every temporary's slot always
// holds a full 64-bit value regardless of its C type's width.
func (c *funcCompiler) lowerIntCast(inst ir.Instruction) error {
	c.loadTempInt(inst.Args[0], rax)
	size := c.sizeOf(inst.Type)
	if size < 8 && size > 0 {
		shift := byte((8 - size) * 8)
		c.e.shlRI(rax, shift)
		if c.isUnsigned(inst.Type) {
			c.e.shrRI(rax, shift)
		} else {
			c.e.sarRI(rax, shift)
		}
	}
	c.storeTempInt(inst.Dest, rax)
	return nil
}

// lowerExit emits a block's terminator. Intra-function branch targets are
// all recorded as jumpFixups and patched once every block's position is
// known (run's second pass), since a forward target's offset cannot be
// known while still emitting the block that jumps to it.
func (c *funcCompiler) lowerExit(exit ir.BlockExit) error {
	switch exit.Kind {
	case ir.ExitReturn:
		if c.isFloat(c.fn.ReturnTy) {
			c.loadTempFloat(exit.ReturnValue, 0)
		} else {
			c.loadTempInt(exit.ReturnValue, rax)
		}
		c.e.leave()
		c.e.ret()
		return nil
	case ir.ExitReturnZero:
		if c.isFloat(c.fn.ReturnTy) {
			c.e.xorpd(0, 0)
		} else {
			c.e.xorRR(rax, rax)
		}
		c.e.leave()
		c.e.ret()
		return nil
	case ir.ExitJump:
		pos := c.e.jmpRel32()
		c.jumps = append(c.jumps, jumpFixup{pos: pos, target: exit.JumpTarget})
		return nil
	case ir.ExitIf:
		c.loadTempInt(exit.Condition, rax)
		c.e.testRR(rax, rax)
		falsePos := c.e.jccRel32(ccE)
		c.jumps = append(c.jumps, jumpFixup{pos: falsePos, target: exit.IfFalse})
		truePos := c.e.jmpRel32()
		c.jumps = append(c.jumps, jumpFixup{pos: truePos, target: exit.IfTrue})
		return nil
	case ir.ExitSwitch:
		c.loadTempInt(exit.SwitchValue, rax)
		for _, cs := range exit.Cases {
			c.e.cmpRI(rax, int32(cs.Value))
			pos := c.e.jccRel32(ccE)
			c.jumps = append(c.jumps, jumpFixup{pos: pos, target: cs.Block})
		}
		pos := c.e.jmpRel32()
		c.jumps = append(c.jumps, jumpFixup{pos: pos, target: exit.DefaultBlock})
		return nil
	default:
		return &unsupported{what: fmt.Sprintf("block exit kind %d", exit.Kind)}
	}
}
