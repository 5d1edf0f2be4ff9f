package parse

import (
	"fmt"

	"github.com/pkg/errors"

	"j5.nz/cc64/internal/ast"
	"j5.nz/cc64/internal/ctype"
	"j5.nz/cc64/internal/ir"
)

// lowerValue lowers e, an rvalue expression, into a sequence of
// instructions appended to the function currently being built, returning
// the temporary holding its result. Grounded on a CodeGen-shaped
// expression-to-instruction walk, generalized from a Go-subset
// expression-kind set to ast.ExprKind's full C set.
func (p *Parser) lowerValue(e *ast.Expr) (ir.Temporary, error) {
	switch e.Kind {
	case ast.EConstant:
		return p.lowerConstant(e.Const), nil

	case ast.EVariable:
		addr, err := p.lowerAddress(e)
		if err != nil {
			return 0, err
		}
		if p.types.Lookup(e.DataType).Kind == ctype.KindFunction {
			return addr, nil
		}
		return p.builder.Load(e.DataType, addr), nil

	case ast.EIndirection, ast.EMember:
		addr, err := p.lowerAddress(e)
		if err != nil {
			return 0, err
		}
		return p.builder.Load(e.DataType, addr), nil

	case ast.EAddressOf:
		return p.lowerAddress(e.Operand)

	case ast.EUnary:
		return p.lowerUnary(e)

	case ast.ECast:
		return p.lowerCast(e)

	case ast.EBinary:
		return p.lowerBinary(e)

	case ast.EPointerAdd, ast.EPointerSub:
		return p.lowerPointerArith(e)

	case ast.EPointerDiff:
		return p.lowerPointerDiff(e)

	case ast.EAssign:
		return p.lowerAssign(e)

	case ast.EConditional:
		return p.lowerConditionalExpr(e)

	case ast.EComma:
		if _, err := p.lowerValue(e.Left); err != nil {
			return 0, err
		}
		return p.lowerValue(e.Right)

	case ast.ECall:
		return p.lowerCall(e)

	case ast.ESizeof, ast.EAlignof:
		return p.lowerConstant(e.Const), nil

	case ast.EArrayToPointerDecay:
		return p.lowerAddress(e.Operand)

	default:
		return 0, errors.WithStack(fmt.Errorf("lowering of expression kind %d is not implemented", e.Kind))
	}
}

func (p *Parser) lowerConstant(c ast.Constant) ir.Temporary {
	switch c.Kind {
	case ast.ConstFloating:
		return p.builder.Constant(ir.Constant{IsFloat: true, Float: c.Float, Type: c.Type})
	case ast.ConstLabelPointer:
		return p.builder.AddressOfGlobal(c.Label, c.Type)
	case ast.ConstLabel:
		return p.builder.AddressOfGlobal(c.Label, c.Type)
	default:
		return p.builder.Constant(ir.Constant{Int: c.Integer, Type: c.Type})
	}
}

// lowerAddress lowers e, which must denote an lvalue, into a temporary
// holding its address (the value the corresponding OpLoad/OpStore
// instruction pair operates through).
func (p *Parser) lowerAddress(e *ast.Expr) (ir.Temporary, error) {
	switch e.Kind {
	case ast.EVariable:
		if b, ok := p.lowerScope.lookup(e.Name); ok {
			if b.isGlobal {
				return p.builder.AddressOfGlobal(e.Name, p.types.Pointer(e.DataType)), nil
			}
			slot := p.builder.Variable(b.varIndex).StackSlot
			return p.builder.AddressOfLocal(slot, p.types.Pointer(e.DataType)), nil
		}
		return p.builder.AddressOfGlobal(e.Name, p.types.Pointer(e.DataType)), nil

	case ast.EIndirection:
		return p.lowerValue(e.Operand)

	case ast.EMember:
		baseAddr, err := p.lowerMemberBaseAddress(e)
		if err != nil {
			return 0, err
		}
		bt := p.memberStructType(e)
		if bt == nil {
			return baseAddr, nil
		}
		idx := bt.MemberIndex(e.Field)
		if idx < 0 {
			return baseAddr, nil
		}
		field := bt.Fields[idx]
		if field.Offset == 0 {
			return baseAddr, nil
		}
		off := p.builder.Constant(ir.Constant{Int: field.Offset, Type: p.types.Simple(ctype.Long)})
		return p.builder.Binary(ir.Add, p.types.Pointer(e.DataType), baseAddr, off), nil

	case ast.ECompoundLiteral:
		return p.builder.AddressOfGlobal(e.CompoundLabel, p.types.Pointer(e.DataType)), nil

	default:
		return 0, errors.WithStack(fmt.Errorf("expression kind %d is not an lvalue", e.Kind))
	}
}

func (p *Parser) lowerMemberBaseAddress(e *ast.Expr) (ir.Temporary, error) {
	if e.Arrow {
		return p.lowerValue(e.Base)
	}
	return p.lowerAddress(e.Base)
}

func (p *Parser) memberStructType(e *ast.Expr) *ctype.StructData {
	bt := p.types.Lookup(e.Base.DataType)
	if e.Arrow && bt.Kind == ctype.KindPointer {
		bt = p.types.Lookup(bt.Elem)
	}
	if bt.Kind != ctype.KindStruct {
		return nil
	}
	return bt.Struct
}

func (p *Parser) lowerUnary(e *ast.Expr) (ir.Temporary, error) {
	v, err := p.lowerValue(e.Operand)
	if err != nil {
		return 0, err
	}
	isFloat := p.types.IsFloating(e.DataType)
	switch e.Op {
	case "-":
		op := ir.OpNegateInt
		if isFloat {
			op = ir.OpNegateFloat
		}
		t := p.builder.NewTemp()
		p.builder.Emit(ir.Instruction{Op: op, Dest: t, Type: e.DataType, Args: []ir.Temporary{v}})
		return t, nil
	case "~":
		t := p.builder.NewTemp()
		p.builder.Emit(ir.Instruction{Op: ir.OpBinaryNot, Dest: t, Type: e.DataType, Args: []ir.Temporary{v}})
		return t, nil
	case "!":
		zero := p.builder.Constant(ir.Constant{Type: e.Operand.DataType})
		eq := ir.Equal
		if isFloat {
			eq = ir.FltEqual
		}
		return p.builder.Binary(eq, p.types.Simple(ctype.Int), v, zero), nil
	case "+":
		return v, nil
	case "++", "--":
		return p.lowerIncDec(e, v)
	default:
		return 0, errors.WithStack(fmt.Errorf("unsupported unary operator %q", e.Op))
	}
}

func (p *Parser) lowerIncDec(e *ast.Expr, oldVal ir.Temporary) (ir.Temporary, error) {
	addr, err := p.lowerAddress(e.Operand)
	if err != nil {
		return 0, err
	}
	step := int64(1)
	pt := p.types.Lookup(e.Operand.DataType)
	scale := int64(1)
	if pt.Kind == ctype.KindPointer {
		scale = p.sizeOf(pt.Elem)
	}
	delta := p.builder.Constant(ir.Constant{Int: step * scale, Type: e.Operand.DataType})
	op := ir.Add
	if e.Op == "--" {
		op = ir.Sub
	}
	newVal := p.builder.Binary(op, e.Operand.DataType, oldVal, delta)
	p.builder.Store(e.Operand.DataType, addr, newVal)
	if e.PostfixIncDec {
		return oldVal, nil
	}
	return newVal, nil
}

func (p *Parser) lowerCast(e *ast.Expr) (ir.Temporary, error) {
	v, err := p.lowerValue(e.Operand)
	if err != nil {
		return 0, err
	}
	from, to := e.Operand.DataType, e.DataType
	fromFloat, toFloat := p.types.IsFloating(from), p.types.IsFloating(to)
	var op ir.Opcode
	switch {
	case fromFloat && toFloat:
		return v, nil
	case fromFloat && !toFloat:
		op = ir.OpFloatCast
	case !fromFloat && toFloat:
		op = ir.OpIntFloatCast
	default:
		op = ir.OpIntCast
	}
	t := p.builder.NewTemp()
	p.builder.Emit(ir.Instruction{Op: op, Dest: t, Type: to, Args: []ir.Temporary{v}})
	return t, nil
}

// binaryOpFor maps a spelling plus a float/signed flag pair to the IR
// opcode, mirroring the exact signed/unsigned/float split of ir.h's enum
// ir_binary_operator.
func binaryOpFor(spelling string, isFloat, isUnsigned bool) (ir.BinaryOp, bool) {
	switch spelling {
	case "+":
		if isFloat {
			return ir.FltAdd, true
		}
		return ir.Add, true
	case "-":
		if isFloat {
			return ir.FltSub, true
		}
		return ir.Sub, true
	case "*":
		if isFloat {
			return ir.FltMul, true
		}
		if isUnsigned {
			return ir.Mul, true
		}
		return ir.IMul, true
	case "/":
		if isFloat {
			return ir.FltDiv, true
		}
		if isUnsigned {
			return ir.Div, true
		}
		return ir.IDiv, true
	case "%":
		if isUnsigned {
			return ir.Mod, true
		}
		return ir.IMod, true
	case "<<":
		return ir.LShift, true
	case ">>":
		if isUnsigned {
			return ir.RShift, true
		}
		return ir.IRShift, true
	case "^":
		return ir.BXor, true
	case "|":
		return ir.BOr, true
	case "&":
		return ir.BAnd, true
	case "<":
		if isFloat {
			return ir.FltLess, true
		}
		if isUnsigned {
			return ir.Less, true
		}
		return ir.ILess, true
	case ">":
		if isFloat {
			return ir.FltGreater, true
		}
		if isUnsigned {
			return ir.Greater, true
		}
		return ir.IGreater, true
	case "<=":
		if isFloat {
			return ir.FltLessEq, true
		}
		if isUnsigned {
			return ir.LessEq, true
		}
		return ir.ILessEq, true
	case ">=":
		if isFloat {
			return ir.FltGreaterEq, true
		}
		if isUnsigned {
			return ir.GreaterEq, true
		}
		return ir.IGreaterEq, true
	case "==":
		if isFloat {
			return ir.FltEqual, true
		}
		return ir.Equal, true
	case "!=":
		if isFloat {
			return ir.FltNotEqual, true
		}
		return ir.NotEqual, true
	default:
		return 0, false
	}
}

func (p *Parser) isUnsignedType(id ctype.TypeID) bool {
	t := p.types.Lookup(id)
	if t.Kind != ctype.KindSimple {
		return false
	}
	switch t.Simple {
	case ctype.Bool, ctype.UnsignedChar, ctype.UnsignedShort, ctype.UnsignedInt, ctype.UnsignedLong, ctype.UnsignedLongLong:
		return true
	}
	return false
}

func (p *Parser) lowerBinary(e *ast.Expr) (ir.Temporary, error) {
	if e.Op == "&&" || e.Op == "||" {
		return p.lowerShortCircuit(e)
	}
	lv, err := p.lowerValue(e.Left)
	if err != nil {
		return 0, err
	}
	rv, err := p.lowerValue(e.Right)
	if err != nil {
		return 0, err
	}
	operandTy := e.Left.DataType
	isFloat := p.types.IsFloating(operandTy)
	op, ok := binaryOpFor(e.Op, isFloat, p.isUnsignedType(operandTy))
	if !ok {
		return 0, errors.WithStack(fmt.Errorf("unsupported binary operator %q", e.Op))
	}
	return p.builder.Binary(op, e.DataType, lv, rv), nil
}

// lowerShortCircuit lowers && and || via control flow rather than a plain
// binary op, since neither operand may be evaluated once the result is
// already determined.
func (p *Parser) lowerShortCircuit(e *ast.Expr) (ir.Temporary, error) {
	resultTy := e.DataType
	slot := p.builder.AddVariable(".logical", resultTy, p.sizeOf(resultTy), false)
	addr := p.builder.AddressOfLocal(p.builder.Variable(slot).StackSlot, p.types.Pointer(resultTy))

	lv, err := p.lowerValue(e.Left)
	if err != nil {
		return 0, err
	}
	zero := p.builder.Constant(ir.Constant{Type: e.Left.DataType})
	cmp := p.builder.Binary(ir.NotEqual, p.types.Simple(ctype.Int), lv, zero)

	rhsBlock := p.builder.NewBlock("logical.rhs")
	shortBlock := p.builder.NewBlock("logical.short")
	joinBlock := p.builder.NewBlock("logical.join")
	if e.Op == "&&" {
		p.builder.If(cmp, rhsBlock, shortBlock)
	} else {
		p.builder.If(cmp, shortBlock, rhsBlock)
	}

	p.builder.SetBlock(shortBlock)
	shortVal := p.builder.Constant(ir.Constant{Int: boolToInt(e.Op == "||"), Type: resultTy})
	p.builder.Store(resultTy, addr, shortVal)
	p.builder.Jump(joinBlock)

	p.builder.SetBlock(rhsBlock)
	rv, err := p.lowerValue(e.Right)
	if err != nil {
		return 0, err
	}
	rzero := p.builder.Constant(ir.Constant{Type: e.Right.DataType})
	rcmp := p.builder.Binary(ir.NotEqual, resultTy, rv, rzero)
	p.builder.Store(resultTy, addr, rcmp)
	p.builder.Jump(joinBlock)

	p.builder.SetBlock(joinBlock)
	return p.builder.Load(resultTy, addr), nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (p *Parser) lowerPointerArith(e *ast.Expr) (ir.Temporary, error) {
	lv, err := p.lowerValue(e.Left)
	if err != nil {
		return 0, err
	}
	rv, err := p.lowerValue(e.Right)
	if err != nil {
		return 0, err
	}
	scale := e.ElementSize
	if scale == 0 {
		scale = 1
	}
	scaleConst := p.builder.Constant(ir.Constant{Int: scale, Type: e.Right.DataType})
	scaled := p.builder.Binary(ir.Mul, e.Right.DataType, rv, scaleConst)
	op := ir.Add
	if e.Kind == ast.EPointerSub {
		op = ir.Sub
	}
	return p.builder.Binary(op, e.DataType, lv, scaled), nil
}

func (p *Parser) lowerPointerDiff(e *ast.Expr) (ir.Temporary, error) {
	lv, err := p.lowerValue(e.Left)
	if err != nil {
		return 0, err
	}
	rv, err := p.lowerValue(e.Right)
	if err != nil {
		return 0, err
	}
	diff := p.builder.Binary(ir.Sub, e.DataType, lv, rv)
	scale := e.ElementSize
	if scale == 0 {
		scale = 1
	}
	scaleConst := p.builder.Constant(ir.Constant{Int: scale, Type: e.DataType})
	return p.builder.Binary(ir.IDiv, e.DataType, diff, scaleConst), nil
}

func (p *Parser) lowerAssign(e *ast.Expr) (ir.Temporary, error) {
	addr, err := p.lowerAddress(e.Left)
	if err != nil {
		return 0, err
	}
	rv, err := p.lowerValue(e.Right)
	if err != nil {
		return 0, err
	}
	if e.Op == "" {
		p.builder.Store(e.DataType, addr, rv)
		return rv, nil
	}
	lv := p.builder.Load(e.Left.DataType, addr)
	isFloat := p.types.IsFloating(e.Left.DataType)
	op, ok := binaryOpFor(e.Op, isFloat, p.isUnsignedType(e.Left.DataType))
	if !ok {
		return 0, errors.WithStack(fmt.Errorf("unsupported compound assignment operator %q", e.Op))
	}
	result := p.builder.Binary(op, e.Left.DataType, lv, rv)
	p.builder.Store(e.Left.DataType, addr, result)
	return result, nil
}

func (p *Parser) lowerConditionalExpr(e *ast.Expr) (ir.Temporary, error) {
	resultTy := e.DataType
	slot := p.builder.AddVariable(".cond", resultTy, p.sizeOf(resultTy), false)
	addr := p.builder.AddressOfLocal(p.builder.Variable(slot).StackSlot, p.types.Pointer(resultTy))

	cv, err := p.lowerValue(e.Cond)
	if err != nil {
		return 0, err
	}
	zero := p.builder.Constant(ir.Constant{Type: e.Cond.DataType})
	cmp := p.builder.Binary(ir.NotEqual, p.types.Simple(ctype.Int), cv, zero)

	thenBlock := p.builder.NewBlock("cond.then")
	elseBlock := p.builder.NewBlock("cond.else")
	joinBlock := p.builder.NewBlock("cond.join")
	p.builder.If(cmp, thenBlock, elseBlock)

	p.builder.SetBlock(thenBlock)
	tv, err := p.lowerValue(e.Then)
	if err != nil {
		return 0, err
	}
	p.builder.Store(resultTy, addr, tv)
	p.builder.Jump(joinBlock)

	p.builder.SetBlock(elseBlock)
	ev, err := p.lowerValue(e.Else)
	if err != nil {
		return 0, err
	}
	p.builder.Store(resultTy, addr, ev)
	p.builder.Jump(joinBlock)

	p.builder.SetBlock(joinBlock)
	return p.builder.Load(resultTy, addr), nil
}

func (p *Parser) lowerCall(e *ast.Expr) (ir.Temporary, error) {
	args := make([]ir.Temporary, 0, len(e.Args))
	for i := range e.Args {
		v, err := p.lowerValue(&e.Args[i])
		if err != nil {
			return 0, err
		}
		args = append(args, v)
	}
	if e.Callee.Kind == ast.EVariable {
		return p.builder.Call(e.DataType, e.Callee.Name, args), nil
	}
	calleeVal, err := p.lowerValue(&e.Callee)
	if err != nil {
		return 0, err
	}
	t := p.builder.NewTemp()
	p.builder.Emit(ir.Instruction{Op: ir.OpCall, Dest: t, Type: e.DataType, Callee: calleeVal, Args: args})
	return t, nil
}
