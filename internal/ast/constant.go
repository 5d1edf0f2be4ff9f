package ast

import (
	"fmt"

	"j5.nz/cc64/internal/ctype"
)

// ConstantKind tags Constant's variant: an integer(type,value),
// floating(type,value), label_pointer(label,offset), or label(label)
// value.
type ConstantKind int

const (
	ConstInteger ConstantKind = iota
	ConstFloating
	ConstLabelPointer
	ConstLabel
)

// Constant is the result of successfully folding an expression to a
// compile-time value.
type Constant struct {
	Kind    ConstantKind
	Type    ctype.TypeID
	Integer int64
	Float   float64
	Label   string
	Offset  int64 // ConstLabelPointer
}

// FoldError reports that folding hit division or modulo by zero, which is
// a fatal diagnostic in a required-constant-expression context. An
// expression that is simply not constant is not reported with a
// FoldError.
type FoldError struct {
	Msg string
}

func (e *FoldError) Error() string { return e.Msg }

// Evaluate attempts to reduce e to a compile-time Constant. Integer
// operations are computed in int64 with signed semantics; results are not
// truncated to the width of e's type, and unsigned types get no separate
// wraparound or unsigned division/comparison.
// Returns (Constant{}, false, nil) when e is simply not a constant
// expression (not an error — e.g. it reads a non-const variable), and a
// non-nil error for div/mod by zero or for a binary operator the folder
// does not support.
func Evaluate(in *ctype.Interner, e *Expr) (Constant, bool, error) {
	switch e.Kind {
	case EConstant:
		return e.Const, true, nil

	case EAddressOf:
		if e.Operand != nil && e.Operand.Kind == EVariable {
			return Constant{Kind: ConstLabelPointer, Type: e.DataType, Label: e.Operand.Name}, true, nil
		}
		if e.Operand != nil && e.Operand.Kind == ECompoundLiteral && e.Operand.CompoundLabel != "" {
			return Constant{Kind: ConstLabelPointer, Type: e.DataType, Label: e.Operand.CompoundLabel}, true, nil
		}
		return Constant{}, false, nil

	case EUnary:
		v, ok, err := Evaluate(in, e.Operand)
		if err != nil || !ok {
			return Constant{}, ok, err
		}
		return foldUnary(e.Op, v)

	case ECast:
		v, ok, err := Evaluate(in, e.Operand)
		if err != nil || !ok {
			return Constant{}, ok, err
		}
		return foldCast(in, e.DataType, v)

	case EBinary:
		return foldBinary(in, e)

	case EPointerAdd, EPointerSub:
		return foldPointerArith(in, e)

	case EConditional:
		cv, ok, err := Evaluate(in, e.Cond)
		if err != nil || !ok {
			return Constant{}, ok, err
		}
		if constTruthy(cv) {
			return Evaluate(in, e.Then)
		}
		return Evaluate(in, e.Else)

	case EComma:
		return Evaluate(in, e.Right)

	default:
		return Constant{}, false, nil
	}
}

func constTruthy(c Constant) bool {
	if c.Kind == ConstFloating {
		return c.Float != 0
	}
	return c.Integer != 0
}

func foldUnary(op string, v Constant) (Constant, bool, error) {
	switch op {
	case "-":
		if v.Kind == ConstFloating {
			v.Float = -v.Float
		} else {
			v.Integer = -v.Integer
		}
		return v, true, nil
	case "~":
		v.Integer = ^v.Integer
		return v, true, nil
	case "!":
		v.Kind = ConstInteger
		v.Integer = boolToInt(!constTruthy(v))
		return v, true, nil
	case "+":
		return v, true, nil
	default:
		return Constant{}, false, nil
	}
}

func foldCast(in *ctype.Interner, to ctype.TypeID, v Constant) (Constant, bool, error) {
	switch {
	case in.IsFloating(to):
		f := v.Float
		if v.Kind != ConstFloating {
			f = float64(v.Integer)
		}
		return Constant{Kind: ConstFloating, Type: to, Float: f}, true, nil
	case in.IsInteger(to) || in.IsPointer(to):
		i := v.Integer
		if v.Kind == ConstFloating {
			i = int64(v.Float)
		}
		return Constant{Kind: ConstInteger, Type: to, Integer: i}, true, nil
	default:
		return v, true, nil
	}
}

func foldBinary(in *ctype.Interner, e *Expr) (Constant, bool, error) {
	l, ok, err := Evaluate(in, e.Left)
	if err != nil || !ok {
		return Constant{}, ok, err
	}
	r, ok, err := Evaluate(in, e.Right)
	if err != nil || !ok {
		return Constant{}, ok, err
	}

	if in.IsFloating(e.DataType) || l.Kind == ConstFloating || r.Kind == ConstFloating {
		lf, rf := asFloat(l), asFloat(r)
		switch e.Op {
		case "+":
			return Constant{Kind: ConstFloating, Type: e.DataType, Float: lf + rf}, true, nil
		case "-":
			return Constant{Kind: ConstFloating, Type: e.DataType, Float: lf - rf}, true, nil
		case "*":
			return Constant{Kind: ConstFloating, Type: e.DataType, Float: lf * rf}, true, nil
		case "/":
			if rf == 0 {
				return Constant{}, false, &FoldError{"division by zero in constant expression"}
			}
			return Constant{Kind: ConstFloating, Type: e.DataType, Float: lf / rf}, true, nil
		default:
			return Constant{}, false, nil
		}
	}

	li, ri := l.Integer, r.Integer
	switch e.Op {
	case "+":
		return intResult(e.DataType, li+ri), true, nil
	case "-":
		return intResult(e.DataType, li-ri), true, nil
	case "*":
		return intResult(e.DataType, li*ri), true, nil
	case "/":
		if ri == 0 {
			return Constant{}, false, &FoldError{"division by zero in constant expression"}
		}
		return intResult(e.DataType, li/ri), true, nil
	case "%":
		if ri == 0 {
			return Constant{}, false, &FoldError{"modulo by zero in constant expression"}
		}
		return intResult(e.DataType, li%ri), true, nil
	case "&":
		return intResult(e.DataType, li&ri), true, nil
	case "|":
		return intResult(e.DataType, li|ri), true, nil
	case "^":
		return intResult(e.DataType, li^ri), true, nil
	case "<<":
		return intResult(e.DataType, li<<uint(ri)), true, nil
	case ">>":
		return intResult(e.DataType, li>>uint(ri)), true, nil
	case "==":
		return intResult(e.DataType, boolToInt(li == ri)), true, nil
	case "!=":
		return intResult(e.DataType, boolToInt(li != ri)), true, nil
	case "<":
		return intResult(e.DataType, boolToInt(li < ri)), true, nil
	case ">":
		return intResult(e.DataType, boolToInt(li > ri)), true, nil
	case "<=":
		return intResult(e.DataType, boolToInt(li <= ri)), true, nil
	case ">=":
		return intResult(e.DataType, boolToInt(li >= ri)), true, nil
	case "&&":
		return intResult(e.DataType, boolToInt(li != 0 && ri != 0)), true, nil
	case "||":
		return intResult(e.DataType, boolToInt(li != 0 || ri != 0)), true, nil
	default:
		return Constant{}, false, fmt.Errorf("unsupported constant operator %q", e.Op)
	}
}

func foldPointerArith(in *ctype.Interner, e *Expr) (Constant, bool, error) {
	l, ok, err := Evaluate(in, e.Left)
	if err != nil || !ok {
		return Constant{}, ok, err
	}
	r, ok, err := Evaluate(in, e.Right)
	if err != nil || !ok {
		return Constant{}, ok, err
	}
	scale := e.ElementSize
	if scale == 0 {
		scale = 1
	}
	switch {
	case l.Kind == ConstLabelPointer && e.Kind == EPointerAdd:
		return Constant{Kind: ConstLabelPointer, Type: e.DataType, Label: l.Label, Offset: l.Offset + r.Integer*scale}, true, nil
	case l.Kind == ConstLabelPointer && e.Kind == EPointerSub:
		return Constant{Kind: ConstLabelPointer, Type: e.DataType, Label: l.Label, Offset: l.Offset - r.Integer*scale}, true, nil
	default:
		return Constant{}, false, nil
	}
}

func asFloat(c Constant) float64 {
	if c.Kind == ConstFloating {
		return c.Float
	}
	return float64(c.Integer)
}

func intResult(t ctype.TypeID, v int64) Constant {
	return Constant{Kind: ConstInteger, Type: t, Integer: v}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
