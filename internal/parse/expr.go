package parse

import (
	"fmt"

	"github.com/pkg/errors"

	"j5.nz/cc64/internal/ast"
	"j5.nz/cc64/internal/ctype"
	"j5.nz/cc64/internal/token"
)

// precedence mirrors C's standard binary operator precedence table for
// the subset of expression.h's node kinds this parser builds directly
// (assignment and comma are handled by their own entry points, not this
// table, since they are right-associative / lowest-precedence specials).
var binPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

// ParseExpression parses a full comma expression.
func (p *Parser) ParseExpression() (*ast.Expr, error) {
	e, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	for p.match(",") {
		rhs, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		e = &ast.Expr{Kind: ast.EComma, Left: e, Right: rhs, DataType: rhs.DataType}
	}
	return e, nil
}

var compoundAssignOps = map[string]string{
	"+=": "+", "-=": "-", "*=": "*", "/=": "/", "%=": "%",
	"&=": "&", "|=": "|", "^=": "^", "<<=": "<<", ">>=": ">>",
}

func (p *Parser) parseAssignment() (*ast.Expr, error) {
	left, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.Is("=") {
		p.advance()
		right, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.EAssign, Left: left, Right: right, DataType: left.DataType}, nil
	}
	if op, ok := compoundAssignOps[t.Spelling()]; ok && t.Kind == token.Punct {
		p.advance()
		right, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.EAssign, Op: op, Left: left, Right: right, DataType: left.DataType}, nil
	}
	return left, nil
}

func (p *Parser) parseConditional() (*ast.Expr, error) {
	cond, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if !p.match("?") {
		return cond, nil
	}
	then, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	return &ast.Expr{Kind: ast.EConditional, Cond: cond, Then: then, Else: els, DataType: then.DataType}, nil
}

func (p *Parser) parseBinary(minPrec int) (*ast.Expr, error) {
	left, err := p.parseUnaryLevel()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.Kind != token.Punct {
			break
		}
		prec, ok := binPrecedence[t.Spelling()]
		if !ok || prec < minPrec {
			break
		}
		op := p.advance().Spelling()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left, err = p.makeBinary(op, left, right)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

// makeBinary builds the result node for one binary operator application,
// choosing EPointerAdd/EPointerSub/EBinary and resolving the result
// type: pointer arithmetic scales by element size and is not foldable
// the same way plain arithmetic is.
func (p *Parser) makeBinary(op string, left, right *ast.Expr) (*ast.Expr, error) {
	lt := p.types.Lookup(left.DataType)
	rt := p.types.Lookup(right.DataType)

	if op == "+" && lt.Kind == ctype.KindPointer && p.types.IsInteger(right.DataType) {
		return &ast.Expr{Kind: ast.EPointerAdd, Left: left, Right: right, DataType: left.DataType, ElementSize: p.sizeOf(lt.Elem)}, nil
	}
	if op == "+" && rt.Kind == ctype.KindPointer && p.types.IsInteger(left.DataType) {
		return &ast.Expr{Kind: ast.EPointerAdd, Left: right, Right: left, DataType: right.DataType, ElementSize: p.sizeOf(rt.Elem)}, nil
	}
	if op == "-" && lt.Kind == ctype.KindPointer && rt.Kind == ctype.KindPointer {
		return &ast.Expr{Kind: ast.EPointerDiff, Left: left, Right: right, DataType: p.types.Simple(ctype.Long), ElementSize: p.sizeOf(lt.Elem)}, nil
	}
	if op == "-" && lt.Kind == ctype.KindPointer && p.types.IsInteger(right.DataType) {
		return &ast.Expr{Kind: ast.EPointerSub, Left: left, Right: right, DataType: left.DataType, ElementSize: p.sizeOf(lt.Elem)}, nil
	}

	resultTy := left.DataType
	switch op {
	case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
		resultTy = p.types.Simple(ctype.Int)
	default:
		resultTy = p.usualArithmeticConversion(left.DataType, right.DataType)
	}
	return &ast.Expr{Kind: ast.EBinary, Op: op, Left: left, Right: right, DataType: resultTy}, nil
}

// usualArithmeticConversion implements a simplified 6.3.1.8: the wider of
// the two operand types wins, with floating types always outranking
// integer types.
func (p *Parser) usualArithmeticConversion(a, b ctype.TypeID) ctype.TypeID {
	if p.types.IsFloating(a) && !p.types.IsFloating(b) {
		return a
	}
	if p.types.IsFloating(b) && !p.types.IsFloating(a) {
		return b
	}
	if p.sizeOf(a) >= p.sizeOf(b) {
		return a
	}
	return b
}

func (p *Parser) parseUnaryLevel() (*ast.Expr, error) {
	t := p.peek()
	switch {
	case t.Is("sizeof"):
		p.advance()
		return p.parseSizeofOrAlignof("sizeof")
	case t.IsIdent("_Alignof"):
		p.advance()
		return p.parseSizeofOrAlignof("_Alignof")
	case t.Is("&"):
		p.advance()
		operand, err := p.parseUnaryLevel()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.EAddressOf, Operand: operand, DataType: p.types.Pointer(operand.DataType)}, nil
	case t.Is("*"):
		p.advance()
		operand, err := p.parseUnaryLevel()
		if err != nil {
			return nil, err
		}
		ot := p.types.Lookup(operand.DataType)
		var pointee ctype.TypeID
		if ot.Kind == ctype.KindPointer || ot.Kind == ctype.KindArray || ot.Kind == ctype.KindIncompleteArray {
			pointee = ot.Elem
		}
		return &ast.Expr{Kind: ast.EIndirection, Operand: operand, DataType: pointee}, nil
	case t.Is("-"), t.Is("+"), t.Is("!"), t.Is("~"):
		p.advance()
		operand, err := p.parseUnaryLevel()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.EUnary, Op: t.Spelling(), Operand: operand, DataType: operand.DataType}, nil
	case t.Is("++"), t.Is("--"):
		p.advance()
		operand, err := p.parseUnaryLevel()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.EUnary, Op: t.Spelling(), Operand: operand, DataType: operand.DataType}, nil
	case t.Is("("):
		if p.isCastAhead() {
			p.advance()
			ty, err := p.parseTypeName()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			operand, err := p.parseUnaryLevel()
			if err != nil {
				return nil, err
			}
			return &ast.Expr{Kind: ast.ECast, Operand: operand, DataType: ty}, nil
		}
	}
	return p.parsePostfix()
}

func (p *Parser) isCastAhead() bool {
	if !p.peek().Is("(") {
		return false
	}
	next := p.peekAt(1)
	if next.Kind != token.Ident {
		return false
	}
	if typeKeywords[next.Spelling()] {
		return true
	}
	_, ok := p.scope.lookupTypedef(next.Spelling())
	return ok
}

func (p *Parser) parseTypeName() (ctype.TypeID, error) {
	specs, err := p.parseDeclarationSpecifiers()
	if err != nil {
		return 0, err
	}
	_, ty, err := p.parseDeclarator(specs.base)
	return ty, err
}

func (p *Parser) parseSizeofOrAlignof(which string) (*ast.Expr, error) {
	if p.peek().Is("(") && p.isTypeNameAhead() {
		p.advance()
		ty, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		kind := ast.ESizeof
		if which == "_Alignof" {
			kind = ast.EAlignof
		}
		return &ast.Expr{
			Kind: kind, DataType: p.types.Simple(ctype.UnsignedLong),
			Const: ast.Constant{Kind: ast.ConstInteger, Integer: p.sizeOf(ty), Type: p.types.Simple(ctype.UnsignedLong)},
		}, nil
	}
	operand, err := p.parseUnaryLevel()
	if err != nil {
		return nil, err
	}
	return &ast.Expr{
		Kind: ast.ESizeof, Operand: operand, DataType: p.types.Simple(ctype.UnsignedLong),
		Const: ast.Constant{Kind: ast.ConstInteger, Integer: p.sizeOf(operand.DataType), Type: p.types.Simple(ctype.UnsignedLong)},
	}, nil
}

func (p *Parser) isTypeNameAhead() bool {
	next := p.peekAt(1)
	if next.Kind != token.Ident {
		return false
	}
	if typeKeywords[next.Spelling()] {
		return true
	}
	_, ok := p.scope.lookupTypedef(next.Spelling())
	return ok
}

func (p *Parser) parsePostfix() (*ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.match("["):
			idx, err := p.ParseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect("]"); err != nil {
				return nil, err
			}
			sum, err := p.makeBinary("+", e, idx)
			if err != nil {
				return nil, err
			}
			pt := p.types.Lookup(sum.DataType)
			pointee := pt.Elem
			e = &ast.Expr{Kind: ast.EIndirection, Operand: sum, DataType: pointee}
		case p.match("("):
			var args []ast.Expr
			for !p.peek().Is(")") {
				a, err := p.parseAssignment()
				if err != nil {
					return nil, err
				}
				args = append(args, *a)
				if !p.match(",") {
					break
				}
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			ft := p.types.Lookup(e.DataType)
			retTy := p.types.Simple(ctype.Int)
			if ft.Kind == ctype.KindFunction {
				retTy = ft.Return
			} else if ft.Kind == ctype.KindPointer {
				pointee := p.types.Lookup(ft.Elem)
				if pointee.Kind == ctype.KindFunction {
					retTy = pointee.Return
				}
			}
			e = &ast.Expr{Kind: ast.ECall, Callee: *e, Args: args, DataType: retTy}
		case p.match("."), p.peek().Is("->"):
			arrow := p.peek().Is("->")
			if arrow {
				p.advance()
			}
			name := p.advance().Spelling()
			base := e
			fieldTy := p.types.Simple(ctype.Int)
			bt := p.types.Lookup(base.DataType)
			if arrow && bt.Kind == ctype.KindPointer {
				bt = p.types.Lookup(bt.Elem)
			}
			if bt.Kind == ctype.KindStruct {
				if idx := bt.Struct.MemberIndex(name); idx >= 0 {
					fieldTy = bt.Struct.Fields[idx].Type
				}
			}
			e = &ast.Expr{Kind: ast.EMember, Base: base, Field: name, Arrow: arrow, DataType: fieldTy}
		case p.peek().Is("++"), p.peek().Is("--"):
			op := p.advance().Spelling()
			e = &ast.Expr{Kind: ast.EUnary, Op: op, Operand: e, PostfixIncDec: true, DataType: e.DataType}
		default:
			return e, nil
		}
	}
}

func (p *Parser) parsePrimary() (*ast.Expr, error) {
	t := p.advance()
	switch t.Kind {
	case token.Number:
		return p.numberLiteral(t)
	case token.CharConst:
		return &ast.Expr{
			Kind: ast.EConstant, DataType: p.types.Simple(ctype.Int),
			Const: ast.Constant{Kind: ast.ConstInteger, Type: p.types.Simple(ctype.Int), Integer: charConstValue(t.Spelling())},
		}, nil
	case token.String:
		label := p.internStringLiteral(t.Spelling())
		return &ast.Expr{
			Kind: ast.EConstant, DataType: p.types.Pointer(p.types.Simple(ctype.Char)),
			Const: ast.Constant{Kind: ast.ConstLabel, Label: label},
		}, nil
	case token.Ident:
		return p.identifierExpr(t)
	}
	if t.Is("(") {
		e, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, errors.WithStack(fmt.Errorf("%s: unexpected token %q in expression", t.Pos, t.Spelling()))
}

func (p *Parser) identifierExpr(t token.Token) (*ast.Expr, error) {
	name := t.Spelling()
	if b, ok := p.scope.lookup(name); ok {
		return &ast.Expr{Kind: ast.EVariable, Name: name, DataType: b.ty}, nil
	}
	if g, ok := p.Globals[name]; ok {
		return &ast.Expr{Kind: ast.EVariable, Name: name, DataType: g.Type}, nil
	}
	// Undeclared identifier: treated as an implicitly-declared
	// int-returning function, matching pre-C99 fallback behavior the
	// original's permissive parser relies on for forward-referenced
	// library calls.
	fnTy := p.types.Function(p.types.Simple(ctype.Int), nil, true)
	return &ast.Expr{Kind: ast.EVariable, Name: name, DataType: fnTy}, nil
}

func (p *Parser) numberLiteral(t token.Token) (*ast.Expr, error) {
	s := t.Spelling()
	isFloat := false
	for i := 0; i < len(s); i++ {
		if s[i] == '.' || ((s[i] == 'e' || s[i] == 'E') && i > 0 && s[0] != '0') {
			isFloat = true
			break
		}
	}
	if isFloat {
		f, err := parseFloat(s)
		if err != nil {
			return nil, err
		}
		ty := p.types.Simple(ctype.Double)
		return &ast.Expr{Kind: ast.EConstant, DataType: ty, Const: ast.Constant{Kind: ast.ConstFloating, Type: ty, Float: f}}, nil
	}
	v, err := parsePPNumberInt(s)
	if err != nil {
		return nil, err
	}
	ty := p.types.Simple(ctype.Int)
	if hasSuffix(s, "u", "U") {
		ty = p.types.Simple(ctype.UnsignedInt)
	}
	if hasSuffix(s, "l", "L") {
		ty = p.types.Simple(ctype.Long)
	}
	return &ast.Expr{Kind: ast.EConstant, DataType: ty, Const: ast.Constant{Kind: ast.ConstInteger, Type: ty, Integer: v}}, nil
}

func hasSuffix(s string, chars ...string) bool {
	for _, c := range chars {
		if len(s) > 0 && s[len(s)-len(c):] == c {
			return true
		}
	}
	return false
}

func parseFloat(s string) (float64, error) {
	end := len(s)
	for end > 0 && (s[end-1] == 'f' || s[end-1] == 'F' || s[end-1] == 'l' || s[end-1] == 'L') {
		end--
	}
	var v float64
	_, err := fmt.Sscanf(s[:end], "%g", &v)
	return v, err
}

func charConstValue(spelling string) int64 {
	inner := spelling
	if len(inner) >= 2 && inner[0] == '\'' {
		inner = inner[1 : len(inner)-1]
	}
	if len(inner) == 0 {
		return 0
	}
	if inner[0] == '\\' && len(inner) > 1 {
		switch inner[1] {
		case 'n':
			return '\n'
		case 't':
			return '\t'
		case '0':
			return 0
		default:
			return int64(inner[1])
		}
	}
	return int64(inner[0])
}

// parseConstantIntExpr parses a constant-expression and folds it to an
// int64, failing with an error (not merely a bool) since every caller of
// this (array bounds, designator indices, enumerator values) requires a constant
// expression.
func (p *Parser) parseConstantIntExpr() (int64, error) {
	e, err := p.parseConditional()
	if err != nil {
		return 0, err
	}
	c, ok, err := ast.Evaluate(p.types, e)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.WithStack(fmt.Errorf("expected a constant expression"))
	}
	return c.Integer, nil
}
