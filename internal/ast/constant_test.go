package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"j5.nz/cc64/internal/ctype"
)

func constExpr(ty ctype.TypeID, i int64) *Expr {
	return &Expr{Kind: EConstant, DataType: ty, Const: Constant{Kind: ConstInteger, Type: ty, Integer: i}}
}

func floatExpr(ty ctype.TypeID, f float64) *Expr {
	return &Expr{Kind: EConstant, DataType: ty, Const: Constant{Kind: ConstFloating, Type: ty, Float: f}}
}

func TestEvaluateFoldsIntegerArithmetic(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)

	e := &Expr{Kind: EBinary, Op: "+", DataType: intTy, Left: constExpr(intTy, 3), Right: constExpr(intTy, 4)}
	c, ok, err := Evaluate(types, e)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(7), c.Integer)
}

func TestEvaluateDivisionByZeroIsFatal(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)

	e := &Expr{Kind: EBinary, Op: "/", DataType: intTy, Left: constExpr(intTy, 1), Right: constExpr(intTy, 0)}
	_, ok, err := Evaluate(types, e)
	assert.False(t, ok)
	require.Error(t, err)
	var fe *FoldError
	assert.ErrorAs(t, err, &fe)
}

func TestEvaluateModuloByZeroIsFatal(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)

	e := &Expr{Kind: EBinary, Op: "%", DataType: intTy, Left: constExpr(intTy, 1), Right: constExpr(intTy, 0)}
	_, ok, err := Evaluate(types, e)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestEvaluateMixedFloatIntPromotesToFloat(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)
	doubleTy := types.Simple(ctype.Double)

	e := &Expr{Kind: EBinary, Op: "*", DataType: doubleTy, Left: floatExpr(doubleTy, 2.5), Right: constExpr(intTy, 2)}
	c, ok, err := Evaluate(types, e)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ConstFloating, c.Kind)
	assert.Equal(t, 5.0, c.Float)
}

func TestEvaluateConditionalPicksBranchByTruthiness(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)

	e := &Expr{Kind: EConditional, DataType: intTy,
		Cond: constExpr(intTy, 0), Then: constExpr(intTy, 111), Else: constExpr(intTy, 222)}
	c, ok, err := Evaluate(types, e)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(222), c.Integer)
}

func TestEvaluateCommaReturnsRightOperand(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)

	e := &Expr{Kind: EComma, DataType: intTy, Left: constExpr(intTy, 1), Right: constExpr(intTy, 2)}
	c, ok, err := Evaluate(types, e)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), c.Integer)
}

func TestEvaluateAddressOfVariableProducesLabelPointer(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)
	ptrTy := types.Pointer(intTy)

	e := &Expr{Kind: EAddressOf, DataType: ptrTy, Operand: &Expr{Kind: EVariable, Name: "g", DataType: intTy}}
	c, ok, err := Evaluate(types, e)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ConstLabelPointer, c.Kind)
	assert.Equal(t, "g", c.Label)
}

func TestEvaluatePointerArithmeticScalesByElementSize(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)
	ptrTy := types.Pointer(intTy)

	base := &Expr{Kind: EAddressOf, DataType: ptrTy, Operand: &Expr{Kind: EVariable, Name: "arr", DataType: intTy}}
	e := &Expr{Kind: EPointerAdd, DataType: ptrTy, ElementSize: 4, Left: base, Right: constExpr(intTy, 3)}
	c, ok, err := Evaluate(types, e)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ConstLabelPointer, c.Kind)
	assert.Equal(t, int64(12), c.Offset)
}

func TestEvaluateNonConstantExpressionReturnsFalseNotError(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)

	e := &Expr{Kind: EVariable, Name: "notConst", DataType: intTy}
	c, ok, err := Evaluate(types, e)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Constant{}, c)
}

func TestFoldUnaryOperators(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)

	neg := &Expr{Kind: EUnary, Op: "-", DataType: intTy, Operand: constExpr(intTy, 5)}
	c, ok, err := Evaluate(types, neg)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(-5), c.Integer)

	not := &Expr{Kind: EUnary, Op: "!", DataType: intTy, Operand: constExpr(intTy, 0)}
	c, ok, err = Evaluate(types, not)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), c.Integer)

	bnot := &Expr{Kind: EUnary, Op: "~", DataType: intTy, Operand: constExpr(intTy, 0)}
	c, ok, err = Evaluate(types, bnot)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(-1), c.Integer)
}

func TestCastTruncatesFloatToInteger(t *testing.T) {
	types := ctype.NewInterner()
	intTy := types.Simple(ctype.Int)
	doubleTy := types.Simple(ctype.Double)

	e := &Expr{Kind: ECast, DataType: intTy, Operand: floatExpr(doubleTy, 3.9)}
	c, ok, err := Evaluate(types, e)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ConstInteger, c.Kind)
	assert.Equal(t, int64(3), c.Integer)
}
