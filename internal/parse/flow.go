package parse

import (
	"fmt"

	"github.com/pkg/errors"

	"j5.nz/cc64/internal/ast"
	"j5.nz/cc64/internal/ctype"
	"j5.nz/cc64/internal/ir"
)

// lowerFunctionBody lowers a parsed function body into the function
// currently open on p.builder. Label collection runs first so that a
// goto appearing before its target's textual position still resolves.
func (p *Parser) lowerFunctionBody(body *ast.Stmt) error {
	p.lowerScope = newScope(nil)
	p.labelBlocks = make(map[string]ir.BlockID)
	p.collectLabels(body)
	return p.lowerStmt(body)
}

func (p *Parser) collectLabels(s *ast.Stmt) {
	if s == nil {
		return
	}
	switch s.Kind {
	case ast.SLabel:
		p.labelBlocks[s.Label] = p.builder.NewBlock("label." + s.Label)
		p.collectLabels(s.Then)
	case ast.SCompound:
		for i := range s.Stmts {
			p.collectLabels(&s.Stmts[i])
		}
	default:
		p.collectLabels(s.Then)
		p.collectLabels(s.Else)
		p.collectLabels(s.Body)
		p.collectLabels(s.Init)
	}
}

func (p *Parser) lowerStmt(s *ast.Stmt) error {
	if s == nil {
		return nil
	}
	switch s.Kind {
	case ast.SExpr:
		if s.Expr == nil {
			return nil
		}
		_, err := p.lowerValue(s.Expr)
		return err

	case ast.SDeclaration:
		return p.lowerDeclarationStmt(s.Decl)

	case ast.SCompound:
		outer := p.lowerScope
		p.lowerScope = newScope(outer)
		defer func() { p.lowerScope = outer }()
		for i := range s.Stmts {
			if err := p.lowerStmt(&s.Stmts[i]); err != nil {
				return err
			}
		}
		return nil

	case ast.SIf:
		return p.lowerIf(s)

	case ast.SWhile:
		return p.lowerWhile(s)

	case ast.SDoWhile:
		return p.lowerDoWhile(s)

	case ast.SFor:
		return p.lowerFor(s)

	case ast.SReturn:
		return p.lowerReturn(s)

	case ast.SBreak:
		if len(p.loopExits) == 0 && len(p.switchStack) == 0 {
			return errors.WithStack(fmt.Errorf("break statement not within a loop or switch"))
		}
		p.builder.Jump(p.currentBreakTarget())
		p.builder.SetBlock(p.builder.NewBlock("after.break"))
		return nil

	case ast.SContinue:
		if len(p.loopExits) == 0 {
			return errors.WithStack(fmt.Errorf("continue statement not within a loop"))
		}
		p.builder.Jump(p.loopExits[len(p.loopExits)-1].continueBlock)
		p.builder.SetBlock(p.builder.NewBlock("after.continue"))
		return nil

	case ast.SSwitch:
		return p.lowerSwitch(s)

	case ast.SCase:
		return p.lowerCase(s)

	case ast.SDefault:
		return p.lowerDefault(s)

	case ast.SLabel:
		blk := p.labelBlocks[s.Label]
		p.builder.Jump(blk)
		p.builder.SetBlock(blk)
		return p.lowerStmt(s.Then)

	case ast.SGoto:
		blk, ok := p.labelBlocks[s.Label]
		if !ok {
			return errors.WithStack(fmt.Errorf("goto references undefined label %q", s.Label))
		}
		p.builder.Jump(blk)
		p.builder.SetBlock(p.builder.NewBlock("after.goto"))
		return nil

	default:
		return errors.WithStack(fmt.Errorf("lowering of statement kind %d is not implemented", s.Kind))
	}
}

// currentBreakTarget returns the nearest enclosing loop or switch's break
// target, whichever was entered most recently; both stacks are tracked
// separately since a switch nested in a loop (or vice versa) must not let
// the wrong construct claim an unlabeled break.
func (p *Parser) currentBreakTarget() ir.BlockID {
	if len(p.switchStack) > 0 {
		return p.switchStack[len(p.switchStack)-1].breakBlock
	}
	return p.loopExits[len(p.loopExits)-1].breakBlock
}

func (p *Parser) lowerDeclarationStmt(d *ast.Declarator) error {
	p.lowerScope.define(d.Name, binding{ty: d.Type, varIndex: d.VarIndex})
	if d.Initializer == nil {
		return nil
	}
	slot := p.builder.Variable(d.VarIndex).StackSlot
	base := p.builder.AddressOfLocal(slot, p.types.Pointer(d.Type))
	for _, entry := range d.Initializer {
		addr := base
		if entry.ByteOffset != 0 {
			off := p.builder.Constant(ir.Constant{Int: entry.ByteOffset, Type: p.types.Simple(ctype.Long)})
			addr = p.builder.Binary(ir.Add, p.types.Pointer(d.Type), base, off)
		}
		if entry.Expr != nil {
			v, err := p.lowerValue(entry.Expr)
			if err != nil {
				return err
			}
			p.builder.Store(entry.Expr.DataType, addr, v)
		}
	}
	return nil
}

func (p *Parser) lowerIf(s *ast.Stmt) error {
	cv, err := p.lowerValue(s.Cond)
	if err != nil {
		return err
	}
	zero := p.builder.Constant(ir.Constant{Type: s.Cond.DataType})
	cmp := p.builder.Binary(ir.NotEqual, p.types.Simple(ctype.Int), cv, zero)

	thenBlock := p.builder.NewBlock("if.then")
	joinBlock := p.builder.NewBlock("if.join")
	elseBlock := joinBlock
	if s.Else != nil {
		elseBlock = p.builder.NewBlock("if.else")
	}
	p.builder.If(cmp, thenBlock, elseBlock)

	p.builder.SetBlock(thenBlock)
	if err := p.lowerStmt(s.Then); err != nil {
		return err
	}
	p.builder.Jump(joinBlock)

	if s.Else != nil {
		p.builder.SetBlock(elseBlock)
		if err := p.lowerStmt(s.Else); err != nil {
			return err
		}
		p.builder.Jump(joinBlock)
	}

	p.builder.SetBlock(joinBlock)
	return nil
}

func (p *Parser) lowerWhile(s *ast.Stmt) error {
	condBlock := p.builder.NewBlock("while.cond")
	bodyBlock := p.builder.NewBlock("while.body")
	doneBlock := p.builder.NewBlock("while.done")

	p.builder.Jump(condBlock)
	p.builder.SetBlock(condBlock)
	cv, err := p.lowerValue(s.Cond)
	if err != nil {
		return err
	}
	zero := p.builder.Constant(ir.Constant{Type: s.Cond.DataType})
	cmp := p.builder.Binary(ir.NotEqual, p.types.Simple(ctype.Int), cv, zero)
	p.builder.If(cmp, bodyBlock, doneBlock)

	p.builder.SetBlock(bodyBlock)
	p.loopExits = append(p.loopExits, loopTargets{continueBlock: condBlock, breakBlock: doneBlock})
	err = p.lowerStmt(s.Body)
	p.loopExits = p.loopExits[:len(p.loopExits)-1]
	if err != nil {
		return err
	}
	p.builder.Jump(condBlock)

	p.builder.SetBlock(doneBlock)
	return nil
}

func (p *Parser) lowerDoWhile(s *ast.Stmt) error {
	bodyBlock := p.builder.NewBlock("dowhile.body")
	condBlock := p.builder.NewBlock("dowhile.cond")
	doneBlock := p.builder.NewBlock("dowhile.done")

	p.builder.Jump(bodyBlock)
	p.builder.SetBlock(bodyBlock)
	p.loopExits = append(p.loopExits, loopTargets{continueBlock: condBlock, breakBlock: doneBlock})
	err := p.lowerStmt(s.Body)
	p.loopExits = p.loopExits[:len(p.loopExits)-1]
	if err != nil {
		return err
	}
	p.builder.Jump(condBlock)

	p.builder.SetBlock(condBlock)
	cv, err := p.lowerValue(s.Cond)
	if err != nil {
		return err
	}
	zero := p.builder.Constant(ir.Constant{Type: s.Cond.DataType})
	cmp := p.builder.Binary(ir.NotEqual, p.types.Simple(ctype.Int), cv, zero)
	p.builder.If(cmp, bodyBlock, doneBlock)

	p.builder.SetBlock(doneBlock)
	return nil
}

func (p *Parser) lowerFor(s *ast.Stmt) error {
	outer := p.lowerScope
	p.lowerScope = newScope(outer)
	defer func() { p.lowerScope = outer }()

	if s.Init != nil {
		if err := p.lowerStmt(s.Init); err != nil {
			return err
		}
	}

	condBlock := p.builder.NewBlock("for.cond")
	bodyBlock := p.builder.NewBlock("for.body")
	postBlock := p.builder.NewBlock("for.post")
	doneBlock := p.builder.NewBlock("for.done")

	p.builder.Jump(condBlock)
	p.builder.SetBlock(condBlock)
	if s.Cond != nil {
		cv, err := p.lowerValue(s.Cond)
		if err != nil {
			return err
		}
		zero := p.builder.Constant(ir.Constant{Type: s.Cond.DataType})
		cmp := p.builder.Binary(ir.NotEqual, p.types.Simple(ctype.Int), cv, zero)
		p.builder.If(cmp, bodyBlock, doneBlock)
	} else {
		p.builder.Jump(bodyBlock)
	}

	p.builder.SetBlock(bodyBlock)
	p.loopExits = append(p.loopExits, loopTargets{continueBlock: postBlock, breakBlock: doneBlock})
	err := p.lowerStmt(s.Body)
	p.loopExits = p.loopExits[:len(p.loopExits)-1]
	if err != nil {
		return err
	}
	p.builder.Jump(postBlock)

	p.builder.SetBlock(postBlock)
	if s.Post != nil {
		if _, err := p.lowerValue(s.Post); err != nil {
			return err
		}
	}
	p.builder.Jump(condBlock)

	p.builder.SetBlock(doneBlock)
	return nil
}

func (p *Parser) lowerReturn(s *ast.Stmt) error {
	if s.Expr == nil {
		p.builder.ReturnZero()
		p.builder.SetBlock(p.builder.NewBlock("after.return"))
		return nil
	}
	v, err := p.lowerValue(s.Expr)
	if err != nil {
		return err
	}
	p.builder.Return(v)
	p.builder.SetBlock(p.builder.NewBlock("after.return"))
	return nil
}

// lowerSwitch lowers a switch statement's body in two passes: the body is
// lowered straight-line (case/default labels just mark blocks, matching C's
// fallthrough semantics), and the resulting CaseLabel table is attached to
// the entry block's terminator only once every case has registered itself.
func (p *Parser) lowerSwitch(s *ast.Stmt) error {
	cv, err := p.lowerValue(s.Cond)
	if err != nil {
		return err
	}
	bodyBlock := p.builder.NewBlock("switch.body")
	doneBlock := p.builder.NewBlock("switch.done")
	dispatchBlock := p.builder.CurrentBlock()

	// defaultBlock starts out pointing at doneBlock so a switch with no
	// explicit default still falls through correctly when no case
	// matches; lowerDefault overwrites it if the switch has one.
	ctx := &switchContext{valueTy: s.Cond.DataType, breakBlock: doneBlock, defaultBlock: doneBlock}
	p.switchStack = append(p.switchStack, ctx)
	p.builder.SetBlock(bodyBlock)
	err = p.lowerStmt(s.Body)
	p.switchStack = p.switchStack[:len(p.switchStack)-1]
	if err != nil {
		return err
	}
	p.builder.Jump(doneBlock)

	p.builder.SetBlock(dispatchBlock)
	p.builder.Switch(cv, ctx.cases, ctx.defaultBlock, ctx.hasDefault)
	p.builder.SetBlock(doneBlock)
	return nil
}

func (p *Parser) lowerCase(s *ast.Stmt) error {
	if len(p.switchStack) == 0 {
		return errors.WithStack(fmt.Errorf("case label not within a switch"))
	}
	v, ok, err := ast.Evaluate(p.types, s.Cond)
	if err != nil {
		return err
	}
	if !ok {
		return errors.WithStack(fmt.Errorf("case label does not reduce to a constant expression"))
	}
	ctx := p.switchStack[len(p.switchStack)-1]
	blk := p.builder.NewBlock("case")
	p.builder.Jump(blk)
	p.builder.SetBlock(blk)
	ctx.cases = append(ctx.cases, ir.CaseLabel{Value: v.Integer, Block: blk})
	return p.lowerStmt(s.Then)
}

func (p *Parser) lowerDefault(s *ast.Stmt) error {
	if len(p.switchStack) == 0 {
		return errors.WithStack(fmt.Errorf("default label not within a switch"))
	}
	ctx := p.switchStack[len(p.switchStack)-1]
	blk := p.builder.NewBlock("default")
	p.builder.Jump(blk)
	p.builder.SetBlock(blk)
	ctx.defaultBlock = blk
	ctx.hasDefault = true
	return p.lowerStmt(s.Then)
}
