package parse

import (
	"j5.nz/cc64/internal/ast"
	"j5.nz/cc64/internal/token"
)

// parseStatement parses one statement into its ast.Stmt shape. The parser
// builds this tree for a whole function body before lowering it in one
// subsequent walk (flow.go), rather than interleaving parse and codegen
// statement-by-statement, so that forward gotos can resolve against
// labels the walk has not reached yet.
func (p *Parser) parseStatement() (*ast.Stmt, error) {
	t := p.peek()

	if t.Is("{") {
		return p.parseCompoundStatement()
	}

	if p.startsDeclaration() {
		return p.parseDeclarationStatement()
	}

	if t.Kind == token.Ident {
		switch t.Spelling() {
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "do":
			return p.parseDoWhile()
		case "for":
			return p.parseFor()
		case "return":
			return p.parseReturn()
		case "break":
			p.advance()
			_, err := p.expect(";")
			return &ast.Stmt{Kind: ast.SBreak}, err
		case "continue":
			p.advance()
			_, err := p.expect(";")
			return &ast.Stmt{Kind: ast.SContinue}, err
		case "switch":
			return p.parseSwitch()
		case "case":
			return p.parseCase()
		case "default":
			p.advance()
			if _, err := p.expect(":"); err != nil {
				return nil, err
			}
			inner, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			return &ast.Stmt{Kind: ast.SDefault, Then: inner}, nil
		case "goto":
			p.advance()
			name := p.advance().Spelling()
			_, err := p.expect(";")
			return &ast.Stmt{Kind: ast.SGoto, Label: name}, err
		}
		if p.peekAt(1).Is(":") {
			name := p.advance().Spelling()
			p.advance() // :
			inner, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			return &ast.Stmt{Kind: ast.SLabel, Label: name, Then: inner}, nil
		}
	}

	if t.Is(";") {
		p.advance()
		return &ast.Stmt{Kind: ast.SExpr}, nil
	}

	e, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	return &ast.Stmt{Kind: ast.SExpr, Expr: e}, nil
}

func (p *Parser) parseCompoundStatement() (*ast.Stmt, error) {
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	outer := p.scope
	p.scope = newScope(outer)
	defer func() { p.scope = outer }()

	var stmts []ast.Stmt
	for !p.peek().Is("}") && !p.atEOF() {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, *s)
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return &ast.Stmt{Kind: ast.SCompound, Stmts: stmts}, nil
}

// parseDeclarationStatement parses a local variable declaration
// (optionally with an initializer), registering it immediately in the
// current scope so initializer/use sites in the same block resolve it.
func (p *Parser) parseDeclarationStatement() (*ast.Stmt, error) {
	specs, err := p.parseDeclarationSpecifiers()
	if err != nil {
		return nil, err
	}
	var decls []ast.Stmt
	for {
		name, ty, err := p.parseDeclarator(specs.base)
		if err != nil {
			return nil, err
		}
		if specs.isTypedef {
			p.scope.defineTypedef(name, ty)
		} else {
			varIdx := -1
			if p.builder != nil {
				varIdx = p.builder.AddVariable(name, ty, p.sizeOf(ty), false)
			}
			p.scope.define(name, binding{ty: ty, varIndex: varIdx})

			d := &ast.Declarator{Name: name, Type: ty, IsStatic: specs.isStatic, IsExtern: specs.isExtern, VarIndex: varIdx}
			if p.match("=") {
				items, err := p.parseInitializer()
				if err != nil {
					return nil, err
				}
				d.Initializer = ast.ExpandInitializer(p.types, ty, items, 0, p.sizeOf)
			}
			decls = append(decls, ast.Stmt{Kind: ast.SDeclaration, Decl: d})
		}
		if !p.match(",") {
			break
		}
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	if len(decls) == 1 {
		return &decls[0], nil
	}
	return &ast.Stmt{Kind: ast.SCompound, Stmts: decls}, nil
}

// parseInitializer parses either a brace-enclosed initializer list or a
// single assignment-expression, returning the (possibly singleton)
// flattened item list ExpandInitializer expects.
func (p *Parser) parseInitializer() ([]ast.InitItem, error) {
	if !p.peek().Is("{") {
		e, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		if e.Kind == ast.EConstant && e.Const.Kind == ast.ConstLabel {
			if data, ok := p.stringLiteralBytes(e.Const.Label); ok {
				return []ast.InitItem{{String: data}}, nil
			}
		}
		return []ast.InitItem{{Scalar: e}}, nil
	}
	p.advance() // {
	var items []ast.InitItem
	for !p.peek().Is("}") {
		var desig []ast.Designator
		for {
			if p.match(".") {
				name := p.advance().Spelling()
				desig = append(desig, ast.Designator{Field: name})
				continue
			}
			if p.match("[") {
				n, err := p.parseConstantIntExpr()
				if err != nil {
					return nil, err
				}
				if _, err := p.expect("]"); err != nil {
					return nil, err
				}
				desig = append(desig, ast.Designator{Index: n})
				continue
			}
			break
		}
		if len(desig) > 0 {
			if _, err := p.expect("="); err != nil {
				return nil, err
			}
		}
		nested, err := p.parseInitializer()
		if err != nil {
			return nil, err
		}
		if len(nested) == 1 && nested[0].Nested == nil {
			items = append(items, ast.InitItem{Designators: desig, Scalar: nested[0].Scalar, String: nested[0].String})
		} else {
			items = append(items, ast.InitItem{Designators: desig, Nested: nested})
		}
		if !p.match(",") {
			break
		}
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *Parser) parseIf() (*ast.Stmt, error) {
	p.advance()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var els *ast.Stmt
	if p.match("else") {
		els, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return &ast.Stmt{Kind: ast.SIf, Cond: cond, Then: then, Else: els}, nil
}

func (p *Parser) parseWhile() (*ast.Stmt, error) {
	p.advance()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.Stmt{Kind: ast.SWhile, Cond: cond, Body: body}, nil
}

func (p *Parser) parseDoWhile() (*ast.Stmt, error) {
	p.advance()
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("while"); err != nil {
		return nil, err
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	return &ast.Stmt{Kind: ast.SDoWhile, Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (*ast.Stmt, error) {
	p.advance()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	outer := p.scope
	p.scope = newScope(outer)
	defer func() { p.scope = outer }()

	var init *ast.Stmt
	var err error
	if !p.peek().Is(";") {
		if p.startsDeclaration() {
			init, err = p.parseDeclarationStatement()
		} else {
			var e *ast.Expr
			e, err = p.ParseExpression()
			if err == nil {
				init = &ast.Stmt{Kind: ast.SExpr, Expr: e}
				_, err = p.expect(";")
			}
		}
		if err != nil {
			return nil, err
		}
	} else {
		p.advance()
	}

	var cond *ast.Expr
	if !p.peek().Is(";") {
		cond, err = p.ParseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}

	var post *ast.Expr
	if !p.peek().Is(")") {
		post, err = p.ParseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.Stmt{Kind: ast.SFor, Init: init, Cond: cond, Post: post, Body: body}, nil
}

func (p *Parser) parseReturn() (*ast.Stmt, error) {
	p.advance()
	if p.match(";") {
		return &ast.Stmt{Kind: ast.SReturn}, nil
	}
	e, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	return &ast.Stmt{Kind: ast.SReturn, Expr: e}, nil
}

func (p *Parser) parseSwitch() (*ast.Stmt, error) {
	p.advance()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.Stmt{Kind: ast.SSwitch, Cond: cond, Body: body}, nil
}

func (p *Parser) parseCase() (*ast.Stmt, error) {
	p.advance()
	v, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	inner, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.Stmt{Kind: ast.SCase, Cond: v, Then: inner}, nil
}
