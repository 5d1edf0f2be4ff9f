package parse

import (
	"j5.nz/cc64/internal/ast"
	"j5.nz/cc64/internal/ctype"
	"j5.nz/cc64/internal/ir"
)

// parseExternalDeclaration parses one top-level construct: a function
// definition, a global variable declaration (with optional initializer),
// or a bare type/tag declaration (`struct foo;`). Grounded on a
// recursive-descent parser's top-level declaration loop, generalized to
// C's declarator grammar and its function-definition-vs-prototype
// ambiguity (resolved by lookahead for a following `{`).
func (p *Parser) parseExternalDeclaration() error {
	specs, err := p.parseDeclarationSpecifiers()
	if err != nil {
		return err
	}

	if p.match(";") {
		return nil // bare struct/union/enum tag declaration
	}

	for {
		name, ty, err := p.parseDeclarator(specs.base)
		if err != nil {
			return err
		}

		if specs.isTypedef {
			p.scope.defineTypedef(name, ty)
			if !p.match(",") {
				break
			}
			continue
		}

		if p.types.Lookup(ty).Kind == ctype.KindFunction && p.peek().Is("{") {
			if err := p.parseFunctionDefinition(name, ty, specs); err != nil {
				return err
			}
			return nil
		}

		g := &Global{Name: name, Type: ty, IsStatic: specs.isStatic, IsExtern: specs.isExtern}
		if p.match("=") {
			items, err := p.parseInitializer()
			if err != nil {
				return err
			}
			g.Init = ast.ExpandInitializer(p.types, ty, items, 0, p.sizeOf)
			for i := range g.Init {
				p.hoistCompoundLiteralsIn(g.Init[i].Expr)
			}
		}
		p.Globals[name] = g
		p.scope.define(name, binding{ty: ty, isGlobal: true})

		if !p.match(",") {
			break
		}
	}
	_, err = p.expect(";")
	return err
}

// hoistCompoundLiteralsIn runs compound literal hoisting over e (nil-safe)
// using the translation unit's shared counter and sink, needed since a
// global initializer's scalar expressions can themselves contain compound
// literals whose address is taken.
func (p *Parser) hoistCompoundLiteralsIn(e *ast.Expr) {
	if e == nil {
		return
	}
	ast.HoistCompoundLiterals(e, p.literalCounter, p.compoundLiterals, p.sizeOf)
}

func (p *Parser) parseFunctionDefinition(name string, ty ctype.TypeID, specs specResult) error {
	ft := p.types.Lookup(ty)

	p.builder = ir.NewBuilder(name, !specs.isStatic, ft.Return)
	p.builder.SetUsesVA(ft.IsVariadic)
	outer := p.scope
	p.scope = newScope(outer)
	defer func() { p.scope = outer }()

	// parseDeclarator's "(" case stashed the parameter names it parsed
	// (alongside the types already folded into ft.Params) in
	// lastParamNames; bind each into the function-body scope as a fresh
	// stack-resident local.
	for i, pname := range p.lastParamNames {
		if pname == "" || i >= len(ft.Params) {
			continue
		}
		idx := p.builder.AddVariable(pname, ft.Params[i], p.sizeOf(ft.Params[i]), true)
		p.scope.define(pname, binding{ty: ft.Params[i], varIndex: idx})
	}

	body, err := p.parseCompoundStatement()
	if err != nil {
		return err
	}
	if err := p.lowerFunctionBody(body); err != nil {
		return err
	}
	fn := p.builder.Finish()
	ir.PruneUnreachable(fn)
	if err := ir.Verify(fn); err != nil {
		return err
	}
	p.Functions = append(p.Functions, fn)
	p.builder = nil
	return nil
}
