package parse

import (
	"fmt"

	"github.com/pkg/errors"

	"j5.nz/cc64/internal/ctype"
	"j5.nz/cc64/internal/token"
)

// specCombinations maps the keyword spellings that combine to name a basic
// arithmetic type to the SimpleType they produce. C lets these combine in
// several orders and redundancies ("unsigned long long int");
// parseDeclarationSpecifiers
// below collects the raw word multiset and resolves it against this
// table's canonical combinations.
var specCombinations = map[string]ctype.SimpleType{
	"void": ctype.Void,
	"char": ctype.Char, "signed char": ctype.SignedChar, "unsigned char": ctype.UnsignedChar,
	"short": ctype.Short, "short int": ctype.Short, "signed short": ctype.Short,
	"unsigned short": ctype.UnsignedShort, "unsigned short int": ctype.UnsignedShort,
	"int": ctype.Int, "signed": ctype.Int, "signed int": ctype.Int,
	"unsigned": ctype.UnsignedInt, "unsigned int": ctype.UnsignedInt,
	"long": ctype.Long, "long int": ctype.Long, "signed long": ctype.Long,
	"unsigned long": ctype.UnsignedLong, "unsigned long int": ctype.UnsignedLong,
	"long long": ctype.LongLong, "long long int": ctype.LongLong, "signed long long": ctype.LongLong,
	"unsigned long long": ctype.UnsignedLongLong, "unsigned long long int": ctype.UnsignedLongLong,
	"float":       ctype.Float,
	"double":      ctype.Double,
	"long double": ctype.LongDouble,
	"_Bool":       ctype.Bool,
}

var typeKeywords = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true, "_Bool": true,
	"struct": true, "union": true, "enum": true, "const": true, "volatile": true,
	"static": true, "extern": true, "typedef": true, "register": true, "inline": true,
	"_Noreturn": true,
}

// startsDeclaration reports whether the current token could begin a
// declaration's type-specifier sequence, matching the lookahead the
// original's parser uses to distinguish a declaration from a statement in
// a block.
func (p *Parser) startsDeclaration() bool {
	t := p.peek()
	if t.Kind != token.Ident {
		return false
	}
	if typeKeywords[t.Spelling()] {
		return true
	}
	_, ok := p.scope.lookupTypedef(t.Spelling())
	return ok
}

// specResult is the outcome of parsing a declaration's specifier sequence:
// the resolved base type plus the storage-class flags that apply to every
// declarator in the list.
type specResult struct {
	base     ctype.TypeID
	isStatic bool
	isExtern bool
	isTypedef bool
}

func (p *Parser) parseDeclarationSpecifiers() (specResult, error) {
	var words []string
	var res specResult
	var sawStruct, sawUnion, sawEnum bool
	var aggregateType ctype.TypeID

	for {
		t := p.peek()
		if t.Kind != token.Ident {
			break
		}
		switch t.Spelling() {
		case "const", "volatile", "register", "inline", "_Noreturn":
			p.advance()
			continue
		case "static":
			p.advance()
			res.isStatic = true
			continue
		case "extern":
			p.advance()
			res.isExtern = true
			continue
		case "typedef":
			p.advance()
			res.isTypedef = true
			continue
		case "struct", "union":
			isUnion := t.Spelling() == "union"
			p.advance()
			sd, err := p.parseStructOrUnionSpecifier(isUnion)
			if err != nil {
				return res, err
			}
			aggregateType = p.types.Struct(sd)
			if isUnion {
				sawUnion = true
			} else {
				sawStruct = true
			}
			continue
		case "enum":
			p.advance()
			ed, err := p.parseEnumSpecifier()
			if err != nil {
				return res, err
			}
			aggregateType = p.types.Enum(ed)
			sawEnum = true
			continue
		}

		if typeKeywords[t.Spelling()] {
			words = append(words, t.Spelling())
			p.advance()
			continue
		}
		if tdType, ok := p.scope.lookupTypedef(t.Spelling()); ok && len(words) == 0 && !sawStruct && !sawUnion && !sawEnum {
			p.advance()
			res.base = tdType
			return res, nil
		}
		break
	}

	if sawStruct || sawUnion || sawEnum {
		res.base = aggregateType
		return res, nil
	}

	if len(words) == 0 {
		words = []string{"int"}
	}
	key := joinWords(words)
	st, ok := specCombinations[key]
	if !ok {
		return res, errors.WithStack(fmt.Errorf("unrecognized type specifier combination %q", key))
	}
	res.base = p.types.Simple(st)
	return res, nil
}

func joinWords(words []string) string {
	// Canonicalize word order (C allows "long unsigned int" etc.) by
	// sorting into the fixed order the table keys use.
	order := []string{"signed", "unsigned", "short", "long", "long", "char", "int", "float", "double", "_Bool"}
	counts := map[string]int{}
	for _, w := range words {
		counts[w]++
	}
	var out string
	for _, w := range order {
		for counts[w] > 0 {
			if out != "" {
				out += " "
			}
			out += w
			counts[w]--
		}
	}
	return out
}

// parseStructOrUnionSpecifier handles `struct TAG { ... }`, `struct TAG`,
// and `struct { ... }`, grounded on types.c's register_struct identity
// discipline (DESIGN.md: each definition gets a fresh StructData).
func (p *Parser) parseStructOrUnionSpecifier(isUnion bool) (*ctype.StructData, error) {
	var name string
	if p.peek().Kind == token.Ident && !p.peek().Is("{") {
		name = p.advance().Spelling()
	}

	if !p.peek().Is("{") {
		if name == "" {
			return nil, errors.WithStack(fmt.Errorf("%s: expected struct/union tag or body", p.peek().Pos))
		}
		if sd, ok := p.scope.lookupStruct(name); ok {
			return sd, nil
		}
		sd := ctype.NewStructData(name, isUnion)
		p.scope.defineStruct(name, sd)
		return sd, nil
	}

	p.advance() // {
	sd := ctype.NewStructData(name, isUnion)
	if name != "" {
		p.scope.defineStruct(name, sd)
	}

	var offset int64
	for !p.peek().Is("}") {
		specs, err := p.parseDeclarationSpecifiers()
		if err != nil {
			return nil, err
		}
		for {
			fieldName, ty, err := p.parseDeclarator(specs.base)
			if err != nil {
				return nil, err
			}
			bitfield := -1
			if p.match(":") {
				widthTok := p.advance()
				v, _ := parsePPNumberInt(widthTok.Spelling())
				bitfield = int(v)
			}
			size := p.sizeOf(ty)
			if !sd.IsUnion {
				sd.Fields = append(sd.Fields, ctype.Field{Name: fieldName, Type: ty, Bitfield: bitfield, Offset: offset})
				offset += size
			} else {
				sd.Fields = append(sd.Fields, ctype.Field{Name: fieldName, Type: ty, Bitfield: bitfield, Offset: 0})
				if size > sd.Size {
					sd.Size = size
				}
			}
			if !p.match(",") {
				break
			}
		}
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
	}
	p.advance() // }
	if !sd.IsUnion {
		sd.Size = offset
	}
	sd.IsComplete = true
	sd.Fields = ctype.MergeAnonymous(sd.Fields, p.types.Lookup)
	return sd, nil
}

func (p *Parser) parseEnumSpecifier() (*ctype.EnumData, error) {
	var name string
	if p.peek().Kind == token.Ident && !p.peek().Is("{") {
		name = p.advance().Spelling()
	}
	if !p.peek().Is("{") {
		if ed, ok := p.scope.lookupEnum(name); ok {
			return ed, nil
		}
		ed := ctype.NewEnumData(name)
		p.scope.defineEnum(name, ed)
		return ed, nil
	}
	p.advance()
	ed := ctype.NewEnumData(name)
	if name != "" {
		p.scope.defineEnum(name, ed)
	}
	var next int64
	for !p.peek().Is("}") {
		enumName := p.advance().Spelling()
		if p.match("=") {
			v, err := p.parseConstantIntExpr()
			if err != nil {
				return nil, err
			}
			next = v
		}
		ed.Enumerators = append(ed.Enumerators, enumName)
		p.scope.define(enumName, binding{ty: p.types.Simple(ctype.Int), isGlobal: true})
		next++
		if !p.match(",") {
			break
		}
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	ed.IsComplete = true
	return ed, nil
}

// parseDeclarator parses one declarator (pointer/array/function suffixes
// around a name) given the already-resolved base type, returning the
// declared name and its fully adjusted type. Grounded on a recursive-
// descent parser's declarator-suffix loop, generalized to C's
// prefix-pointer, postfix-array/function grammar.
func (p *Parser) parseDeclarator(base ctype.TypeID) (string, ctype.TypeID, error) {
	ty := base
	for p.match("*") {
		for p.match("const") || p.match("volatile") {
		}
		ty = p.types.Pointer(ty)
	}

	var name string
	if p.peek().Kind == token.Ident && !typeKeywords[p.peek().Spelling()] {
		name = p.advance().Spelling()
	}

	for {
		switch {
		case p.match("["):
			if p.match("]") {
				ty = p.types.IncompleteArray(ty)
				continue
			}
			n, err := p.parseConstantIntExpr()
			if err != nil {
				return "", 0, err
			}
			if _, err := p.expect("]"); err != nil {
				return "", 0, err
			}
			ty = p.types.Array(ty, n)
			continue
		case p.match("("):
			var params []ctype.TypeID
			var names []string
			variadic := false
			for !p.peek().Is(")") {
				if p.match("...") {
					variadic = true
					break
				}
				specs, err := p.parseDeclarationSpecifiers()
				if err != nil {
					return "", 0, err
				}
				pname, pty, err := p.parseDeclarator(specs.base)
				if err != nil {
					return "", 0, err
				}
				params = append(params, p.types.ParameterAdjust(pty))
				names = append(names, pname)
				if !p.match(",") {
					break
				}
			}
			if _, err := p.expect(")"); err != nil {
				return "", 0, err
			}
			ty = p.types.Function(ty, params, variadic)
			// Remembered so a following function-definition body can
			// bind parameter names to stack slots; a prototype (no
			// body) simply never reads it back.
			p.lastParamNames = names
			continue
		}
		break
	}
	return name, ty, nil
}

// sizeOf returns the byte size of ty; grounded on types.c's size
// computation, reduced here to the fixed x86-64 System V sizes this
// repository's naive backend targets; no alignment is computed or applied.
func (p *Parser) sizeOf(id ctype.TypeID) int64 {
	t := p.types.Lookup(id)
	switch t.Kind {
	case ctype.KindSimple:
		return simpleTypeSize(t.Simple)
	case ctype.KindPointer, ctype.KindFunction:
		return 8
	case ctype.KindArray:
		return t.ArrayLen * p.sizeOf(t.Elem)
	case ctype.KindStruct:
		return t.Struct.Size
	case ctype.KindEnum:
		return 4
	default:
		return 8
	}
}

func simpleTypeSize(st ctype.SimpleType) int64 {
	switch st {
	case ctype.Void:
		return 0
	case ctype.Bool, ctype.Char, ctype.SignedChar, ctype.UnsignedChar:
		return 1
	case ctype.Short, ctype.UnsignedShort:
		return 2
	case ctype.Int, ctype.UnsignedInt, ctype.Float:
		return 4
	case ctype.Long, ctype.UnsignedLong, ctype.LongLong, ctype.UnsignedLongLong, ctype.Double:
		return 8
	case ctype.LongDouble:
		return 16
	case ctype.FloatComplex:
		return 8
	case ctype.DoubleComplex:
		return 16
	case ctype.LongDoubleComplex:
		return 32
	default:
		return 8
	}
}
