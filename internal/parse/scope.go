package parse

import (
	"j5.nz/cc64/internal/ast"
	"j5.nz/cc64/internal/ctype"
)

// binding is one name visible in a scope: either a local variable (with
// its IR builder variable index) or something resolved at global scope.
type binding struct {
	ty       ctype.TypeID
	varIndex int
	isGlobal bool
}

// scope is a simple chained block-scope symbol table, grounded on the
// teacher parser's block-structured name resolution in frontend.go,
// generalized from package/file scope to C's nested block scope.
type scope struct {
	parent *scope
	names  map[string]binding

	structTags map[string]*ctype.StructData
	unionTags  map[string]*ctype.StructData
	enumTags   map[string]*ctype.EnumData
	typedefs   map[string]ctype.TypeID
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, names: make(map[string]binding)}
}

func (s *scope) define(name string, b binding) {
	s.names[name] = b
}

func (s *scope) lookup(name string) (binding, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.names[name]; ok {
			return b, true
		}
	}
	return binding{}, false
}

func (s *scope) lookupStruct(name string) (*ctype.StructData, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.structTags != nil {
			if sd, ok := cur.structTags[name]; ok {
				return sd, true
			}
		}
	}
	return nil, false
}

func (s *scope) defineStruct(name string, sd *ctype.StructData) {
	if s.structTags == nil {
		s.structTags = make(map[string]*ctype.StructData)
	}
	s.structTags[name] = sd
}

func (s *scope) lookupEnum(name string) (*ctype.EnumData, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.enumTags != nil {
			if ed, ok := cur.enumTags[name]; ok {
				return ed, true
			}
		}
	}
	return nil, false
}

func (s *scope) defineEnum(name string, ed *ctype.EnumData) {
	if s.enumTags == nil {
		s.enumTags = make(map[string]*ctype.EnumData)
	}
	s.enumTags[name] = ed
}

func (s *scope) lookupTypedef(name string) (ctype.TypeID, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.typedefs != nil {
			if t, ok := cur.typedefs[name]; ok {
				return t, true
			}
		}
	}
	return 0, false
}

func (s *scope) defineTypedef(name string, t ctype.TypeID) {
	if s.typedefs == nil {
		s.typedefs = make(map[string]ctype.TypeID)
	}
	s.typedefs[name] = t
}

// compoundLiteralSink buffers static initializers produced by compound
// literal hoisting until the translation-unit driver flushes them into
// the object emitter's .data section (ast.EmitStatic's concrete consumer
// for this parser; internal/parse has no direct dependency on
// internal/objfile).
type compoundLiteralSink struct {
	entries []hoistedLiteral
}

type hoistedLiteral struct {
	label string
	init  []ast.InitEntry
	size  int64
}

func (s *compoundLiteralSink) EmitStaticInitializer(label string, entries []ast.InitEntry, size int64, typeSize func(ctype.TypeID) int64) {
	s.entries = append(s.entries, hoistedLiteral{label: label, init: entries, size: size})
}
