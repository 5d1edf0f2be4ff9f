// Package preproc implements the C preprocessor: conditional inclusion,
// macro definition and expansion, and file inclusion, grounded on
// original_source/src/preprocessor/directives.c.
package preproc

import (
	"github.com/dolthub/swiss"

	"j5.nz/cc64/internal/token"
)

// Define is one macro definition: an object-like macro has Params == nil
// and IsFunctionLike == false; a function-like macro (possibly variadic,
// possibly zero-arity) carries its parameter names.
//
// Grounded on directives.c's directiver_define, which parses an optional
// parenthesized, possibly "..."-terminated parameter list before
// collecting replacement tokens up to end of line.
type Define struct {
	Name           string
	IsFunctionLike bool
	Params         []string
	IsVariadic     bool
	Replacement    []token.Token
}

// Table is the set of macros currently defined, keyed by name. Backed by
// swiss.Map for the same reason other large lookup tables in this
// codebase are: open-addressing hash maps outperform Go's builtin map
// under heavy churn, and #define/#undef churn this table constantly
// across a translation unit.
type Table struct {
	m *swiss.Map[string, *Define]
}

// NewTable returns an empty macro table.
func NewTable() *Table {
	return &Table{m: swiss.NewMap[string, *Define](64)}
}

// Define installs (or replaces) a macro definition.
func (t *Table) Define(d *Define) {
	t.m.Put(d.Name, d)
}

// Undef removes a macro definition, if any. Undefining a name that was
// never defined is not an error (directiver_undef tolerates it).
func (t *Table) Undef(name string) {
	t.m.Delete(name)
}

// Lookup returns the macro defined under name, if any.
func (t *Table) Lookup(name string) (*Define, bool) {
	return t.m.Get(name)
}

// IsDefined reports whether name currently has a definition (the `defined`
// operator's primitive).
func (t *Table) IsDefined(name string) bool {
	_, ok := t.m.Get(name)
	return ok
}
