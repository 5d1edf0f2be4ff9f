// Package token implements the lexical token representation shared by the
// preprocessor and parser: interned, source-position-bearing tokens over an
// arena-owned byte buffer.
package token

import "fmt"

// Kind is the variant tag of a Token.
type Kind int

const (
	Ident Kind = iota
	Number
	CharConst
	String
	Punct
	DirectiveStart
	HeaderName
	EOI
)

func (k Kind) String() string {
	switch k {
	case Ident:
		return "ident"
	case Number:
		return "number"
	case CharConst:
		return "char-const"
	case String:
		return "string"
	case Punct:
		return "punct"
	case DirectiveStart:
		return "directive-start"
	case HeaderName:
		return "header-name"
	case EOI:
		return "eoi"
	default:
		return "unknown"
	}
}

// Position is a source location: path, line, column (all 1-based except
// an empty Path).
type Position struct {
	Path string
	Line int
	Col  int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Path, p.Line, p.Col)
}

// StringView is a pointer+length view into an arena-owned byte buffer.
// Equality is by content, not identity.
type StringView struct {
	Data  []byte
	Start int
	Len   int
}

// NewStringView constructs a view over the whole of a byte slice.
func NewStringView(data []byte) StringView {
	return StringView{Data: data, Start: 0, Len: len(data)}
}

func (s StringView) bytes() []byte {
	return s.Data[s.Start : s.Start+s.Len]
}

// Equal compares two views by byte content.
func (s StringView) Equal(o StringView) bool {
	if s.Len != o.Len {
		return false
	}
	a, b := s.bytes(), o.bytes()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// EqualString compares the view's content against a Go string.
func (s StringView) EqualString(str string) bool {
	if s.Len != len(str) {
		return false
	}
	b := s.bytes()
	for i := 0; i < s.Len; i++ {
		if b[i] != str[i] {
			return false
		}
	}
	return true
}

// String copies the view's bytes into an owned Go string.
func (s StringView) String() string {
	return string(s.bytes())
}

// internTable canonicalizes repeated identical spellings to one Go string
// allocation: a view may be converted to an owned interned string on
// demand, without forcing every token through interning up front.
var internTable = map[string]string{}

// Intern returns a canonical Go string for the view's content: repeated
// calls with equal content return the same underlying string allocation.
func (s StringView) Intern() string {
	str := s.String()
	if canon, ok := internTable[str]; ok {
		return canon
	}
	internTable[str] = str
	return str
}

// Token is a single lexical unit: a variant tag, its spelling, a source
// position, and the two flags needed by the preprocessor (first token on a
// logical line, preceded by whitespace).
type Token struct {
	Kind                  Kind
	Text                  StringView
	Pos                   Position
	FirstOfLine           bool
	PrecededByWhitespace  bool
}

// Spelling is a convenience accessor returning the token's owned text.
func (t Token) Spelling() string {
	return t.Text.String()
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Spelling(), t.Pos)
}

// Is reports whether the token is a punctuator/keyword spelled exactly s.
func (t Token) Is(s string) bool {
	return t.Text.EqualString(s)
}

// IsIdent reports whether the token is an identifier spelled exactly s.
func (t Token) IsIdent(s string) bool {
	return t.Kind == Ident && t.Text.EqualString(s)
}
