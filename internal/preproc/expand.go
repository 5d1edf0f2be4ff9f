package preproc

import (
	"strings"

	"j5.nz/cc64/internal/token"
)

// hsToken pairs a token with the hide set accumulated for it so far
// during expansion: a macro name must never be expanded within its own
// replacement.
type hsToken struct {
	tok token.Token
	hs  HideSet
}

// Expander performs macro expansion against a fixed Table, grounded on
// directives.c's expand_token_list and the argument-collection logic
// embedded in directiver_define's function-like macro handling.
type Expander struct {
	table *Table
	names *names
}

// NewExpander returns an expander backed by table.
func NewExpander(table *Table) *Expander {
	return &Expander{table: table, names: newNames()}
}

// Expand fully macro-expands toks, returning the resulting token sequence.
func (ex *Expander) Expand(toks []token.Token) []token.Token {
	in := make([]hsToken, len(toks))
	for i, t := range toks {
		in[i] = hsToken{tok: t, hs: emptyHideSet}
	}
	out := ex.expandList(in)
	result := make([]token.Token, len(out))
	for i, h := range out {
		result[i] = h.tok
	}
	return result
}

func (ex *Expander) expandList(in []hsToken) []hsToken {
	var out []hsToken
	i := 0
	for i < len(in) {
		cur := in[i]

		if cur.tok.Kind != token.Ident {
			out = append(out, cur)
			i++
			continue
		}

		name := cur.tok.Spelling()
		if cur.hs.Contains(ex.names, name) {
			out = append(out, cur)
			i++
			continue
		}
		def, ok := ex.table.Lookup(name)
		if !ok {
			out = append(out, cur)
			i++
			continue
		}

		if !def.IsFunctionLike {
			hs2 := cur.hs.Add(ex.names, name)
			subst := ex.substitute(def, nil, hs2)
			in = spliceIn(in, i, 1, subst)
			continue
		}

		// Function-like: only invoked as a macro if immediately
		// followed (modulo already-expanded tokens, which is what `in`
		// already holds at this point) by `(`.
		j := i + 1
		if j >= len(in) || !in[j].tok.Is("(") {
			out = append(out, cur)
			i++
			continue
		}

		args, closeIdx, ok := collectArgs(in, j)
		if !ok {
			// Unterminated invocation: treat the name as an ordinary
			// identifier rather than hanging.
			out = append(out, cur)
			i++
			continue
		}
		closeHS := in[closeIdx].hs
		hs2 := cur.hs.Add(ex.names, name).Union(closeHS)

		bound := bindArgs(def, args, ex)
		subst := ex.substituteFunctionLike(def, bound, hs2)
		in = spliceIn(in, i, closeIdx-i+1, subst)
	}
	return out
}

// spliceIn replaces n elements of in starting at i with repl, returning the
// updated slice; the replaced region is re-scanned (not appended to out)
// because its expansion may itself invoke further macros.
func spliceIn(in []hsToken, i, n int, repl []hsToken) []hsToken {
	tail := append([]hsToken{}, in[i+n:]...)
	head := append([]hsToken{}, in[:i]...)
	head = append(head, repl...)
	return append(head, tail...)
}

// collectArgs gathers the comma-separated, paren-balanced argument token
// lists of a function-like macro invocation whose `(` is at in[openIdx].
// Returns the per-argument token slices, the index of the matching `)`,
// and ok=false if no matching close paren exists.
func collectArgs(in []hsToken, openIdx int) (args [][]hsToken, closeIdx int, ok bool) {
	depth := 0
	var cur []hsToken
	i := openIdx
	for i < len(in) {
		t := in[i]
		switch {
		case t.tok.Is("("):
			if depth > 0 {
				cur = append(cur, t)
			}
			depth++
		case t.tok.Is(")"):
			depth--
			if depth == 0 {
				args = append(args, cur)
				return args, i, true
			}
			cur = append(cur, t)
		case t.tok.Is(",") && depth == 1:
			args = append(args, cur)
			cur = nil
		default:
			cur = append(cur, t)
		}
		i++
	}
	return nil, 0, false
}

// boundArg is one formal parameter's argument: its raw (unexpanded) tokens
// and, lazily, its fully macro-expanded form (needed wherever the
// parameter appears outside of # or next to ##).
type boundArg struct {
	raw      []hsToken
	expanded []hsToken
	didExp   bool
}

func bindArgs(def *Define, args [][]hsToken, ex *Expander) map[string]*boundArg {
	bound := make(map[string]*boundArg, len(def.Params)+1)
	for i, p := range def.Params {
		var raw []hsToken
		if i < len(args) {
			raw = args[i]
		}
		bound[p] = &boundArg{raw: raw}
	}
	if def.IsVariadic {
		var raw []hsToken
		if len(args) > len(def.Params) {
			raw = args[len(def.Params)]
			for _, extra := range args[len(def.Params)+1:] {
				raw = append(raw, hsToken{tok: commaToken()})
				raw = append(raw, extra...)
			}
		}
		bound["__VA_ARGS__"] = &boundArg{raw: raw}
	}
	_ = ex
	return bound
}

func commaToken() token.Token {
	return token.Token{Kind: token.Punct, Text: token.NewStringView([]byte(","))}
}

func (b *boundArg) expand(ex *Expander) []hsToken {
	if !b.didExp {
		b.expanded = ex.expandList(append([]hsToken{}, b.raw...))
		b.didExp = true
	}
	return b.expanded
}

// substitute expands an object-like macro's replacement list, applying the
// hide set hs to every produced token.
func (ex *Expander) substitute(def *Define, bound map[string]*boundArg, hs HideSet) []hsToken {
	return ex.substituteTokens(def.Replacement, bound, hs)
}

// substituteFunctionLike performs parameter substitution (including # and
// ##) over a function-like macro's replacement list, then applies hs.
func (ex *Expander) substituteFunctionLike(def *Define, bound map[string]*boundArg, hs HideSet) []hsToken {
	repl := def.Replacement
	var out []hsToken
	for i := 0; i < len(repl); i++ {
		t := repl[i]

		if t.Is("#") && i+1 < len(repl) && repl[i+1].Kind == token.Ident {
			if arg, ok := bound[repl[i+1].Spelling()]; ok {
				out = append(out, hsToken{tok: stringize(arg.raw), hs: hs})
				i++
				continue
			}
		}

		if t.Kind == token.Ident {
			if arg, ok := bound[t.Spelling()]; ok {
				pastedBefore := len(out) > 0 && repl2Is(repl, i-1, "##")
				pastedAfter := i+1 < len(repl) && repl2Is(repl, i+1, "##")
				if pastedBefore || pastedAfter {
					out = append(out, arg.raw...)
				} else {
					out = append(out, arg.expand(ex)...)
				}
				continue
			}
		}

		out = append(out, hsToken{tok: t, hs: hs})
	}
	return ex.applyPaste(out)
}

// substituteTokens is substituteFunctionLike's body with no parameters to
// bind (used for object-like macros, where bound is always nil): still
// runs the ## paste pass since `a ## b` is legal inside an object-like
// macro's own replacement list.
func (ex *Expander) substituteTokens(repl []token.Token, bound map[string]*boundArg, hs HideSet) []hsToken {
	var out []hsToken
	for _, t := range repl {
		out = append(out, hsToken{tok: t, hs: hs})
	}
	return ex.applyPaste(out)
}

func repl2Is(repl []token.Token, i int, s string) bool {
	if i < 0 || i >= len(repl) {
		return false
	}
	return repl[i].Is(s)
}

// applyPaste resolves every ## operator left in toks by concatenating the
// spellings of its neighbors and re-lexing the result as a single token,
// per 6.10.3.3.
func (ex *Expander) applyPaste(toks []hsToken) []hsToken {
	var out []hsToken
	for i := 0; i < len(toks); i++ {
		if toks[i].tok.Is("##") && len(out) > 0 && i+1 < len(toks) {
			left := out[len(out)-1]
			right := toks[i+1]
			out[len(out)-1] = hsToken{tok: pasteTokens(left.tok, right.tok), hs: left.hs}
			i++
			continue
		}
		out = append(out, toks[i])
	}
	return out
}

func pasteTokens(a, b token.Token) token.Token {
	combined := a.Spelling() + b.Spelling()
	lx := token.NewLexer("<paste>", []byte(combined))
	if t, ok := lx.Next(); ok {
		t.Pos = a.Pos
		return t
	}
	return token.Token{Kind: token.Ident, Text: token.NewStringView([]byte(combined)), Pos: a.Pos}
}

// stringize implements the # operator (6.10.3.2): the argument's raw
// (unexpanded) spelling, with internal whitespace runs collapsed to a
// single space and embedded quote/backslash characters in string and char
// constants escaped.
func stringize(raw []hsToken) token.Token {
	var sb strings.Builder
	sb.WriteByte('"')
	for i, h := range raw {
		if i > 0 && h.tok.PrecededByWhitespace {
			sb.WriteByte(' ')
		}
		s := h.tok.Spelling()
		if h.tok.Kind == token.String || h.tok.Kind == token.CharConst {
			for j := 0; j < len(s); j++ {
				if s[j] == '"' || s[j] == '\\' {
					sb.WriteByte('\\')
				}
				sb.WriteByte(s[j])
			}
		} else {
			sb.WriteString(s)
		}
	}
	sb.WriteByte('"')
	return token.Token{Kind: token.String, Text: token.NewStringView([]byte(sb.String()))}
}
