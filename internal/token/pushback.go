package token

// Source produces tokens one at a time; the concrete character-level
// scanner (Lexer, in lexer.go) is one implementation of it. Low-level
// character classification is kept behind this narrow contract rather
// than hardcoded, since it is naturally an external, swappable concern —
// Lexer is the reference implementation this repository ships so the
// pipeline is actually runnable end to end.
type Source interface {
	// Next returns the next token from this source, or ok=false at
	// end of input.
	Next() (Token, bool)
}

// ErrTooManyPushes is the ICE raised when a third token is pushed back
// onto a Pushback that already holds two, mirroring directives.c's
// "Pushed too many directive tokens." abort.
type ErrTooManyPushes struct{}

func (ErrTooManyPushes) Error() string { return "ICE: pushed too many directive tokens" }

// Pushback wraps a Source with a two-slot pushback buffer, exactly
// mirroring the original compiler's directives.c `pushed`/`pushed_idx`
// pair: at most two outstanding pushes are allowed.
type Pushback struct {
	src    Source
	pushed [2]Token
	n      int
}

// NewPushback wraps src.
func NewPushback(src Source) *Pushback {
	return &Pushback{src: src}
}

// Push makes t the next token Next() will return. At most two tokens may
// be outstanding; a third push panics with ErrTooManyPushes (an ICE: this
// is an invariant violation in the caller, not user-facing input error).
func (p *Pushback) Push(t Token) {
	if p.n >= 2 {
		panic(ErrTooManyPushes{})
	}
	p.pushed[p.n] = t
	p.n++
}

// Next returns a previously pushed token (most recently pushed first) or
// pulls a fresh one from the underlying Source.
func (p *Pushback) Next() (Token, bool) {
	if p.n > 0 {
		p.n--
		return p.pushed[p.n], true
	}
	return p.src.Next()
}

// Outstanding reports how many tokens are currently pushed back (0, 1, or
// 2); exposed for property tests.
func (p *Pushback) Outstanding() int {
	return p.n
}
