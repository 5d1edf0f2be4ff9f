package preproc

import (
	"fmt"
	"log"
	"os"

	"github.com/hashicorp/logutils"

	"j5.nz/cc64/internal/token"
)

// SourceOpener resolves a #include operand to a pushable token.Source,
// honoring #pragma once's disabled-path set on sources. This is the
// filesystem-facing boundary kept as a swappable external collaborator
// contract; DefaultOpener (in opener.go) is the afero-backed
// implementation this repository ships.
type SourceOpener interface {
	// Open resolves path (system == true for `<path>`, false for
	// `"path"`) against the current include search state and, unless the
	// resolved canonical path has been disabled by #pragma once, pushes a
	// new frame onto sources for it.
	Open(sources *token.SourceStack, path string, system bool) error
}

// Preprocessor drives conditional inclusion, macro expansion, and file
// inclusion over a SourceStack, producing the translation phase 4 output
// token stream the parser consumes. Grounded on directives.c's
// directiver_next as the top-level driving loop.
type Preprocessor struct {
	sources  *token.SourceStack
	src      *token.Pushback
	table    *Table
	expander *Expander
	cond     *CondStack
	opener   SourceOpener
	logger   *log.Logger
}

// New returns a Preprocessor reading from sources (which must already have
// its root translation-unit frame pushed), resolving #include via opener.
func New(sources *token.SourceStack, opener SourceOpener) *Preprocessor {
	table := NewTable()
	filter := &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "WARN", "ERROR"},
		MinLevel: "WARN",
		Writer:   os.Stderr,
	}
	return &Preprocessor{
		sources:  sources,
		src:      token.NewPushback(sources),
		table:    table,
		expander: NewExpander(table),
		cond:     NewCondStack(),
		opener:   opener,
		logger:   log.New(filter, "", log.LstdFlags),
	}
}

// Table exposes the macro definition table, letting a driver predefine
// built-in macros (__FILE__ style intrinsics are handled by the parser's
// semantic layer; simple command-line -D defines are installed here).
func (p *Preprocessor) Table() *Table { return p.table }

func (p *Preprocessor) warnf(format string, args ...any) {
	p.logger.Printf("[WARN] "+format, args...)
}

// Tokenize runs phases 1-4 to completion, returning the fully expanded,
// directive-free token stream (excluding the final EOI). Macro expansion
// is applied to each maximal run of non-directive tokens as it is
// collected, matching the original's interleaving of directive processing
// and on-the-fly expansion rather than doing a whole-file expansion pass.
func (p *Preprocessor) Tokenize() ([]token.Token, error) {
	var out []token.Token
	var pending []token.Token

	flush := func() {
		if len(pending) == 0 {
			return
		}
		out = append(out, p.expander.Expand(pending)...)
		pending = nil
	}

	for {
		t, ok := p.src.Next()
		if !ok {
			break
		}
		if t.Kind == token.DirectiveStart {
			flush()
			if err := p.handleDirective(t); err != nil {
				return nil, fmt.Errorf("%s: %w", t.Pos, err)
			}
			continue
		}
		if !p.cond.Active() {
			continue
		}
		pending = append(pending, t)
	}
	flush()

	if p.cond.Depth() != 0 {
		return nil, fmt.Errorf("unterminated #if at end of input")
	}
	return out, nil
}
