package preproc

import (
	"fmt"

	"j5.nz/cc64/internal/token"
)

// readLine collects the tokens of the current logical line for a
// directive whose arguments need to be read as a unit (define, if, line),
// grounded on directives.c's buffer_next-style "read until FirstOfLine".
func (p *Preprocessor) readLine() []token.Token {
	var line []token.Token
	for {
		t, ok := p.src.Next()
		if !ok {
			break
		}
		if t.FirstOfLine {
			p.src.Push(t)
			break
		}
		line = append(line, t)
	}
	return line
}

// handleDirective processes one `#...` directive line; directiveStart is
// the already-consumed `#` token. Grounded on directiver_next's big
// dispatch switch.
func (p *Preprocessor) handleDirective(directiveStart token.Token) error {
	nameTok, ok := p.src.Next()
	if !ok || nameTok.FirstOfLine {
		// A lone `#` on a line (null directive) is legal and a no-op;
		// nameTok.FirstOfLine here means the directive name position is
		// actually the start of the *next* line, i.e. there was nothing.
		if ok {
			p.src.Push(nameTok)
		}
		return nil
	}
	if nameTok.Kind != token.Ident {
		return fmt.Errorf("invalid preprocessing directive %q", nameTok.Spelling())
	}
	name := nameTok.Spelling()

	switch name {
	case "ifdef", "ifndef":
		line := p.readLine()
		cond := false
		if len(line) > 0 && line[0].Kind == token.Ident {
			cond = p.table.IsDefined(line[0].Spelling())
		}
		if name == "ifndef" {
			cond = !cond
		}
		p.cond.PushIf(cond)
		return nil

	case "if":
		line := p.readLine()
		v, err := p.evalControlling(line)
		if err != nil {
			return err
		}
		p.cond.PushIf(v != 0)
		return nil

	case "elif":
		line := p.readLine()
		// Only actually evaluate when doing so could matter: if an
		// enclosing level is inactive, or a branch of this group was
		// already taken, the group becomes Skip whatever the value.
		var v int64
		if i := p.cond.Depth() - 1; i >= 0 && p.cond.parentActiveAt(i) && !p.cond.taken[i] {
			var err error
			v, err = p.evalControlling(line)
			if err != nil {
				return err
			}
		}
		return p.cond.Elif(v != 0)

	case "else":
		p.readLine()
		return p.cond.Else()

	case "endif":
		p.readLine()
		return p.cond.Endif()
	}

	if !p.cond.Active() {
		p.readLine()
		return nil
	}

	switch name {
	case "define":
		return p.handleDefine()
	case "undef":
		line := p.readLine()
		if len(line) > 0 {
			p.table.Undef(line[0].Spelling())
		}
		return nil
	case "include":
		return p.handleInclude()
	case "error":
		line := p.readLine()
		return fmt.Errorf("#error %s", spellLine(line))
	case "pragma":
		return p.handlePragma()
	case "line":
		return p.handleLine()
	default:
		p.readLine()
		return fmt.Errorf("invalid preprocessing directive #%s", name)
	}
}

func (p *Preprocessor) evalControlling(line []token.Token) (int64, error) {
	resolved := p.resolveDefined(line)
	expanded := p.expander.Expand(resolved)
	return EvaluateConstantExpression(expanded)
}

// resolveDefined replaces `defined NAME` and `defined(NAME)` with a literal
// 1/0 token BEFORE macro expansion runs, matching
// evaluate_until_newline's ordering in the original (defined must see the
// raw macro table, not an expansion of its operand).
func (p *Preprocessor) resolveDefined(line []token.Token) []token.Token {
	var out []token.Token
	for i := 0; i < len(line); i++ {
		t := line[i]
		if t.Kind == token.Ident && t.Spelling() == "defined" {
			var name string
			if i+1 < len(line) && line[i+1].Is("(") && i+2 < len(line) && line[i+2].Kind == token.Ident {
				name = line[i+2].Spelling()
				i += 3
				if i < len(line) && line[i].Is(")") {
					// consumed
				} else {
					i--
				}
			} else if i+1 < len(line) && line[i+1].Kind == token.Ident {
				name = line[i+1].Spelling()
				i++
			}
			v := "0"
			if p.table.IsDefined(name) {
				v = "1"
			}
			out = append(out, token.Token{Kind: token.Number, Text: token.NewStringView([]byte(v)), Pos: t.Pos})
			continue
		}
		out = append(out, t)
	}
	return out
}

func (p *Preprocessor) handleDefine() error {
	nameTok, ok := p.src.Next()
	if !ok || nameTok.Kind != token.Ident {
		return fmt.Errorf("macro name missing after #define")
	}
	def := &Define{Name: nameTok.Spelling()}

	// A function-like macro's `(` must immediately follow the name with
	// no intervening whitespace; this is the classic distinguishing rule
	// between `#define F(x)` (function-like) and `#define F (x)`
	// (object-like, replacement text "(x)").
	lp, ok := p.src.Next()
	if ok && lp.Is("(") && !lp.PrecededByWhitespace {
		def.IsFunctionLike = true
		for {
			pt, ok := p.src.Next()
			if !ok {
				break
			}
			if pt.Is(")") {
				break
			}
			if pt.Is(",") {
				continue
			}
			if pt.Is("...") {
				def.IsVariadic = true
				continue
			}
			if pt.Kind == token.Ident {
				def.Params = append(def.Params, pt.Spelling())
			}
		}
	} else if ok {
		p.src.Push(lp)
	}

	def.Replacement = p.readLine()
	p.table.Define(def)
	return nil
}

func (p *Preprocessor) handleInclude() error {
	line := p.readLine()
	if len(line) == 0 {
		return fmt.Errorf("#include expects \"FILENAME\" or <FILENAME>")
	}
	first := line[0]
	var path string
	var system bool
	switch {
	case first.Kind == token.String:
		s := first.Spelling()
		path = s[1 : len(s)-1]
	case first.Is("<"):
		system = true
		var sb []byte
		for _, t := range line[1:] {
			if t.Is(">") {
				break
			}
			sb = append(sb, []byte(t.Spelling())...)
		}
		path = string(sb)
	default:
		expanded := p.expander.Expand(line)
		if len(expanded) == 0 || expanded[0].Kind != token.String {
			return fmt.Errorf("malformed #include")
		}
		s := expanded[0].Spelling()
		path = s[1 : len(s)-1]
	}
	return p.opener.Open(p.sources, path, system)
}

func (p *Preprocessor) handlePragma() error {
	line := p.readLine()
	if len(line) > 0 && line[0].IsIdent("once") {
		p.sources.DisablePath(p.sources.CurrentPath())
		return nil
	}
	p.warnf("ignoring unknown #pragma %s", spellLine(line))
	return nil
}

func (p *Preprocessor) handleLine() error {
	line := p.readLine()
	expanded := p.expander.Expand(line)
	if len(expanded) == 0 || expanded[0].Kind != token.Number {
		return fmt.Errorf("#line expects a line number")
	}
	n, err := parsePPNumberInt(expanded[0].Spelling())
	if err != nil {
		return err
	}
	filename := ""
	if len(expanded) > 1 && expanded[1].Kind == token.String {
		s := expanded[1].Spelling()
		filename = s[1 : len(s)-1]
	}
	p.sources.SetLine(int(n), filename)
	return nil
}

func spellLine(line []token.Token) string {
	out := ""
	for i, t := range line {
		if i > 0 {
			out += " "
		}
		out += t.Spelling()
	}
	return out
}
