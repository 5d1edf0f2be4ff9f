package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/afero"

	"j5.nz/cc64/internal/ctype"
	"j5.nz/cc64/internal/naivex64"
	"j5.nz/cc64/internal/objfile"
	"j5.nz/cc64/internal/parse"
	"j5.nz/cc64/internal/preproc"
	"j5.nz/cc64/internal/token"
)

// Compile reads inputPath, preprocesses, parses, and lowers it to IR, runs
// every function through the naivex64 reference backend, and writes the
// resulting ELF64 relocatable object to cfg.Output — the single pipeline
// this command-line driver runs end to end.
func Compile(cfg Config, inputPath string, logger *log.Logger) error {
	fs := afero.NewOsFs()

	data, err := afero.ReadFile(fs, inputPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputPath, err)
	}

	sources := token.NewSourceStack()
	sources.Push(inputPath, token.NewLexer(inputPath, data))

	opener := preproc.NewDefaultOpener(cfg.IncludeDirs, cfg.IncludeDirs)
	opener.Fs = fs
	pp := preproc.New(sources, opener)

	for _, def := range cfg.Defines {
		if err := installDefine(pp, def); err != nil {
			return err
		}
	}

	logger.Printf("[INFO] preprocessing %s", inputPath)
	toks, err := pp.Tokenize()
	if err != nil {
		return fmt.Errorf("preprocessing %s: %w", inputPath, err)
	}

	types := ctype.NewInterner()
	p := parse.New(toks, types)
	logger.Printf("[INFO] parsing %s", inputPath)
	if err := p.ParseTranslationUnit(); err != nil {
		return fmt.Errorf("parsing %s: %w", inputPath, err)
	}

	asm := objfile.NewAssembler(nil)
	if err := flushStaticData(asm, types, p); err != nil {
		return fmt.Errorf("emitting static data: %w", err)
	}

	backend := naivex64.New(asm, types)
	for _, fn := range p.Functions {
		logger.Printf("[DEBUG] compiling function %s", fn.Name)
		if err := backend.Compile(fn); err != nil {
			return fmt.Errorf("compiling function %s: %w", fn.Name, err)
		}
	}

	out, err := asm.Finish()
	if err != nil {
		return fmt.Errorf("encoding object file: %w", err)
	}

	if err := afero.WriteFile(fs, cfg.Output, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", cfg.Output, err)
	}
	logger.Printf("[INFO] wrote %s", cfg.Output)
	return nil
}

// installDefine parses one -D name[=value] command-line define and
// installs it into the preprocessor's macro table, lexing the replacement
// text the same way any other source file's tokens are produced.
func installDefine(pp *preproc.Preprocessor, spec string) error {
	name, value, hasValue := strings.Cut(spec, "=")
	if name == "" {
		return fmt.Errorf("invalid -D argument %q: missing macro name", spec)
	}
	if !hasValue {
		value = "1"
	}

	lexer := token.NewLexer("<command-line>", []byte(value))
	var replacement []token.Token
	for {
		t, ok := lexer.Next()
		if !ok {
			break
		}
		replacement = append(replacement, t)
	}

	pp.Table().Define(&preproc.Define{Name: name, Replacement: replacement})
	return nil
}
