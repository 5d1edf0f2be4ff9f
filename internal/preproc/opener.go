package preproc

import (
	"path/filepath"

	"github.com/spf13/afero"

	"j5.nz/cc64/internal/token"
)

// DefaultOpener is the afero-backed SourceOpener this repository ships:
// quoted includes search, in order, the including file's own directory,
// then QuoteDirs, then SystemDirs; angle-bracket includes search SystemDirs only
// (the standard two-phase search 6.10.2p2-p3 describes).
type DefaultOpener struct {
	Fs         afero.Fs
	QuoteDirs  []string
	SystemDirs []string
}

// NewDefaultOpener returns an opener backed by the OS filesystem.
func NewDefaultOpener(quoteDirs, systemDirs []string) *DefaultOpener {
	return &DefaultOpener{Fs: afero.NewOsFs(), QuoteDirs: quoteDirs, SystemDirs: systemDirs}
}

func (o *DefaultOpener) Open(sources *token.SourceStack, path string, system bool) error {
	var dirs []string
	if !system {
		if cur := sources.CurrentPath(); cur != "" {
			dirs = append(dirs, filepath.Dir(cur))
		}
		dirs = append(dirs, o.QuoteDirs...)
		dirs = append(dirs, o.SystemDirs...)
	} else {
		dirs = append(dirs, o.SystemDirs...)
	}

	for _, dir := range dirs {
		candidate := filepath.Join(dir, path)
		if ok, _ := afero.Exists(o.Fs, candidate); ok {
			if sources.IsDisabled(candidate) {
				return nil
			}
			data, err := afero.ReadFile(o.Fs, candidate)
			if err != nil {
				return err
			}
			sources.Push(candidate, token.NewLexer(candidate, data))
			return nil
		}
	}
	return &includeNotFoundError{path: path}
}

type includeNotFoundError struct{ path string }

func (e *includeNotFoundError) Error() string {
	return "cannot find include file: " + e.path
}
