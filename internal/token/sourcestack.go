package token

import "path/filepath"

// sourceFrame is one entry of a SourceStack: a live Source plus the
// position bookkeeping #line needs to apply and later clear.
type sourceFrame struct {
	src              Source
	path             string
	lineDelta        int
	filenameOverride string
}

// SourceStack manages the nested input sources a preprocessor run walks
// through: the initial translation unit plus every file pushed by
// #include, along with the set of canonical paths disabled by
// #pragma once.
//
// Grounded on original_source/src/preprocessor directives.c's
// tokenizer_push_input / tokenizer_disable_current_path pairing, adapted
// from its global-tokenizer-state shape into an owned stack value.
type SourceStack struct {
	frames   []sourceFrame
	disabled map[string]bool
}

// NewSourceStack returns an empty stack ready to have its first (root
// translation-unit) source pushed.
func NewSourceStack() *SourceStack {
	return &SourceStack{disabled: make(map[string]bool)}
}

// Push enters a new source, associated with path (used for #pragma once
// and for diagnostic positions once no #line override is active).
func (s *SourceStack) Push(path string, src Source) {
	s.frames = append(s.frames, sourceFrame{src: src, path: path})
}

// Pop leaves the current source, returning to the one beneath it (or
// reporting ok=false if the stack was already empty).
func (s *SourceStack) Pop() (ok bool) {
	if len(s.frames) == 0 {
		return false
	}
	s.frames = s.frames[:len(s.frames)-1]
	return true
}

// Empty reports whether the stack has no active source.
func (s *SourceStack) Empty() bool {
	return len(s.frames) == 0
}

// Depth reports how many nested sources are currently active.
func (s *SourceStack) Depth() int {
	return len(s.frames)
}

// Next pulls the next token from the top-of-stack source, popping
// exhausted sources and retrying until a token is produced or the whole
// stack is empty. Positions are adjusted by any active #line delta and
// filename override for the current frame.
func (s *SourceStack) Next() (Token, bool) {
	for len(s.frames) > 0 {
		top := &s.frames[len(s.frames)-1]
		tok, ok := top.src.Next()
		if !ok {
			s.frames = s.frames[:len(s.frames)-1]
			continue
		}
		if top.filenameOverride != "" {
			tok.Pos.Path = top.filenameOverride
		}
		tok.Pos.Line += top.lineDelta
		return tok, true
	}
	return Token{}, false
}

// DisablePath marks the canonical form of path as disabled for future
// #include: a later attempt to include the same canonical path is a no-op.
// Mirrors tokenizer_disable_current_path as invoked by #pragma once.
func (s *SourceStack) DisablePath(path string) {
	s.disabled[canonicalPath(path)] = true
}

// IsDisabled reports whether path has been disabled by a prior
// #pragma once.
func (s *SourceStack) IsDisabled(path string) bool {
	return s.disabled[canonicalPath(path)]
}

// SetLine applies a #line directive to the current (innermost) frame: line
// becomes the reported line number of the *next* token, and if filename is
// non-empty it overrides the reported path until popped or overridden
// again. Both the line number and, when present, the filename are always
// applied (see DESIGN.md: an earlier variant had a filename branch that
// was unreachable because a preceding, less specific branch always
// matched first).
func (s *SourceStack) SetLine(line int, filename string) {
	if len(s.frames) == 0 {
		return
	}
	top := &s.frames[len(s.frames)-1]
	top.lineDelta = line - 1
	if filename != "" {
		top.filenameOverride = filename
	}
}

// CurrentPath returns the path of the innermost active frame (the override
// if #line has set one, else the frame's original path), or "" if the
// stack is empty.
func (s *SourceStack) CurrentPath() string {
	if len(s.frames) == 0 {
		return ""
	}
	top := &s.frames[len(s.frames)-1]
	if top.filenameOverride != "" {
		return top.filenameOverride
	}
	return top.path
}

func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
