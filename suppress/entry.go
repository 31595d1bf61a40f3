// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package suppress implements the suppression classification engine: the
// curated catalogs separating known-benign analyzer findings from genuine
// leaks, and the decision logic turning raw findings into verdicts.
package suppress

import (
	"fmt"
	"strings"

	"github.com/chmodshubham/liboqs-installation/analyzer"
)

// Tag classifies a suppression entry within a variant's catalog.
type Tag int

const (
	// TagAcceptable marks a known-benign finding; matches are fully
	// explained and ignored.
	TagAcceptable Tag = iota

	// TagProblematic marks a previously triaged real leak; matches do
	// not count as new leaks but keep the variant flagged.
	TagProblematic
)

// String implements fmt.Stringer.
func (t Tag) String() string {
	switch t {
	case TagAcceptable:
		return "acceptable"
	case TagProblematic:
		return "problematic"
	default:
		return "invalid"
	}
}

// Entry is one named, curated suppression pattern. Entries are immutable
// after load.
type Entry struct {
	// Name identifies the entry within its family catalog.
	Name string

	// Description documents why the matched behavior was triaged the
	// way it was.
	Description string

	// Category restricts the entry to findings of one analyzer
	// category ("branch" or "address"); empty matches either.
	Category string

	// Stack is the ordered frame pattern sequence, innermost frame
	// first.
	Stack []FramePattern
}

// Matches reports whether the finding satisfies this entry: the category
// must agree and the finding's stack, read from the innermost frame
// outward, must satisfy the ordered frame patterns.
func (e *Entry) Matches(f *analyzer.Finding) bool {
	if e.Category != "" && e.Category != f.Category {
		return false
	}
	return matchFrames(e.Stack, f.Stack)
}

type patternKind int

const (
	patternExact patternKind = iota
	patternPrefix
	patternAny      // "*": any single frame
	patternEllipsis // "...": any run of frames, possibly empty
)

// FramePattern matches a single stack frame (or, for the ellipsis form, a
// run of frames) by function name.
type FramePattern struct {
	kind patternKind
	text string
	raw  string
}

// ParseFramePattern parses one pattern token. Supported forms:
//
//	...      any run of frames, possibly empty
//	*        exactly one frame, any function
//	name*    one frame whose function has the given prefix
//	name     one frame with exactly the given function name
//
// Only a trailing '*' is a wildcard. Anywhere else '*' is literal text,
// because qualified Go method symbols contain one in the pointer
// receiver, e.g. "common.(*Poly).Add" or the prefix form
// "common.(*Poly)*".
func ParseFramePattern(s string) (FramePattern, error) {
	switch {
	case s == "":
		return FramePattern{}, fmt.Errorf("suppress: empty frame pattern")
	case s == "...":
		return FramePattern{kind: patternEllipsis, raw: s}, nil
	case s == "*":
		return FramePattern{kind: patternAny, raw: s}, nil
	case strings.HasSuffix(s, "*"):
		return FramePattern{kind: patternPrefix, text: strings.TrimSuffix(s, "*"), raw: s}, nil
	default:
		return FramePattern{kind: patternExact, text: s, raw: s}, nil
	}
}

// String returns the pattern's source form.
func (p FramePattern) String() string { return p.raw }

func (p FramePattern) matchFrame(f analyzer.Frame) bool {
	switch p.kind {
	case patternExact:
		return f.Function == p.text
	case patternPrefix:
		return strings.HasPrefix(f.Function, p.text)
	case patternAny:
		return true
	default:
		return false
	}
}

// matchFrames checks the ordered pattern sequence against the frames. A
// pattern sequence shorter than the stack matches any suffix of deeper
// callers; a sequence longer than the stack does not match.
func matchFrames(pats []FramePattern, frames []analyzer.Frame) bool {
	if len(pats) == 0 {
		return true
	}
	if pats[0].kind == patternEllipsis {
		for i := 0; i <= len(frames); i++ {
			if matchFrames(pats[1:], frames[i:]) {
				return true
			}
		}
		return false
	}
	if len(frames) == 0 {
		return false
	}
	if !pats[0].matchFrame(frames[0]) {
		return false
	}
	return matchFrames(pats[1:], frames[1:])
}
