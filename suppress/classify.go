// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

package suppress

import (
	"github.com/chmodshubham/liboqs-installation/analyzer"
)

// Verdict is the per-variant outcome of one harness run.
type Verdict int

const (
	// VerdictPass means no unexplained finding and no known issue.
	VerdictPass Verdict = iota

	// VerdictPassKnownIssues means every finding matched a suppression
	// entry, but at least one matched a problematic one: the variant
	// carries open, previously triaged leaks.
	VerdictPassKnownIssues

	// VerdictFail means at least one new, unclassified leak (or, under
	// the strict policy, a known issue on a variant required to be
	// clean).
	VerdictFail

	// VerdictSkip means the variant was excluded by filter or skip
	// list.
	VerdictSkip

	// VerdictError means the driver or analyzer invocation itself
	// failed for reasons unrelated to the property under test.
	VerdictError
)

// String implements fmt.Stringer.
func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "PASS"
	case VerdictPassKnownIssues:
		return "PASS (known issues)"
	case VerdictFail:
		return "FAIL"
	case VerdictSkip:
		return "SKIP"
	case VerdictError:
		return "ERROR"
	default:
		return "INVALID"
	}
}

// Match records which suppression entry a finding was attributed to.
type Match struct {
	Finding analyzer.Finding
	Entry   *Entry
	Tag     Tag
}

// Classification is the full outcome of classifying one analyzer run.
type Classification struct {
	Verdict Verdict

	// New holds findings that matched no suppression entry: fresh,
	// unclassified leaks.
	New []analyzer.Finding

	// Known holds findings attributed to problematic entries.
	Known []Match

	// Explained holds findings attributed to acceptable entries.
	Explained []Match
}

// Classify interprets one analyzer result for the variant.
//
// Exit status semantics: 0 means the analyzer attached and reported zero
// findings; the distinguished findings exit code means findings are
// present; anything else (including a timeout) is a process failure and
// yields VerdictError.
//
// Each finding is matched against the variant's selection in order;
// the first matching entry wins (see Catalog.SelectFor for the ordering
// contract). A finding matching nothing is a new leak and forces
// VerdictFail regardless of anything else.
func (e *Engine) Classify(variant string, res *analyzer.Result) *Classification {
	cl := &Classification{}

	if res.TimedOut || (res.ExitCode != 0 && res.ExitCode != res.FindingsExitCode) {
		cl.Verdict = VerdictError
		return cl
	}
	if res.ExitCode == 0 {
		cl.Verdict = VerdictPass
		return cl
	}
	if len(res.Findings) == 0 {
		// The analyzer signalled findings but delivered none; a tool
		// inconsistency, not a verdict about the variant.
		cl.Verdict = VerdictError
		return cl
	}

	sel := e.SelectFor(variant)
	for _, f := range res.Findings {
		matched := false
		for _, s := range sel {
			if !s.Entry.Matches(&f) {
				continue
			}
			m := Match{Finding: f, Entry: s.Entry, Tag: s.Tag}
			if s.Tag == TagProblematic {
				cl.Known = append(cl.Known, m)
			} else {
				cl.Explained = append(cl.Explained, m)
			}
			matched = true
			break
		}
		if !matched {
			cl.New = append(cl.New, f)
		}
	}

	switch {
	case len(cl.New) > 0:
		cl.Verdict = VerdictFail
	case len(cl.Known) > 0:
		if e.requireClean {
			cl.Verdict = VerdictFail
		} else {
			cl.Verdict = VerdictPassKnownIssues
		}
	default:
		cl.Verdict = VerdictPass
	}
	return cl
}
