// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

package harness

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/chmodshubham/liboqs-installation/analyzer"
	"github.com/chmodshubham/liboqs-installation/suppress"
)

// Result is the recorded outcome for one algorithm variant.
type Result struct {
	Variant string `cbor:"variant"`
	Family  string `cbor:"family"`
	Kind    string `cbor:"kind"`

	Verdict suppress.Verdict `cbor:"verdict"`

	// KnownIssues names the problematic suppression entries that
	// matched, so triaged leaks stay visible in every report.
	KnownIssues []string `cbor:"known_issues,omitempty"`

	// NewFindings holds unclassified leaks with their full stacks,
	// sufficient to file a fix or author a new suppression entry.
	NewFindings []analyzer.Finding `cbor:"new_findings,omitempty"`

	// Err describes a process or configuration failure for
	// VerdictError results.
	Err string `cbor:"error,omitempty"`

	// Changed is set when a history database is configured and the
	// verdict differs from the previous recorded run.
	Changed bool `cbor:"changed,omitempty"`

	Elapsed time.Duration `cbor:"elapsed_ns,omitempty"`
}

// Report aggregates one harness run.
type Report struct {
	Results []Result `cbor:"results"`
}

// sortResults orders results by variant name so reports are stable
// regardless of execution order or parallelism degree.
func (r *Report) sortResults() {
	sort.Slice(r.Results, func(i, j int) bool {
		return r.Results[i].Variant < r.Results[j].Variant
	})
}

// Counts tallies the verdicts.
func (r *Report) Counts() (pass, passKnown, fail, skip, errs int) {
	for _, res := range r.Results {
		switch res.Verdict {
		case suppress.VerdictPass:
			pass++
		case suppress.VerdictPassKnownIssues:
			passKnown++
		case suppress.VerdictFail:
			fail++
		case suppress.VerdictSkip:
			skip++
		case suppress.VerdictError:
			errs++
		}
	}
	return
}

// Failed reports whether the run's process exit status must be non-zero.
func (r *Report) Failed(failOnKnownIssues bool) bool {
	_, passKnown, fail, _, errs := r.Counts()
	if fail > 0 || errs > 0 {
		return true
	}
	return failOnKnownIssues && passKnown > 0
}

// WriteFile writes the machine-readable CBOR report.
func (r *Report) WriteFile(path string) error {
	b, err := cbor.Marshal(r)
	if err != nil {
		return fmt.Errorf("harness: failed to encode report: %v", err)
	}
	return os.WriteFile(path, b, 0600)
}

// LoadReportFile reads a report written by WriteFile.
func LoadReportFile(path string) (*Report, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := new(Report)
	if err := cbor.Unmarshal(b, r); err != nil {
		return nil, fmt.Errorf("harness: malformed report file: %v", err)
	}
	return r, nil
}

// Summary writes the human-readable run summary: per-variant verdicts,
// stacks for every failure, and the final tallies.
func (r *Report) Summary(w io.Writer) {
	for _, res := range r.Results {
		line := fmt.Sprintf("%-24s %s", res.Variant, res.Verdict)
		if res.Changed {
			line += " (changed)"
		}
		fmt.Fprintln(w, line)

		for _, name := range res.KnownIssues {
			fmt.Fprintf(w, "    known issue: %s\n", name)
		}
		for i := range res.NewFindings {
			fmt.Fprintf(w, "    new leak: %s\n", res.NewFindings[i].String())
		}
		if res.Err != "" {
			fmt.Fprintf(w, "    error: %s\n", res.Err)
		}
	}

	pass, passKnown, fail, skip, errs := r.Counts()
	fmt.Fprintf(w, "total: %d pass, %d pass-with-known-issues, %d fail, %d skip, %d error\n",
		pass, passKnown, fail, skip, errs)
}
