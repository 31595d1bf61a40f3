// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

package analyzer

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// Finding categories reported by the analyzer.
const (
	// CategoryBranch is a conditional branch on unverified data.
	CategoryBranch = "branch"

	// CategoryAddress is the use of unverified data to form a memory
	// address.
	CategoryAddress = "address"
)

// Frame is one call-stack frame of a finding.
type Frame struct {
	// Function is the fully qualified function name.
	Function string `cbor:"function"`

	// Object is the binary or shared object the frame belongs to.
	Object string `cbor:"object,omitempty"`
}

// Finding is one reported instance of a secret-dependent control-flow or
// addressing decision.
type Finding struct {
	// Category is one of CategoryBranch or CategoryAddress.
	Category string `cbor:"category"`

	// Description is the analyzer's human-readable summary.
	Description string `cbor:"description,omitempty"`

	// Stack is the call stack at the point of the finding, innermost
	// frame first.
	Stack []Frame `cbor:"stack"`
}

// String renders the finding for log and report output.
func (f *Finding) String() string {
	s := fmt.Sprintf("[%s] %s", f.Category, f.Description)
	for _, fr := range f.Stack {
		s += fmt.Sprintf("\n   at %s", fr.Function)
		if fr.Object != "" {
			s += fmt.Sprintf(" (%s)", fr.Object)
		}
	}
	return s
}

// DecodeFindingsFile reads the CBOR findings file the analyzer writes when
// it observed at least one finding.
func DecodeFindingsFile(path string) ([]Finding, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("analyzer: failed to read findings file: %v", err)
	}
	var findings []Finding
	if err := cbor.Unmarshal(b, &findings); err != nil {
		return nil, fmt.Errorf("analyzer: malformed findings file: %v", err)
	}
	return findings, nil
}

// EncodeFindingsFile writes findings in the analyzer's file format. The
// harness itself only reads findings; the encoder exists for test doubles
// and tooling that fabricate analyzer output.
func EncodeFindingsFile(path string, findings []Finding) error {
	b, err := cbor.Marshal(findings)
	if err != nil {
		return fmt.Errorf("analyzer: failed to encode findings: %v", err)
	}
	return os.WriteFile(path, b, 0600)
}
