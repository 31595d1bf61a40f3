// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

package poison

import (
	"fmt"
	"os"
	"strconv"
	"unsafe"
)

// PoisonFdEnv names the environment variable through which the analyzer
// hands the driver an inherited pipe file descriptor for mark records.
const PoisonFdEnv = "CT_POISON_FD"

// InertMarker discards marks. Used when the driver runs standalone, i.e.
// not under the analyzer, for plain functional testing.
type InertMarker struct{}

// MarkUndefined implements Marker.
func (InertMarker) MarkUndefined(p []byte) error { return nil }

// PipeMarker writes one mark record per buffer to the analyzer's control
// pipe. The record format is the analyzer's documented mark protocol:
//
//	undef <hex-address> <length>\n
type PipeMarker struct {
	f *os.File
}

// NewPipeMarker returns a PipeMarker writing to f.
func NewPipeMarker(f *os.File) *PipeMarker {
	return &PipeMarker{f: f}
}

// MarkUndefined implements Marker. The buffer contents are not touched;
// only the analyzer's provenance metadata for the address range changes.
func (m *PipeMarker) MarkUndefined(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&p[0]))
	_, err := fmt.Fprintf(m.f, "undef %#x %d\n", addr, len(p))
	if err != nil {
		return fmt.Errorf("poison: mark write failed: %v", err)
	}
	return nil
}

// MarkerFromEnvironment returns a PipeMarker bound to the fd the analyzer
// placed in the environment, or an InertMarker when the driver is running
// outside the analyzer.
func MarkerFromEnvironment() Marker {
	v := os.Getenv(PoisonFdEnv)
	if v == "" {
		return InertMarker{}
	}
	fd, err := strconv.Atoi(v)
	if err != nil || fd < 0 {
		return InertMarker{}
	}
	return NewPipeMarker(os.NewFile(uintptr(fd), "poison-ctrl"))
}
