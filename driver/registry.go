// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

package driver

import (
	"fmt"
	"strings"
)

// Kind distinguishes key encapsulation from signature variants.
type Kind int

const (
	// KindKEM is a key-encapsulation variant.
	KindKEM Kind = iota

	// KindSignature is a signature variant.
	KindSignature
)

// String returns the driver CLI token for the kind.
func (k Kind) String() string {
	switch k {
	case KindKEM:
		return "kem"
	case KindSignature:
		return "sign"
	default:
		return "unknown"
	}
}

// ParseKind parses a driver CLI kind token.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "kem":
		return KindKEM, nil
	case "sign":
		return KindSignature, nil
	default:
		return 0, fmt.Errorf("driver: unknown kind '%s'", s)
	}
}

// Variant identifies one testable algorithm configuration. Variants are
// immutable once enumerated.
type Variant struct {
	// Family is the algorithm family name, used by the skip list.
	Family string

	// Name is the parameter-set name and the identifier passed to the
	// driver binary.
	Name string

	// Kind selects the operation sequence the driver runs.
	Kind Kind

	// Scheme is the hpqc scheme registry name.
	Scheme string

	// TimeoutScale multiplies the base analyzer timeout. Schemes that
	// are unusually slow under instrumentation carry a value above 1.
	TimeoutScale int
}

// String implements fmt.Stringer.
func (v *Variant) String() string {
	return fmt.Sprintf("%s/%s (%s)", v.Family, v.Name, v.Kind)
}

var registry = []*Variant{
	{Family: "ML-KEM", Name: "MLKEM768", Kind: KindKEM, Scheme: "MLKEM768", TimeoutScale: 1},
	{Family: "X-Wing", Name: "XWING", Kind: KindKEM, Scheme: "XWING", TimeoutScale: 1},
	{Family: "NTRU-Prime", Name: "sntrup4591761", Kind: KindKEM, Scheme: "sntrup4591761", TimeoutScale: 2},
	{Family: "Hybrid", Name: "MLKEM768-X25519", Kind: KindKEM, Scheme: "MLKEM768-X25519", TimeoutScale: 1},
	{Family: "Hybrid", Name: "MLKEM768-X448", Kind: KindKEM, Scheme: "MLKEM768-X448", TimeoutScale: 1},
	{Family: "Hybrid", Name: "sntrup4591761-X448", Kind: KindKEM, Scheme: "sntrup4591761-X448", TimeoutScale: 2},
	{Family: "X25519", Name: "x25519", Kind: KindKEM, Scheme: "x25519", TimeoutScale: 1},
	{Family: "X448", Name: "x448", Kind: KindKEM, Scheme: "x448", TimeoutScale: 1},
	{Family: "Ed25519", Name: "Ed25519", Kind: KindSignature, Scheme: "Ed25519", TimeoutScale: 1},
	{Family: "Dilithium", Name: "Ed25519-Dilithium2", Kind: KindSignature, Scheme: "Ed25519-Dilithium2", TimeoutScale: 2},
	{Family: "SPHINCS+", Name: "Ed25519 Sphincs+", Kind: KindSignature, Scheme: "Ed25519 Sphincs+", TimeoutScale: 4},
}

// Registry returns the static list of known algorithm variants.
func Registry() []*Variant {
	out := make([]*Variant, len(registry))
	copy(out, registry)
	return out
}

// ByName returns the registered variant of the given name, or nil.
func ByName(name string) *Variant {
	for _, v := range registry {
		if v.Name == name {
			return v
		}
	}
	return nil
}
