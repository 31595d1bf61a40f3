// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package entropy provides the secret source indirection: a single
// swappable slot holding the generator currently used to produce secret
// random bytes. Every call site that needs secret bytes goes through a
// Binding, so the poisoning interceptor can be installed transparently.
//
// A Binding is deliberately unsynchronized. Constant-time analysis is
// about a single control-flow trace, so a driver process is
// single-threaded with respect to secret generation; Switch and
// BindCustom must never race with Fill.
package entropy

import (
	"errors"
	"fmt"
	"io"
	mrand "math/rand"

	"github.com/katzenpost/hpqc/rand"
)

const (
	// SourceSystem is the name of the real cryptographic entropy source.
	SourceSystem = "system"

	// SourceDeterministic is the name of the fixed-seed test source.
	SourceDeterministic = "deterministic-test"

	deterministicSeed = 0x6f71732d6374 // arbitrary, fixed
)

// ErrUnknownGenerator is returned by Switch for an unregistered name.
var ErrUnknownGenerator = errors.New("entropy: unknown generator")

// Source produces secret random bytes.
type Source interface {
	// Name identifies the source within a Binding's registry.
	Name() string

	// Fill fills p entirely with bytes from the source.
	Fill(p []byte) error
}

// Binding is the single mutable slot holding the active Source, together
// with a registry of named sources that Switch can select from.
type Binding struct {
	registry map[string]Source
	current  Source
}

// NewBinding returns a Binding with the system and deterministic-test
// sources registered, bound to the system source.
func NewBinding() *Binding {
	b := &Binding{registry: make(map[string]Source)}
	b.Register(systemSource{})
	b.Register(newDeterministicSource())
	if err := b.Switch(SourceSystem); err != nil {
		panic(err)
	}
	return b
}

// Register adds s to the registry, replacing any source of the same name.
// The active binding is unchanged.
func (b *Binding) Register(s Source) {
	b.registry[s.Name()] = s
}

// Fill fills p using the currently bound source.
func (b *Binding) Fill(p []byte) error {
	return b.current.Fill(p)
}

// Switch atomically replaces the active binding with the registered source
// of the given name.
func (b *Binding) Switch(name string) error {
	s, ok := b.registry[name]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrUnknownGenerator, name)
	}
	b.current = s
	return nil
}

// BindCustom installs an arbitrary caller-supplied source as the active
// binding without registering it.
func (b *Binding) BindCustom(s Source) {
	b.current = s
}

// Current returns the active source.
func (b *Binding) Current() Source {
	return b.current
}

type systemSource struct{}

func (systemSource) Name() string { return SourceSystem }

func (systemSource) Fill(p []byte) error {
	_, err := io.ReadFull(rand.Reader, p)
	return err
}

// deterministicSource is a fixed-seed stream for reproducible functional
// tests. It must never be used for real key material.
type deterministicSource struct {
	rng *mrand.Rand
}

func newDeterministicSource() *deterministicSource {
	return &deterministicSource{rng: mrand.New(mrand.NewSource(deterministicSeed))}
}

func (s *deterministicSource) Name() string { return SourceDeterministic }

func (s *deterministicSource) Fill(p []byte) error {
	_, err := s.rng.Read(p)
	return err
}

// FuncSource adapts a fill function to the Source interface.
type FuncSource struct {
	ID string
	Fn func(p []byte) error
}

// Name implements Source.
func (s FuncSource) Name() string { return s.ID }

// Fill implements Source.
func (s FuncSource) Fill(p []byte) error { return s.Fn(p) }
