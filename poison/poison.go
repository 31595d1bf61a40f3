// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package poison provides the poisoning interceptor. Installed as the
// active entropy source, it produces real random bytes from a concrete
// delegate generator and then flags them to the dynamic analyzer as being
// of unverified provenance, so that any branch or memory address derived
// from them becomes a reportable event.
package poison

import (
	"errors"
	"fmt"

	"github.com/chmodshubham/liboqs-installation/entropy"
)

// InterceptorName is the registry name the interceptor answers to.
const InterceptorName = "poison-interceptor"

// ErrGeneratorUnavailable is returned when the interceptor's delegate
// generator is not registered in the binding. The interceptor never falls
// back to a different entropy source: the bytes under test must come from
// the generator the real operation would have used.
var ErrGeneratorUnavailable = errors.New("poison: delegate generator unavailable")

// Marker is the analyzer's mark-as-unverified primitive. Implementations
// must not alter the contents of p.
type Marker interface {
	MarkUndefined(p []byte) error
}

// Interceptor wraps a concrete entropy source with poisoning. It is itself
// an entropy.Source so it can occupy the binding's active slot.
type Interceptor struct {
	binding  *entropy.Binding
	delegate string
	marker   Marker
}

// NewInterceptor returns an Interceptor delegating to the named generator,
// marking every filled buffer with m.
func NewInterceptor(b *entropy.Binding, delegate string, m Marker) *Interceptor {
	return &Interceptor{
		binding:  b,
		delegate: delegate,
		marker:   m,
	}
}

// Install makes the interceptor the binding's active source.
func (i *Interceptor) Install() {
	i.binding.BindCustom(i)
}

// Name implements entropy.Source.
func (i *Interceptor) Name() string { return InterceptorName }

// Fill implements entropy.Source. The call runs a two-state dance scoped
// to this invocation: the binding is switched to the concrete delegate,
// filled, and restored to the interceptor on every exit path. Without the
// switch the interceptor would invoke itself and recurse without bound.
func (i *Interceptor) Fill(p []byte) error {
	if err := i.binding.Switch(i.delegate); err != nil {
		// A failed switch leaves the binding untouched, so the
		// interceptor is still active and no restore is needed.
		return fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
	}
	defer i.binding.BindCustom(i)

	if err := i.binding.Fill(p); err != nil {
		return err
	}
	return i.marker.MarkUndefined(p)
}
