// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package driver runs the fixed operation sequence for one algorithm
// variant with the poisoning interceptor installed as the active entropy
// source. All secret material either enters the primitives through the
// interceptor (KEM key seeds) or is explicitly marked after generation
// (private keys, via a serialize-mark-deserialize round trip), so the
// dynamic analyzer observes every downstream use.
//
// The driver asserts functional correctness only. Timing is judged by the
// analyzer wrapping this process; a functional failure here must surface
// as a distinct exit status because a broken primitive is a different
// failure class than a timing leak.
package driver

import (
	"bytes"
	"fmt"

	"gopkg.in/op/go-logging.v1"

	kemschemes "github.com/katzenpost/hpqc/kem/schemes"
	signschemes "github.com/katzenpost/hpqc/sign/schemes"

	"github.com/chmodshubham/liboqs-installation/core/log"
	"github.com/chmodshubham/liboqs-installation/entropy"
	"github.com/chmodshubham/liboqs-installation/poison"
)

// signMessage is the fixed message signed by every signature variant.
var signMessage = []byte("ctharness signature driver message")

// Driver executes operation sequences for algorithm variants.
type Driver struct {
	binding     *entropy.Binding
	interceptor *poison.Interceptor
	marker      poison.Marker
	log         *logging.Logger
}

// New constructs a Driver whose secret bytes are poisoned with m.
func New(logBackend *log.Backend, m poison.Marker) *Driver {
	b := entropy.NewBinding()
	d := &Driver{
		binding:     b,
		interceptor: poison.NewInterceptor(b, entropy.SourceSystem, m),
		marker:      m,
		log:         logBackend.GetLogger("driver"),
	}
	return d
}

// Binding returns the driver's entropy binding. Exposed for tests that
// need to inspect or replace the active source.
func (d *Driver) Binding() *entropy.Binding {
	return d.binding
}

// Run installs the interceptor and executes the variant's operation
// sequence. A non-nil error means functional failure.
func (d *Driver) Run(v *Variant) error {
	d.interceptor.Install()

	d.log.Debugf("running %v", v)
	switch v.Kind {
	case KindKEM:
		return d.runKEM(v)
	case KindSignature:
		return d.runSignature(v)
	default:
		return fmt.Errorf("driver: variant %s has unknown kind", v.Name)
	}
}

// runKEM exercises keypair derivation, encapsulation and decapsulation.
// The key seed is drawn through the binding, so the interceptor poisons
// it before the scheme derives the keypair; the derived private key is
// additionally serialized, marked and deserialized so the key handed to
// Decapsulate is tainted even where the derivation hashes the seed out of
// the analyzer's sight. Decapsulation is the operation under test;
// encapsulation uses the scheme's own randomness.
func (d *Driver) runKEM(v *Variant) error {
	scheme := kemschemes.ByName(v.Scheme)
	if scheme == nil {
		return fmt.Errorf("driver: KEM scheme '%s' not found", v.Scheme)
	}

	keySeed := make([]byte, scheme.SeedSize())
	if err := d.binding.Fill(keySeed); err != nil {
		return fmt.Errorf("driver: key seed generation failed: %v", err)
	}
	pk, sk := scheme.DeriveKeyPair(keySeed)

	skBlob, err := sk.MarshalBinary()
	if err != nil {
		return fmt.Errorf("driver: private key serialization failed: %v", err)
	}
	if err := d.marker.MarkUndefined(skBlob); err != nil {
		return fmt.Errorf("driver: private key poisoning failed: %v", err)
	}
	tainted, err := scheme.UnmarshalBinaryPrivateKey(skBlob)
	if err != nil {
		return fmt.Errorf("driver: private key deserialization failed: %v", err)
	}

	ct, ss, err := scheme.Encapsulate(pk)
	if err != nil {
		return fmt.Errorf("driver: encapsulation failed: %v", err)
	}

	ss2, err := scheme.Decapsulate(tainted, ct)
	if err != nil {
		return fmt.Errorf("driver: decapsulation failed: %v", err)
	}
	if !bytes.Equal(ss, ss2) {
		return fmt.Errorf("driver: %s shared secret mismatch", v.Name)
	}
	return nil
}

// runSignature exercises key generation, signing and verification. The
// hpqc signature schemes draw their key generation randomness internally,
// so the freshly generated private key is serialized, marked unverified,
// and deserialized again; the key actually used for signing is then
// tainted in the analyzer's view.
func (d *Driver) runSignature(v *Variant) error {
	scheme := signschemes.ByName(v.Scheme)
	if scheme == nil {
		return fmt.Errorf("driver: signature scheme '%s' not found", v.Scheme)
	}

	pk, sk, err := scheme.GenerateKey()
	if err != nil {
		return fmt.Errorf("driver: key generation failed: %v", err)
	}

	skBlob, err := sk.MarshalBinary()
	if err != nil {
		return fmt.Errorf("driver: private key serialization failed: %v", err)
	}
	if err := d.marker.MarkUndefined(skBlob); err != nil {
		return fmt.Errorf("driver: private key poisoning failed: %v", err)
	}
	tainted, err := scheme.UnmarshalBinaryPrivateKey(skBlob)
	if err != nil {
		return fmt.Errorf("driver: private key deserialization failed: %v", err)
	}

	sig := scheme.Sign(tainted, signMessage, nil)
	if !scheme.Verify(pk, signMessage, sig, nil) {
		return fmt.Errorf("driver: %s signature verification failed", v.Name)
	}
	return nil
}
