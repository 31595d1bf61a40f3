// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

package driver

import (
	"testing"

	"github.com/stretchr/testify/require"

	kemschemes "github.com/katzenpost/hpqc/kem/schemes"
	signschemes "github.com/katzenpost/hpqc/sign/schemes"

	"github.com/chmodshubham/liboqs-installation/core/log"
	"github.com/chmodshubham/liboqs-installation/poison"
)

type countingMarker struct {
	buffers int
	bytes   int
}

func (m *countingMarker) MarkUndefined(p []byte) error {
	m.buffers++
	m.bytes += len(p)
	return nil
}

func testBackend(t *testing.T) *log.Backend {
	t.Helper()
	b, err := log.New("", "DEBUG", true)
	require.NoError(t, err)
	return b
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	require.NotEmpty(Registry())

	v := ByName("MLKEM768")
	require.NotNil(v)
	require.Equal(KindKEM, v.Kind)
	require.Equal("ML-KEM", v.Family)

	v = ByName("Ed25519")
	require.NotNil(v)
	require.Equal(KindSignature, v.Kind)

	require.Nil(ByName("RSA-4096"))

	k, err := ParseKind("kem")
	require.NoError(err)
	require.Equal(KindKEM, k)
	k, err = ParseKind("SIGN")
	require.NoError(err)
	require.Equal(KindSignature, k)
	_, err = ParseKind("nike")
	require.Error(err)
}

// TestRegistrySchemesResolve: every registered variant must name a scheme
// the crypto library actually carries, or it could only ever yield ERROR.
func TestRegistrySchemesResolve(t *testing.T) {
	t.Parallel()

	for _, v := range Registry() {
		v := v
		t.Run(v.Name, func(t *testing.T) {
			t.Parallel()
			switch v.Kind {
			case KindKEM:
				require.NotNil(t, kemschemes.ByName(v.Scheme), "KEM scheme '%s' not in registry", v.Scheme)
			case KindSignature:
				require.NotNil(t, signschemes.ByName(v.Scheme), "signature scheme '%s' not in registry", v.Scheme)
			}
		})
	}
}

func TestDriverKEMSequence(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"MLKEM768", "XWING", "MLKEM768-X25519", "x25519"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			require := require.New(t)

			v := ByName(name)
			require.NotNil(v)

			m := &countingMarker{}
			d := New(testBackend(t), m)
			require.NoError(d.Run(v))

			// The key seed is marked by the interceptor and the
			// serialized private key by the driver.
			require.Equal(2, m.buffers)

			// The interceptor remains the active source after the run.
			require.Equal(poison.InterceptorName, d.Binding().Current().Name())
		})
	}
}

func TestDriverSignatureSequence(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"Ed25519", "Ed25519-Dilithium2"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			require := require.New(t)

			v := ByName(name)
			require.NotNil(v)

			m := &countingMarker{}
			d := New(testBackend(t), m)
			require.NoError(d.Run(v))

			// The serialized private key is marked once.
			require.Equal(1, m.buffers)
			require.NotZero(m.bytes)
		})
	}
}

func TestDriverUnknownScheme(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	d := New(testBackend(t), &countingMarker{})
	err := d.Run(&Variant{Family: "Bogus", Name: "Bogus1", Kind: KindKEM, Scheme: "Bogus1"})
	require.Error(err)
}
