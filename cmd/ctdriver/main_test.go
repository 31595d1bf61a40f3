// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// --version must work without the two positional arguments the normal
// invocation requires.
func TestVersionFlag(t *testing.T) {
	require := require.New(t)

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--version"})

	require.NoError(cmd.Execute())
	require.Contains(out.String(), "ctdriver")
}

func TestUsageErrors(t *testing.T) {
	require := require.New(t)

	for _, args := range [][]string{
		{},
		{"kem"},
		{"kem", "MLKEM768", "extra"},
	} {
		cmd := newRootCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		require.Error(cmd.Execute(), "args: %v", args)
	}
}
