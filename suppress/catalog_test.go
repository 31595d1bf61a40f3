// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

package suppress

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chmodshubham/liboqs-installation/core/log"
)

const testCatalog = `
family = "ML-KEM"

[[suppression]]
name = "kyber_rejection"
description = "Rejection sampling on public loop bound."
category = "branch"
stack = ["mlkem.sampleNTT", "..."]

[[suppression]]
name = "mlkem_absorb_specific"
description = "Specific absorb-then-sample shape."
category = "branch"
stack = ["mlkem.absorb", "mlkem.sampleNTT"]

[[suppression]]
name = "mlkem_absorb_general"
description = "Any finding inside absorb."
category = "branch"
stack = ["mlkem.absorb"]

[[suppression]]
name = "mlkem_open_issue"
description = "Triaged secret-dependent table lookup."
category = "address"
stack = ["mlkem.decaps*", "..."]

[variants."ML-KEM-512"]
passes = ["kyber_rejection"]
issues = []

[variants."ML-KEM-768"]
passes = ["mlkem_absorb_specific", "mlkem_absorb_general"]
issues = ["mlkem_open_issue"]
`

func testBackend(t *testing.T) *log.Backend {
	t.Helper()
	b, err := log.New("", "DEBUG", true)
	require.NoError(t, err)
	return b
}

func TestCatalogParse(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	c, err := parseCatalog([]byte(testCatalog))
	require.NoError(err)
	require.Equal("ML-KEM", c.Family)
	require.Equal([]string{"ML-KEM-512", "ML-KEM-768"}, c.Variants())

	sel := c.SelectFor("ML-KEM-512")
	require.Len(sel, 1)
	require.Equal("kyber_rejection", sel[0].Entry.Name)
	require.Equal(TagAcceptable, sel[0].Tag)

	// Union preserves declared order: passes first, then issues.
	sel = c.SelectFor("ML-KEM-768")
	require.Len(sel, 3)
	require.Equal("mlkem_absorb_specific", sel[0].Entry.Name)
	require.Equal("mlkem_absorb_general", sel[1].Entry.Name)
	require.Equal("mlkem_open_issue", sel[2].Entry.Name)
	require.Equal(TagProblematic, sel[2].Tag)

	// Unknown variants are required to be clean.
	require.Empty(c.SelectFor("ML-KEM-1024"))
}

func TestCatalogValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"missing family", `
[[suppression]]
name = "x"
stack = ["a.F"]
`},
		{"nameless entry", `
family = "F"
[[suppression]]
stack = ["a.F"]
`},
		{"duplicate entry", `
family = "F"
[[suppression]]
name = "x"
stack = ["a.F"]
[[suppression]]
name = "x"
stack = ["a.G"]
`},
		{"bad category", `
family = "F"
[[suppression]]
name = "x"
category = "timing"
stack = ["a.F"]
`},
		{"empty stack", `
family = "F"
[[suppression]]
name = "x"
stack = []
`},
		{"empty pattern token", `
family = "F"
[[suppression]]
name = "x"
stack = [""]
`},
		{"undefined reference", `
family = "F"
[[suppression]]
name = "x"
stack = ["a.F"]
[variants."V"]
passes = ["y"]
`},
		{"entry in both sets", `
family = "F"
[[suppression]]
name = "x"
stack = ["a.F"]
[variants."V"]
passes = ["x"]
issues = ["x"]
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseCatalog([]byte(tc.body))
			require.Error(t, err)
		})
	}
}

func TestEngineLoadDirectory(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	dir := t.TempDir()
	require.NoError(os.WriteFile(filepath.Join(dir, "ml-kem.toml"), []byte(testCatalog), 0600))

	e := NewEngine(testBackend(t), false)
	require.NoError(e.LoadDirectory(dir))
	require.Len(e.SelectFor("ML-KEM-512"), 1)
	require.Empty(e.SelectFor("Unlisted"))

	// A missing directory means every variant must be clean.
	e2 := NewEngine(testBackend(t), false)
	require.NoError(e2.LoadDirectory(filepath.Join(dir, "nope")))
	require.Empty(e2.SelectFor("ML-KEM-512"))
}

// TestShippedCatalogs: the catalogs distributed with the harness must
// load through the engine, pointer-receiver stack patterns included.
func TestShippedCatalogs(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	e := NewEngine(testBackend(t), false)
	require.NoError(e.LoadDirectory(filepath.Join("..", "suppressions")))

	sel := e.SelectFor("MLKEM768")
	require.NotEmpty(sel)

	sel = e.SelectFor("MLKEM768-X25519")
	require.NotEmpty(sel)

	sel = e.SelectFor("Ed25519 Sphincs+")
	require.Len(sel, 1)
	require.Equal(TagProblematic, sel[0].Tag)
}

func TestEngineDuplicateVariant(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	dir := t.TempDir()
	other := `
family = "Other"
[[suppression]]
name = "o"
stack = ["a.F"]
[variants."ML-KEM-512"]
passes = ["o"]
`
	require.NoError(os.WriteFile(filepath.Join(dir, "a.toml"), []byte(testCatalog), 0600))
	require.NoError(os.WriteFile(filepath.Join(dir, "b.toml"), []byte(other), 0600))

	e := NewEngine(testBackend(t), false)
	require.Error(e.LoadDirectory(dir))
}

func TestWriteSelection(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	e := NewEngine(testBackend(t), false)
	c, err := parseCatalog([]byte(testCatalog))
	require.NoError(err)
	require.NoError(e.AddCatalog(c))

	// Empty selections produce no file.
	path, err := e.WriteSelection("Unlisted")
	require.NoError(err)
	require.Empty(path)

	path, err = e.WriteSelection("ML-KEM-768")
	require.NoError(err)
	require.NotEmpty(path)
	defer os.Remove(path)

	// The rendered file must itself parse as suppression entries with
	// patterns intact.
	b, err := os.ReadFile(path)
	require.NoError(err)
	rendered, err := parseCatalog(append([]byte("family = \"rendered\"\n"), b...))
	require.NoError(err)
	require.Len(rendered.entries, 3)
	require.Equal("mlkem.decaps*", rendered.entries["mlkem_open_issue"].Stack[0].String())
}
