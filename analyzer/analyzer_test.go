// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

package analyzer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chmodshubham/liboqs-installation/core/log"
	"github.com/chmodshubham/liboqs-installation/driver"
)

func testBackend(t *testing.T) *log.Backend {
	t.Helper()
	b, err := log.New("", "DEBUG", true)
	require.NoError(t, err)
	return b
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cttrace-stub.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func testVariant(t *testing.T) *driver.Variant {
	t.Helper()
	v := driver.ByName("MLKEM768")
	require.NotNil(t, v)
	return v
}

func TestToolCleanRun(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	bin := writeScript(t, "exit 0\n")
	tool := NewTool(testBackend(t), bin, "/usr/bin/false", 97, time.Minute)

	res, err := tool.Run(testVariant(t), "")
	require.NoError(err)
	require.Equal(0, res.ExitCode)
	require.Equal(97, res.FindingsExitCode)
	require.Empty(res.Findings)
	require.False(res.TimedOut)
}

func TestToolFindingsRun(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	fixture := filepath.Join(t.TempDir(), "findings.cbor")
	require.NoError(EncodeFindingsFile(fixture, []Finding{
		{
			Category:    CategoryBranch,
			Description: "conditional jump depends on unverified data",
			Stack: []Frame{
				{Function: "mlkem.sampleNTT", Object: "ctdriver"},
				{Function: "main.main", Object: "ctdriver"},
			},
		},
	}))

	bin := writeScript(t, fmt.Sprintf(`
for a in "$@"; do
  case "$a" in
    --findings=*) cp %s "${a#--findings=}" ;;
  esac
done
exit 97
`, fixture))
	tool := NewTool(testBackend(t), bin, "/usr/bin/false", 97, time.Minute)

	res, err := tool.Run(testVariant(t), "")
	require.NoError(err)
	require.Equal(97, res.ExitCode)
	require.Len(res.Findings, 1)
	require.Equal("mlkem.sampleNTT", res.Findings[0].Stack[0].Function)
}

func TestToolFindingsFileMissing(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	// Claims findings but truncates the findings file to garbage.
	bin := writeScript(t, `
for a in "$@"; do
  case "$a" in
    --findings=*) printf 'not cbor at all' > "${a#--findings=}" ;;
  esac
done
exit 97
`)
	tool := NewTool(testBackend(t), bin, "/usr/bin/false", 97, time.Minute)

	_, err := tool.Run(testVariant(t), "")
	require.Error(err)
}

func TestToolCrashExit(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	bin := writeScript(t, "exit 3\n")
	tool := NewTool(testBackend(t), bin, "/usr/bin/false", 97, time.Minute)

	res, err := tool.Run(testVariant(t), "")
	require.NoError(err)
	require.Equal(3, res.ExitCode)
	require.Empty(res.Findings)
}

func TestToolTimeout(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	// The stub mirrors the production shape: the analyzer spawns the
	// driver as its own child, which inherits the stderr pipe. Killing
	// only the direct child would leave the grandchild running with the
	// pipe open and the wait would never return.
	bin := writeScript(t, "sleep 30 &\nwait\n")
	tool := NewTool(testBackend(t), bin, "/usr/bin/false", 97, 200*time.Millisecond)

	start := time.Now()
	res, err := tool.Run(testVariant(t), "")
	require.NoError(err)
	require.True(res.TimedOut)
	require.Less(time.Since(start), 10*time.Second)
}

func TestToolMissingBinary(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	tool := NewTool(testBackend(t), "/nonexistent/cttrace", "/usr/bin/false", 97, time.Minute)
	_, err := tool.Run(testVariant(t), "")
	require.Error(err)
}

func TestToolInvocationContract(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	argFile := filepath.Join(t.TempDir(), "args")
	bin := writeScript(t, fmt.Sprintf("printf '%%s\\n' \"$@\" > %s\nexit 0\n", argFile))
	tool := NewTool(testBackend(t), bin, "/opt/ctdriver", 97, time.Minute)

	v := testVariant(t)
	_, err := tool.Run(v, "/tmp/sel.toml")
	require.NoError(err)

	b, err := os.ReadFile(argFile)
	require.NoError(err)
	args := strings.Split(strings.TrimRight(string(b), "\n"), "\n")

	require.Equal("--error-exitcode=97", args[0])
	require.Equal("--suppressions=/tmp/sel.toml", args[1])
	require.True(strings.HasPrefix(args[2], "--findings="))
	require.Equal("--", args[3])
	require.Equal("/opt/ctdriver", args[4])
	require.Equal("kem", args[5])
	require.Equal("MLKEM768", args[6])
}

func TestFindingString(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	f := Finding{
		Category:    CategoryAddress,
		Description: "use of unverified data to form an address",
		Stack: []Frame{
			{Function: "a.F", Object: "ctdriver"},
			{Function: "main.main"},
		},
	}
	s := f.String()
	require.Contains(s, "[address]")
	require.Contains(s, "at a.F (ctdriver)")
	require.Contains(s, "at main.main")
}
