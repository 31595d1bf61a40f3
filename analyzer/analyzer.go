// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package analyzer drives the external dynamic control-flow analyzer as a
// child process wrapping the instrumented test driver binary.
//
// The analyzer CLI contract is:
//
//	<analyzer> --error-exitcode=<N> [--suppressions=<file>] \
//	    --findings=<file> -- <driver> <kind> <variant>
//
// Exit 0 means the analyzer attached and observed zero findings. Exit N
// means at least one finding occurred and the findings file was written
// (a CBOR array of Finding). Any other exit status means the driver
// crashed or the analyzer failed to attach.
package analyzer

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/chmodshubham/liboqs-installation/core/log"
	"github.com/chmodshubham/liboqs-installation/driver"
)

// DefaultErrorExitCode is the distinguished exit status the analyzer is
// asked to use when any finding occurs. Chosen to avoid collision with
// the driver's own exit codes and common shell statuses.
const DefaultErrorExitCode = 97

// Result is the outcome of one analyzer invocation.
type Result struct {
	// ExitCode is the analyzer process exit status.
	ExitCode int

	// FindingsExitCode is the status that was requested to signal
	// findings; classification compares ExitCode against it.
	FindingsExitCode int

	// Findings holds the parsed findings, present only when ExitCode
	// equals FindingsExitCode.
	Findings []Finding

	// TimedOut is set when the child had to be killed.
	TimedOut bool
}

// Invoker runs the analyzer for one variant with one suppression file.
// The production implementation shells out; tests substitute doubles.
type Invoker interface {
	Run(v *driver.Variant, suppressionFile string) (*Result, error)
}

// Tool is the production Invoker.
type Tool struct {
	logBackend *log.Backend
	log        *logging.Logger

	binary        string
	driverBinary  string
	errorExitCode int
	baseTimeout   time.Duration
}

// NewTool constructs the production analyzer invoker. baseTimeout is per
// variant and is multiplied by the variant's TimeoutScale; instrumentation
// slows execution by an order of magnitude, so it should be generous.
func NewTool(logBackend *log.Backend, binary, driverBinary string, errorExitCode int, baseTimeout time.Duration) *Tool {
	if errorExitCode == 0 {
		errorExitCode = DefaultErrorExitCode
	}
	return &Tool{
		logBackend:    logBackend,
		log:           logBackend.GetLogger("analyzer"),
		binary:        binary,
		driverBinary:  driverBinary,
		errorExitCode: errorExitCode,
		baseTimeout:   baseTimeout,
	}
}

// Run implements Invoker. It owns the full subprocess lifecycle: spawn,
// bounded wait, forced termination on timeout.
func (t *Tool) Run(v *driver.Variant, suppressionFile string) (*Result, error) {
	findingsFile, err := os.CreateTemp("", "ctharness-findings-*.cbor")
	if err != nil {
		return nil, fmt.Errorf("analyzer: failed to create findings file: %v", err)
	}
	findingsPath := findingsFile.Name()
	findingsFile.Close()
	defer os.Remove(findingsPath)

	args := []string{
		fmt.Sprintf("--error-exitcode=%d", t.errorExitCode),
	}
	if suppressionFile != "" {
		args = append(args, "--suppressions="+suppressionFile)
	}
	args = append(args, "--findings="+findingsPath, "--",
		t.driverBinary, v.Kind.String(), v.Name)

	cmd := exec.Command(t.binary, args...)
	// Fold analyzer and driver stderr into our log so crash diagnostics
	// are not lost.
	cmd.Stderr = t.logBackend.GetLogWriter("analyzer:"+v.Name, "DEBUG")
	cmd.Stdout = cmd.Stderr
	// Own process group, so a timeout kill reaches the wrapped driver and
	// not just the analyzer.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	// Stop waiting on the stderr copy goroutines once the process is
	// dead, in case an orphaned grandchild still holds the pipe open.
	cmd.WaitDelay = 5 * time.Second

	timeout := t.baseTimeout
	if v.TimeoutScale > 1 {
		timeout *= time.Duration(v.TimeoutScale)
	}

	t.log.Debugf("%s: exec %s %v (timeout %v)", v.Name, t.binary, args, timeout)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("analyzer: failed to exec '%s': %v", t.binary, err)
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-waitCh:
	case <-time.After(timeout):
		t.log.Warningf("%s: timeout after %v, killing analyzer process group", v.Name, timeout)
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
			t.log.Errorf("%s: group kill failed: %v", v.Name, err)
			if err := cmd.Process.Kill(); err != nil {
				t.log.Errorf("%s: kill failed: %v", v.Name, err)
			}
		}
		<-waitCh
		return &Result{
			ExitCode:         -1,
			FindingsExitCode: t.errorExitCode,
			TimedOut:         true,
		}, nil
	}

	res := &Result{
		ExitCode:         cmd.ProcessState.ExitCode(),
		FindingsExitCode: t.errorExitCode,
	}
	if waitErr != nil {
		if _, ok := waitErr.(*exec.ExitError); !ok {
			return nil, fmt.Errorf("analyzer: wait failed: %v", waitErr)
		}
	}

	if res.ExitCode == t.errorExitCode {
		findings, err := DecodeFindingsFile(findingsPath)
		if err != nil {
			// The analyzer claimed findings but produced nothing
			// parseable; that is an attach/tool failure, not a
			// verdict about the variant.
			return nil, err
		}
		res.Findings = findings
	}
	return res, nil
}
