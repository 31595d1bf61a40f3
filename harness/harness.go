// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package harness orchestrates the constant-time leak-detection run:
// variant enumeration, filtering, the bounded worker pool of analyzer
// child processes, classification, and the aggregated report.
package harness

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/chmodshubham/liboqs-installation/analyzer"
	"github.com/chmodshubham/liboqs-installation/core/log"
	"github.com/chmodshubham/liboqs-installation/core/utils"
	"github.com/chmodshubham/liboqs-installation/core/worker"
	"github.com/chmodshubham/liboqs-installation/driver"
	"github.com/chmodshubham/liboqs-installation/harness/config"
	"github.com/chmodshubham/liboqs-installation/suppress"
)

// SkipEnv is the environment variable naming algorithm families to skip,
// comma separated. Typically used for variants that are extremely slow
// under instrumentation.
const SkipEnv = "CTHARNESS_SKIP_ALGS"

// ParseSkipList parses a comma-separated family skip list.
func ParseSkipList(s string) map[string]bool {
	skip := make(map[string]bool)
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			skip[strings.ToLower(f)] = true
		}
	}
	return skip
}

// Harness is the orchestrator. Each variant's execution is fully
// independent; the only mutated state is the report, written by the
// single collector.
type Harness struct {
	worker.Worker

	cfg        *config.Config
	logBackend *log.Backend
	log        *logging.Logger

	engine  *suppress.Engine
	invoker analyzer.Invoker

	filter string
	skip   map[string]bool
}

// New constructs a Harness. A nil invoker selects the production
// analyzer subprocess tool.
func New(cfg *config.Config, logBackend *log.Backend, invoker analyzer.Invoker) (*Harness, error) {
	engine := suppress.NewEngine(logBackend, cfg.Harness.RequireClean)
	if cfg.Harness.SuppressionDir != "" {
		if err := engine.LoadDirectory(cfg.Harness.SuppressionDir); err != nil {
			return nil, err
		}
	}

	l := logBackend.GetLogger("harness")
	if invoker == nil {
		// Preflight the binaries so a bad path surfaces as one warning
		// up front instead of one ERROR verdict per variant.
		for _, bin := range []string{cfg.Analyzer.Binary, cfg.Harness.DriverBinary} {
			if !utils.IsExecutable(bin) {
				l.Warningf("'%s' is not an executable file", bin)
			}
		}
		invoker = analyzer.NewTool(logBackend, cfg.Analyzer.Binary,
			cfg.Harness.DriverBinary, cfg.Analyzer.ErrorExitCode,
			cfg.Analyzer.Timeout())
	}

	return &Harness{
		cfg:        cfg,
		logBackend: logBackend,
		log:        l,
		engine:     engine,
		invoker:    invoker,
		skip:       ParseSkipList(os.Getenv(SkipEnv)),
	}, nil
}

// SetFilter restricts the run to variants whose name contains the given
// substring (case-insensitive).
func (h *Harness) SetFilter(filter string) {
	h.filter = filter
}

// SetSkipList overrides the environment-derived family skip list.
func (h *Harness) SetSkipList(skip map[string]bool) {
	h.skip = skip
}

// Engine returns the suppression classification engine.
func (h *Harness) Engine() *suppress.Engine {
	return h.engine
}

func (h *Harness) excluded(v *driver.Variant) bool {
	if h.skip[strings.ToLower(v.Family)] {
		return true
	}
	if h.filter != "" && !strings.Contains(strings.ToLower(v.Name), strings.ToLower(h.filter)) {
		return true
	}
	return false
}

// Run executes the full harness pass over the variant registry and
// returns the aggregated report. One variant's crash or leak never
// aborts the processing of other variants.
func (h *Harness) Run() (*Report, error) {
	variants := driver.Registry()

	report := new(Report)
	jobs := make(chan *driver.Variant)
	results := make(chan Result)

	pending := 0
	for _, v := range variants {
		if h.excluded(v) {
			h.log.Debugf("%s: skipped", v.Name)
			report.Results = append(report.Results, Result{
				Variant: v.Name,
				Family:  v.Family,
				Kind:    v.Kind.String(),
				Verdict: suppress.VerdictSkip,
			})
			continue
		}
		pending++
	}

	workers := h.cfg.Harness.Workers
	if workers > pending && pending > 0 {
		workers = pending
	}
	for i := 0; i < workers; i++ {
		h.Go(func() {
			for {
				select {
				case v, ok := <-jobs:
					if !ok {
						return
					}
					results <- h.runVariant(v)
				case <-h.HaltCh():
					return
				}
			}
		})
	}

	h.Go(func() {
		defer close(jobs)
		for _, v := range variants {
			if h.excluded(v) {
				continue
			}
			select {
			case jobs <- v:
			case <-h.HaltCh():
				return
			}
		}
	})

	for i := 0; i < pending; i++ {
		res := <-results
		h.log.Noticef("%s: %s", res.Variant, res.Verdict)
		report.Results = append(report.Results, res)
	}
	h.Halt()

	report.sortResults()
	if err := h.applyHistory(report); err != nil {
		return nil, err
	}
	if h.cfg.Harness.ReportFile != "" {
		if err := report.WriteFile(h.cfg.Harness.ReportFile); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// runVariant executes and classifies a single variant. All failure modes
// are folded into the Result; nothing propagates.
func (h *Harness) runVariant(v *driver.Variant) Result {
	start := time.Now()
	res := Result{
		Variant: v.Name,
		Family:  v.Family,
		Kind:    v.Kind.String(),
	}

	supFile, err := h.engine.WriteSelection(v.Name)
	if err != nil {
		res.Verdict = suppress.VerdictError
		res.Err = err.Error()
		return res
	}
	if supFile != "" {
		defer os.Remove(supFile)
	}

	ares, err := h.invoker.Run(v, supFile)
	if err != nil {
		h.log.Errorf("%s: analyzer invocation failed: %v", v.Name, err)
		res.Verdict = suppress.VerdictError
		res.Err = err.Error()
		res.Elapsed = time.Since(start)
		return res
	}
	if ares.TimedOut {
		res.Err = "analyzer timed out"
	}

	cl := h.engine.Classify(v.Name, ares)
	res.Verdict = cl.Verdict
	for _, m := range cl.Known {
		res.KnownIssues = append(res.KnownIssues, m.Entry.Name)
	}
	res.NewFindings = cl.New
	res.Elapsed = time.Since(start)
	return res
}

// applyHistory marks verdict transitions and records the new verdicts
// when a history database is configured.
func (h *Harness) applyHistory(report *Report) error {
	if h.cfg.Harness.HistoryDB == "" {
		return nil
	}
	hist, err := OpenHistory(h.cfg.Harness.HistoryDB)
	if err != nil {
		return err
	}
	defer hist.Close()

	for i := range report.Results {
		res := &report.Results[i]
		if res.Verdict == suppress.VerdictSkip {
			continue
		}
		if last, ok := hist.Last(res.Variant); ok && last != res.Verdict.String() {
			res.Changed = true
			h.log.Noticef("%s: verdict changed from %s to %s", res.Variant, last, res.Verdict)
		}
		if err := hist.Record(res.Variant, res.Verdict.String()); err != nil {
			return err
		}
	}
	return nil
}

// ExitCode maps the report onto the harness process exit status.
func (h *Harness) ExitCode(report *Report) int {
	if report.Failed(h.cfg.Harness.FailRunOnKnownIssues) {
		return 1
	}
	return 0
}

// String renders a short harness identity for logs.
func (h *Harness) String() string {
	return fmt.Sprintf("harness[workers=%d]", h.cfg.Harness.Workers)
}
