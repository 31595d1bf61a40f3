// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package config implements the harness configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultLogLevel       = "NOTICE"
	defaultWorkers        = 2
	defaultTimeoutSeconds = 600
	defaultErrorExitCode  = 97
)

var defaultLogging = Logging{
	Disable: false,
	File:    "",
	Level:   defaultLogLevel,
}

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stdout will be used.
	File string

	// Level specifies the log level.
	Level string
}

func (lCfg *Logging) validate() error {
	lvl := strings.ToUpper(lCfg.Level)
	switch lvl {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	lCfg.Level = lvl
	return nil
}

// Analyzer configures the external dynamic analyzer invocation.
type Analyzer struct {
	// Binary is the analyzer executable path.
	Binary string

	// ErrorExitCode is the distinguished exit status the analyzer uses
	// when any finding occurs.
	ErrorExitCode int

	// TimeoutSeconds bounds one variant's analyzer run before forced
	// termination. Instrumentation slows execution by an order of
	// magnitude, so the default is generous.
	TimeoutSeconds int
}

func (aCfg *Analyzer) fixup() {
	if aCfg.ErrorExitCode == 0 {
		aCfg.ErrorExitCode = defaultErrorExitCode
	}
	if aCfg.TimeoutSeconds == 0 {
		aCfg.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (aCfg *Analyzer) validate() error {
	if aCfg.Binary == "" {
		return fmt.Errorf("config: Analyzer: Binary is not set")
	}
	if aCfg.ErrorExitCode < 1 || aCfg.ErrorExitCode > 255 {
		return fmt.Errorf("config: Analyzer: ErrorExitCode %d out of range", aCfg.ErrorExitCode)
	}
	return nil
}

// Timeout returns the configured base timeout as a Duration.
func (aCfg *Analyzer) Timeout() time.Duration {
	return time.Duration(aCfg.TimeoutSeconds) * time.Second
}

// Harness is the orchestrator configuration.
type Harness struct {
	// DriverBinary is the instrumented test driver executable path.
	DriverBinary string

	// SuppressionDir holds one TOML catalog per algorithm family.
	SuppressionDir string

	// Workers bounds the number of concurrent analyzer child
	// processes.
	Workers int

	// RequireClean makes known problematic findings fail a variant
	// instead of yielding PASS-with-known-issues.
	RequireClean bool

	// FailRunOnKnownIssues makes the run's exit status non-zero when
	// any variant carries known issues, even if none failed outright.
	FailRunOnKnownIssues bool

	// ReportFile, if set, receives the machine-readable CBOR report.
	ReportFile string

	// HistoryDB, if set, is the bbolt database recording per-variant
	// verdicts across runs.
	HistoryDB string
}

func (hCfg *Harness) fixup() {
	if hCfg.Workers == 0 {
		hCfg.Workers = defaultWorkers
	}
}

func (hCfg *Harness) validate() error {
	if hCfg.DriverBinary == "" {
		return fmt.Errorf("config: Harness: DriverBinary is not set")
	}
	if hCfg.Workers < 1 {
		return fmt.Errorf("config: Harness: Workers %d is invalid", hCfg.Workers)
	}
	return nil
}

// Config is the top level harness configuration.
type Config struct {
	Harness  Harness
	Analyzer Analyzer
	Logging  *Logging
}

// FixupAndValidate applies defaults to config entries and validates the
// configuration.
func (c *Config) FixupAndValidate() error {
	if c.Logging == nil {
		l := defaultLogging
		c.Logging = &l
	}
	c.Harness.fixup()
	c.Analyzer.fixup()

	if err := c.Logging.validate(); err != nil {
		return err
	}
	if err := c.Harness.validate(); err != nil {
		return err
	}
	return c.Analyzer.validate()
}

// Load parses and validates the provided buffer b as a config file body
// and returns the Config.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses, and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
