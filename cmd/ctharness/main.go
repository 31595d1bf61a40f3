// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

// ctharness runs the constant-time leak-detection harness over the
// algorithm variant registry and reports per-variant verdicts.
package main

import (
	"fmt"
	"os"

	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/cobra"

	"github.com/chmodshubham/liboqs-installation/core/log"
	"github.com/chmodshubham/liboqs-installation/harness"
	"github.com/chmodshubham/liboqs-installation/harness/config"
)

type cliConfig struct {
	configFile string
	filter     string
	strict     bool
	verbose    bool
}

func newRootCommand() *cobra.Command {
	var cli cliConfig

	cmd := &cobra.Command{
		Use:     "ctharness",
		Version: versioninfo.Short(),
		Short:   "Constant-time leak-detection harness",
		Long: `ctharness verifies that the registered post-quantum KEM and signature
implementations do not branch or index memory based on secret data. Each
algorithm variant's test driver is run as a child process under the external
dynamic analyzer with curated suppression catalogs; raw findings are
classified into per-variant verdicts.

The CTHARNESS_SKIP_ALGS environment variable holds a comma-separated list
of algorithm family names to skip, e.g. for families that are extremely
slow under instrumentation.`,
		Example: `
  # Run every variant
  ctharness --config harness.toml

  # Only the ML-KEM based variants, verbose
  ctharness --config harness.toml --filter MLKEM -v

  # Gate CI on previously triaged issues as well
  ctharness --config harness.toml --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &cli)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&cli.configFile, "config", "c", "", "path to the harness configuration file (TOML format)")
	cmd.Flags().StringVarP(&cli.filter, "filter", "f", "", "only run variants whose name contains this substring")
	cmd.Flags().BoolVar(&cli.strict, "strict", false, "fail the run on known (previously triaged) issues too")
	cmd.Flags().BoolVarP(&cli.verbose, "verbose", "v", false, "log at DEBUG level")
	cmd.MarkFlagRequired("config")

	return cmd
}

func run(cmd *cobra.Command, cli *cliConfig) error {
	cfg, err := config.LoadFile(cli.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config file: %v", err)
	}
	if cli.strict {
		cfg.Harness.RequireClean = true
		cfg.Harness.FailRunOnKnownIssues = true
	}
	if cli.verbose {
		cfg.Logging.Level = "DEBUG"
	}

	logBackend, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %v", err)
	}

	h, err := harness.New(cfg, logBackend, nil)
	if err != nil {
		return err
	}
	h.SetFilter(cli.filter)

	report, err := h.Run()
	if err != nil {
		return err
	}
	report.Summary(cmd.OutOrStdout())

	if code := h.ExitCode(report); code != 0 {
		os.Exit(code)
	}
	return nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
