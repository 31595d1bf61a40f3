// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

// ctdriver executes one algorithm variant's operation sequence with the
// poisoning interceptor installed. It is the binary the external dynamic
// analyzer wraps; run standalone it performs a plain functional test.
//
// Exit status: 0 on functional success, 1 on functional failure, 2 on
// usage errors or an unknown variant.
package main

import (
	"fmt"
	"os"

	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/cobra"

	"github.com/chmodshubham/liboqs-installation/core/log"
	"github.com/chmodshubham/liboqs-installation/driver"
	"github.com/chmodshubham/liboqs-installation/poison"
)

func newRootCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:     "ctdriver <kem|sign> <variant>",
		Version: versioninfo.Short(),
		Short:   "Constant-time harness test driver",
		Long: `ctdriver runs the deterministic cryptographic operation sequence for one
algorithm variant: key generation, then encapsulation and decapsulation for
KEMs, or signing and verification for signature schemes. All secret material
is flagged to the dynamic analyzer as being of unverified provenance via the
CT_POISON_FD mark channel when present.`,
		Example: `
  ctdriver kem MLKEM768
  ctdriver sign Ed25519-Dilithium2`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], args[1], verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log at DEBUG level")
	return cmd
}

func run(kindArg, variantName string, verbose bool) error {
	kind, err := driver.ParseKind(kindArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ctdriver: %v\n", err)
		os.Exit(2)
	}
	v := driver.ByName(variantName)
	if v == nil || v.Kind != kind {
		fmt.Fprintf(os.Stderr, "ctdriver: unknown %s variant '%s'\n", kindArg, variantName)
		os.Exit(2)
	}

	level := "NOTICE"
	if verbose {
		level = "DEBUG"
	}
	// Stdout belongs to the analyzer's capture; stay quiet unless asked.
	logBackend, err := log.New("", level, !verbose)
	if err != nil {
		return err
	}

	d := driver.New(logBackend, poison.MarkerFromEnvironment())
	if err := d.Run(v); err != nil {
		fmt.Fprintf(os.Stderr, "ctdriver: %v\n", err)
		os.Exit(1)
	}
	return nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
