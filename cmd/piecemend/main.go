// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Command piecemend is a thin wrapper that parses flags, loads
// configuration, and delegates the actual reconstruction work to
// internal/recovery.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "piecemend",
		Short: "Reconstruct byte-exact compressed archives referenced by a BitTorrent metainfo file",
	}

	root.AddCommand(newRecoverCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
