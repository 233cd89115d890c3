// Copyright 2026 TailorFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli wires the tailorflow command-line entry points.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tailorflow",
	Short: "Offline-first sync backend for tailoring shops",
	Long: `tailorflow runs the authoritative backend that offline-first shop
devices sync their customers, orders and payments against.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
