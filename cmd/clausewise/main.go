// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command clausewise is the CLI for the Clausewise document risk
// analyzer: run the HTTP service, or analyze a document file directly
// from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clausewise/clausewise/pkg/logging"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	flagVerbose bool
	flagLogDir  string

	rootCmd = &cobra.Command{
		Use:   "clausewise",
		Short: "A CLI for the Clausewise contract risk analyzer",
		Long: `Clausewise analyzes legal document text for risks, extracts
document-wide provisions, and reports coverage and severity for review.`,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the clausewise version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("clausewise", Version)
		},
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "also write logs to this directory")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// setupLogging installs the process-wide logger from the persistent
// flags. Every subcommand calls it first.
func setupLogging(service string) *logging.Logger {
	level := logging.LevelInfo
	if flagVerbose {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  flagLogDir,
		Service: service,
	})
	logger.InstallDefault()
	return logger
}
