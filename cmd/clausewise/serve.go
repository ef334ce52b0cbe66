// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/clausewise/clausewise/services/analyzer"
)

var (
	serveFlagPort          int
	serveFlagBackend       string
	serveFlagBatchSize     int
	serveFlagMaxConcurrent int64
	serveFlagRPM           int
	serveFlagOTelEndpoint  string
	serveFlagGinMode       string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the analyzer HTTP service",
		Long: `Starts the analyzer service: POST documents to /v1/analysis, poll
progress, and fetch results over HTTP. Prometheus metrics are exposed
on /metrics.`,
		Run: func(cmd *cobra.Command, args []string) {
			logger := setupLogging("analyzer")
			defer logger.Close()

			svc, err := analyzer.New(analyzer.Config{
				Port:              serveFlagPort,
				LLMBackend:        serveFlagBackend,
				BatchSize:         serveFlagBatchSize,
				MaxConcurrent:     serveFlagMaxConcurrent,
				RequestsPerMinute: serveFlagRPM,
				OTelEndpoint:      serveFlagOTelEndpoint,
				GinMode:           serveFlagGinMode,
			})
			if err != nil {
				slog.Error("Failed to create analyzer service", "error", err)
				os.Exit(1)
			}

			if err := svc.Run(); err != nil {
				slog.Error("Analyzer service exited", "error", err)
				os.Exit(1)
			}
		},
	}
)

func init() {
	serveCmd.Flags().IntVarP(&serveFlagPort, "port", "p", 12310, "HTTP listen port")
	serveCmd.Flags().StringVarP(&serveFlagBackend, "backend", "b", "anthropic", "LLM backend: openai, ollama, claude, anthropic")
	serveCmd.Flags().IntVar(&serveFlagBatchSize, "batch-size", 0, "clauses per evaluator call (0 = engine default)")
	serveCmd.Flags().Int64Var(&serveFlagMaxConcurrent, "max-concurrent", 0, "max evaluator calls in flight (0 = engine default)")
	serveCmd.Flags().IntVar(&serveFlagRPM, "rpm", 0, "evaluator requests per minute (0 = unlimited)")
	serveCmd.Flags().StringVar(&serveFlagOTelEndpoint, "otel-endpoint", "", "OTLP gRPC endpoint for traces (empty = tracing disabled)")
	serveCmd.Flags().StringVar(&serveFlagGinMode, "gin-mode", "", "gin mode: debug, release, test")
}
