// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/clausewise/clausewise/services/analyzer"
	"github.com/clausewise/clausewise/services/analyzer/datatypes"
)

// documentFile is the on-disk YAML shape the analyze command reads. It
// mirrors AnalyzeRequest so a file can be prepared by hand or exported
// from the parsing pipeline.
type documentFile struct {
	ContractType   string   `yaml:"contract_type"`
	Representation string   `yaml:"representation"`
	Aggressiveness int      `yaml:"aggressiveness"`
	DefinedTerms   []string `yaml:"defined_terms"`

	Paragraphs []struct {
		ParaID     string `yaml:"para_id"`
		SectionRef string `yaml:"section_ref"`
		Text       string `yaml:"text"`
	} `yaml:"paragraphs"`
}

var (
	analyzeFlagBackend       string
	analyzeFlagBatchSize     int
	analyzeFlagMaxConcurrent int64
	analyzeFlagRPM           int
	analyzeFlagOutput        string

	analyzeCmd = &cobra.Command{
		Use:   "analyze <document.yaml>",
		Short: "Analyze a document file and print the result as JSON",
		Long: `Runs one document through the analysis engine without starting the
HTTP service. The input is a YAML file with the document context and
ordered paragraphs:

    contract_type: psa
    representation: seller
    aggressiveness: 3
    paragraphs:
      - para_id: p-1
        section_ref: "1.1"
        text: "Buyer shall deposit..."

The chosen LLM backend reads its credentials from the environment, the
same way the serve command does.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger := setupLogging("clausewise")
			defer logger.Close()

			if err := runAnalyze(args[0]); err != nil {
				slog.Error("Analysis failed", "error", err)
				os.Exit(1)
			}
		},
	}
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFlagBackend, "backend", "b", "anthropic", "LLM backend: openai, ollama, claude, anthropic")
	analyzeCmd.Flags().IntVar(&analyzeFlagBatchSize, "batch-size", 0, "clauses per evaluator call (0 = engine default)")
	analyzeCmd.Flags().Int64Var(&analyzeFlagMaxConcurrent, "max-concurrent", 0, "max evaluator calls in flight (0 = engine default)")
	analyzeCmd.Flags().IntVar(&analyzeFlagRPM, "rpm", 0, "evaluator requests per minute (0 = unlimited)")
	analyzeCmd.Flags().StringVarP(&analyzeFlagOutput, "output", "o", "", "write the result JSON to this file instead of stdout")
}

func runAnalyze(path string) error {
	req, err := loadDocumentFile(path)
	if err != nil {
		return err
	}

	svc, err := analyzer.New(analyzer.Config{
		LLMBackend:        analyzeFlagBackend,
		BatchSize:         analyzeFlagBatchSize,
		MaxConcurrent:     analyzeFlagMaxConcurrent,
		RequestsPerMinute: analyzeFlagRPM,
		DisableMetrics:    true,
		GinMode:           "release",
	})
	if err != nil {
		return err
	}
	eng := svc.Engine()
	defer eng.Close()

	sessionID, err := eng.StartAnalysis(req)
	if err != nil {
		return err
	}
	slog.Info("Analysis started", "session_id", sessionID, "paragraphs", len(req.Paragraphs))

	// Ctrl-C cancels the session; the engine still produces a partial
	// result for whatever completed before the cancel.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Wait(ctx, sessionID); err != nil {
		slog.Warn("Interrupted, cancelling analysis", "session_id", sessionID)
		if cerr := eng.Cancel(sessionID); cerr != nil {
			return cerr
		}
		if werr := eng.Wait(context.Background(), sessionID); werr != nil {
			return werr
		}
	}

	result, err := eng.Result(sessionID)
	if err != nil {
		return err
	}
	printAnalysisSummary(result)
	return writeResult(result, analyzeFlagOutput)
}

func loadDocumentFile(path string) (*datatypes.AnalyzeRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document file: %w", err)
	}

	var doc documentFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document file: %w", err)
	}

	req := &datatypes.AnalyzeRequest{
		ContractType:   doc.ContractType,
		Representation: doc.Representation,
		Aggressiveness: doc.Aggressiveness,
		DefinedTerms:   doc.DefinedTerms,
	}
	for _, p := range doc.Paragraphs {
		req.Paragraphs = append(req.Paragraphs, datatypes.AnalyzeParagraph{
			ParaID:     p.ParaID,
			SectionRef: p.SectionRef,
			Text:       p.Text,
		})
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid document file: %w", err)
	}
	return req, nil
}

func printAnalysisSummary(result *datatypes.AnalysisResult) {
	s := result.Summary
	slog.Info("Analysis complete",
		"session_id", result.SessionID,
		"method", s.AnalysisMethod,
		"risks", s.TotalRisks,
		"batches_succeeded", s.SucceededBatches,
		"batches_failed", s.FailedBatches,
		"paragraphs_in_gap", s.ParagraphsInGap,
		"elapsed_seconds", s.ElapsedSeconds,
	)
	if result.Coverage.PartialCoverage {
		slog.Warn("Coverage is partial", "gap_paragraphs", len(result.Coverage.GapParaIDs))
	}
	if n := len(result.Validation.DanglingReferences); n > 0 {
		slog.Warn("Unresolved risk references", "count", n)
	}
}

func writeResult(result *datatypes.AnalysisResult, path string) error {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Println(string(out))
		return nil
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}
	slog.Info("Result written", "path", path)
	return nil
}
