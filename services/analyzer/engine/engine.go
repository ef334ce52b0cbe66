// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine implements the document risk analysis pipeline: batch
// planning, bounded-concurrency orchestration with retries, finding
// normalization, relationship resolution, severity calculation, and
// concept merging.
//
// The pipeline has a hard barrier: per-batch work (evaluator calls and
// normalization) runs concurrently; everything relational (reference
// resolution, severity recalculation, concept conflict detection) runs
// exactly once after every batch has reached a terminal state.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/clausewise/clausewise/services/analyzer/datatypes"
	"github.com/clausewise/clausewise/services/analyzer/observability"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// Evaluator analyzes one batch of clauses and returns raw findings.
//
// Implementations are called concurrently, once per attempt per batch. A
// returned error wrapped with Transient() is retried up to the configured
// attempt bound; any other error fails the batch immediately.
type Evaluator interface {
	EvaluateBatch(ctx context.Context, bc BatchContext) (*datatypes.RawFindings, error)
}

// FallbackFinder produces deterministic findings without an evaluator
// backend. It is consulted only when every batch of a session failed.
type FallbackFinder interface {
	FindRisks(ctx context.Context, clauses []datatypes.ClauseRecord, doc datatypes.DocumentContext) (*datatypes.RawFindings, error)
}

// =============================================================================
// Configuration
// =============================================================================

// Config controls the engine's batching, concurrency, and retry behavior.
type Config struct {
	// BatchSize is the number of clauses per batch. Defaults to
	// DefaultBatchSize.
	BatchSize int

	// MaxConcurrent bounds the number of evaluator calls in flight across
	// all sessions. Defaults to 8.
	MaxConcurrent int64

	// RequestsPerMinute rate-limits evaluator calls across all sessions.
	// Zero disables the limiter.
	RequestsPerMinute int

	// Retry controls per-batch retry of transient evaluator failures.
	Retry RetryConfig

	// Logger receives engine events. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics receives instrumentation events. Optional.
	Metrics *observability.AnalysisMetrics
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:         DefaultBatchSize,
		MaxConcurrent:     8,
		RequestsPerMinute: 0,
		Retry:             DefaultRetryConfig(),
	}
}

func applyConfigDefaults(config *Config) {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 8
	}
	if config.Retry == (RetryConfig{}) {
		config.Retry = DefaultRetryConfig()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
}

// =============================================================================
// Engine
// =============================================================================

// Engine owns analysis sessions end to end: it plans batches, fans them
// out to the evaluator under a shared concurrency bound, and assembles the
// final risk model after the barrier.
//
// # Thread Safety
//
// Safe for concurrent use. Sessions run on their own goroutines; all
// queries read snapshots or completed sessions under the engine lock.
type Engine struct {
	config    Config
	evaluator Evaluator
	fallback  FallbackFinder

	sem     *semaphore.Weighted
	limiter *rate.Limiter
	tracker *ProgressTracker

	// baseCtx outlives any request context: analysis runs are
	// asynchronous, so a worker must not die with the HTTP request that
	// started it.
	baseCtx context.Context
	stop    context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*sessionHandle
}

// sessionHandle is the engine's internal per-session record.
type sessionHandle struct {
	session *datatypes.AnalysisSession
	result  *datatypes.AnalysisResult

	// done closes when the session reaches its terminal state.
	done chan struct{}

	// mu guards the fields below plus all post-claim mutation of the
	// session aggregate during the run.
	mu        sync.Mutex
	cancelled bool
	complete  bool

	normalized []*NormalizedBatch
}

// NewEngine creates an engine around the given evaluator.
//
// The fallback finder may be nil; an all-batches-failed session then
// completes with an empty risk set and a full coverage gap.
func NewEngine(evaluator Evaluator, fallback FallbackFinder, config Config) (*Engine, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("engine: evaluator is required")
	}
	applyConfigDefaults(&config)
	if err := config.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	var limiter *rate.Limiter
	if config.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), config.RequestsPerMinute)
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Engine{
		config:    config,
		evaluator: evaluator,
		fallback:  fallback,
		sem:       semaphore.NewWeighted(config.MaxConcurrent),
		limiter:   limiter,
		tracker:   NewProgressTracker(),
		baseCtx:   ctx,
		stop:      stop,
		sessions:  make(map[string]*sessionHandle),
	}, nil
}

// Close stops all in-flight evaluator calls. In-progress sessions finish
// with their remaining batches failed.
func (e *Engine) Close() {
	e.stop()
}

// =============================================================================
// Session Lifecycle
// =============================================================================

// StartAnalysis validates the request, plans batches, and starts the run
// on its own goroutine. Returns the new session ID immediately; callers
// poll Progress and fetch Result when the session completes.
func (e *Engine) StartAnalysis(req *datatypes.AnalyzeRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	clauses := req.Clauses()

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = e.config.BatchSize
	}
	batches, err := PlanBatches(clauses, batchSize)
	if err != nil {
		return "", err
	}

	sessionID := uuid.NewString()
	session := &datatypes.AnalysisSession{
		SessionID: sessionID,
		Context:   req.Document(),
		Batches:   batches,
		Risks:     make(map[string]*datatypes.Risk),
		Concepts:  make(map[datatypes.ConceptKey]*datatypes.ConceptEntry),
		CreatedAt: time.Now(),
	}
	h := &sessionHandle{
		session: session,
		done:    make(chan struct{}),
	}

	e.mu.Lock()
	e.sessions[sessionID] = h
	e.mu.Unlock()

	e.tracker.Register(sessionID, len(batches))
	e.config.Logger.Info("analysis session started",
		"session_id", sessionID,
		"paragraphs", len(clauses),
		"batches", len(batches),
		"batch_size", batchSize,
		"contract_type", req.ContractType)

	go e.run(h, clauses)
	return sessionID, nil
}

// run executes one session: fan-out, barrier, aggregate.
func (e *Engine) run(h *sessionHandle, clauses []datatypes.ClauseRecord) {
	session := h.session
	started := time.Now()
	if m := e.config.Metrics; m != nil {
		m.SessionStarted()
	}

	e.tracker.Start(session.SessionID)
	documentMap := BuildDocumentMap(clauses)

	var wg sync.WaitGroup
	for _, batch := range session.Batches {
		wg.Add(1)
		go func(batch *datatypes.Batch) {
			defer wg.Done()
			e.runBatch(h, batch, documentMap)
		}(batch)
	}
	wg.Wait()

	// Barrier reached: the risk set is final from here on.
	e.finalize(h, clauses, started)
}

// runBatch claims, executes, and records one batch.
func (e *Engine) runBatch(h *sessionHandle, batch *datatypes.Batch, documentMap string) {
	session := h.session

	// A cancelled session claims nothing further.
	h.mu.Lock()
	if h.cancelled {
		batch.Status = datatypes.BatchFailed
		batch.FailureReason = "cancelled"
		h.mu.Unlock()
		e.tracker.BatchCompleted(session.SessionID, 0, "Cancelled")
		return
	}
	batch.Status = datatypes.BatchRunning
	h.mu.Unlock()

	if err := e.sem.Acquire(e.baseCtx, 1); err != nil {
		e.recordBatchFailure(h, batch, err)
		return
	}
	defer e.sem.Release(1)

	if e.limiter != nil {
		if err := e.limiter.Wait(e.baseCtx); err != nil {
			e.recordBatchFailure(h, batch, err)
			return
		}
	}

	if m := e.config.Metrics; m != nil {
		m.BatchStarted()
		defer m.BatchEnded()
	}
	callStarted := time.Now()

	bc := BatchContext{
		Batch:        batch,
		Document:     session.Context,
		DocumentMap:  documentMap,
		TotalBatches: len(session.Batches),
	}

	var raw *datatypes.RawFindings
	attempts, err := Retry(e.baseCtx, e.config.Retry, func(ctx context.Context, attempt int) error {
		var callErr error
		raw, callErr = e.evaluator.EvaluateBatch(ctx, bc)
		return callErr
	})
	batch.AttemptCount = attempts
	if m := e.config.Metrics; m != nil {
		m.RecordRetries(attempts - 1)
	}

	if err != nil {
		if m := e.config.Metrics; m != nil {
			m.RecordBatch(string(datatypes.BatchFailed), time.Since(callStarted).Seconds())
		}
		e.recordBatchFailure(h, batch, err)
		return
	}

	normalized := NormalizeBatch(batch, raw)
	e.recordRejections(normalized)

	h.mu.Lock()
	if h.cancelled {
		// The call finished after cancellation; its results are discarded.
		batch.Status = datatypes.BatchFailed
		batch.FailureReason = "cancelled"
		h.mu.Unlock()
		e.tracker.BatchCompleted(session.SessionID, 0, "Cancelled")
		return
	}
	batch.Status = datatypes.BatchSucceeded
	h.normalized = append(h.normalized, normalized)
	for _, risk := range normalized.Risks {
		session.Risks[risk.RiskID] = risk
		session.RiskOrder = append(session.RiskOrder, risk.RiskID)
	}
	h.mu.Unlock()

	if m := e.config.Metrics; m != nil {
		m.RecordBatch(string(datatypes.BatchSucceeded), time.Since(callStarted).Seconds())
	}
	e.tracker.AddPartialRisks(session.SessionID, normalized.Risks)
	e.tracker.BatchCompleted(session.SessionID, len(normalized.Risks),
		fmt.Sprintf("Analyzed batch %d of %d", batch.BatchID, len(session.Batches)))
	e.config.Logger.Debug("batch succeeded",
		"session_id", session.SessionID,
		"batch_id", batch.BatchID,
		"attempts", attempts,
		"risks", len(normalized.Risks),
		"rejected", len(normalized.Errors))
}

func (e *Engine) recordBatchFailure(h *sessionHandle, batch *datatypes.Batch, err error) {
	h.mu.Lock()
	batch.Status = datatypes.BatchFailed
	batch.FailureReason = err.Error()
	h.mu.Unlock()

	e.tracker.BatchCompleted(h.session.SessionID, 0,
		fmt.Sprintf("Batch %d failed", batch.BatchID))
	e.config.Logger.Warn("batch failed",
		"session_id", h.session.SessionID,
		"batch_id", batch.BatchID,
		"attempts", batch.AttemptCount,
		"error", err)
}

func (e *Engine) recordRejections(nb *NormalizedBatch) {
	m := e.config.Metrics
	if m == nil {
		return
	}
	for _, rejection := range nb.Errors {
		switch {
		case rejection.Reason == "missing para_id" || rejection.Reason == "missing title" || rejection.Reason == "missing severity":
			m.RecordRejection(observability.ReasonMissingField)
		case len(rejection.Reason) >= 7 && rejection.Reason[:7] == "para_id":
			m.RecordRejection(observability.ReasonOutOfBatch)
		default:
			m.RecordRejection(observability.ReasonBadSeverity)
		}
	}
}

// finalize runs the post-barrier pipeline and publishes the result.
func (e *Engine) finalize(h *sessionHandle, clauses []datatypes.ClauseRecord, started time.Time) {
	session := h.session

	h.mu.Lock()
	cancelled := h.cancelled
	h.mu.Unlock()

	e.tracker.SetStage(session.SessionID, datatypes.StageAggregation, "Aggregating results")

	succeeded, failed := 0, 0
	for _, batch := range session.Batches {
		switch batch.Status {
		case datatypes.BatchSucceeded:
			succeeded++
		default:
			failed++
		}
	}

	method := "evaluator"
	if succeeded == 0 && !cancelled {
		method = e.runFallback(h, clauses)
	}
	if succeeded == 0 && method == "none" {
		e.config.Logger.Warn("no batches succeeded", "session_id", session.SessionID)
	}

	session.Coverage = buildCoverage(session)

	SortRiskOrder(session)
	session.Validation.DanglingReferences = ResolveReferences(session)
	RecalculateSeverities(session)

	var contributions []conceptContribution
	var normErrors []datatypes.NormalizationError
	var unknown []datatypes.UnknownCategory
	h.mu.Lock()
	for _, nb := range h.normalized {
		contributions = append(contributions, nb.Concepts...)
		normErrors = append(normErrors, nb.Errors...)
		unknown = append(unknown, nb.UnknownCategories...)
	}
	h.mu.Unlock()
	MergeConcepts(session, contributions)
	session.Validation.ConceptConflicts = ConceptConflicts(session)
	session.Validation.NormalizationErrors = normErrors
	session.Validation.UnknownCategories = unknown

	session.Cancelled = cancelled
	session.CompletedAt = time.Now()
	session.Summary = buildSummary(session, succeeded, failed, method, started)

	if m := e.config.Metrics; m != nil {
		for _, risk := range session.Risks {
			m.RecordRisk(string(risk.EffectiveSeverity))
		}
	}

	result := buildResult(session)

	h.mu.Lock()
	h.result = result
	h.complete = true
	h.mu.Unlock()

	e.tracker.Complete(session.SessionID)
	close(h.done)

	outcome := observability.OutcomeComplete
	if cancelled {
		outcome = observability.OutcomeCancelled
	} else if session.FallbackUsed {
		outcome = observability.OutcomeFallback
	}
	if m := e.config.Metrics; m != nil {
		m.SessionEnded(outcome, time.Since(started).Seconds())
	}
	e.config.Logger.Info("analysis session complete",
		"session_id", session.SessionID,
		"risks", len(session.Risks),
		"succeeded_batches", succeeded,
		"failed_batches", failed,
		"method", method,
		"cancelled", cancelled,
		"elapsed", time.Since(started).Round(time.Millisecond))
}

// runFallback fills an all-failed session from the deterministic finder.
// Fallback findings are normalized as a synthetic whole-document batch, so
// the risk set stays well formed. Coverage remains partial: the fallback
// is a weaker analysis, not a substitute for evaluator coverage.
func (e *Engine) runFallback(h *sessionHandle, clauses []datatypes.ClauseRecord) string {
	session := h.session
	if e.fallback == nil {
		return "none"
	}
	e.tracker.SetStage(session.SessionID, datatypes.StageAggregation, "Running fallback analysis")

	raw, err := e.fallback.FindRisks(e.baseCtx, clauses, session.Context)
	if err != nil {
		e.config.Logger.Error("fallback analysis failed",
			"session_id", session.SessionID, "error", err)
		return "none"
	}

	synthetic := &datatypes.Batch{BatchID: 0, Clauses: clauses, Status: datatypes.BatchSucceeded}
	normalized := NormalizeBatch(synthetic, raw)

	h.mu.Lock()
	h.normalized = append(h.normalized, normalized)
	for _, risk := range normalized.Risks {
		session.Risks[risk.RiskID] = risk
		session.RiskOrder = append(session.RiskOrder, risk.RiskID)
	}
	h.mu.Unlock()

	session.FallbackUsed = true
	e.config.Logger.Info("fallback analysis used",
		"session_id", session.SessionID, "risks", len(normalized.Risks))
	return "fallback"
}

// =============================================================================
// Aggregation Helpers
// =============================================================================

// buildCoverage partitions the session's paragraph IDs into analyzed and
// gap sets from the terminal batch statuses. A fallback-filled session
// still reports every paragraph as a gap; only evaluator batches count as
// coverage.
func buildCoverage(session *datatypes.AnalysisSession) datatypes.CoverageReport {
	var analyzed, gaps []string
	for _, batch := range session.Batches {
		if batch.Status == datatypes.BatchSucceeded {
			analyzed = append(analyzed, batch.ParaIDs()...)
		} else {
			gaps = append(gaps, batch.ParaIDs()...)
		}
	}
	return datatypes.CoverageReport{
		AnalyzedParaIDs: analyzed,
		GapParaIDs:      gaps,
		PartialCoverage: len(gaps) > 0,
	}
}

func buildSummary(session *datatypes.AnalysisSession, succeeded, failed int, method string, started time.Time) datatypes.AnalysisSummary {
	bySeverity := make(map[datatypes.Severity]int)
	for _, risk := range session.Risks {
		bySeverity[risk.EffectiveSeverity]++
	}
	if len(session.Risks) == 0 && method == "evaluator" && succeeded == 0 {
		method = "none"
	}
	return datatypes.AnalysisSummary{
		TotalRisks:       len(session.Risks),
		BySeverity:       bySeverity,
		ParagraphsTotal:  len(session.Coverage.AnalyzedParaIDs) + len(session.Coverage.GapParaIDs),
		ParagraphsInGap:  len(session.Coverage.GapParaIDs),
		TotalBatches:     len(session.Batches),
		SucceededBatches: succeeded,
		FailedBatches:    failed,
		ElapsedSeconds:   int(time.Since(started).Seconds()),
		AnalysisMethod:   method,
	}
}

func buildResult(session *datatypes.AnalysisSession) *datatypes.AnalysisResult {
	risks := session.OrderedRisks()
	byParagraph := make(map[string][]*datatypes.Risk)
	for _, risk := range risks {
		byParagraph[risk.ParaID] = append(byParagraph[risk.ParaID], risk)
	}
	return &datatypes.AnalysisResult{
		SessionID:        session.SessionID,
		Context:          session.Context,
		Risks:            risks,
		RisksByParagraph: byParagraph,
		Concepts:         OrderedConcepts(session),
		Coverage:         session.Coverage,
		Validation:       session.Validation,
		Summary:          session.Summary,
	}
}

// =============================================================================
// Queries
// =============================================================================

// Progress returns the live progress snapshot for a session.
func (e *Engine) Progress(sessionID string) (datatypes.ProgressState, error) {
	if _, ok := e.handle(sessionID); !ok {
		return datatypes.ProgressState{}, ErrSessionNotFound
	}
	state, ok := e.tracker.Snapshot(sessionID)
	if !ok {
		return datatypes.ProgressState{}, ErrSessionNotFound
	}
	return state, nil
}

// PartialRisks returns the risks surfaced so far for a running session.
func (e *Engine) PartialRisks(sessionID string) ([]*datatypes.Risk, error) {
	if _, ok := e.handle(sessionID); !ok {
		return nil, ErrSessionNotFound
	}
	return e.tracker.PartialRisks(sessionID), nil
}

// Result returns the final risk model for a completed session.
//
// Returns ErrSessionNotComplete while the session is still running.
func (e *Engine) Result(sessionID string) (*datatypes.AnalysisResult, error) {
	h, ok := e.handle(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.complete {
		return nil, ErrSessionNotComplete
	}
	return h.result, nil
}

// Cancel abandons a running session. Unclaimed batches are skipped and
// results from batches already in flight are discarded; the session still
// runs to its terminal state so its bookkeeping is consistent.
//
// Cancelling a completed session is a no-op returning nil.
func (e *Engine) Cancel(sessionID string) error {
	h, ok := e.handle(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.complete || h.cancelled {
		return nil
	}
	h.cancelled = true
	e.config.Logger.Info("analysis session cancelled", "session_id", sessionID)
	return nil
}

// Remove deletes a session and its progress entry. Running sessions must
// be cancelled first.
func (e *Engine) Remove(sessionID string) error {
	h, ok := e.handle(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	h.mu.Lock()
	running := !h.complete && !h.cancelled
	h.mu.Unlock()
	if running {
		return ErrSessionRunning
	}

	e.mu.Lock()
	delete(e.sessions, sessionID)
	e.mu.Unlock()
	e.tracker.Remove(sessionID)
	return nil
}

// Sessions lists every known session, newest first.
func (e *Engine) Sessions() []datatypes.SessionInfo {
	e.mu.RLock()
	handles := make([]*sessionHandle, 0, len(e.sessions))
	for _, h := range e.sessions {
		handles = append(handles, h)
	}
	e.mu.RUnlock()

	out := make([]datatypes.SessionInfo, 0, len(handles))
	for _, h := range handles {
		status := datatypes.StatusRunning
		if state, ok := e.tracker.Snapshot(h.session.SessionID); ok {
			status = state.Status
		}
		h.mu.Lock()
		totalRisks := len(h.session.Risks)
		h.mu.Unlock()
		out = append(out, datatypes.SessionInfo{
			SessionID:    h.session.SessionID,
			Status:       status,
			ContractType: h.session.Context.ContractType,
			TotalRisks:   totalRisks,
			CreatedAt:    h.session.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Wait blocks until the session reaches its terminal state or the context
// is done.
func (e *Engine) Wait(ctx context.Context, sessionID string) error {
	h, ok := e.handle(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) handle(sessionID string) (*sessionHandle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.sessions[sessionID]
	return h, ok
}
