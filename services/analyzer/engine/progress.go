// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"sync"
	"time"

	"github.com/clausewise/clausewise/services/analyzer/datatypes"
)

// =============================================================================
// Progress Tracker
// =============================================================================

// ProgressTracker is the keyed progress store for analysis sessions.
//
// # Description
//
// One tracker serves all sessions of an engine. Every mutation for a
// session goes through this type under a single lock, so concurrent
// batch-completion events cannot interleave into a corrupted read.
//
// Guarantees per session:
//   - status only moves forward: not_started -> running -> complete
//   - percent is monotonically non-decreasing
//   - Snapshot never blocks on in-flight batch work
//
// # Thread Safety
//
// Safe for concurrent use.
type ProgressTracker struct {
	mu       sync.RWMutex
	sessions map[string]*progressEntry
}

type progressEntry struct {
	state datatypes.ProgressState

	// partial holds risks from batches that completed so far, for
	// incremental display while the session runs.
	partial []*datatypes.Risk
}

// NewProgressTracker creates an empty tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{sessions: make(map[string]*progressEntry)}
}

// Register creates the not_started entry for a new session.
func (t *ProgressTracker) Register(sessionID string, totalBatches int) {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[sessionID] = &progressEntry{
		state: datatypes.ProgressState{
			SessionID:    sessionID,
			Status:       datatypes.StatusNotStarted,
			Stage:        datatypes.StagePlanning,
			TotalBatches: totalBatches,
			StartedAt:    now,
			UpdatedAt:    now,
		},
	}
}

// Start moves the session to running. A no-op if it is already past
// not_started (status never moves backwards).
func (t *ProgressTracker) Start(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.sessions[sessionID]
	if !ok || e.state.Status.AtLeast(datatypes.StatusRunning) {
		return
	}
	e.state.Status = datatypes.StatusRunning
	e.state.Stage = datatypes.StageBatchAnalysis
	e.touch()
}

// SetStage updates the stage label and current action without touching
// percent or status.
func (t *ProgressTracker) SetStage(sessionID, stage, action string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.sessions[sessionID]; ok {
		e.state.Stage = stage
		e.state.CurrentAction = action
		e.touch()
	}
}

// SetTotalBatches records the batch count once planning is done.
func (t *ProgressTracker) SetTotalBatches(sessionID string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.sessions[sessionID]; ok {
		e.state.TotalBatches = total
		e.touch()
	}
}

// BatchCompleted records one batch reaching a terminal state and
// recomputes percent as completed/total. The orchestrator is the only
// caller, making it the sole writer of percent; the max() guard keeps the
// reading monotonic even so.
func (t *ProgressTracker) BatchCompleted(sessionID string, risksFound int, action string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.sessions[sessionID]
	if !ok {
		return
	}
	e.state.CompletedBatches++
	e.state.RisksFound += risksFound
	if e.state.TotalBatches > 0 {
		pct := e.state.CompletedBatches * 100 / e.state.TotalBatches
		if pct > e.state.Percent {
			e.state.Percent = pct
		}
	}
	if action != "" {
		e.state.CurrentAction = action
	}
	e.touch()
}

// AddPartialRisks exposes risks from a completed batch before the session
// finishes.
func (t *ProgressTracker) AddPartialRisks(sessionID string, risks []*datatypes.Risk) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.sessions[sessionID]; ok {
		e.partial = append(e.partial, risks...)
	}
}

// Complete moves the session to its terminal progress state and clears
// the partial-risk buffer (the full result is queryable now).
func (t *ProgressTracker) Complete(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.sessions[sessionID]
	if !ok {
		return
	}
	e.state.Status = datatypes.StatusComplete
	e.state.Stage = datatypes.StageComplete
	if e.state.Percent < 100 {
		e.state.Percent = 100
	}
	e.state.CurrentAction = "Analysis complete"
	e.partial = nil
	e.touch()
}

// Snapshot returns a copy of the session's progress state. The second
// return is false for unknown sessions.
func (t *ProgressTracker) Snapshot(sessionID string) (datatypes.ProgressState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.sessions[sessionID]
	if !ok {
		return datatypes.ProgressState{}, false
	}
	state := e.state
	state.ElapsedSeconds = int(time.Since(state.StartedAt).Seconds())
	return state, true
}

// PartialRisks returns a copy of the risks surfaced so far.
func (t *ProgressTracker) PartialRisks(sessionID string) []*datatypes.Risk {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.sessions[sessionID]
	if !ok || len(e.partial) == 0 {
		return nil
	}
	out := make([]*datatypes.Risk, len(e.partial))
	copy(out, e.partial)
	return out
}

// Remove drops a session's progress entry.
func (t *ProgressTracker) Remove(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, sessionID)
}

func (e *progressEntry) touch() {
	e.state.UpdatedAt = time.Now()
}
