// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides metrics and instrumentation for the
// analyzer service.
//
// # Description
//
// This package implements Prometheus metrics for monitoring document
// analysis runs. Metrics include:
//   - Session counters (by outcome)
//   - Batch counters (by terminal status)
//   - Retry and rejected-finding counters
//   - Duration histograms (per batch, per session)
//   - Active session and in-flight batch gauges
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "clausewise"

// Subsystem for analysis metrics
const analysisSubsystem = "analysis"

// AnalysisMetrics holds all Prometheus metrics for document analysis runs.
//
// Obtain via InitMetrics(); every call returns the same registered
// instance.
type AnalysisMetrics struct {
	// SessionsTotal counts completed sessions by outcome.
	// Labels: outcome (complete, cancelled, fallback)
	SessionsTotal *prometheus.CounterVec

	// BatchesTotal counts batches reaching a terminal status.
	// Labels: status (succeeded, failed)
	BatchesTotal *prometheus.CounterVec

	// RetriesTotal counts evaluator call retries.
	RetriesTotal prometheus.Counter

	// RisksFoundTotal counts accepted risks by effective severity.
	// Labels: severity (info, low, medium, high, critical)
	RisksFoundTotal *prometheus.CounterVec

	// FindingsRejectedTotal counts findings dropped by the normalizer.
	// Labels: reason (missing_field, out_of_batch, bad_severity)
	FindingsRejectedTotal *prometheus.CounterVec

	// BatchDurationSeconds measures one evaluator call, retries included.
	// Labels: status (succeeded, failed)
	BatchDurationSeconds *prometheus.HistogramVec

	// SessionDurationSeconds measures a full session, planning to barrier.
	SessionDurationSeconds prometheus.Histogram

	// ActiveSessions tracks sessions currently running.
	ActiveSessions prometheus.Gauge

	// InFlightBatches tracks evaluator calls currently executing.
	InFlightBatches prometheus.Gauge
}

// DefaultMetrics is the singleton instance of AnalysisMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *AnalysisMetrics

var initMetricsOnce sync.Once

// InitMetrics creates and registers all Prometheus metrics. Registration
// happens once per process; later calls return the same instance.
func InitMetrics() *AnalysisMetrics {
	initMetricsOnce.Do(registerMetrics)
	return DefaultMetrics
}

func registerMetrics() {
	DefaultMetrics = &AnalysisMetrics{
		SessionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "sessions_total",
				Help:      "Total completed analysis sessions by outcome",
			},
			[]string{"outcome"},
		),

		BatchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "batches_total",
				Help:      "Total batches reaching a terminal status",
			},
			[]string{"status"},
		),

		RetriesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "retries_total",
				Help:      "Total evaluator call retries across all batches",
			},
		),

		RisksFoundTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "risks_found_total",
				Help:      "Total accepted risks by effective severity",
			},
			[]string{"severity"},
		),

		FindingsRejectedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "findings_rejected_total",
				Help:      "Total raw findings rejected during normalization",
			},
			[]string{"reason"},
		),

		BatchDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "batch_duration_seconds",
				Help:      "Evaluator call duration per batch, retries included",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"status"},
		),

		SessionDurationSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "session_duration_seconds",
				Help:      "Full session duration from planning to completion",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),

		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "active_sessions",
				Help:      "Number of analysis sessions currently running",
			},
		),

		InFlightBatches: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "in_flight_batches",
				Help:      "Number of evaluator calls currently executing",
			},
		),
	}
}

// =============================================================================
// Label Values
// =============================================================================

// Outcome labels for SessionsTotal.
const (
	OutcomeComplete  = "complete"
	OutcomeCancelled = "cancelled"
	OutcomeFallback  = "fallback"
)

// Rejection reason labels for FindingsRejectedTotal.
const (
	ReasonMissingField = "missing_field"
	ReasonOutOfBatch   = "out_of_batch"
	ReasonBadSeverity  = "bad_severity"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordBatch records one batch reaching a terminal status.
func (m *AnalysisMetrics) RecordBatch(status string, seconds float64) {
	m.BatchesTotal.WithLabelValues(status).Inc()
	m.BatchDurationSeconds.WithLabelValues(status).Observe(seconds)
}

// RecordRetries adds evaluator retries for one batch.
func (m *AnalysisMetrics) RecordRetries(n int) {
	if n > 0 {
		m.RetriesTotal.Add(float64(n))
	}
}

// RecordRisk records one accepted risk at its effective severity.
func (m *AnalysisMetrics) RecordRisk(severity string) {
	m.RisksFoundTotal.WithLabelValues(severity).Inc()
}

// RecordRejection records one rejected finding.
func (m *AnalysisMetrics) RecordRejection(reason string) {
	m.FindingsRejectedTotal.WithLabelValues(reason).Inc()
}

// SessionStarted increments the active session gauge.
func (m *AnalysisMetrics) SessionStarted() {
	m.ActiveSessions.Inc()
}

// SessionEnded records a finished session.
func (m *AnalysisMetrics) SessionEnded(outcome string, seconds float64) {
	m.ActiveSessions.Dec()
	m.SessionsTotal.WithLabelValues(outcome).Inc()
	m.SessionDurationSeconds.Observe(seconds)
}

// BatchStarted increments the in-flight batch gauge.
func (m *AnalysisMetrics) BatchStarted() {
	m.InFlightBatches.Inc()
}

// BatchEnded decrements the in-flight batch gauge.
func (m *AnalysisMetrics) BatchEnded() {
	m.InFlightBatches.Dec()
}
