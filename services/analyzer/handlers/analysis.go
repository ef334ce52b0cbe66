// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin handlers for the analyzer HTTP API.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/clausewise/clausewise/services/analyzer/datatypes"
	"github.com/clausewise/clausewise/services/analyzer/engine"
)

var analysisTracer = otel.Tracer("clausewise.analyzer.handlers")

// StartAnalysis handles POST /v1/analysis.
//
// Validates the document payload, starts an asynchronous analysis run, and
// returns 202 with the session ID. Progress and results are fetched via
// the session queries.
func StartAnalysis(e *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := analysisTracer.Start(c.Request.Context(), "StartAnalysis")
		defer span.End()

		var req datatypes.AnalyzeRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the analysis request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		sessionID, err := e.StartAnalysis(&req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Warn("Rejected analysis request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"session_id": sessionID})
	}
}

// GetProgress handles GET /v1/analysis/:sessionId/progress.
//
// Returns the progress snapshot plus any risks surfaced so far. Never
// blocks on in-flight batch work.
func GetProgress(e *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		state, err := e.Progress(sessionID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		partial, _ := e.PartialRisks(sessionID)
		c.JSON(http.StatusOK, gin.H{
			"progress":      state,
			"partial_risks": partial,
		})
	}
}

// GetResult handles GET /v1/analysis/:sessionId/result.
//
// Returns 409 while the session is still running, 404 for unknown
// sessions, and the full risk model once complete.
func GetResult(e *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		result, err := e.Result(sessionID)
		switch {
		case errors.Is(err, engine.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, engine.ErrSessionNotComplete):
			c.JSON(http.StatusConflict, gin.H{"error": "analysis still running"})
		case err != nil:
			slog.Error("Failed to fetch analysis result", "session_id", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusOK, result)
		}
	}
}

// ListSessions handles GET /v1/analysis.
func ListSessions(e *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": e.Sessions()})
	}
}

// CancelAnalysis handles POST /v1/analysis/:sessionId/cancel.
//
// Unclaimed batches are skipped; batches already in flight finish
// naturally but their results are discarded.
func CancelAnalysis(e *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		if err := e.Cancel(sessionID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		slog.Info("Cancelled analysis session", "session_id", sessionID)
		c.JSON(http.StatusOK, gin.H{"status": "cancelled", "session_id": sessionID})
	}
}

// DeleteSession handles DELETE /v1/analysis/:sessionId.
//
// Only terminal sessions can be removed; a running session returns 409.
func DeleteSession(e *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		err := e.Remove(sessionID)
		switch {
		case errors.Is(err, engine.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, engine.ErrSessionRunning):
			c.JSON(http.StatusConflict, gin.H{"error": "session still running, cancel it first"})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			slog.Info("Deleted analysis session", "session_id", sessionID)
			c.JSON(http.StatusOK, gin.H{"status": "deleted", "session_id": sessionID})
		}
	}
}

// HealthCheck handles GET /health.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
