// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clausewise/clausewise/services/analyzer/datatypes"
	"github.com/clausewise/clausewise/services/analyzer/engine"
)

type evalFunc func(ctx context.Context, bc engine.BatchContext) (*datatypes.RawFindings, error)

func (f evalFunc) EvaluateBatch(ctx context.Context, bc engine.BatchContext) (*datatypes.RawFindings, error) {
	return f(ctx, bc)
}

func echoRisk(ctx context.Context, bc engine.BatchContext) (*datatypes.RawFindings, error) {
	return &datatypes.RawFindings{
		Risks: []datatypes.RawRisk{{
			RiskID:   "r1",
			ParaID:   bc.Batch.Clauses[0].ParaID,
			Severity: "high",
			Title:    "Found a risk",
		}},
	}, nil
}

func newTestRouter(t *testing.T, eval engine.Evaluator) (*gin.Engine, *engine.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := engine.DefaultConfig()
	cfg.Retry = engine.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Microsecond,
		MaxBackoff:     time.Millisecond,
		BackoffFactor:  2.0,
	}
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	e, err := engine.NewEngine(eval, nil, cfg)
	require.NoError(t, err)
	t.Cleanup(e.Close)

	router := gin.New()
	router.GET("/health", HealthCheck)
	v1 := router.Group("/v1")
	analysis := v1.Group("/analysis")
	analysis.POST("", StartAnalysis(e))
	analysis.GET("", ListSessions(e))
	analysis.GET("/:sessionId/progress", GetProgress(e))
	analysis.GET("/:sessionId/result", GetResult(e))
	analysis.POST("/:sessionId/cancel", CancelAnalysis(e))
	analysis.DELETE("/:sessionId", DeleteSession(e))
	return router, e
}

func analyzeBody() []byte {
	body, _ := json.Marshal(map[string]any{
		"contract_type":  "psa",
		"representation": "seller",
		"aggressiveness": 3,
		"paragraphs": []map[string]string{
			{"para_id": "p-1", "text": "Buyer shall deposit the earnest money."},
			{"para_id": "p-2", "text": "Seller disclaims all warranties."},
		},
	})
	return body
}

func doRequest(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	router.ServeHTTP(w, req)
	return w
}

func startSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doRequest(router, http.MethodPost, "/v1/analysis", analyzeBody())
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestRouter(t, evalFunc(echoRisk))
	w := doRequest(router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

func TestStartAnalysis_Accepted(t *testing.T) {
	router, _ := newTestRouter(t, evalFunc(echoRisk))
	sessionID := startSession(t, router)
	assert.NotEmpty(t, sessionID)
}

func TestStartAnalysis_MalformedBody(t *testing.T) {
	router, _ := newTestRouter(t, evalFunc(echoRisk))
	w := doRequest(router, http.MethodPost, "/v1/analysis", []byte("{not json"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestStartAnalysis_InvalidRequest(t *testing.T) {
	router, _ := newTestRouter(t, evalFunc(echoRisk))
	body, _ := json.Marshal(map[string]any{
		"contract_type":  "merger",
		"representation": "seller",
		"aggressiveness": 3,
		"paragraphs":     []map[string]string{{"para_id": "p-1", "text": "x"}},
	})
	w := doRequest(router, http.MethodPost, "/v1/analysis", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetResult_FullFlow(t *testing.T) {
	router, e := newTestRouter(t, evalFunc(echoRisk))
	sessionID := startSession(t, router)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.Wait(ctx, sessionID))

	w := doRequest(router, http.MethodGet, "/v1/analysis/"+sessionID+"/result", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result datatypes.AnalysisResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, sessionID, result.SessionID)
	require.Len(t, result.Risks, 1)
	assert.Equal(t, "R1-1", result.Risks[0].RiskID)
	assert.False(t, result.Coverage.PartialCoverage)
}

func TestGetResult_NotFound(t *testing.T) {
	router, _ := newTestRouter(t, evalFunc(echoRisk))
	w := doRequest(router, http.MethodGet, "/v1/analysis/unknown/result", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetResult_StillRunning(t *testing.T) {
	gate := make(chan struct{})
	router, e := newTestRouter(t, evalFunc(func(ctx context.Context, bc engine.BatchContext) (*datatypes.RawFindings, error) {
		<-gate
		return echoRisk(ctx, bc)
	}))
	sessionID := startSession(t, router)

	w := doRequest(router, http.MethodGet, "/v1/analysis/"+sessionID+"/result", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "still running")

	close(gate)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.Wait(ctx, sessionID))
}

func TestGetProgress(t *testing.T) {
	router, e := newTestRouter(t, evalFunc(echoRisk))
	sessionID := startSession(t, router)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.Wait(ctx, sessionID))

	w := doRequest(router, http.MethodGet, "/v1/analysis/"+sessionID+"/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Progress datatypes.ProgressState `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, datatypes.StatusComplete, resp.Progress.Status)
	assert.Equal(t, 100, resp.Progress.Percent)
}

func TestGetProgress_NotFound(t *testing.T) {
	router, _ := newTestRouter(t, evalFunc(echoRisk))
	w := doRequest(router, http.MethodGet, "/v1/analysis/unknown/progress", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListSessions(t *testing.T) {
	router, e := newTestRouter(t, evalFunc(echoRisk))
	sessionID := startSession(t, router)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.Wait(ctx, sessionID))

	w := doRequest(router, http.MethodGet, "/v1/analysis", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Sessions []datatypes.SessionInfo `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, sessionID, resp.Sessions[0].SessionID)
	assert.Equal(t, "psa", resp.Sessions[0].ContractType)
}

func TestCancelAnalysis(t *testing.T) {
	gate := make(chan struct{})
	router, e := newTestRouter(t, evalFunc(func(ctx context.Context, bc engine.BatchContext) (*datatypes.RawFindings, error) {
		<-gate
		return echoRisk(ctx, bc)
	}))
	sessionID := startSession(t, router)

	w := doRequest(router, http.MethodPost, "/v1/analysis/"+sessionID+"/cancel", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cancelled")

	close(gate)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.Wait(ctx, sessionID))
}

func TestCancelAnalysis_NotFound(t *testing.T) {
	router, _ := newTestRouter(t, evalFunc(echoRisk))
	w := doRequest(router, http.MethodPost, "/v1/analysis/unknown/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSession(t *testing.T) {
	router, e := newTestRouter(t, evalFunc(echoRisk))
	sessionID := startSession(t, router)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.Wait(ctx, sessionID))

	w := doRequest(router, http.MethodDelete, "/v1/analysis/"+sessionID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, fmt.Sprintf("/v1/analysis/%s/result", sessionID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSession_RunningConflict(t *testing.T) {
	gate := make(chan struct{})
	router, e := newTestRouter(t, evalFunc(func(ctx context.Context, bc engine.BatchContext) (*datatypes.RawFindings, error) {
		<-gate
		return echoRisk(ctx, bc)
	}))
	sessionID := startSession(t, router)

	w := doRequest(router, http.MethodDelete, "/v1/analysis/"+sessionID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "cancel it first")

	close(gate)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.Wait(ctx, sessionID))
}
