// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package analyzer provides the document risk analysis service for
// Clausewise.
//
// This package contains the main service type that coordinates all
// components: HTTP routing, the analysis engine, LLM backends, and
// observability infrastructure.
//
// # Usage
//
//	cfg := analyzer.Config{Port: 12310, LLMBackend: "anthropic"}
//	svc, err := analyzer.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/clausewise/clausewise/services/analyzer/engine"
	"github.com/clausewise/clausewise/services/analyzer/evaluator"
	"github.com/clausewise/clausewise/services/analyzer/observability"
	"github.com/clausewise/clausewise/services/analyzer/routes"
	"github.com/clausewise/clausewise/services/llm"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the analyzer service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and should
// only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	//
	// Callers must not modify the router.
	Router() *gin.Engine

	// Engine returns the analysis engine, for embedding the analyzer in
	// another process (the CLI runs documents through it directly).
	Engine() *engine.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds analyzer service configuration options.
//
// All fields are optional with defaults applied by New().
type Config struct {
	// Port is the HTTP server port. Default: 12310
	Port int

	// LLMBackend specifies the LLM provider.
	// Valid values: "openai", "ollama", "claude", "anthropic"
	// Default: "anthropic"
	LLMBackend string

	// BatchSize is the default number of clauses per evaluator call.
	// Requests may override it. Default: engine.DefaultBatchSize.
	BatchSize int

	// MaxConcurrent bounds evaluator calls in flight across all sessions.
	// Default: 8
	MaxConcurrent int64

	// RequestsPerMinute rate-limits evaluator calls. Zero disables the
	// limiter.
	RequestsPerMinute int

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// If empty, tracing is disabled.
	// Example: "localhost:4317"
	OTelEndpoint string

	// DisableMetrics turns off Prometheus metrics collection. Metrics are
	// on by default.
	DisableMetrics bool

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	// Default: uses GIN_MODE env var or "debug"
	GinMode string
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config        Config
	router        *gin.Engine
	llmClient     llm.LLMClient
	engine        *engine.Engine
	tracerCleanup func(context.Context)
}

var _ Service = (*service)(nil)

// =============================================================================
// Constructor
// =============================================================================

// New creates a new analyzer Service with the given configuration.
//
// # Description
//
// New initializes all analyzer components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing (if an endpoint is configured)
//  3. Initializes Prometheus metrics
//  4. Creates the LLM client based on backend type
//  5. Creates the analysis engine around the evaluator
//  6. Sets up HTTP routes
//
// # Assumptions
//
//   - Environment variables are set for the chosen LLM provider
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	if s.config.OTelEndpoint != "" {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	var metrics *observability.AnalysisMetrics
	if !s.config.DisableMetrics {
		metrics = observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics for analysis")
	}

	if err := s.initLLMClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	eval := evaluator.NewLLMEvaluator(s.llmClient, evaluator.DefaultConfig())
	analysisEngine, err := engine.NewEngine(eval, nil, engine.Config{
		BatchSize:         s.config.BatchSize,
		MaxConcurrent:     s.config.MaxConcurrent,
		RequestsPerMinute: s.config.RequestsPerMinute,
		Metrics:           metrics,
	})
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize analysis engine: %w", err)
	}
	s.engine = analysisEngine

	s.initRouter()
	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting analyzer server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Engine returns the analysis engine.
func (s *service) Engine() *engine.Engine {
	return s.engine
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "anthropic"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = engine.DefaultBatchSize
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// Uses an insecure gRPC connection, appropriate for internal networks.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("analyzer-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initLLMClient creates the appropriate LLM client for the configured
// backend type.
func (s *service) initLLMClient() error {
	var err error

	switch s.config.LLMBackend {
	case "openai":
		s.llmClient, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI LLM backend")
	case "ollama":
		s.llmClient, err = llm.NewOllamaClient()
		slog.Info("Using Ollama LLM backend")
	case "claude", "anthropic":
		s.llmClient, err = llm.NewAnthropicClient()
		slog.Info("Using Anthropic (Claude) LLM backend")
	default:
		slog.Warn("Unknown LLM backend, defaulting to Anthropic", "backend", s.config.LLMBackend)
		s.llmClient, err = llm.NewAnthropicClient()
	}

	return err
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("analyzer-service"))

	routes.SetupRoutes(s.router, s.engine)
}

// cleanup releases resources on shutdown or failed initialization.
func (s *service) cleanup() {
	if s.engine != nil {
		s.engine.Close()
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}
