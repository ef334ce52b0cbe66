// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clausewise/clausewise/services/analyzer/engine"
	"github.com/clausewise/clausewise/services/analyzer/handlers"
)

// SetupRoutes registers the analyzer HTTP surface on the router.
func SetupRoutes(router *gin.Engine, analysisEngine *engine.Engine) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		analysis := v1.Group("/analysis")
		{
			analysis.POST("", handlers.StartAnalysis(analysisEngine))
			analysis.GET("", handlers.ListSessions(analysisEngine))
			analysis.GET("/:sessionId/progress", handlers.GetProgress(analysisEngine))
			analysis.GET("/:sessionId/result", handlers.GetResult(analysisEngine))
			analysis.POST("/:sessionId/cancel", handlers.CancelAnalysis(analysisEngine))
			analysis.DELETE("/:sessionId", handlers.DeleteSession(analysisEngine))
		}
	}
}
