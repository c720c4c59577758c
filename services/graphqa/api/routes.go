// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers every endpoint. Run routes are skipped when runs
// is nil; metrics is skipped when nil.
func SetupRoutes(router *gin.Engine, asker Asker, runs RunReader, health HealthFunc, metrics http.Handler) {
	router.GET("/health", HandleHealth(health))
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := router.Group("/v1")
	{
		v1.POST("/ask", HandleAsk(asker))
		if runs != nil {
			runsGroup := v1.Group("/runs")
			{
				runsGroup.GET("", HandleListRuns(runs))
				runsGroup.GET("/:runId", HandleGetRun(runs))
			}
		}
	}
}

// MetricsHandler serves the default Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
