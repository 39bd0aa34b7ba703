// Package server exposes the invocation handlers over HTTP. Each route
// wraps exactly one request/response handler; all detection logic lives
// in the analytics package.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crowdverify/verify-analytics/analytics"
)

// NewRouter builds the gin engine for the analytics service. If registry
// is non-nil its collectors are served at /metrics.
func NewRouter(h *analytics.Handlers, registry *prometheus.Registry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1")
	api.POST("/anomaly/scan", scanHandler(h))
	api.POST("/anomaly/score", scoreHandler(h))
	api.POST("/route", routeHandler(h))
	return router
}

func scanHandler(h *analytics.Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req analytics.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": analytics.StatusError, "message": err.Error()})
			return
		}
		result := h.Scan(c.Request.Context(), req)
		c.JSON(statusCode(result.Status), result)
	}
}

func scoreHandler(h *analytics.Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req analytics.ScoreRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": analytics.StatusError, "message": err.Error()})
			return
		}
		result := h.Score(c.Request.Context(), req)
		c.JSON(statusCode(result.Status), result)
	}
}

func routeHandler(h *analytics.Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req analytics.RouteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": analytics.StatusError, "message": err.Error()})
			return
		}
		result := h.Route(c.Request.Context(), req)
		c.JSON(statusCode(result.Status), result)
	}
}

// statusCode maps the structured result status onto HTTP. Handler-level
// failures (bad model artifact, unseen category) come back as 500 with
// the structured error body; the handlers never panic through here.
func statusCode(status string) int {
	if status == analytics.StatusOK {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}
