package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable/internal/service"
)

type metricsSource interface {
	Handler() http.Handler
	Snapshot() service.MetricsSnapshot
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics metricsSource
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	if metrics == nil {
		return &MetricsHandler{}
	}
	return &MetricsHandler{metrics: metrics}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with an OK payload for readiness/liveness usage, plus counters when metrics are on.
func (h *MetricsHandler) Health(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "metrics": h.metrics.Snapshot()})
}
