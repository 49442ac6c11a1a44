package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/estatehub/internal/middleware"
	"github.com/lalith-99/estatehub/internal/service"
	"go.uber.org/zap"
)

type MetricsHandler struct {
	queries *service.PropertyQueries
	logger  *zap.Logger
}

func NewMetricsHandler(queries *service.PropertyQueries, logger *zap.Logger) *MetricsHandler {
	return &MetricsHandler{queries: queries, logger: logger}
}

// Tenant handles GET /v1/metrics/tenant
func (h *MetricsHandler) Tenant(c *gin.Context) {
	m, err := h.queries.TenantMetrics(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		respondError(c, h.logger, err, "failed to load metrics")
		return
	}
	c.JSON(http.StatusOK, m)
}

// Property handles GET /v1/metrics/property?timeRange=day|week|month
func (h *MetricsHandler) Property(c *gin.Context) {
	m, err := h.queries.EngagementMetrics(c.Request.Context(), middleware.GetCaller(c), c.Query("timeRange"))
	if err != nil {
		respondError(c, h.logger, err, "failed to load metrics")
		return
	}
	c.JSON(http.StatusOK, m)
}
