package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"balramcms/api/metrics"
)

type SystemHandlers struct {
	Metrics     *metrics.Metrics
	Environment string

	// Routes is listed in 404 bodies.
	Routes []string
}

func NewSystemHandlers(m *metrics.Metrics, environment string) *SystemHandlers {
	return &SystemHandlers{Metrics: m, Environment: environment}
}

// RegisterRoutes snapshots the engine's routes for NotFound.
func (h *SystemHandlers) RegisterRoutes(r *gin.Engine) {
	h.Routes = h.Routes[:0]
	for _, route := range r.Routes() {
		h.Routes = append(h.Routes, route.Method+" "+route.Path)
	}
}

func (h *SystemHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Balram Complex API is running",
		"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
		"environment": h.Environment,
	})
}

func (h *SystemHandlers) MetricsText(c *gin.Context) {
	c.String(http.StatusOK, h.Metrics.String())
}

func (h *SystemHandlers) NotFound(c *gin.Context) {
	routes := h.Routes
	if routes == nil {
		routes = []string{}
	}
	c.JSON(http.StatusNotFound, gin.H{
		"success":         false,
		"message":         fmt.Sprintf("Route %s %s not found", c.Request.Method, c.Request.URL.Path),
		"availableRoutes": routes,
	})
}
