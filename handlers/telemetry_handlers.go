package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"balramcms/api/analytics"
	"balramcms/api/models"
)

// DefaultMaxTelemetryBody caps an ingest request body at 10 MiB.
const DefaultMaxTelemetryBody int64 = 10 << 20

type TelemetryHandlers struct {
	Ingestor      *analytics.Ingestor
	Aggregator    *analytics.Aggregator
	IngestTimeout time.Duration
	QueryTimeout  time.Duration
	MaxBodyBytes  int64

	// ShowDetails attaches storage error text to 500 bodies.
	ShowDetails bool
}

func NewTelemetryHandlers(in *analytics.Ingestor, agg *analytics.Aggregator, ingestTimeout, queryTimeout time.Duration, showDetails bool) *TelemetryHandlers {
	return &TelemetryHandlers{
		Ingestor:      in,
		Aggregator:    agg,
		IngestTimeout: ingestTimeout,
		QueryTimeout:  queryTimeout,
		MaxBodyBytes:  DefaultMaxTelemetryBody,
		ShowDetails:   showDetails,
	}
}

type telemetryRequest struct {
	Events json.RawMessage `json:"events"`
}

// Ingest handles POST /api/telemetry.
func (h *TelemetryHandlers) Ingest(c *gin.Context) {
	var req telemetryRequest
	if h.MaxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxBodyBytes)
	}
	body, err := c.GetRawData()
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, errorBody("Request body too large", err, true))
		return
	}
	if err == nil {
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("Invalid events data", err, true))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.IngestTimeout)
	defer cancel()

	processed, err := h.Ingestor.Ingest(ctx, req.Events, analytics.RequestOrigin{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		var vErr *analytics.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, errorBody("Invalid events data", vErr, true))
			return
		}
		log.Error().Err(err).Msg("telemetry ingest failed")
		c.JSON(http.StatusInternalServerError, errorBody("Failed to process telemetry", err, h.ShowDetails))
		return
	}

	c.JSON(http.StatusOK, models.IngestResponse{Success: true, Processed: processed})
}

// Analytics handles GET /api/telemetry/analytics?timeframe=1h|24h|7d.
func (h *TelemetryHandlers) Analytics(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.QueryTimeout)
	defer cancel()

	report, err := h.Aggregator.Report(ctx, c.Query("timeframe"))
	if err != nil {
		log.Error().Err(err).Str("timeframe", c.Query("timeframe")).Msg("analytics report failed")
		c.JSON(http.StatusInternalServerError, errorBody("Failed to get analytics", err, h.ShowDetails))
		return
	}

	c.JSON(http.StatusOK, report)
}

// Realtime handles GET /api/telemetry/realtime.
func (h *TelemetryHandlers) Realtime(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.QueryTimeout)
	defer cancel()

	snapshot, err := h.Aggregator.Snapshot(ctx)
	if err != nil {
		log.Error().Err(err).Msg("realtime snapshot failed")
		c.JSON(http.StatusInternalServerError, errorBody("Failed to get realtime data", err, h.ShowDetails))
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
