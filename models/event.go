// models/event.go
package models

import (
	"sort"
	"strings"
	"time"
)

// Event types the aggregations read. The full accepted set lives in EventTypes.
const (
	EventPerformance = "performance"
	EventPageView    = "page_view"
	EventShopView    = "shop_view"
	EventError       = "error"
)

// Payload keys read by the aggregations.
const (
	PayloadPageLoadTime = "page_load_time"
	PayloadShopName     = "shop_name"
)

// DefaultEventTypes is the event taxonomy shared with the site's tracking
// script. Adding a type here (or through EXTRA_EVENT_TYPES) changes the
// contract with clients.
var DefaultEventTypes = []string{
	EventPerformance,
	EventPageView,
	EventShopView,
	"form_submission",
	"api_call",
	EventError,
	"form_input_change",
	"form_submission_start",
	"image_upload_attempt",
	"image_upload_success",
	"image_remove",
	"amenity_add",
	"amenity_remove",
	"keyword_add",
	"keyword_remove",
	"shop_creation_success",
	"shop_creation_failure",
}

// EventTypes is the closed set of event types accepted at ingestion.
type EventTypes map[string]struct{}

// NewEventTypes builds the accepted set from the defaults plus any extra names.
func NewEventTypes(extra ...string) EventTypes {
	t := make(EventTypes, len(DefaultEventTypes)+len(extra))
	for _, name := range DefaultEventTypes {
		t[name] = struct{}{}
	}
	for _, name := range extra {
		if name = strings.TrimSpace(name); name != "" {
			t[name] = struct{}{}
		}
	}
	return t
}

func (t EventTypes) Contains(name string) bool {
	_, ok := t[name]
	return ok
}

// Names returns the accepted types in sorted order.
func (t EventTypes) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TelemetryEvent is one stored telemetry record. Events are immutable once
// written: there is no update or delete path.
type TelemetryEvent struct {
	EventID    string         `json:"eventId"`
	EventType  string         `json:"eventType"`
	SessionID  string         `json:"sessionId"`
	Timestamp  time.Time      `json:"timestamp"`
	PageURL    string         `json:"pageUrl,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	UserAgent  string         `json:"userAgent"`
	IPAddress  string         `json:"ipAddress"`
	ReceivedAt time.Time      `json:"receivedAt"`
}

// TopSubject is one row of a top-N grouping.
type TopSubject struct {
	Subject string `json:"subject"`
	Views   uint64 `json:"views"`
}

// MetricsReport is the aggregate view of one timeframe. It is computed per
// request and never stored.
type MetricsReport struct {
	PageViews      uint64       `json:"page_views"`
	UniqueSessions uint64       `json:"unique_sessions"`
	AvgLoadTime    float64      `json:"avg_load_time"`
	ErrorCount     uint64       `json:"error_count"`
	TopShops       []TopSubject `json:"top_shops"`
}

type AnalyticsResponse struct {
	Timeframe string        `json:"timeframe"`
	Metrics   MetricsReport `json:"metrics"`
}

// RealtimeSnapshot covers the trailing five minutes. Timestamp is the unix
// millisecond instant the snapshot was computed.
type RealtimeSnapshot struct {
	Timestamp      int64  `json:"timestamp"`
	ActiveSessions uint64 `json:"active_sessions"`
	PageViews5m    uint64 `json:"page_views_5m"`
	ShopViews5m    uint64 `json:"shop_views_5m"`
	Errors5m       uint64 `json:"errors_5m"`
}

type IngestResponse struct {
	Success   bool `json:"success"`
	Processed int  `json:"processed"`
}
