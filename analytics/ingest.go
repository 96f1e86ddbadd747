package analytics

import (
	"bytes"
	"context"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/araddon/dateparse"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"balramcms/api/metrics"
	"balramcms/api/models"
)

// EventStore is the persistence the telemetry paths need. Implementations live
// in the store package.
type EventStore interface {
	// InsertEvents writes the whole slice or nothing.
	InsertEvents(ctx context.Context, events []models.TelemetryEvent) error
	// CountEvents counts events of eventType with timestamp >= since.
	CountEvents(ctx context.Context, eventType string, since time.Time) (uint64, error)
	// CountSessions counts distinct session ids across all types with timestamp >= since.
	CountSessions(ctx context.Context, since time.Time) (uint64, error)
	// AveragePayloadNumber averages payload[key] over events of eventType where
	// the value is numeric. It returns 0 when no event qualifies.
	AveragePayloadNumber(ctx context.Context, eventType, key string, since time.Time) (float64, error)
	// TopPayloadValues groups events of eventType by the string payload[key],
	// ordered by count descending then first occurrence, at most limit rows.
	TopPayloadValues(ctx context.Context, eventType, key string, since time.Time, limit int) ([]models.TopSubject, error)
}

// BatchArchiver receives a copy of every committed batch. Submit must not block.
type BatchArchiver interface {
	Submit(events []models.TelemetryEvent) bool
}

// RequestOrigin is what the transport observed about the submitting client.
// It always wins over anything the client put in the event body.
type RequestOrigin struct {
	IPAddress string
	UserAgent string
}

// RawEvent is one element of an inbound batch. Both the camelCase keys and the
// snake_case keys of the older tracking script are accepted. Client supplied
// ip/user agent fields are not decoded at all.
type RawEvent struct {
	EventType    string          `json:"eventType"`
	EventTypeOld string          `json:"event_type"`
	SessionID    string          `json:"sessionId"`
	SessionIDOld string          `json:"session_id"`
	Timestamp    json.RawMessage `json:"timestamp"`
	PageURL      json.RawMessage `json:"pageUrl"`
	PageURLOld   json.RawMessage `json:"page_url"`
	Payload      json.RawMessage `json:"payload"`
	PayloadOld   json.RawMessage `json:"data"`
}

const DefaultMaxBatch = 1000

type Ingestor struct {
	store    EventStore
	types    models.EventTypes
	metrics  *metrics.Metrics
	archiver BatchArchiver
	maxBatch int
	now      Clock
	newID    func() string
}

type IngestorOption func(*Ingestor)

func WithArchiver(a BatchArchiver) IngestorOption {
	return func(in *Ingestor) { in.archiver = a }
}

func WithMaxBatch(n int) IngestorOption {
	return func(in *Ingestor) {
		if n > 0 {
			in.maxBatch = n
		}
	}
}

func WithIngestClock(c Clock) IngestorOption {
	return func(in *Ingestor) { in.now = c }
}

func NewIngestor(store EventStore, types models.EventTypes, m *metrics.Metrics, opts ...IngestorOption) *Ingestor {
	in := &Ingestor{
		store:    store,
		types:    types,
		metrics:  m,
		maxBatch: DefaultMaxBatch,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest validates the raw `events` value of a request body, enriches each
// event with origin and writes the batch in one insert. It returns the number
// of events stored.
//
// Missing or unknown eventType and empty sessionId reject the whole batch.
// Unparseable timestamps and malformed optional fields are coerced instead.
func (in *Ingestor) Ingest(ctx context.Context, rawEvents []byte, origin RequestOrigin) (int, error) {
	atomic.AddInt64(&in.metrics.TelemetryBatchesTotal, 1)

	raw, err := DecodeBatch(rawEvents)
	if err != nil {
		atomic.AddInt64(&in.metrics.TelemetryBatchesRejectedTotal, 1)
		return 0, err
	}
	if len(raw) > in.maxBatch {
		atomic.AddInt64(&in.metrics.TelemetryBatchesRejectedTotal, 1)
		return 0, validationErrorf("batch of %d events exceeds the limit of %d", len(raw), in.maxBatch)
	}

	events, err := in.normalize(raw, origin, in.now().UTC())
	if err != nil {
		atomic.AddInt64(&in.metrics.TelemetryBatchesRejectedTotal, 1)
		return 0, err
	}

	if err := in.store.InsertEvents(ctx, events); err != nil {
		atomic.AddInt64(&in.metrics.TelemetryStoreErrorsTotal, 1)
		return 0, &StorageError{Op: "insert telemetry events", Err: err}
	}
	atomic.AddInt64(&in.metrics.TelemetryEventsAcceptedTotal, int64(len(events)))

	if in.archiver != nil && !in.archiver.Submit(events) {
		log.Warn().Int("events", len(events)).Msg("archive queue full, batch not archived")
	}

	return len(events), nil
}

// DecodeBatch parses the `events` value. Absent, null, non-array and empty
// values are validation errors.
func DecodeBatch(rawEvents []byte) ([]RawEvent, error) {
	trimmed := bytes.TrimSpace(rawEvents)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &ValidationError{Reason: "events is required"}
	}
	if trimmed[0] != '[' {
		return nil, &ValidationError{Reason: "events must be an array"}
	}

	var raw []RawEvent
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, validationErrorf("events could not be decoded: %v", err)
	}
	if len(raw) == 0 {
		return nil, &ValidationError{Reason: "events must not be empty"}
	}
	return raw, nil
}

func (in *Ingestor) normalize(raw []RawEvent, origin RequestOrigin, receivedAt time.Time) ([]models.TelemetryEvent, error) {
	events := make([]models.TelemetryEvent, 0, len(raw))
	for i, r := range raw {
		eventType := strings.TrimSpace(firstNonEmpty(r.EventType, r.EventTypeOld))
		if eventType == "" {
			return nil, validationErrorf("events[%d]: eventType is required", i)
		}
		if !in.types.Contains(eventType) {
			return nil, validationErrorf("events[%d]: unknown eventType %q", i, eventType)
		}

		sessionID := strings.TrimSpace(firstNonEmpty(r.SessionID, r.SessionIDOld))
		if sessionID == "" {
			return nil, validationErrorf("events[%d]: sessionId is required", i)
		}

		events = append(events, models.TelemetryEvent{
			EventID:    in.newID(),
			EventType:  eventType,
			SessionID:  sessionID,
			Timestamp:  ParseTimestamp(r.Timestamp, receivedAt),
			PageURL:    decodeString(firstPresent(r.PageURL, r.PageURLOld)),
			Payload:    decodePayload(firstPresent(r.Payload, r.PayloadOld)),
			UserAgent:  origin.UserAgent,
			IPAddress:  origin.IPAddress,
			ReceivedAt: receivedAt,
		})
	}
	return events, nil
}

// maxEpochMillis bounds numeric timestamps to the range a browser Date accepts.
const maxEpochMillis = 8.64e15

// ParseTimestamp reads a client timestamp given as a date string or as unix
// milliseconds. Zone-less strings are read as UTC. Anything else, including a
// missing value, yields fallback.
func ParseTimestamp(raw json.RawMessage, fallback time.Time) time.Time {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fallback
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fallback
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return fallback
		}
		if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
			return t.UTC()
		}
		if ms, err := strconv.ParseFloat(s, 64); err == nil {
			return fromMillis(ms, fallback)
		}
		return fallback
	}

	ms, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil {
		return fallback
	}
	return fromMillis(ms, fallback)
}

func fromMillis(ms float64, fallback time.Time) time.Time {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxEpochMillis {
		return fallback
	}
	return time.UnixMilli(int64(ms)).UTC()
}

// decodePayload keeps the payload only when it is a JSON object.
func decodePayload(raw json.RawMessage) map[string]any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil
	}
	return payload
}

func decodeString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return ""
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// firstPresent returns the first value that is neither missing nor null.
func firstPresent(values ...json.RawMessage) json.RawMessage {
	for _, v := range values {
		trimmed := bytes.TrimSpace(v)
		if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
			return v
		}
	}
	return nil
}
