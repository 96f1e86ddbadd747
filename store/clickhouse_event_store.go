package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"balramcms/api/database"
	"balramcms/api/models"
)

// ClickHouseEventStore keeps telemetry in the telemetry_events MergeTree table.
type ClickHouseEventStore struct {
	DB *database.ClickHouseClient
}

const clickHouseEventsTable = `
	CREATE TABLE IF NOT EXISTS telemetry_events (
		event_id    String,
		event_type  LowCardinality(String),
		session_id  String,
		timestamp   DateTime64(3, 'UTC'),
		page_url    String,
		payload     String,
		user_agent  String,
		ip_address  String,
		received_at DateTime64(3, 'UTC')
	)
	ENGINE = MergeTree
	ORDER BY (event_type, timestamp)
`

// sinceFilter compares against the window start at millisecond precision. A
// bound time.Time is rendered at whole seconds, so the start goes over as
// unix milliseconds instead (see sinceMillis).
const sinceFilter = `timestamp >= fromUnixTimestamp64Milli(toInt64(?), 'UTC')`

func sinceMillis(since time.Time) int64 {
	return since.UnixMilli()
}

// numericJSONTypes are the JSONType results that count as a numeric payload value.
const numericJSONTypes = `('Int64', 'UInt64', 'Double')`

func NewClickHouseEventStore(chClient *database.ClickHouseClient) *ClickHouseEventStore {
	return &ClickHouseEventStore{
		DB: chClient,
	}
}

// EnsureTable creates telemetry_events when it does not exist yet.
func (s *ClickHouseEventStore) EnsureTable(ctx context.Context) error {
	if err := s.DB.Conn.Exec(ctx, clickHouseEventsTable); err != nil {
		return fmt.Errorf("failed to create telemetry_events table: %w", err)
	}
	return nil
}

// InsertEvents sends the events as a single insert block. Any append failure
// aborts the block so nothing from the batch becomes visible.
func (s *ClickHouseEventStore) InsertEvents(ctx context.Context, events []models.TelemetryEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO telemetry_events (
			event_id, event_type, session_id, timestamp, page_url, payload,
			user_agent, ip_address, received_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		payload, err := encodePayload(event.Payload)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to encode payload (EventID: %s): %w", event.EventID, err)
		}
		err = batch.Append(
			event.EventID,
			event.EventType,
			event.SessionID,
			event.Timestamp,
			event.PageURL,
			payload,
			event.UserAgent,
			event.IPAddress,
			event.ReceivedAt,
		)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append event to batch (EventID: %s): %w", event.EventID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Debug().Int("events", len(events)).Msg("inserted telemetry events into ClickHouse")
	return nil
}

func (s *ClickHouseEventStore) CountEvents(ctx context.Context, eventType string, since time.Time) (uint64, error) {
	var count uint64
	err := s.DB.Conn.QueryRow(ctx, `
		SELECT count()
		FROM telemetry_events
		WHERE event_type = ? AND ` + sinceFilter + `
	`, eventType, sinceMillis(since)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s events: %w", eventType, err)
	}
	return count, nil
}

func (s *ClickHouseEventStore) CountSessions(ctx context.Context, since time.Time) (uint64, error) {
	var count uint64
	err := s.DB.Conn.QueryRow(ctx, `
		SELECT uniqExact(session_id)
		FROM telemetry_events
		WHERE ` + sinceFilter + `
	`, sinceMillis(since)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count distinct sessions: %w", err)
	}
	return count, nil
}

func (s *ClickHouseEventStore) AveragePayloadNumber(ctx context.Context, eventType, key string, since time.Time) (float64, error) {
	if err := checkPayloadKey(key); err != nil {
		return 0, err
	}

	query := `
		SELECT avg(JSONExtractFloat(payload, ?))
		FROM telemetry_events
		WHERE event_type = ? AND ` + sinceFilter + ` AND JSONType(payload, ?) IN ` + numericJSONTypes

	var avgValue float64
	if err := s.DB.Conn.QueryRow(ctx, query, key, eventType, sinceMillis(since), key).Scan(&avgValue); err != nil {
		return 0, fmt.Errorf("failed to average payload '%s' for %s events: %w", key, eventType, err)
	}

	// avg() over no rows is NaN, which JSON cannot carry.
	if math.IsNaN(avgValue) {
		return 0, nil
	}
	return avgValue, nil
}

func (s *ClickHouseEventStore) TopPayloadValues(ctx context.Context, eventType, key string, since time.Time, limit int) ([]models.TopSubject, error) {
	if err := checkPayloadKey(key); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	// ClickHouse keeps no insertion order, so ties fall back to the earliest
	// event timestamp and then the subject itself.
	rows, err := s.DB.Conn.Query(ctx, `
		SELECT JSONExtractString(payload, ?) AS subject, count() AS views, min(timestamp) AS first_seen
		FROM telemetry_events
		WHERE event_type = ? AND ` + sinceFilter + ` AND JSONType(payload, ?) = 'String'
		GROUP BY subject
		ORDER BY views DESC, first_seen ASC, subject ASC
		LIMIT ?
	`, key, eventType, sinceMillis(since), key, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query top '%s' values: %w", key, err)
	}
	defer rows.Close()

	results := make([]models.TopSubject, 0, limit)
	for rows.Next() {
		var (
			subject   string
			views     uint64
			firstSeen time.Time
		)
		if err := rows.Scan(&subject, &views, &firstSeen); err != nil {
			return nil, fmt.Errorf("failed to scan top '%s' row: %w", key, err)
		}
		results = append(results, models.TopSubject{Subject: subject, Views: views})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top '%s' rows: %w", key, err)
	}
	return results, nil
}
