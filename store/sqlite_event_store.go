package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"balramcms/api/models"
)

// SQLiteEventStore is the embedded event store for local runs and tests. It
// answers the same questions as ClickHouseEventStore with SQLite's JSON
// functions. Timestamps are stored as unix milliseconds.
type SQLiteEventStore struct {
	db *sql.DB
}

const sqliteEventsSchema = `
	CREATE TABLE IF NOT EXISTS telemetry_events (
		event_id    TEXT PRIMARY KEY,
		event_type  TEXT NOT NULL,
		session_id  TEXT NOT NULL,
		ts          INTEGER NOT NULL,
		page_url    TEXT NOT NULL DEFAULT '',
		payload     TEXT NOT NULL DEFAULT '{}',
		user_agent  TEXT NOT NULL DEFAULT '',
		ip_address  TEXT NOT NULL DEFAULT '',
		received_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_telemetry_type_ts ON telemetry_events (event_type, ts);
	CREATE INDEX IF NOT EXISTS idx_telemetry_ts ON telemetry_events (ts);
`

// NewSQLiteEventStore creates the telemetry table if needed and returns a
// store over db.
func NewSQLiteEventStore(db *sql.DB) (*SQLiteEventStore, error) {
	if _, err := db.Exec(sqliteEventsSchema); err != nil {
		return nil, fmt.Errorf("create telemetry_events: %w", err)
	}
	return &SQLiteEventStore{db: db}, nil
}

// InsertEvents writes the batch inside one transaction.
func (s *SQLiteEventStore) InsertEvents(ctx context.Context, events []models.TelemetryEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO telemetry_events (
			event_id, event_type, session_id, ts, page_url, payload,
			user_agent, ip_address, received_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, event := range events {
		payload, err := encodePayload(event.Payload)
		if err != nil {
			return fmt.Errorf("encode payload (EventID: %s): %w", event.EventID, err)
		}
		_, err = stmt.ExecContext(ctx,
			event.EventID,
			event.EventType,
			event.SessionID,
			event.Timestamp.UnixMilli(),
			event.PageURL,
			payload,
			event.UserAgent,
			event.IPAddress,
			event.ReceivedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert event (EventID: %s): %w", event.EventID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

func (s *SQLiteEventStore) CountEvents(ctx context.Context, eventType string, since time.Time) (uint64, error) {
	var count uint64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM telemetry_events WHERE event_type = ? AND ts >= ?
	`, eventType, since.UnixMilli()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count %s events: %w", eventType, err)
	}
	return count, nil
}

func (s *SQLiteEventStore) CountSessions(ctx context.Context, since time.Time) (uint64, error) {
	var count uint64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT session_id) FROM telemetry_events WHERE ts >= ?
	`, since.UnixMilli()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count distinct sessions: %w", err)
	}
	return count, nil
}

func (s *SQLiteEventStore) AveragePayloadNumber(ctx context.Context, eventType, key string, since time.Time) (float64, error) {
	if err := checkPayloadKey(key); err != nil {
		return 0, err
	}
	path := "$." + key

	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT AVG(json_extract(payload, ?))
		FROM telemetry_events
		WHERE event_type = ? AND ts >= ? AND json_type(payload, ?) IN ('integer', 'real')
	`, path, eventType, since.UnixMilli(), path).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("average payload '%s' for %s events: %w", key, eventType, err)
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}

// TopPayloadValues breaks ties by insertion order (rowid).
func (s *SQLiteEventStore) TopPayloadValues(ctx context.Context, eventType, key string, since time.Time, limit int) ([]models.TopSubject, error) {
	if err := checkPayloadKey(key); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	path := "$." + key

	rows, err := s.db.QueryContext(ctx, `
		SELECT json_extract(payload, ?) AS subject, COUNT(*) AS views, MIN(rowid) AS first_seen
		FROM telemetry_events
		WHERE event_type = ? AND ts >= ? AND json_type(payload, ?) = 'text'
		GROUP BY subject
		ORDER BY views DESC, first_seen ASC
		LIMIT ?
	`, path, eventType, since.UnixMilli(), path, limit)
	if err != nil {
		return nil, fmt.Errorf("query top '%s' values: %w", key, err)
	}
	defer rows.Close()

	results := make([]models.TopSubject, 0, limit)
	for rows.Next() {
		var (
			subject   string
			views     uint64
			firstSeen int64
		)
		if err := rows.Scan(&subject, &views, &firstSeen); err != nil {
			return nil, fmt.Errorf("scan top '%s' row: %w", key, err)
		}
		results = append(results, models.TopSubject{Subject: subject, Views: views})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top '%s' rows: %w", key, err)
	}
	return results, nil
}

// EventsSince returns stored events with ts >= since in insertion order.
func (s *SQLiteEventStore) EventsSince(ctx context.Context, since time.Time) ([]models.TelemetryEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, session_id, ts, page_url, payload, user_agent, ip_address, received_at
		FROM telemetry_events
		WHERE ts >= ?
		ORDER BY rowid ASC
	`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []models.TelemetryEvent
	for rows.Next() {
		var (
			e          models.TelemetryEvent
			ts, recv   int64
			rawPayload string
		)
		if err := rows.Scan(&e.EventID, &e.EventType, &e.SessionID, &ts, &e.PageURL, &rawPayload, &e.UserAgent, &e.IPAddress, &recv); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts).UTC()
		e.ReceivedAt = time.UnixMilli(recv).UTC()
		if e.Payload, err = decodePayload(rawPayload); err != nil {
			return nil, fmt.Errorf("decode payload (EventID: %s): %w", e.EventID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
