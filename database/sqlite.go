package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// NewSQLiteDB opens the embedded telemetry database at path (":memory:" for
// a throwaway one). SQLite has a single writer, and each in-memory connection
// is a separate database, so the pool is pinned to one connection.
func NewSQLiteDB(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to sqlite database: %w", err)
	}

	log.Info().Str("path", path).Msg("opened SQLite telemetry database")
	return db, nil
}
