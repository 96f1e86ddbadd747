package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateSlug = errors.New("slug already in use")
	ErrDuplicateUser = errors.New("user already exists")
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

const catalogSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id              SERIAL PRIMARY KEY,
		email           TEXT NOT NULL UNIQUE,
		hashed_password BYTEA NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS shops (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		slug          TEXT NOT NULL UNIQUE,
		category      TEXT NOT NULL DEFAULT '',
		floor         TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		amenities     TEXT[] NOT NULL DEFAULT '{}',
		keywords      TEXT[] NOT NULL DEFAULT '{}',
		images        TEXT[] NOT NULL DEFAULT '{}',
		contact_phone TEXT NOT NULL DEFAULT '',
		contact_email TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT 'open',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS properties (
		id               BIGSERIAL PRIMARY KEY,
		title            TEXT NOT NULL,
		slug             TEXT NOT NULL UNIQUE,
		description      TEXT NOT NULL,
		property_type    TEXT NOT NULL,
		bhk              TEXT NOT NULL,
		area_size        DOUBLE PRECISION NOT NULL,
		area_unit        TEXT NOT NULL DEFAULT 'sqft',
		price_amount     DOUBLE PRECISION NOT NULL,
		price_type       TEXT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'available',
		location_address TEXT NOT NULL DEFAULT '',
		location_city    TEXT NOT NULL DEFAULT '',
		contact_phone    TEXT NOT NULL DEFAULT '',
		view_count       BIGINT NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

// EnsureCatalogTables creates the users, shops and properties tables when
// they are missing. Existing tables are left untouched.
func EnsureCatalogTables(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, catalogSchema); err != nil {
		return fmt.Errorf("failed to create catalog tables: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// catalogErr maps driver errors of single-row catalog queries onto the
// store sentinels.
func catalogErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case isUniqueViolation(err):
		return ErrDuplicateSlug
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}
