package store

import (
	"context"
	"database/sql"
	"fmt"

	"balramcms/api/models"
)

type PropertyStore struct {
	db *sql.DB
}

func NewPropertyStore(db *sql.DB) *PropertyStore {
	return &PropertyStore{db: db}
}

const propertyColumns = `id, title, slug, description, property_type, bhk, area_size, area_unit,
	price_amount, price_type, status, location_address, location_city, contact_phone,
	view_count, created_at, updated_at`

func scanProperty(row rowScanner) (*models.Property, error) {
	p := &models.Property{}
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.Description,
		&p.PropertyType,
		&p.BHK,
		&p.Area.Size,
		&p.Area.Unit,
		&p.Price.Amount,
		&p.Price.Type,
		&p.Status,
		&p.Location.Address,
		&p.Location.City,
		&p.Contact.Phone,
		&p.ViewCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProperties returns every property, newest first.
func (s *PropertyStore) ListProperties(ctx context.Context) ([]models.Property, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+propertyColumns+` FROM properties ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	properties := []models.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating properties: %w", err)
	}
	return properties, nil
}

// ViewProperty returns the property and counts the view in the same statement.
func (s *PropertyStore) ViewProperty(ctx context.Context, id int64) (*models.Property, error) {
	p, err := scanProperty(s.db.QueryRowContext(ctx, `
		UPDATE properties SET view_count = view_count + 1
		WHERE id = $1
		RETURNING `+propertyColumns, id))
	return p, catalogErr("view property", err)
}

// ViewPropertyBySlug is ViewProperty keyed by slug.
func (s *PropertyStore) ViewPropertyBySlug(ctx context.Context, slug string) (*models.Property, error) {
	p, err := scanProperty(s.db.QueryRowContext(ctx, `
		UPDATE properties SET view_count = view_count + 1
		WHERE slug = $1
		RETURNING `+propertyColumns, slug))
	return p, catalogErr("view property by slug", err)
}

func (s *PropertyStore) PropertySlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM properties WHERE slug = $1 AND id <> $2)`, slug, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check property slug: %w", err)
	}
	return exists, nil
}

func (s *PropertyStore) CreateProperty(ctx context.Context, in models.PropertyInput) (*models.Property, error) {
	p, err := scanProperty(s.db.QueryRowContext(ctx, `
		INSERT INTO properties (title, slug, description, property_type, bhk, area_size, area_unit,
			price_amount, price_type, status, location_address, location_city, contact_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+propertyColumns,
		in.Title, in.Slug, in.Description, in.PropertyType, in.BHK, in.Area.Size, in.Area.Unit,
		in.Price.Amount, in.Price.Type, in.Status, in.Location.Address, in.Location.City, in.Contact.Phone,
	))
	return p, catalogErr("create property", err)
}

func (s *PropertyStore) UpdateProperty(ctx context.Context, id int64, in models.PropertyInput) (*models.Property, error) {
	p, err := scanProperty(s.db.QueryRowContext(ctx, `
		UPDATE properties SET
			title = $2, slug = $3, description = $4, property_type = $5, bhk = $6,
			area_size = $7, area_unit = $8, price_amount = $9, price_type = $10, status = $11,
			location_address = $12, location_city = $13, contact_phone = $14,
			updated_at = now()
		WHERE id = $1
		RETURNING `+propertyColumns,
		id, in.Title, in.Slug, in.Description, in.PropertyType, in.BHK, in.Area.Size, in.Area.Unit,
		in.Price.Amount, in.Price.Type, in.Status, in.Location.Address, in.Location.City, in.Contact.Phone,
	))
	return p, catalogErr("update property", err)
}

func (s *PropertyStore) DeleteProperty(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
