package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"balramcms/api/models"
)

type ShopStore struct {
	db *sql.DB
}

func NewShopStore(db *sql.DB) *ShopStore {
	return &ShopStore{db: db}
}

const shopColumns = `id, name, slug, category, floor, description, amenities, keywords, images,
	contact_phone, contact_email, status, created_at, updated_at`

func scanShop(row rowScanner) (*models.Shop, error) {
	shop := &models.Shop{}
	err := row.Scan(
		&shop.ID,
		&shop.Name,
		&shop.Slug,
		&shop.Category,
		&shop.Floor,
		&shop.Description,
		pq.Array(&shop.Amenities),
		pq.Array(&shop.Keywords),
		pq.Array(&shop.Images),
		&shop.Contact.Phone,
		&shop.Contact.Email,
		&shop.Status,
		&shop.CreatedAt,
		&shop.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return shop, nil
}

// ListShops returns every shop, newest first.
func (s *ShopStore) ListShops(ctx context.Context) ([]models.Shop, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+shopColumns+` FROM shops ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	defer rows.Close()

	shops := []models.Shop{}
	for rows.Next() {
		shop, err := scanShop(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shop: %w", err)
		}
		shops = append(shops, *shop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shops: %w", err)
	}
	return shops, nil
}

func (s *ShopStore) GetShop(ctx context.Context, id int64) (*models.Shop, error) {
	shop, err := scanShop(s.db.QueryRowContext(ctx, `SELECT `+shopColumns+` FROM shops WHERE id = $1`, id))
	return shop, catalogErr("get shop", err)
}

func (s *ShopStore) GetShopBySlug(ctx context.Context, slug string) (*models.Shop, error) {
	shop, err := scanShop(s.db.QueryRowContext(ctx, `SELECT `+shopColumns+` FROM shops WHERE slug = $1`, slug))
	return shop, catalogErr("get shop by slug", err)
}

// ShopSlugExists reports whether another shop than excludeID already uses slug.
func (s *ShopStore) ShopSlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM shops WHERE slug = $1 AND id <> $2)`, slug, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check shop slug: %w", err)
	}
	return exists, nil
}

func (s *ShopStore) CreateShop(ctx context.Context, in models.ShopInput) (*models.Shop, error) {
	shop, err := scanShop(s.db.QueryRowContext(ctx, `
		INSERT INTO shops (name, slug, category, floor, description, amenities, keywords, images,
			contact_phone, contact_email, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+shopColumns,
		in.Name, in.Slug, in.Category, in.Floor, in.Description,
		pq.Array(in.Amenities), pq.Array(in.Keywords), pq.Array(in.Images),
		in.Contact.Phone, in.Contact.Email, in.Status,
	))
	return shop, catalogErr("create shop", err)
}

func (s *ShopStore) UpdateShop(ctx context.Context, id int64, in models.ShopInput) (*models.Shop, error) {
	shop, err := scanShop(s.db.QueryRowContext(ctx, `
		UPDATE shops SET
			name = $2, slug = $3, category = $4, floor = $5, description = $6,
			amenities = $7, keywords = $8, images = $9,
			contact_phone = $10, contact_email = $11, status = $12,
			updated_at = now()
		WHERE id = $1
		RETURNING `+shopColumns,
		id, in.Name, in.Slug, in.Category, in.Floor, in.Description,
		pq.Array(in.Amenities), pq.Array(in.Keywords), pq.Array(in.Images),
		in.Contact.Phone, in.Contact.Email, in.Status,
	))
	return shop, catalogErr("update shop", err)
}

func (s *ShopStore) DeleteShop(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shops WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shop: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete shop: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
