package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balramcms/api/models"
	"balramcms/api/store"
)

type memShops struct {
	shops  []models.Shop
	nextID int64
	err    error
}

func (m *memShops) ListShops(context.Context) ([]models.Shop, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Shop, len(m.shops))
	for i := range m.shops {
		out[len(m.shops)-1-i] = m.shops[i]
	}
	return out, nil
}

func (m *memShops) find(match func(models.Shop) bool) (*models.Shop, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.shops {
		if match(m.shops[i]) {
			s := m.shops[i]
			return &s, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memShops) GetShop(_ context.Context, id int64) (*models.Shop, error) {
	return m.find(func(s models.Shop) bool { return s.ID == id })
}

func (m *memShops) GetShopBySlug(_ context.Context, slug string) (*models.Shop, error) {
	return m.find(func(s models.Shop) bool { return s.Slug == slug })
}

func (m *memShops) ShopSlugExists(_ context.Context, slug string, excludeID int64) (bool, error) {
	for _, s := range m.shops {
		if s.Slug == slug && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memShops) CreateShop(ctx context.Context, in models.ShopInput) (*models.Shop, error) {
	if taken, _ := m.ShopSlugExists(ctx, in.Slug, 0); taken {
		return nil, store.ErrDuplicateSlug
	}
	m.nextID++
	s := models.Shop{
		ID: m.nextID, Name: in.Name, Slug: in.Slug, Category: in.Category, Status: in.Status,
		Amenities: in.Amenities, Keywords: in.Keywords, Images: in.Images, Contact: in.Contact,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.shops = append(m.shops, s)
	return &s, nil
}

func (m *memShops) UpdateShop(ctx context.Context, id int64, in models.ShopInput) (*models.Shop, error) {
	if taken, _ := m.ShopSlugExists(ctx, in.Slug, id); taken {
		return nil, store.ErrDuplicateSlug
	}
	for i := range m.shops {
		if m.shops[i].ID == id {
			m.shops[i].Name, m.shops[i].Slug, m.shops[i].Status = in.Name, in.Slug, in.Status
			s := m.shops[i]
			return &s, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memShops) DeleteShop(_ context.Context, id int64) error {
	for i := range m.shops {
		if m.shops[i].ID == id {
			m.shops = append(m.shops[:i], m.shops[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func newShopRouter(repo ShopRepository, showDetails bool) *gin.Engine {
	h := NewShopHandlers(repo, showDetails)
	r := gin.New()
	r.GET("/api/shops", h.List)
	r.GET("/api/shops/:id", h.Get)
	r.POST("/api/shops", h.Create)
	r.PUT("/api/shops/:id", h.Update)
	r.DELETE("/api/shops/:id", h.Delete)
	return r
}

func serve(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestShopLifecycle(t *testing.T) {
	repo := &memShops{}
	r := newShopRouter(repo, false)

	w := serve(r, http.MethodPost, "/api/shops", `{"name":"Apollo Pharmacy","category":"health"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	data := body["data"].(map[string]any)
	assert.Equal(t, "apollo-pharmacy", data["slug"])
	assert.Equal(t, "open", data["status"])
	assert.Equal(t, []any{}, data["amenities"])

	w = serve(r, http.MethodPost, "/api/shops", `{"name":"Apollo Pharmacy"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "apollo-pharmacy-2", decodeBody(t, w)["data"].(map[string]any)["slug"])

	w = serve(r, http.MethodGet, "/api/shops", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.EqualValues(t, 2, body["count"])
	assert.Equal(t, "apollo-pharmacy-2", body["data"].([]any)[0].(map[string]any)["slug"], "newest first")

	w = serve(r, http.MethodGet, "/api/shops/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "apollo-pharmacy", decodeBody(t, w)["data"].(map[string]any)["slug"])

	w = serve(r, http.MethodGet, "/api/shops/apollo-pharmacy-2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decodeBody(t, w)["data"].(map[string]any)["id"])

	w = serve(r, http.MethodPut, "/api/shops/1", `{"name":"Apollo","status":"closed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "apollo", data["slug"])
	assert.Equal(t, "closed", data["status"])

	w = serve(r, http.MethodDelete, "/api/shops/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/api/shops/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Shop not found"}`, w.Body.String())
}

func TestShopValidationAndConflicts(t *testing.T) {
	repo := &memShops{}
	r := newShopRouter(repo, false)

	w := serve(r, http.MethodPost, "/api/shops", `{"category":"food"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodPost, "/api/shops", `{"name":"X","status":"demolished"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/api/shops", `{"name":"X","slug":"x-mart"}`).Code)
	w = serve(r, http.MethodPost, "/api/shops", `{"name":"Y","slug":"X Mart"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPut, "/api/shops/99", `{"name":"Z"}`).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodDelete, "/api/shops/not-a-number", "").Code)
}

func TestShopStoreFailureHidesDetailInRelease(t *testing.T) {
	r := newShopRouter(&memShops{err: errors.New("pq: password authentication failed")}, false)

	w := serve(r, http.MethodGet, "/api/shops", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	r = newShopRouter(&memShops{err: errors.New("pq: password authentication failed")}, true)
	w = serve(r, http.MethodGet, "/api/shops/5", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "password authentication failed")
}
