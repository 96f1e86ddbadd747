package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balramcms/api/models"
	"balramcms/api/store"
)

type memProperties struct {
	items []models.Property
}

func (m *memProperties) ListProperties(context.Context) ([]models.Property, error) {
	return append([]models.Property(nil), m.items...), nil
}

func (m *memProperties) view(match func(models.Property) bool) (*models.Property, error) {
	for i := range m.items {
		if match(m.items[i]) {
			m.items[i].ViewCount++
			p := m.items[i]
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memProperties) ViewProperty(_ context.Context, id int64) (*models.Property, error) {
	return m.view(func(p models.Property) bool { return p.ID == id })
}

func (m *memProperties) ViewPropertyBySlug(_ context.Context, slug string) (*models.Property, error) {
	return m.view(func(p models.Property) bool { return p.Slug == slug })
}

func (m *memProperties) PropertySlugExists(_ context.Context, slug string, excludeID int64) (bool, error) {
	for _, p := range m.items {
		if p.Slug == slug && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memProperties) CreateProperty(_ context.Context, in models.PropertyInput) (*models.Property, error) {
	p := models.Property{
		ID: int64(len(m.items) + 1), Title: in.Title, Slug: in.Slug, Description: in.Description,
		PropertyType: in.PropertyType, BHK: in.BHK, Area: in.Area, Price: in.Price, Status: in.Status,
	}
	m.items = append(m.items, p)
	return &p, nil
}

func (m *memProperties) UpdateProperty(_ context.Context, id int64, in models.PropertyInput) (*models.Property, error) {
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Title, m.items[i].Slug, m.items[i].Status = in.Title, in.Slug, in.Status
			p := m.items[i]
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memProperties) DeleteProperty(_ context.Context, id int64) error {
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func newPropertyRouter(repo PropertyRepository) *gin.Engine {
	h := NewPropertyHandlers(repo, false)
	r := gin.New()
	r.GET("/api/properties", h.List)
	r.GET("/api/properties/:id", h.Get)
	r.POST("/api/properties", h.Create)
	r.PUT("/api/properties/:id", h.Update)
	r.DELETE("/api/properties/:id", h.Delete)
	return r
}

const villaBody = `{
	"title":"Sea View Villa",
	"description":"Four bedrooms near the beach",
	"propertyType":"villa",
	"bhk":"4",
	"area":{"size":2400},
	"price":{"amount":25000000,"type":"sale"}
}`

func TestPropertyCreateAppliesDefaults(t *testing.T) {
	r := newPropertyRouter(&memProperties{})

	w := serve(r, http.MethodPost, "/api/properties", villaBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "sea-view-villa", data["slug"])
	assert.Equal(t, "available", data["status"])
	assert.Equal(t, "sqft", data["area"].(map[string]any)["unit"])
}

func TestPropertyGetCountsViews(t *testing.T) {
	repo := &memProperties{}
	r := newPropertyRouter(repo)
	require.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/api/properties", villaBody).Code)

	serve(r, http.MethodGet, "/api/properties/1", "")
	w := serve(r, http.MethodGet, "/api/properties/sea-view-villa", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decodeBody(t, w)["data"].(map[string]any)["viewCount"])

	w = serve(r, http.MethodGet, "/api/properties", "")
	assert.EqualValues(t, 1, decodeBody(t, w)["count"])
}

func TestPropertyValidation(t *testing.T) {
	r := newPropertyRouter(&memProperties{})

	bad := []string{
		`{"title":"A","description":"d","propertyType":"castle","bhk":"2","area":{"size":10},"price":{"amount":1,"type":"sale"}}`,
		`{"title":"A","description":"d","propertyType":"villa","bhk":"2","area":{"size":10},"price":{"amount":1,"type":"lease"}}`,
		`{"title":"A","description":"d","propertyType":"villa","bhk":"2","area":{"size":0},"price":{"amount":1,"type":"sale"}}`,
		`{"description":"d","propertyType":"villa","bhk":"2","area":{"size":10},"price":{"amount":1,"type":"sale"}}`,
	}
	for _, body := range bad {
		assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/api/properties", body).Code, body)
	}
}

func TestPropertyUpdateAndDelete(t *testing.T) {
	r := newPropertyRouter(&memProperties{})
	require.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/api/properties", villaBody).Code)

	w := serve(r, http.MethodPut, "/api/properties/1", `{
		"title":"Sea View Villa","description":"Sold out","propertyType":"villa","bhk":"4",
		"area":{"size":2400},"price":{"amount":25000000,"type":"sale"},"status":"sold"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "sold", data["status"])
	assert.Equal(t, "sea-view-villa", data["slug"], "a property keeps its own slug on update")

	assert.Equal(t, http.StatusOK, serve(r, http.MethodDelete, "/api/properties/1", "").Code)
	w = serve(r, http.MethodDelete, "/api/properties/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Property not found"}`, w.Body.String())
}
