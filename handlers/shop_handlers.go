package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"balramcms/api/models"
	"balramcms/api/store"
	"balramcms/api/utils"
)

// ShopRepository is the shop persistence used by ShopHandlers.
type ShopRepository interface {
	ListShops(ctx context.Context) ([]models.Shop, error)
	GetShop(ctx context.Context, id int64) (*models.Shop, error)
	GetShopBySlug(ctx context.Context, slug string) (*models.Shop, error)
	ShopSlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	CreateShop(ctx context.Context, in models.ShopInput) (*models.Shop, error)
	UpdateShop(ctx context.Context, id int64, in models.ShopInput) (*models.Shop, error)
	DeleteShop(ctx context.Context, id int64) error
}

type ShopHandlers struct {
	Shops       ShopRepository
	ShowDetails bool
}

func NewShopHandlers(shops ShopRepository, showDetails bool) *ShopHandlers {
	return &ShopHandlers{Shops: shops, ShowDetails: showDetails}
}

func (h *ShopHandlers) List(c *gin.Context) {
	shops, err := h.Shops.ListShops(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list shops")
		c.JSON(http.StatusInternalServerError, errorBody("Failed to fetch shops", err, h.ShowDetails))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(shops), "data": shops})
}

// Get looks the shop up by numeric id, or by slug for anything else.
func (h *ShopHandlers) Get(c *gin.Context) {
	ref := c.Param("id")
	var (
		shop *models.Shop
		err  error
	)
	if id, ok := parseID(ref); ok {
		shop, err = h.Shops.GetShop(c.Request.Context(), id)
	} else {
		shop, err = h.Shops.GetShopBySlug(c.Request.Context(), ref)
	}
	if err != nil {
		h.fail(c, "Failed to fetch shop", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": shop})
}

func (h *ShopHandlers) Create(c *gin.Context) {
	var in models.ShopInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("Invalid shop data", err, true))
		return
	}
	in.Normalize()

	slug, err := h.slugFor(c.Request.Context(), in, 0)
	if err != nil {
		h.fail(c, "Failed to create shop", err)
		return
	}
	in.Slug = slug

	shop, err := h.Shops.CreateShop(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "Failed to create shop", err)
		return
	}
	log.Info().Int64("shop_id", shop.ID).Str("slug", shop.Slug).Msg("shop created")
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Shop created successfully", "data": shop})
}

func (h *ShopHandlers) Update(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Shop not found"})
		return
	}

	var in models.ShopInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("Invalid shop data", err, true))
		return
	}
	in.Normalize()

	slug, err := h.slugFor(c.Request.Context(), in, id)
	if err != nil {
		h.fail(c, "Failed to update shop", err)
		return
	}
	in.Slug = slug

	shop, err := h.Shops.UpdateShop(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, "Failed to update shop", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Shop updated successfully", "data": shop})
}

func (h *ShopHandlers) Delete(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Shop not found"})
		return
	}
	if err := h.Shops.DeleteShop(c.Request.Context(), id); err != nil {
		h.fail(c, "Failed to delete shop", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Shop deleted successfully"})
}

// slugFor keeps an explicit slug as given (normalized) and derives one from
// the name otherwise, skipping slugs held by other shops.
func (h *ShopHandlers) slugFor(ctx context.Context, in models.ShopInput, selfID int64) (string, error) {
	exists := func(ctx context.Context, slug string) (bool, error) {
		return h.Shops.ShopSlugExists(ctx, slug, selfID)
	}
	if s := strings.TrimSpace(in.Slug); s != "" {
		return utils.Slugify(s), nil
	}
	return utils.UniqueSlug(ctx, in.Name, exists)
}

func (h *ShopHandlers) fail(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Shop not found"})
	case errors.Is(err, store.ErrDuplicateSlug):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "A shop with this slug already exists"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		c.JSON(http.StatusInternalServerError, errorBody(message, err, h.ShowDetails))
	}
}

// parseID accepts positive decimal ids only.
func parseID(ref string) (int64, bool) {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
