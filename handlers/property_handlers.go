package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"balramcms/api/models"
	"balramcms/api/store"
	"balramcms/api/utils"
)

// PropertyRepository is the property persistence used by PropertyHandlers.
type PropertyRepository interface {
	ListProperties(ctx context.Context) ([]models.Property, error)
	ViewProperty(ctx context.Context, id int64) (*models.Property, error)
	ViewPropertyBySlug(ctx context.Context, slug string) (*models.Property, error)
	PropertySlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	CreateProperty(ctx context.Context, in models.PropertyInput) (*models.Property, error)
	UpdateProperty(ctx context.Context, id int64, in models.PropertyInput) (*models.Property, error)
	DeleteProperty(ctx context.Context, id int64) error
}

type PropertyHandlers struct {
	Properties  PropertyRepository
	ShowDetails bool
}

func NewPropertyHandlers(properties PropertyRepository, showDetails bool) *PropertyHandlers {
	return &PropertyHandlers{Properties: properties, ShowDetails: showDetails}
}

func (h *PropertyHandlers) List(c *gin.Context) {
	properties, err := h.Properties.ListProperties(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list properties")
		c.JSON(http.StatusInternalServerError, errorBody("Failed to fetch properties", err, h.ShowDetails))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(properties), "data": properties})
}

// Get returns one property and counts the view.
func (h *PropertyHandlers) Get(c *gin.Context) {
	ref := c.Param("id")
	var (
		p   *models.Property
		err error
	)
	if id, ok := parseID(ref); ok {
		p, err = h.Properties.ViewProperty(c.Request.Context(), id)
	} else {
		p, err = h.Properties.ViewPropertyBySlug(c.Request.Context(), ref)
	}
	if err != nil {
		h.fail(c, "Failed to fetch property", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": p})
}

func (h *PropertyHandlers) Create(c *gin.Context) {
	var in models.PropertyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("Invalid property data", err, true))
		return
	}
	in.Normalize()

	slug, err := h.slugFor(c.Request.Context(), in, 0)
	if err != nil {
		h.fail(c, "Failed to create property", err)
		return
	}
	in.Slug = slug

	p, err := h.Properties.CreateProperty(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "Failed to create property", err)
		return
	}
	log.Info().Int64("property_id", p.ID).Str("slug", p.Slug).Msg("property created")
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Property created successfully", "data": p})
}

func (h *PropertyHandlers) Update(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Property not found"})
		return
	}

	var in models.PropertyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("Invalid property data", err, true))
		return
	}
	in.Normalize()

	slug, err := h.slugFor(c.Request.Context(), in, id)
	if err != nil {
		h.fail(c, "Failed to update property", err)
		return
	}
	in.Slug = slug

	p, err := h.Properties.UpdateProperty(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, "Failed to update property", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Property updated successfully", "data": p})
}

func (h *PropertyHandlers) Delete(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Property not found"})
		return
	}
	if err := h.Properties.DeleteProperty(c.Request.Context(), id); err != nil {
		h.fail(c, "Failed to delete property", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Property deleted successfully"})
}

func (h *PropertyHandlers) slugFor(ctx context.Context, in models.PropertyInput, selfID int64) (string, error) {
	if s := strings.TrimSpace(in.Slug); s != "" {
		return utils.Slugify(s), nil
	}
	return utils.UniqueSlug(ctx, in.Title, func(ctx context.Context, slug string) (bool, error) {
		return h.Properties.PropertySlugExists(ctx, slug, selfID)
	})
}

func (h *PropertyHandlers) fail(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Property not found"})
	case errors.Is(err, store.ErrDuplicateSlug):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "A property with this slug already exists"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		c.JSON(http.StatusInternalServerError, errorBody(message, err, h.ShowDetails))
	}
}
