package utils

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Apollo Pharmacy":          "apollo-pharmacy",
		"  Shop #12 -- Ground Fl ": "shop-12-ground-fl",
		"3BHK Villa, Sector 9":     "3bhk-villa-sector-9",
		"Café Déjà":                "cafe-deja",
		"Tom's Tailors":            "toms-tailors",
		"Bread & Butter":           "bread-and-butter",
		"!!!":                      "item",
		"":                         "item",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), "Slugify(%q)", in)
	}
}

func TestUniqueSlug(t *testing.T) {
	taken := map[string]bool{"apollo": true, "apollo-2": true}
	exists := func(_ context.Context, slug string) (bool, error) { return taken[slug], nil }

	slug, err := UniqueSlug(context.Background(), "Apollo", exists)
	require.NoError(t, err)
	assert.Equal(t, "apollo-3", slug)

	slug, err = UniqueSlug(context.Background(), "Bata", exists)
	require.NoError(t, err)
	assert.Equal(t, "bata", slug)
}

func TestUniqueSlugFallsBackToTimeSuffix(t *testing.T) {
	always := func(context.Context, string) (bool, error) { return true, nil }

	slug, err := UniqueSlug(context.Background(), "Apollo", always)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(slug, "apollo-"))
	assert.Greater(t, len(slug), len("apollo-10"))
}

func TestUniqueSlugPropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	_, err := UniqueSlug(context.Background(), "Apollo", func(context.Context, string) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}
