package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/gosimple/slug"
)

// maxSlugAttempts bounds the numbered suffixes tried before falling back to a
// time suffix.
const maxSlugAttempts = 10

// Slugify transliterates s to lower-case ASCII words joined with '-'. An input
// with nothing left after that becomes "item".
func Slugify(s string) string {
	out := slug.Make(s)
	if out == "" {
		return "item"
	}
	return out
}

// SlugExistsFunc reports whether a slug is already taken.
type SlugExistsFunc func(ctx context.Context, slug string) (bool, error)

// UniqueSlug returns Slugify(source), or the first free "-2" … "-10" variant,
// or finally a variant suffixed with the current unix milliseconds.
func UniqueSlug(ctx context.Context, source string, exists SlugExistsFunc) (string, error) {
	base := Slugify(source)
	for i := 1; i <= maxSlugAttempts; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return fmt.Sprintf("%s-%d", base, time.Now().UnixMilli()), nil
}
