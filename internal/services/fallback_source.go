package services

import (
	"context"
	"log"

	"github.com/codyseavey/card-comps/backend/internal/models"
)

// FallbackSource tries the primary source first and falls back to the
// secondary for text searches that fail or come back empty. Image searches
// only go to the primary.
type FallbackSource struct {
	primary   ListingSource
	secondary ListingSource
}

// NewFallbackSource chains two sources. A nil secondary disables fallback.
func NewFallbackSource(primary, secondary ListingSource) *FallbackSource {
	return &FallbackSource{primary: primary, secondary: secondary}
}

func (s *FallbackSource) Name() string {
	if s.secondary == nil {
		return s.primary.Name()
	}
	return s.primary.Name() + "+" + s.secondary.Name()
}

func (s *FallbackSource) Search(ctx context.Context, query string, limit int) ([]models.RawListing, error) {
	listings, err := s.primary.Search(ctx, query, limit)
	if err == nil && len(listings) > 0 {
		return listings, nil
	}
	if s.secondary == nil || ctx.Err() != nil {
		return listings, err
	}

	log.Printf("Fallback source: %s failed for %q (%v), trying %s", s.primary.Name(), query, err, s.secondary.Name())
	fallbackListings, fallbackErr := s.secondary.Search(ctx, query, limit)
	if fallbackErr != nil {
		// Report the primary failure; it is the more specific one
		if err != nil {
			return nil, err
		}
		return nil, fallbackErr
	}
	return fallbackListings, nil
}

func (s *FallbackSource) SearchByImage(ctx context.Context, imagePath string, limit int) ([]models.RawListing, error) {
	return s.primary.SearchByImage(ctx, imagePath, limit)
}

var _ ListingSource = (*FallbackSource)(nil)
