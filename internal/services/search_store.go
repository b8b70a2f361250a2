package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/card-comps/backend/internal/metrics"
	"github.com/codyseavey/card-comps/backend/internal/models"
)

// StoreSearchCache persists searches in SQLite so they survive restarts and
// image searches can be replayed for analysis until they expire
type StoreSearchCache struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewStoreSearchCache creates a gorm-backed search cache
func NewStoreSearchCache(db *gorm.DB, ttl time.Duration) *StoreSearchCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &StoreSearchCache{db: db, ttl: ttl, now: utcNow}
}

// SQLite compares timestamps as text, so every stored time is UTC
func utcNow() time.Time {
	return time.Now().UTC()
}

// Get returns unexpired listings for key
func (s *StoreSearchCache) Get(ctx context.Context, key string) ([]models.NormalizedListing, bool) {
	var entry models.CachedSearch
	err := s.db.WithContext(ctx).Where("cache_key = ?", key).First(&entry).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Search store: failed to read %s: %v", key, err)
		}
		metrics.RecordCacheLookup("store", false)
		return nil, false
	}

	if entry.IsExpired(s.now()) {
		metrics.RecordCacheLookup("store", false)
		return nil, false
	}

	var listings []models.NormalizedListing
	if err := json.Unmarshal([]byte(entry.ListingsJSON), &listings); err != nil {
		log.Printf("Search store: corrupt entry %s: %v", key, err)
		metrics.RecordCacheLookup("store", false)
		return nil, false
	}

	metrics.RecordCacheLookup("store", true)
	return listings, true
}

// Set upserts listings for key. Failures are logged; the cache is best effort.
func (s *StoreSearchCache) Set(ctx context.Context, key string, listings []models.NormalizedListing, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.ttl
	}

	data, err := json.Marshal(listings)
	if err != nil {
		log.Printf("Search store: failed to encode %s: %v", key, err)
		return
	}

	mode := models.SearchModeText
	if IsImageCacheKey(key) {
		mode = models.SearchModeImage
	}
	query := ""
	if mode == models.SearchModeText {
		query = strings.TrimPrefix(key, "text:")
		if i := strings.LastIndex(query, "|"); i >= 0 {
			query = query[:i]
		}
	}

	now := s.now()
	entry := models.CachedSearch{
		CacheKey:     key,
		Mode:         mode,
		Query:        query,
		ListingsJSON: string(data),
		ListingCount: len(listings),
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"mode", "query", "listings_json", "listing_count", "expires_at", "updated_at"}),
	}).Create(&entry)
	if result.Error != nil {
		log.Printf("Search store: failed to save %s: %v", key, result.Error)
	}
}

// PurgeExpired deletes expired rows and returns how many were removed
func (s *StoreSearchCache) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&models.CachedSearch{})
	return result.RowsAffected, result.Error
}

// Count returns the number of stored searches, expired or not
func (s *StoreSearchCache) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CachedSearch{}).Count(&count).Error
	return count, err
}

var _ SearchCache = (*StoreSearchCache)(nil)
