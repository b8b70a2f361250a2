package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/codyseavey/card-comps/backend/internal/metrics"
	"github.com/codyseavey/card-comps/backend/internal/models"
)

const (
	// DefaultCacheTTL keeps a scrape around for a burst of identical queries
	DefaultCacheTTL  = 10 * time.Minute
	defaultCacheSize = 256
)

// SearchCache stores normalized listings by search key
type SearchCache interface {
	Get(ctx context.Context, key string) ([]models.NormalizedListing, bool)
	Set(ctx context.Context, key string, listings []models.NormalizedListing, ttl time.Duration)
}

// TextCacheKey normalizes a query so that case and spacing differences share a key
func TextCacheKey(query string, limit int) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	return fmt.Sprintf("text:%s|%d", normalized, limit)
}

// ImageCacheKey identifies an image search by the uploaded bytes
func ImageCacheKey(image []byte, limit int) string {
	sum := sha256.Sum256(image)
	return fmt.Sprintf("image:%s|%d", hex.EncodeToString(sum[:]), limit)
}

// IsImageCacheKey reports whether key came from ImageCacheKey
func IsImageCacheKey(key string) bool {
	return strings.HasPrefix(key, "image:")
}

// MemorySearchCache is an in-process LRU with a fixed TTL
type MemorySearchCache struct {
	lru *expirable.LRU[string, []models.NormalizedListing]
}

// NewMemorySearchCache creates an LRU cache holding size entries for ttl
func NewMemorySearchCache(size int, ttl time.Duration) *MemorySearchCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemorySearchCache{
		lru: expirable.NewLRU[string, []models.NormalizedListing](size, nil, ttl),
	}
}

// Get returns cached listings. The TTL passed to Set is ignored in favour of
// the cache-wide TTL.
func (c *MemorySearchCache) Get(_ context.Context, key string) ([]models.NormalizedListing, bool) {
	listings, ok := c.lru.Get(key)
	metrics.RecordCacheLookup("memory", ok)
	return listings, ok
}

func (c *MemorySearchCache) Set(_ context.Context, key string, listings []models.NormalizedListing, _ time.Duration) {
	c.lru.Add(key, listings)
}

// Len returns the number of live entries
func (c *MemorySearchCache) Len() int {
	return c.lru.Len()
}

// TieredSearchCache reads through memory then a slower tier, promoting
// slow-tier hits into memory. Writes go to both.
type TieredSearchCache struct {
	fast SearchCache
	slow SearchCache
}

// NewTieredSearchCache layers fast over slow
func NewTieredSearchCache(fast, slow SearchCache) *TieredSearchCache {
	return &TieredSearchCache{fast: fast, slow: slow}
}

func (c *TieredSearchCache) Get(ctx context.Context, key string) ([]models.NormalizedListing, bool) {
	if listings, ok := c.fast.Get(ctx, key); ok {
		return listings, true
	}
	listings, ok := c.slow.Get(ctx, key)
	if ok {
		c.fast.Set(ctx, key, listings, 0)
	}
	return listings, ok
}

func (c *TieredSearchCache) Set(ctx context.Context, key string, listings []models.NormalizedListing, ttl time.Duration) {
	c.fast.Set(ctx, key, listings, ttl)
	c.slow.Set(ctx, key, listings, ttl)
}

var (
	_ SearchCache = (*MemorySearchCache)(nil)
	_ SearchCache = (*TieredSearchCache)(nil)
)
