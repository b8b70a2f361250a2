package services

import (
	"context"
	"log"
	"time"

	"github.com/codyseavey/card-comps/backend/internal/metrics"
)

// expiredPurger is the part of StoreSearchCache the janitor needs
type expiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// CacheJanitor periodically deletes expired persisted searches
type CacheJanitor struct {
	store    expiredPurger
	interval time.Duration
}

// NewCacheJanitor creates a janitor running every interval
func NewCacheJanitor(store expiredPurger, interval time.Duration) *CacheJanitor {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &CacheJanitor{store: store, interval: interval}
}

// Start runs the purge loop until ctx is cancelled
func (j *CacheJanitor) Start(ctx context.Context) {
	log.Printf("Cache janitor started: purging expired searches every %s", j.interval)

	// Clear anything that expired while the server was down
	j.RunOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Cache janitor stopping...")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce purges expired searches and refreshes the stored-search gauge
func (j *CacheJanitor) RunOnce(ctx context.Context) int64 {
	purged, err := j.store.PurgeExpired(ctx)
	if err != nil {
		log.Printf("Cache janitor: purge failed: %v", err)
		return 0
	}
	if purged > 0 {
		metrics.CachePurgedTotal.Add(float64(purged))
		log.Printf("Cache janitor: purged %d expired searches", purged)
	}

	if count, err := j.store.Count(ctx); err == nil {
		metrics.CachedSearches.Set(float64(count))
	}
	return purged
}
