package models

import (
	"time"
)

// CachedSearch persists the normalized listings of one scrape so identical
// queries within the TTL (and image searches replayed for analysis) skip the browser.
type CachedSearch struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	CacheKey     string     `json:"cache_key" gorm:"not null;uniqueIndex"`
	Mode         SearchMode `json:"mode" gorm:"not null;default:'text'"`
	Query        string     `json:"query"`
	ListingsJSON string     `json:"-" gorm:"type:text;not null"`
	ListingCount int        `json:"listing_count"`
	ExpiresAt    time.Time  `json:"expires_at" gorm:"index;not null"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsExpired returns true if the entry is past its TTL at now
func (c *CachedSearch) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
