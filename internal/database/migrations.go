package database

import (
	"log"

	"gorm.io/gorm"
)

// cleanupDuplicateCacheKeys removes repeated cached_searches rows before the
// unique index is added, keeping the newest row per key. Once the index
// exists there is nothing to do.
func cleanupDuplicateCacheKeys(db *gorm.DB) error {
	if !db.Migrator().HasTable("cached_searches") {
		return nil
	}
	if db.Migrator().HasIndex("cached_searches", "idx_cached_searches_cache_key") {
		return nil
	}

	result := db.Exec(`
		DELETE FROM cached_searches
		WHERE id NOT IN (
			SELECT MAX(id)
			FROM cached_searches
			GROUP BY cache_key
		)
	`)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d duplicate cached_searches entries", result.RowsAffected)
	}
	return nil
}
