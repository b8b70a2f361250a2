package database

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/card-comps/backend/internal/models"
)

var DB *gorm.DB

// Initialize opens the SQLite file at dbPath and migrates the search cache
// table. logSQL turns on per-statement logging.
func Initialize(dbPath string, logSQL bool) error {
	level := logger.Warn
	if logSQL {
		level = logger.Info
	}

	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return err
	}

	log.Println("Database connected successfully")

	// Must run before AutoMigrate adds the unique index on cache_key
	if err := cleanupDuplicateCacheKeys(DB); err != nil {
		return err
	}

	if err := DB.AutoMigrate(&models.CachedSearch{}); err != nil {
		return err
	}

	log.Println("Database migration completed")
	return nil
}

func GetDB() *gorm.DB {
	return DB
}
