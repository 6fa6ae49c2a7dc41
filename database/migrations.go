package database

import (
	"fmt"

	"gorm.io/gorm"
)

// OptimizeIndexes adds the descending date indexes the latest-first reads use
func OptimizeIndexes(db *gorm.DB) error {
	// Product first, then date: the bot always filters by product
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_futures_product_date
		ON futures_positions (product, trade_date DESC)
	`).Error; err != nil {
		return fmt.Errorf("failed to create futures product/date index: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_futures_date
		ON futures_positions (trade_date DESC)
	`).Error; err != nil {
		return fmt.Errorf("failed to create futures date index: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_raw_pages_source_fetched
		ON raw_pages (source, fetched_at DESC)
	`).Error; err != nil {
		return fmt.Errorf("failed to create raw page index: %w", err)
	}

	return nil
}
