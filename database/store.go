package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/viktsys/taifexbot/models"
)

// ErrNotFound is returned when a single-row lookup matches nothing
var ErrNotFound = errors.New("record not found")

// Store is the persistence layer for extracted records. Upserts rely on
// the unique (trade_date, product) and (trade_date) indexes, so re-running a
// day replaces its rows instead of duplicating them.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UpsertPositions(ctx context.Context, positions []models.FuturesPosition) error {
	if len(positions) == 0 {
		return nil
	}

	// A single multi-row INSERT, so a day's products land together or not at all
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "trade_date"}, {Name: "product"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"dealer_net", "trust_net", "foreign_net", "retail_net", "updated_at",
		}),
	}).CreateInBatches(positions, len(positions)).Error
}

func (s *Store) UpsertRatio(ctx context.Context, ratio models.PCRatio) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "trade_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"put_volume", "call_volume", "volume_ratio", "put_oi", "call_oi", "oi_ratio", "updated_at",
		}),
	}).Create(&ratio).Error
}

func (s *Store) SaveRawPage(ctx context.Context, page models.RawPage) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}, {Name: "trade_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"url", "encoding", "body", "fetched_at"}),
	}).Create(&page).Error
}

// LatestPositions returns up to limit rows, newest first. An empty product
// returns every product.
func (s *Store) LatestPositions(ctx context.Context, product string, limit int) ([]models.FuturesPosition, error) {
	q := s.db.WithContext(ctx).Model(&models.FuturesPosition{})
	if product != "" {
		q = q.Where("product = ?", product)
	}

	var out []models.FuturesPosition
	err := q.Order("trade_date DESC").Order("product").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query latest positions: %w", err)
	}
	return out, nil
}

// LatestPositionDay returns every product stored for the most recent trade date.
func (s *Store) LatestPositionDay(ctx context.Context) ([]models.FuturesPosition, error) {
	var out []models.FuturesPosition
	err := s.db.WithContext(ctx).
		Where("trade_date = (?)", s.db.Model(&models.FuturesPosition{}).Select("MAX(trade_date)")).
		Order("product").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query latest position day: %w", err)
	}
	return out, nil
}

func (s *Store) LatestRatios(ctx context.Context, limit int) ([]models.PCRatio, error) {
	var out []models.PCRatio
	err := s.db.WithContext(ctx).Order("trade_date DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query latest ratios: %w", err)
	}
	return out, nil
}

func (s *Store) LatestRawPage(ctx context.Context, source string) (*models.RawPage, error) {
	var page models.RawPage
	err := s.db.WithContext(ctx).
		Where("source = ?", source).
		Order("fetched_at DESC").
		First(&page).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query raw page: %w", err)
	}
	return &page, nil
}

// Purge deletes a source's records for one trade date, raw archive included.
func (s *Store) Purge(ctx context.Context, source string, date time.Time) (int64, error) {
	var target interface{}
	switch source {
	case models.SourceFutures:
		target = &models.FuturesPosition{}
	case models.SourcePCRatio:
		target = &models.PCRatio{}
	default:
		return 0, fmt.Errorf("unknown source %q", source)
	}

	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("trade_date = ?", date).Delete(target)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected

		return tx.Where("source = ? AND trade_date = ?", source, date).Delete(&models.RawPage{}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("purge %s %s: %w", source, date.Format("2006-01-02"), err)
	}
	return deleted, nil
}
