package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hydragrow/pod-telemetry/internal/model"
)

// AnalyticsStore persists daily average rows produced by the rollup.
type AnalyticsStore struct {
	db *gorm.DB
}

func NewAnalyticsStore(db *gorm.DB) *AnalyticsStore {
	return &AnalyticsStore{db: db}
}

// Upsert writes the average for (sensor, crop, date), replacing a prior row
// so a re-run rollup stays idempotent.
func (s *AnalyticsStore) Upsert(ctx context.Context, avg *model.DailyAverage) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sensor_key"}, {Name: "crop_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"average"}),
		}).
		Create(avg).Error
	if err != nil {
		return fmt.Errorf("upsert daily average %s/%s: %w", avg.SensorKey, avg.CropID, err)
	}
	return nil
}

// ListByCrop returns the rollup rows for a crop ordered by date.
func (s *AnalyticsStore) ListByCrop(ctx context.Context, cropID string) ([]model.DailyAverage, error) {
	var rows []model.DailyAverage
	err := s.db.WithContext(ctx).
		Where("crop_id = ?", cropID).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list daily averages for %s: %w", cropID, err)
	}
	return rows, nil
}
