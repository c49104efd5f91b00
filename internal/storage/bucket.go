package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hydragrow/pod-telemetry/internal/model"
)

// BucketStore reads and writes measurement buckets.
type BucketStore struct {
	db *gorm.DB
}

func NewBucketStore(db *gorm.DB) *BucketStore {
	return &BucketStore{db: db}
}

// FindOpen returns the open bucket for (sensorKey, cropID), or nil when the
// latest bucket is sealed or none exists yet.
func (s *BucketStore) FindOpen(ctx context.Context, sensorKey, cropID string) (*model.SensorBucket, error) {
	var bucket model.SensorBucket
	err := s.db.WithContext(ctx).
		Where("sensor_key = ? AND crop_id = ? AND measurement_count < ?", sensorKey, cropID, model.BucketCapacity).
		Order("start DESC").
		First(&bucket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open bucket %s/%s: %w", sensorKey, cropID, err)
	}
	return &bucket, nil
}

// Create inserts a fresh bucket, assigning an id when none is set.
func (s *BucketStore) Create(ctx context.Context, bucket *model.SensorBucket) error {
	if bucket.ID == "" {
		bucket.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(bucket).Error; err != nil {
		return fmt.Errorf("create bucket %s/%s: %w", bucket.SensorKey, bucket.CropID, err)
	}
	return nil
}

// Save persists an updated bucket.
func (s *BucketStore) Save(ctx context.Context, bucket *model.SensorBucket) error {
	if err := s.db.WithContext(ctx).Save(bucket).Error; err != nil {
		return fmt.Errorf("save bucket %s: %w", bucket.ID, err)
	}
	return nil
}

// SumForRange aggregates measurement_count and sum_values over every bucket
// of (sensorKey, cropID) whose start falls within [from, to). Sealed and
// open buckets count alike.
func (s *BucketStore) SumForRange(ctx context.Context, sensorKey, cropID string, from, to time.Time) (int64, float64, error) {
	var row struct {
		Count int64
		Sum   float64
	}
	err := s.db.WithContext(ctx).
		Model(&model.SensorBucket{}).
		Select("COALESCE(SUM(measurement_count), 0) AS count, COALESCE(SUM(sum_values), 0) AS sum").
		Where("sensor_key = ? AND crop_id = ? AND start >= ? AND start < ?", sensorKey, cropID, from, to).
		Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("sum buckets %s/%s: %w", sensorKey, cropID, err)
	}
	return row.Count, row.Sum, nil
}
