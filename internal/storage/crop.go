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

// CropStore reads and writes crop documents.
type CropStore struct {
	db *gorm.DB
}

func NewCropStore(db *gorm.DB) *CropStore {
	return &CropStore{db: db}
}

// FindActiveByPod returns the crop currently active on podName, or nil when
// the pod is vacant. Filtering on active=true avoids matching past crops
// that ran on the same pod.
func (s *CropStore) FindActiveByPod(ctx context.Context, podName string) (*model.Crop, error) {
	var crop model.Crop
	err := s.db.WithContext(ctx).
		Where("pod_name = ? AND active = ?", podName, true).
		First(&crop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active crop for %s: %w", podName, err)
	}
	return &crop, nil
}

// ListActive returns every active crop, used to re-establish subscriptions
// on startup.
func (s *CropStore) ListActive(ctx context.Context) ([]model.Crop, error) {
	var crops []model.Crop
	if err := s.db.WithContext(ctx).Where("active = ?", true).Find(&crops).Error; err != nil {
		return nil, fmt.Errorf("list active crops: %w", err)
	}
	return crops, nil
}

// ListForRollup returns active crops plus crops deactivated at or after
// since. A crop harvested mid-day still has samples from that morning, so
// the day it ended must be rolled up once more.
func (s *CropStore) ListForRollup(ctx context.Context, since time.Time) ([]model.Crop, error) {
	var crops []model.Crop
	err := s.db.WithContext(ctx).
		Where("active = ? OR updated_at >= ?", true, since).
		Find(&crops).Error
	if err != nil {
		return nil, fmt.Errorf("list crops for rollup: %w", err)
	}
	return crops, nil
}

// Create inserts a new crop, assigning an id when none is set.
func (s *CropStore) Create(ctx context.Context, crop *model.Crop) error {
	if crop.ID == "" {
		crop.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(crop).Error; err != nil {
		return fmt.Errorf("create crop: %w", err)
	}
	return nil
}

// Save persists the full crop document. Last write wins; concurrent
// ingestion for the same pod may overwrite an intermediate trend value,
// which is acceptable.
func (s *CropStore) Save(ctx context.Context, crop *model.Crop) error {
	if err := s.db.WithContext(ctx).Save(crop).Error; err != nil {
		return fmt.Errorf("save crop %s: %w", crop.ID, err)
	}
	return nil
}
