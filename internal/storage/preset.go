package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hydragrow/pod-telemetry/internal/model"
)

// PresetStore persists named threshold presets.
type PresetStore struct {
	db *gorm.DB
}

func NewPresetStore(db *gorm.DB) *PresetStore {
	return &PresetStore{db: db}
}

// CreateIfAbsent stores thresholds under name unless a preset with that name
// already exists.
func (s *PresetStore) CreateIfAbsent(ctx context.Context, name string, thresholds model.ThresholdValues) error {
	var existing model.Preset
	err := s.db.WithContext(ctx).Where("preset_name = ?", name).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup preset %s: %w", name, err)
	}

	preset := model.Preset{
		SchemaVersion:   1,
		UserDefined:     true,
		PresetName:      name,
		ThresholdValues: thresholds,
	}
	if err := s.db.WithContext(ctx).Create(&preset).Error; err != nil {
		return fmt.Errorf("create preset %s: %w", name, err)
	}
	return nil
}
