package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hydragrow/pod-telemetry/internal/model"
)

// JournalStore writes journal entries. The engine only ever creates
// automated entries; manual entries are owned by the admin UI.
type JournalStore struct {
	db *gorm.DB
}

func NewJournalStore(db *gorm.DB) *JournalStore {
	return &JournalStore{db: db}
}

// CreateAutomated records a system-generated entry marking a detected
// violation window.
func (s *JournalStore) CreateAutomated(ctx context.Context, title string, start, end time.Time, cropID string) error {
	entry := model.JournalEntry{
		ID:        uuid.NewString(),
		Title:     title,
		CropID:    cropID,
		StartDate: start,
		EndDate:   end,
		Automated: true,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("create automated journal entry: %w", err)
	}
	return nil
}

// ListByCrop returns the entries attached to a crop, oldest first.
func (s *JournalStore) ListByCrop(ctx context.Context, cropID string) ([]model.JournalEntry, error) {
	var entries []model.JournalEntry
	err := s.db.WithContext(ctx).
		Where("crop_id = ?", cropID).
		Order("start_date ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list journal entries for %s: %w", cropID, err)
	}
	return entries, nil
}
