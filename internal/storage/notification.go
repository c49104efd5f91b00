package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hydragrow/pod-telemetry/internal/model"
)

// SubscriptionStore persists web-push subscriptions and the notification
// delivery log.
type SubscriptionStore struct {
	db *gorm.DB
}

func NewSubscriptionStore(db *gorm.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// Save upserts a push subscription keyed by endpoint.
func (s *SubscriptionStore) Save(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).
		Create(sub).Error
	if err != nil {
		return fmt.Errorf("save push subscription: %w", err)
	}
	return nil
}

// List returns every stored subscription.
func (s *SubscriptionStore) List(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	return subs, nil
}

// Log appends a row to the notification delivery log.
func (s *SubscriptionStore) Log(ctx context.Context, message string) error {
	entry := model.NotificationLog{Message: message}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("log notification: %w", err)
	}
	return nil
}

// SweepLogOlderThan deletes log rows created before the cutoff.
func (s *SubscriptionStore) SweepLogOlderThan(ctx context.Context, cutoff time.Time) error {
	err := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.NotificationLog{}).Error
	if err != nil {
		return fmt.Errorf("sweep notification log: %w", err)
	}
	return nil
}
