package model

import "time"

// PushSubscription is a stored web-push subscription for an admin's browser.
type PushSubscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Endpoint  string    `gorm:"uniqueIndex;not null" json:"endpoint"`
	P256dh    string    `gorm:"not null" json:"p256dh"`
	Auth      string    `gorm:"not null" json:"auth"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the PushSubscription model.
func (PushSubscription) TableName() string {
	return "push_subscriptions"
}

// NotificationLog records a delivered violation notification so the UI can
// show recent alerts. Rows older than a week are swept.
type NotificationLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Message   string    `gorm:"not null" json:"message"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName specifies the table name for the NotificationLog model.
func (NotificationLog) TableName() string {
	return "notifications"
}
