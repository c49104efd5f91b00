package model

import "time"

// JournalEntry is a calendar record attached to a crop. The engine creates
// automated entries when a violation is detected; manual entries belong to
// the user and are never touched by the engine.
type JournalEntry struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	CropID    string    `gorm:"index;not null" json:"crop_id"`
	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`
	Automated bool      `gorm:"not null;default:false" json:"automated"`
}

// TableName specifies the table name for the JournalEntry model.
func (JournalEntry) TableName() string {
	return "journal_entries"
}
