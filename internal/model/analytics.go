package model

import "time"

// DailyAverage is one rolled-up data point: the mean of every sample a crop
// collected for one sensor key on one day, derived from bucket sum/count.
type DailyAverage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SensorKey string    `gorm:"uniqueIndex:idx_analytics_crop_day;not null" json:"sensor"`
	CropID    string    `gorm:"uniqueIndex:idx_analytics_crop_day;not null" json:"crop_id"`
	Date      time.Time `gorm:"uniqueIndex:idx_analytics_crop_day;not null" json:"date"`
	Average   float64   `gorm:"not null" json:"average"`
}

// TableName specifies the table name for the DailyAverage model.
func (DailyAverage) TableName() string {
	return "analytics"
}
