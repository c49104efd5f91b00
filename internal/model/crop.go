package model

import "time"

// ViolationKind classifies a reading against the crop's acceptable ranges.
type ViolationKind string

const (
	ViolationNone     ViolationKind = ""
	ViolationMin      ViolationKind = "min"
	ViolationMax      ViolationKind = "max"
	ViolationCritical ViolationKind = "critical"
)

// Trend direction of a reading relative to the previous one.
const (
	TrendDown = -1
	TrendFlat = 0
	TrendUp   = 1
)

// ThresholdRange is the acceptable [Min, Max] band for a thresholded sensor.
type ThresholdRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ThresholdValues maps a sensor key to its configured range.
type ThresholdValues map[string]ThresholdRange

// LatestReading is the last ingested state for one sensor key of a crop.
type LatestReading struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Trend     int       `json:"trend"` // -1 decreasing, 0 flat/first, 1 increasing
	Normal    bool      `json:"normal"`
}

// LatestData maps a sensor key to its most recent reading. An entry exists
// only after at least one reading has been ingested for that key.
type LatestData map[string]LatestReading

// Crop is one planting cycle running on a pod. At most one crop is active
// per pod at a time; lookups always filter on active=true scoped by pod.
type Crop struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	PodName         string          `gorm:"index:idx_crops_pod_active;not null" json:"pod_name"`
	CropName        string          `gorm:"not null" json:"crop_name"`
	Active          bool            `gorm:"index:idx_crops_pod_active;not null" json:"active"`
	Healthy         bool            `gorm:"not null;default:true" json:"healthy"`
	InitializePumps bool            `gorm:"not null" json:"initialize_pumps"`
	ThresholdValues ThresholdValues `gorm:"serializer:json" json:"threshold_values"`
	LatestData      LatestData      `gorm:"serializer:json" json:"latest_data"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Crop model.
func (Crop) TableName() string {
	return "crops"
}

// Threshold returns the configured range for key, if any.
func (c *Crop) Threshold(key string) (ThresholdRange, bool) {
	r, ok := c.ThresholdValues[key]
	return r, ok
}

// Latest returns the prior reading for key, if one has been ingested.
func (c *Crop) Latest(key string) (LatestReading, bool) {
	if c.LatestData == nil {
		return LatestReading{}, false
	}
	r, ok := c.LatestData[key]
	return r, ok
}

// SetLatest records the newest reading for key.
func (c *Crop) SetLatest(key string, r LatestReading) {
	if c.LatestData == nil {
		c.LatestData = make(LatestData)
	}
	c.LatestData[key] = r
}
