package model

import "time"

// BucketCapacity is the hard ceiling of samples per bucket. Once a bucket
// reaches it the bucket is sealed and a fresh one is opened.
const BucketCapacity = 30

// Measurement is one raw {timestamp, value} sample inside a bucket.
type Measurement struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// SensorBucket accumulates raw readings for one (sensor key, crop) pair.
// It is append-only while open and immutable once sealed. The running
// count/sum pair is what the analytics rollup consumes; averages are never
// computed here.
type SensorBucket struct {
	ID               string        `gorm:"primaryKey;size:36" json:"id"`
	SensorKey        string        `gorm:"index:idx_buckets_key_crop;not null" json:"sensor"`
	CropID           string        `gorm:"index:idx_buckets_key_crop;not null" json:"crop"`
	Start            time.Time     `gorm:"index;not null" json:"start"`
	End              time.Time     `gorm:"not null" json:"end"`
	Measurements     []Measurement `gorm:"serializer:json" json:"measurements"`
	MeasurementCount int           `gorm:"not null;default:0" json:"measurement_count"`
	SumValues        float64       `gorm:"not null;default:0" json:"sum_values"`
}

// TableName specifies the table name for the SensorBucket model.
func (SensorBucket) TableName() string {
	return "sensor_buckets"
}

// Open reports whether the bucket still accepts samples.
func (b *SensorBucket) Open() bool {
	return b.MeasurementCount < BucketCapacity
}
