// Package seeder generates plausible development data: crops with
// thresholds, historical measurement buckets and threshold presets.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"gorm.io/gorm"

	"github.com/hydragrow/pod-telemetry/internal/model"
	"github.com/hydragrow/pod-telemetry/internal/storage"
)

// cropNames are typical hydroponic plantings to pick from.
var cropNames = []string{
	"Butterhead Lettuce", "Genovese Basil", "Cherry Tomato", "Curly Kale",
	"Rainbow Chard", "Thai Chili", "Arugula", "Spearmint",
}

// defaultRanges are sane threshold bands used as a base; each seeded crop
// jitters them slightly.
var defaultRanges = model.ThresholdValues{
	model.SensorHumidity:       {Min: 50, Max: 70},
	model.SensorAirTemperature: {Min: 18, Max: 26},
	model.SensorConductivity:   {Min: 1.2, Max: 2.2},
	model.SensorPHLevel:        {Min: 5.5, Max: 6.5},
}

// Seeder writes fake data through the regular stores so seeded rows look
// exactly like ingested ones.
type Seeder struct {
	crops   *storage.CropStore
	buckets *storage.BucketStore
	presets *storage.PresetStore
	catalog *storage.SensorCatalog
	faker   *gofakeit.Faker
	logger  *slog.Logger
}

func New(db *gorm.DB, logger *slog.Logger) *Seeder {
	return &Seeder{
		crops:   storage.NewCropStore(db),
		buckets: storage.NewBucketStore(db),
		presets: storage.NewPresetStore(db),
		catalog: storage.NewSensorCatalog(db),
		faker:   gofakeit.New(0),
		logger:  logger,
	}
}

// Crops creates count active crops on numbered pods, each with jittered
// thresholds and a fresh latest reading per sensor.
func (s *Seeder) Crops(ctx context.Context, count int) error {
	if err := s.catalog.SeedAll(ctx); err != nil {
		return err
	}

	now := time.Now().UTC()
	for i := 0; i < count; i++ {
		podName := fmt.Sprintf("pod-%02d", i+1)

		existing, err := s.crops.FindActiveByPod(ctx, podName)
		if err != nil {
			return err
		}
		if existing != nil {
			s.logger.Info("pod already occupied, skipping", "pod", podName)
			continue
		}

		crop := &model.Crop{
			PodName:         podName,
			CropName:        s.faker.RandomString(cropNames),
			Active:          true,
			Healthy:         true,
			ThresholdValues: s.jitteredThresholds(),
		}
		s.seedLatest(crop, now)
		if err := s.crops.Create(ctx, crop); err != nil {
			return err
		}
		if err := s.catalog.LinkPod(ctx, podName, now); err != nil {
			return err
		}
		s.logger.Info("crop seeded", "pod", podName, "crop", crop.CropName)
	}
	return nil
}

// SensorData backfills days of sealed measurement buckets for every active
// crop, readings spaced evenly through each day.
func (s *Seeder) SensorData(ctx context.Context, days int) error {
	crops, err := s.crops.ListActive(ctx)
	if err != nil {
		return err
	}

	dayStart := time.Now().UTC().Truncate(24 * time.Hour).Add(-time.Duration(days) * 24 * time.Hour)
	for _, crop := range crops {
		for d := 0; d < days; d++ {
			day := dayStart.Add(time.Duration(d) * 24 * time.Hour)
			for key, r := range crop.ThresholdValues {
				if err := s.seedBucket(ctx, key, crop.ID, day, r); err != nil {
					return err
				}
			}
		}
		s.logger.Info("sensor history seeded", "pod", crop.PodName, "days", days)
	}
	return nil
}

// Presets stores a few named threshold presets.
func (s *Seeder) Presets(ctx context.Context) error {
	presets := map[string]model.ThresholdValues{
		"Leafy Greens": {
			model.SensorHumidity:       {Min: 50, Max: 70},
			model.SensorAirTemperature: {Min: 16, Max: 24},
			model.SensorConductivity:   {Min: 0.8, Max: 1.6},
			model.SensorPHLevel:        {Min: 5.5, Max: 6.5},
		},
		"Fruiting Vegetables": {
			model.SensorHumidity:       {Min: 55, Max: 75},
			model.SensorAirTemperature: {Min: 20, Max: 28},
			model.SensorConductivity:   {Min: 2.0, Max: 3.5},
			model.SensorPHLevel:        {Min: 5.8, Max: 6.3},
		},
		"Herbs": {
			model.SensorHumidity:       {Min: 45, Max: 65},
			model.SensorAirTemperature: {Min: 18, Max: 26},
			model.SensorConductivity:   {Min: 1.0, Max: 1.8},
			model.SensorPHLevel:        {Min: 5.5, Max: 6.5},
		},
	}
	for name, tv := range presets {
		if err := s.presets.CreateIfAbsent(ctx, name, tv); err != nil {
			return err
		}
		s.logger.Info("preset seeded", "preset", name)
	}
	return nil
}

// jitteredThresholds shifts each default band a little so crops differ.
func (s *Seeder) jitteredThresholds() model.ThresholdValues {
	tv := make(model.ThresholdValues, len(defaultRanges))
	for key, r := range defaultRanges {
		shift := s.faker.Float64Range(-0.05, 0.05) * (r.Max - r.Min)
		tv[key] = model.ThresholdRange{Min: r.Min + shift, Max: r.Max + shift}
	}
	return tv
}

// seedLatest gives every sensor key a current in-range reading.
func (s *Seeder) seedLatest(crop *model.Crop, at time.Time) {
	for key, r := range crop.ThresholdValues {
		crop.SetLatest(key, model.LatestReading{
			Timestamp: at,
			Value:     s.faker.Float64Range(r.Min, r.Max),
			Trend:     model.TrendFlat,
			Normal:    true,
		})
	}
	for _, key := range model.AllSensorKeys() {
		if !model.IsBinaryLevel(key) {
			continue
		}
		crop.SetLatest(key, model.LatestReading{
			Timestamp: at,
			Value:     model.LevelPresent,
			Trend:     model.TrendFlat,
			Normal:    true,
		})
	}
}

// seedBucket writes one full bucket of in-range readings spread across day.
func (s *Seeder) seedBucket(ctx context.Context, key, cropID string, day time.Time, r model.ThresholdRange) error {
	step := 24 * time.Hour / model.BucketCapacity
	bucket := &model.SensorBucket{
		SensorKey: key,
		CropID:    cropID,
		Start:     day,
	}
	for i := 0; i < model.BucketCapacity; i++ {
		at := day.Add(time.Duration(i) * step)
		value := s.faker.Float64Range(r.Min, r.Max)
		bucket.Measurements = append(bucket.Measurements, model.Measurement{Timestamp: at, Value: value})
		bucket.MeasurementCount++
		bucket.SumValues += value
		bucket.End = at
	}
	return s.buckets.Create(ctx, bucket)
}
