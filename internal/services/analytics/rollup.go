package analytics

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hydragrow/pod-telemetry/internal/model"
)

// CropLister enumerates the crops the rollup covers: everything active plus
// crops deactivated since the day being rolled up began, so a harvest does
// not lose its final partial day.
type CropLister interface {
	ListForRollup(ctx context.Context, since time.Time) ([]model.Crop, error)
}

// BucketSummer aggregates bucket counts and sums over a time range.
type BucketSummer interface {
	SumForRange(ctx context.Context, sensorKey, cropID string, from, to time.Time) (int64, float64, error)
}

// AverageStore persists computed daily averages.
type AverageStore interface {
	Upsert(ctx context.Context, avg *model.DailyAverage) error
}

// Sink receives a copy of every computed average for time-series charting.
type Sink interface {
	WriteAverage(sensorKey, cropID string, day time.Time, average float64)
}

// rollupKeys are the continuous sensors worth averaging. Binary container
// levels have no meaningful mean.
var rollupKeys = []string{
	model.SensorHumidity,
	model.SensorAirTemperature,
	model.SensorConductivity,
	model.SensorPHLevel,
}

// Rollup computes per-day averages from bucket sums: for each active crop
// and sensor key, average = sum_values / measurement_count over the buckets
// that started within the day.
type Rollup struct {
	crops   CropLister
	buckets BucketSummer
	store   AverageStore
	sink    Sink
	logger  *slog.Logger
	clock   clockwork.Clock
}

func NewRollup(crops CropLister, buckets BucketSummer, store AverageStore, sink Sink, logger *slog.Logger, clock clockwork.Clock) *Rollup {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Rollup{
		crops:   crops,
		buckets: buckets,
		store:   store,
		sink:    sink,
		logger:  logger,
		clock:   clock,
	}
}

// RunOnce rolls up the UTC day containing the given instant. Re-running the
// same day overwrites prior rows, so catching up after downtime is safe.
func (r *Rollup) RunOnce(ctx context.Context, at time.Time) error {
	dayStart := at.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	crops, err := r.crops.ListForRollup(ctx, dayStart)
	if err != nil {
		return err
	}

	var errs []error
	written := 0
	for _, crop := range crops {
		for _, key := range rollupKeys {
			count, sum, err := r.buckets.SumForRange(ctx, key, crop.ID, dayStart, dayEnd)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if count == 0 {
				continue
			}

			avg := &model.DailyAverage{
				SensorKey: key,
				CropID:    crop.ID,
				Date:      dayStart,
				Average:   sum / float64(count),
			}
			if err := r.store.Upsert(ctx, avg); err != nil {
				errs = append(errs, err)
				continue
			}
			if r.sink != nil {
				r.sink.WriteAverage(key, crop.ID, dayStart, avg.Average)
			}
			written++
		}
	}

	r.logger.Info("daily rollup complete",
		"day", dayStart.Format(time.DateOnly), "crops", len(crops), "rows", written, "failed", len(errs))
	return errors.Join(errs...)
}

// Start runs the rollup for the previous day shortly after each midnight
// UTC, blocking until ctx is cancelled.
func (r *Rollup) Start(ctx context.Context) {
	for {
		now := r.clock.Now().UTC()
		next := now.Truncate(24 * time.Hour).Add(24*time.Hour + 5*time.Minute)

		select {
		case <-ctx.Done():
			return
		case <-r.clock.After(next.Sub(now)):
		}

		day := r.clock.Now().UTC().Add(-24 * time.Hour)
		if err := r.RunOnce(ctx, day); err != nil {
			r.logger.Error("daily rollup finished with errors", "error", err)
		}
	}
}
