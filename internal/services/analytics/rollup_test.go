package analytics

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydragrow/pod-telemetry/internal/model"
	"github.com/hydragrow/pod-telemetry/pkg/logger"
)

// fakeCrops mimics the store's rollup query: active crops plus crops
// deactivated at or after the cutoff.
type fakeCrops struct {
	active    []model.Crop
	harvested []model.Crop // inactive, UpdatedAt marks when they ended
	err       error
}

func (f *fakeCrops) ListForRollup(_ context.Context, since time.Time) ([]model.Crop, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := append([]model.Crop(nil), f.active...)
	for _, c := range f.harvested {
		if !c.UpdatedAt.Before(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

type sumKey struct {
	sensor string
	crop   string
}

type fakeBuckets struct {
	sums map[sumKey]struct {
		count int64
		sum   float64
	}
}

func (f *fakeBuckets) SumForRange(_ context.Context, sensorKey, cropID string, _, _ time.Time) (int64, float64, error) {
	s := f.sums[sumKey{sensor: sensorKey, crop: cropID}]
	return s.count, s.sum, nil
}

type fakeAverages struct {
	rows []model.DailyAverage
}

func (f *fakeAverages) Upsert(_ context.Context, avg *model.DailyAverage) error {
	f.rows = append(f.rows, *avg)
	return nil
}

type sinkPoint struct {
	sensor  string
	crop    string
	day     time.Time
	average float64
}

type fakeSink struct {
	points []sinkPoint
}

func (f *fakeSink) WriteAverage(sensorKey, cropID string, day time.Time, average float64) {
	f.points = append(f.points, sinkPoint{sensor: sensorKey, crop: cropID, day: day, average: average})
}

func TestRunOnceComputesAverages(t *testing.T) {
	crops := &fakeCrops{active: []model.Crop{{ID: "crop-1", PodName: "pod-1", Active: true}}}
	buckets := &fakeBuckets{sums: map[sumKey]struct {
		count int64
		sum   float64
	}{
		{sensor: model.SensorHumidity, crop: "crop-1"}:     {count: 60, sum: 3660},
		{sensor: model.SensorConductivity, crop: "crop-1"}: {count: 30, sum: 54},
	}}
	store := &fakeAverages{}
	sink := &fakeSink{}

	r := NewRollup(crops, buckets, store, sink, logger.New(io.Discard, logger.ParseLevel("error")), clockwork.NewFakeClock())

	at := time.Date(2026, 8, 28, 13, 45, 0, 0, time.UTC)
	require.NoError(t, r.RunOnce(context.Background(), at))

	// Keys with no samples are skipped, so two rows come out.
	require.Len(t, store.rows, 2)
	byKey := map[string]model.DailyAverage{}
	for _, row := range store.rows {
		byKey[row.SensorKey] = row
	}

	humidity := byKey[model.SensorHumidity]
	assert.Equal(t, 61.0, humidity.Average)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), humidity.Date)
	assert.Equal(t, "crop-1", humidity.CropID)

	assert.InDelta(t, 1.8, byKey[model.SensorConductivity].Average, 1e-9)

	require.Len(t, sink.points, 2)
}

func TestRunOnceIncludesCropsHarvestedThatDay(t *testing.T) {
	at := time.Date(2026, 8, 28, 13, 45, 0, 0, time.UTC)
	dayStart := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	crops := &fakeCrops{
		harvested: []model.Crop{
			// Harvested mid-day: its morning samples still count.
			{ID: "crop-1", PodName: "pod-1", UpdatedAt: dayStart.Add(9 * time.Hour)},
			// Harvested the day before: already rolled up, skip it.
			{ID: "crop-2", PodName: "pod-2", UpdatedAt: dayStart.Add(-2 * time.Hour)},
		},
	}
	buckets := &fakeBuckets{sums: map[sumKey]struct {
		count int64
		sum   float64
	}{
		{sensor: model.SensorHumidity, crop: "crop-1"}: {count: 10, sum: 550},
		{sensor: model.SensorHumidity, crop: "crop-2"}: {count: 10, sum: 700},
	}}
	store := &fakeAverages{}

	r := NewRollup(crops, buckets, store, nil, logger.New(io.Discard, logger.ParseLevel("error")), clockwork.NewFakeClock())
	require.NoError(t, r.RunOnce(context.Background(), at))

	require.Len(t, store.rows, 1)
	assert.Equal(t, "crop-1", store.rows[0].CropID)
	assert.Equal(t, 55.0, store.rows[0].Average)
}

func TestRunOnceNoSamplesWritesNothing(t *testing.T) {
	crops := &fakeCrops{active: []model.Crop{{ID: "crop-1", Active: true}}}
	buckets := &fakeBuckets{sums: map[sumKey]struct {
		count int64
		sum   float64
	}{}}
	store := &fakeAverages{}

	r := NewRollup(crops, buckets, store, nil, logger.New(io.Discard, logger.ParseLevel("error")), clockwork.NewFakeClock())
	require.NoError(t, r.RunOnce(context.Background(), time.Now()))

	assert.Empty(t, store.rows)
}

func TestRunOncePropagatesListError(t *testing.T) {
	crops := &fakeCrops{err: errors.New("db down")}
	r := NewRollup(crops, &fakeBuckets{}, &fakeAverages{}, nil, logger.New(io.Discard, logger.ParseLevel("error")), clockwork.NewFakeClock())

	assert.Error(t, r.RunOnce(context.Background(), time.Now()))
}
