package monitor

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydragrow/pod-telemetry/internal/model"
)

// memBucketStore is an in-memory BucketStore; it mimics the real store's
// "open bucket = count below capacity" query.
type memBucketStore struct {
	mu      sync.Mutex
	buckets map[string][]*model.SensorBucket
}

func newMemBucketStore() *memBucketStore {
	return &memBucketStore{buckets: make(map[string][]*model.SensorBucket)}
}

func (s *memBucketStore) FindOpen(_ context.Context, sensorKey, cropID string) (*model.SensorBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.buckets[sensorKey+"|"+cropID]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].MeasurementCount < model.BucketCapacity {
			clone := *list[i]
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *memBucketStore) Create(_ context.Context, bucket *model.SensorBucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bucket.ID == "" {
		bucket.ID = uuid.NewString()
	}
	clone := *bucket
	key := bucket.SensorKey + "|" + bucket.CropID
	s.buckets[key] = append(s.buckets[key], &clone)
	return nil
}

func (s *memBucketStore) Save(_ context.Context, bucket *model.SensorBucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.buckets[bucket.SensorKey+"|"+bucket.CropID]
	for i, b := range list {
		if b.ID == bucket.ID {
			clone := *bucket
			list[i] = &clone
			return nil
		}
	}
	return fmt.Errorf("bucket %s not found", bucket.ID)
}

func (s *memBucketStore) all(sensorKey, cropID string) []*model.SensorBucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buckets[sensorKey+"|"+cropID]
}

func TestAggregatorOpensAndExtendsBucket(t *testing.T) {
	store := newMemBucketStore()
	agg := NewAggregator(store, clockwork.NewFakeClock())
	ctx := context.Background()

	first, err := agg.Append(ctx, model.SensorHumidity, "crop-1", 60)
	require.NoError(t, err)
	assert.Equal(t, 1, first.MeasurementCount)
	assert.Equal(t, 60.0, first.SumValues)

	second, err := agg.Append(ctx, model.SensorHumidity, "crop-1", 62)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.MeasurementCount)
	assert.Equal(t, 122.0, second.SumValues)
	assert.Len(t, second.Measurements, 2)
}

func TestAggregatorSealsAtCapacity(t *testing.T) {
	store := newMemBucketStore()
	agg := NewAggregator(store, clockwork.NewFakeClock())
	ctx := context.Background()

	// One more reading than fits in a single bucket.
	for i := 0; i < model.BucketCapacity+1; i++ {
		_, err := agg.Append(ctx, model.SensorPHLevel, "crop-1", 6.0)
		require.NoError(t, err)
	}

	buckets := store.all(model.SensorPHLevel, "crop-1")
	require.Len(t, buckets, 2)
	assert.Equal(t, model.BucketCapacity, buckets[0].MeasurementCount)
	assert.Equal(t, 1, buckets[1].MeasurementCount)
}

func TestAggregatorPairsAreIndependent(t *testing.T) {
	store := newMemBucketStore()
	agg := NewAggregator(store, clockwork.NewFakeClock())
	ctx := context.Background()

	_, err := agg.Append(ctx, model.SensorHumidity, "crop-1", 60)
	require.NoError(t, err)
	_, err = agg.Append(ctx, model.SensorHumidity, "crop-2", 55)
	require.NoError(t, err)
	_, err = agg.Append(ctx, model.SensorPHLevel, "crop-1", 6.0)
	require.NoError(t, err)

	assert.Len(t, store.all(model.SensorHumidity, "crop-1"), 1)
	assert.Len(t, store.all(model.SensorHumidity, "crop-2"), 1)
	assert.Len(t, store.all(model.SensorPHLevel, "crop-1"), 1)
}

func TestAggregatorDropsIdleLocks(t *testing.T) {
	store := newMemBucketStore()
	agg := NewAggregator(store, clockwork.NewFakeClock())
	ctx := context.Background()

	for _, cropID := range []string{"crop-1", "crop-2", "crop-3"} {
		for i := 0; i < 5; i++ {
			_, err := agg.Append(ctx, model.SensorHumidity, cropID, 60)
			require.NoError(t, err)
		}
	}

	// With no appends in flight the lock map is empty, so a harvested
	// crop's pairs leave nothing behind.
	agg.mu.Lock()
	n := len(agg.locks)
	agg.mu.Unlock()
	assert.Zero(t, n)
}

func TestAggregatorConcurrentAppendsNeverOverfill(t *testing.T) {
	store := newMemBucketStore()
	agg := NewAggregator(store, clockwork.NewFakeClock())
	ctx := context.Background()

	const total = model.BucketCapacity*3 + 7

	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := agg.Append(ctx, model.SensorConductivity, "crop-1", 1.5)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	buckets := store.all(model.SensorConductivity, "crop-1")
	open := 0
	samples := 0
	for _, b := range buckets {
		assert.LessOrEqual(t, b.MeasurementCount, model.BucketCapacity)
		assert.Len(t, b.Measurements, b.MeasurementCount)
		samples += b.MeasurementCount
		if b.MeasurementCount < model.BucketCapacity {
			open++
		}
	}
	assert.Equal(t, total, samples)
	assert.LessOrEqual(t, open, 1, "at most one open bucket per pair")
}
