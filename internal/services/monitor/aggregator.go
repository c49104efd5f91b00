package monitor

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/hydragrow/pod-telemetry/internal/model"
)

// BucketStore is the persistence surface the aggregator needs.
type BucketStore interface {
	// FindOpen returns the open bucket for the pair, or nil when none exists.
	FindOpen(ctx context.Context, sensorKey, cropID string) (*model.SensorBucket, error)
	Create(ctx context.Context, bucket *model.SensorBucket) error
	Save(ctx context.Context, bucket *model.SensorBucket) error
}

// Aggregator appends raw readings to measurement buckets. Appends for the
// same (sensorKey, cropID) pair are serialized through a keyed mutex so two
// concurrent messages can never both decide "the bucket is still open" and
// race a 31st sample in, or open two buckets at once.
type Aggregator struct {
	store BucketStore
	clock clockwork.Clock

	mu    sync.Mutex
	locks map[string]*pairLock
}

// pairLock is refcounted: the map entry exists only while appends for the
// pair are in flight, so harvested crops leave nothing behind.
type pairLock struct {
	mu   sync.Mutex
	refs int
}

func NewAggregator(store BucketStore, clock clockwork.Clock) *Aggregator {
	return &Aggregator{
		store: store,
		clock: clock,
		locks: make(map[string]*pairLock),
	}
}

// Append records value for (sensorKey, cropID): it extends the open bucket,
// or opens a fresh one when there is none (first reading ever, or the prior
// bucket just sealed). Returns the bucket as persisted.
func (a *Aggregator) Append(ctx context.Context, sensorKey, cropID string, value float64) (*model.SensorBucket, error) {
	key := sensorKey + "|" + cropID
	lock := a.acquire(key)
	defer a.release(key, lock)

	now := a.clock.Now().UTC()
	sample := model.Measurement{Timestamp: now, Value: value}

	bucket, err := a.store.FindOpen(ctx, sensorKey, cropID)
	if err != nil {
		return nil, err
	}

	if bucket == nil {
		bucket = &model.SensorBucket{
			SensorKey:        sensorKey,
			CropID:           cropID,
			Start:            now,
			End:              now,
			Measurements:     []model.Measurement{sample},
			MeasurementCount: 1,
			SumValues:        value,
		}
		if err := a.store.Create(ctx, bucket); err != nil {
			return nil, err
		}
		return bucket, nil
	}

	bucket.Measurements = append(bucket.Measurements, sample)
	bucket.MeasurementCount++
	bucket.SumValues += value
	bucket.End = now
	if err := a.store.Save(ctx, bucket); err != nil {
		return nil, err
	}
	return bucket, nil
}

func (a *Aggregator) acquire(key string) *pairLock {
	a.mu.Lock()
	lock, ok := a.locks[key]
	if !ok {
		lock = &pairLock{}
		a.locks[key] = lock
	}
	lock.refs++
	a.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (a *Aggregator) release(key string, lock *pairLock) {
	lock.mu.Unlock()

	a.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(a.locks, key)
	}
	a.mu.Unlock()
}
