package monitor

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydragrow/pod-telemetry/internal/model"
)

type memLifecycleStore struct {
	mu    sync.Mutex
	crops map[string]*model.Crop // by pod name, active only
}

func newMemLifecycleStore() *memLifecycleStore {
	return &memLifecycleStore{crops: make(map[string]*model.Crop)}
}

func (s *memLifecycleStore) FindActiveByPod(_ context.Context, podName string) (*model.Crop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	crop, ok := s.crops[podName]
	if !ok || !crop.Active {
		return nil, nil
	}
	clone := *crop
	return &clone, nil
}

func (s *memLifecycleStore) Create(_ context.Context, crop *model.Crop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if crop.ID == "" {
		crop.ID = "crop-" + crop.PodName
	}
	clone := *crop
	s.crops[crop.PodName] = &clone
	return nil
}

func (s *memLifecycleStore) Save(_ context.Context, crop *model.Crop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *crop
	s.crops[crop.PodName] = &clone
	return nil
}

type fakePresets struct {
	saved map[string]model.ThresholdValues
}

func (p *fakePresets) CreateIfAbsent(_ context.Context, name string, tv model.ThresholdValues) error {
	if p.saved == nil {
		p.saved = make(map[string]model.ThresholdValues)
	}
	if _, ok := p.saved[name]; !ok {
		p.saved[name] = tv
	}
	return nil
}

type fakeCatalog struct {
	linked []string
}

func (c *fakeCatalog) LinkPod(_ context.Context, podName string, _ time.Time) error {
	c.linked = append(c.linked, podName)
	return nil
}

type lifecycleFixture struct {
	lc      *Lifecycle
	store   *memLifecycleStore
	client  *fakeClient
	subs    *SubscriptionManager
	presets *fakePresets
	catalog *fakeCatalog
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()

	store := newMemLifecycleStore()
	client := newFakeClient()
	subs := NewSubscriptionManager(client, func(string, []byte) {}, testLogger())
	presets := &fakePresets{}
	catalog := &fakeCatalog{}

	lc := NewLifecycle(store, presets, catalog, client, subs, testLogger(), clockwork.NewFakeClock())
	return &lifecycleFixture{lc: lc, store: store, client: client, subs: subs, presets: presets, catalog: catalog}
}

func validThresholds() model.ThresholdValues {
	return model.ThresholdValues{
		model.SensorHumidity:       {Min: 50, Max: 70},
		model.SensorAirTemperature: {Min: 18, Max: 26},
		model.SensorConductivity:   {Min: 1.2, Max: 2.2},
		model.SensorPHLevel:        {Min: 5.5, Max: 6.5},
	}
}

func TestStartCropProvisionsPod(t *testing.T) {
	f := newLifecycleFixture(t)

	crop, err := f.lc.StartCrop(context.Background(), StartCropRequest{
		PodName:         "pod-1",
		CropName:        "BASIL",
		Thresholds:      validThresholds(),
		InitializePumps: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Basil", crop.CropName, "all-caps names are normalized")
	assert.True(t, crop.Active)
	assert.True(t, f.subs.Subscribed("pod-1"))

	pubs := f.client.publishes()
	require.Len(t, pubs, 1)
	assert.Equal(t, "pod-1/commands/new_crop", pubs[0].topic)
	assert.True(t, pubs[0].retained)

	var cmd map[string]any
	require.NoError(t, json.Unmarshal(pubs[0].payload, &cmd))
	assert.Equal(t, "pod-1", cmd["pod_name"])
	assert.Equal(t, float64(1), cmd["init_pumps"])
	assert.Equal(t, []any{1.2, 2.2}, cmd["ec_reading"])
}

func TestStartCropKeepsMixedCaseName(t *testing.T) {
	f := newLifecycleFixture(t)

	crop, err := f.lc.StartCrop(context.Background(), StartCropRequest{
		PodName:    "pod-1",
		CropName:   "McIntosh Lettuce",
		Thresholds: validThresholds(),
	})
	require.NoError(t, err)
	assert.Equal(t, "McIntosh Lettuce", crop.CropName)
}

func TestStartCropRejectsOccupiedPod(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.lc.StartCrop(context.Background(), StartCropRequest{
		PodName: "pod-1", CropName: "basil", Thresholds: validThresholds(),
	})
	require.NoError(t, err)

	_, err = f.lc.StartCrop(context.Background(), StartCropRequest{
		PodName: "pod-1", CropName: "kale", Thresholds: validThresholds(),
	})
	assert.ErrorContains(t, err, "already has an active crop")
}

func TestStartCropValidatesThresholds(t *testing.T) {
	f := newLifecycleFixture(t)

	missing := validThresholds()
	delete(missing, model.SensorPHLevel)
	_, err := f.lc.StartCrop(context.Background(), StartCropRequest{
		PodName: "pod-1", CropName: "basil", Thresholds: missing,
	})
	assert.ErrorContains(t, err, "missing threshold range")

	inverted := validThresholds()
	inverted[model.SensorHumidity] = model.ThresholdRange{Min: 70, Max: 50}
	_, err = f.lc.StartCrop(context.Background(), StartCropRequest{
		PodName: "pod-1", CropName: "basil", Thresholds: inverted,
	})
	assert.ErrorContains(t, err, "must be below max")

	extra := validThresholds()
	extra[model.SensorWaterTemperature] = model.ThresholdRange{Min: 10, Max: 30}
	_, err = f.lc.StartCrop(context.Background(), StartCropRequest{
		PodName: "pod-1", CropName: "basil", Thresholds: extra,
	})
	assert.ErrorContains(t, err, "not a configurable sensor")
}

func TestStartCropSavesPreset(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.lc.StartCrop(context.Background(), StartCropRequest{
		PodName:      "pod-1",
		CropName:     "basil",
		Thresholds:   validThresholds(),
		SaveAsPreset: "Herbs",
	})
	require.NoError(t, err)
	assert.Contains(t, f.presets.saved, "Herbs")
}

func TestChangeThresholdsPublishesPerKey(t *testing.T) {
	f := newLifecycleFixture(t)
	_, err := f.lc.StartCrop(context.Background(), StartCropRequest{
		PodName: "pod-1", CropName: "basil", Thresholds: validThresholds(),
	})
	require.NoError(t, err)

	crop, err := f.lc.ChangeThresholds(context.Background(), "pod-1", CropUpdate{
		Conductivity: &model.ThresholdRange{Min: 1.4, Max: 2.0},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ThresholdRange{Min: 1.4, Max: 2.0}, crop.ThresholdValues[model.SensorConductivity])

	pubs := f.client.publishes()
	require.Len(t, pubs, 2, "new_crop at start plus one change_value")
	change := pubs[1]
	assert.Equal(t, "pod-1/commands/change_value/conductivity", change.topic)
	assert.True(t, change.retained)

	var cmd map[string]float64
	require.NoError(t, json.Unmarshal(change.payload, &cmd))
	assert.Equal(t, 1.4, cmd["min"])
	assert.Equal(t, 2.0, cmd["max"])
}

func TestChangeThresholdsRejectsInvertedRange(t *testing.T) {
	f := newLifecycleFixture(t)
	_, err := f.lc.StartCrop(context.Background(), StartCropRequest{
		PodName: "pod-1", CropName: "basil", Thresholds: validThresholds(),
	})
	require.NoError(t, err)

	_, err = f.lc.ChangeThresholds(context.Background(), "pod-1", CropUpdate{
		PHLevel: &model.ThresholdRange{Min: 7, Max: 6},
	})
	assert.ErrorContains(t, err, "must be below max")
}

func TestChangeThresholdsRequiresActiveCrop(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.lc.ChangeThresholds(context.Background(), "pod-empty", CropUpdate{})
	assert.ErrorContains(t, err, "no active crop")
}

func TestHarvestEndsCrop(t *testing.T) {
	f := newLifecycleFixture(t)
	_, err := f.lc.StartCrop(context.Background(), StartCropRequest{
		PodName: "pod-1", CropName: "basil", Thresholds: validThresholds(),
	})
	require.NoError(t, err)

	crop, err := f.lc.Harvest(context.Background(), "pod-1")
	require.NoError(t, err)
	assert.False(t, crop.Active)
	assert.False(t, f.subs.Subscribed("pod-1"))

	pubs := f.client.publishes()
	require.Len(t, pubs, 3)
	assert.Equal(t, "pod-1/commands/harvest", pubs[1].topic)
	assert.False(t, pubs[1].retained)
	assert.Equal(t, "pod-1/commands/new_crop", pubs[2].topic)
	assert.True(t, pubs[2].retained)
	assert.Empty(t, pubs[2].payload, "retained settings are cleared")

	// The pod is vacant again.
	_, err = f.lc.StartCrop(context.Background(), StartCropRequest{
		PodName: "pod-1", CropName: "kale", Thresholds: validThresholds(),
	})
	assert.NoError(t, err)
}

func TestHarvestRequiresActiveCrop(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.lc.Harvest(context.Background(), "pod-empty")
	assert.ErrorContains(t, err, "no active crop")
}

func TestRegisterPod(t *testing.T) {
	f := newLifecycleFixture(t)

	require.NoError(t, f.lc.RegisterPod(context.Background(), "pod-9"))
	assert.Equal(t, []string{"pod-9"}, f.catalog.linked)

	assert.Error(t, f.lc.RegisterPod(context.Background(), ""))
}
