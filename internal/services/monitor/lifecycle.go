package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/jonboulle/clockwork"

	"github.com/hydragrow/pod-telemetry/internal/model"
	"github.com/hydragrow/pod-telemetry/internal/model/messages"
	"github.com/hydragrow/pod-telemetry/pkg/mqtt"
)

// CropLifecycleStore is the crop persistence surface lifecycle needs.
type CropLifecycleStore interface {
	FindActiveByPod(ctx context.Context, podName string) (*model.Crop, error)
	Create(ctx context.Context, crop *model.Crop) error
	Save(ctx context.Context, crop *model.Crop) error
}

// PresetStore saves reusable threshold sets by name.
type PresetStore interface {
	CreateIfAbsent(ctx context.Context, name string, thresholds model.ThresholdValues) error
}

// PodCatalog registers a pod against the sensor catalog.
type PodCatalog interface {
	LinkPod(ctx context.Context, podName string, at time.Time) error
}

// thresholdedKeys are the sensor keys a crop must configure a range for.
var thresholdedKeys = []string{
	model.SensorHumidity,
	model.SensorAirTemperature,
	model.SensorConductivity,
	model.SensorPHLevel,
}

// Lifecycle drives crop start, threshold editing, harvest and pod
// registration: the operations that change which streams the engine watches
// and what it watches them against.
type Lifecycle struct {
	crops   CropLifecycleStore
	presets PresetStore
	catalog PodCatalog
	client  mqtt.Client
	subs    *SubscriptionManager
	logger  *slog.Logger
	clock   clockwork.Clock
}

func NewLifecycle(
	crops CropLifecycleStore,
	presets PresetStore,
	catalog PodCatalog,
	client mqtt.Client,
	subs *SubscriptionManager,
	logger *slog.Logger,
	clock clockwork.Clock,
) *Lifecycle {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Lifecycle{
		crops:   crops,
		presets: presets,
		catalog: catalog,
		client:  client,
		subs:    subs,
		logger:  logger,
		clock:   clock,
	}
}

// StartCropRequest carries everything needed to begin a planting cycle.
type StartCropRequest struct {
	PodName         string                `json:"pod_name"`
	CropName        string                `json:"crop_name"`
	Thresholds      model.ThresholdValues `json:"threshold_values"`
	InitializePumps bool                  `json:"initialize_pumps"`
	SaveAsPreset    string                `json:"save_as_preset,omitempty"`
}

// StartCrop provisions a new crop on a vacant pod: persist it, push the
// retained settings command to the device, and attach to its data streams.
func (l *Lifecycle) StartCrop(ctx context.Context, req StartCropRequest) (*model.Crop, error) {
	if req.PodName == "" {
		return nil, fmt.Errorf("pod name is required")
	}
	if err := validateThresholds(req.Thresholds); err != nil {
		return nil, err
	}

	existing, err := l.crops.FindActiveByPod(ctx, req.PodName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("pod %s already has an active crop (%s)", req.PodName, existing.CropName)
	}

	crop := &model.Crop{
		PodName:         req.PodName,
		CropName:        normalizeCropName(req.CropName),
		Active:          true,
		Healthy:         true,
		InitializePumps: req.InitializePumps,
		ThresholdValues: req.Thresholds,
	}
	if err := l.crops.Create(ctx, crop); err != nil {
		return nil, err
	}

	if err := l.publishSettings(crop); err != nil {
		// The crop row exists; the retained command can be re-pushed on the
		// next threshold edit, so this is logged rather than unwound.
		l.logger.Error("settings command publish failed", "pod", crop.PodName, "error", err)
	}

	if err := l.subs.Subscribe(crop.PodName); err != nil {
		l.logger.Error("data stream attach failed", "pod", crop.PodName, "error", err)
	}

	if req.SaveAsPreset != "" {
		if err := l.presets.CreateIfAbsent(ctx, req.SaveAsPreset, req.Thresholds); err != nil {
			l.logger.Warn("preset save failed", "preset", req.SaveAsPreset, "error", err)
		}
	}

	l.logger.Info("crop started", "pod", crop.PodName, "crop", crop.CropName, "id", crop.ID)
	return crop, nil
}

// CropUpdate is the closed set of editable crop fields. Nil means unchanged.
type CropUpdate struct {
	CropName       *string               `json:"crop_name,omitempty"`
	Humidity       *model.ThresholdRange `json:"humidity,omitempty"`
	AirTemperature *model.ThresholdRange `json:"air_temperature,omitempty"`
	Conductivity   *model.ThresholdRange `json:"conductivity,omitempty"`
	PHLevel        *model.ThresholdRange `json:"ph_level,omitempty"`
}

// thresholdEdits pairs each editable range with its sensor key.
func (u *CropUpdate) thresholdEdits() map[string]*model.ThresholdRange {
	return map[string]*model.ThresholdRange{
		model.SensorHumidity:       u.Humidity,
		model.SensorAirTemperature: u.AirTemperature,
		model.SensorConductivity:   u.Conductivity,
		model.SensorPHLevel:        u.PHLevel,
	}
}

// ChangeThresholds applies edits to the pod's active crop and pushes one
// retained change_value command per edited sensor key.
func (l *Lifecycle) ChangeThresholds(ctx context.Context, podName string, update CropUpdate) (*model.Crop, error) {
	crop, err := l.crops.FindActiveByPod(ctx, podName)
	if err != nil {
		return nil, err
	}
	if crop == nil {
		return nil, fmt.Errorf("pod %s has no active crop", podName)
	}

	if update.CropName != nil {
		crop.CropName = normalizeCropName(*update.CropName)
	}

	for key, r := range update.thresholdEdits() {
		if r == nil {
			continue
		}
		if r.Min >= r.Max {
			return nil, fmt.Errorf("%s: min %v must be below max %v", key, r.Min, r.Max)
		}
		crop.ThresholdValues[key] = *r

		payload, err := json.Marshal(messages.ChangeValueCommand{Min: r.Min, Max: r.Max})
		if err != nil {
			return nil, fmt.Errorf("encode change for %s: %w", key, err)
		}
		if err := l.client.Publish(messages.ChangeValueTopic(podName, key), dataQoS, true, payload); err != nil {
			l.logger.Error("change_value publish failed", "pod", podName, "sensor", key, "error", err)
		}
	}

	if err := l.crops.Save(ctx, crop); err != nil {
		return nil, err
	}
	l.logger.Info("crop thresholds updated", "pod", podName, "crop", crop.CropName)
	return crop, nil
}

// Harvest ends the pod's active crop: detach from its streams, deactivate
// the crop, tell the device to stop, and clear the retained settings so a
// rebooting device does not resume the finished cycle.
func (l *Lifecycle) Harvest(ctx context.Context, podName string) (*model.Crop, error) {
	crop, err := l.crops.FindActiveByPod(ctx, podName)
	if err != nil {
		return nil, err
	}
	if crop == nil {
		return nil, fmt.Errorf("pod %s has no active crop", podName)
	}

	crop.Active = false
	if err := l.crops.Save(ctx, crop); err != nil {
		return nil, err
	}

	if err := l.subs.Unsubscribe(podName); err != nil {
		l.logger.Error("data stream detach failed", "pod", podName, "error", err)
	}

	if err := l.client.Publish(messages.HarvestTopic(podName), dataQoS, false, []byte("1")); err != nil {
		l.logger.Error("harvest command publish failed", "pod", podName, "error", err)
	}
	// Empty retained payload clears the broker-held settings message.
	if err := l.client.Publish(messages.NewCropTopic(podName), dataQoS, true, nil); err != nil {
		l.logger.Error("settings clear publish failed", "pod", podName, "error", err)
	}

	l.logger.Info("crop harvested", "pod", podName, "crop", crop.CropName, "id", crop.ID)
	return crop, nil
}

// RegisterPod links a pod to every catalog sensor. Idempotent.
func (l *Lifecycle) RegisterPod(ctx context.Context, podName string) error {
	if podName == "" {
		return fmt.Errorf("pod name is required")
	}
	if err := l.catalog.LinkPod(ctx, podName, l.clock.Now().UTC()); err != nil {
		return err
	}
	l.logger.Info("pod registered", "pod", podName)
	return nil
}

// publishSettings pushes the retained new_crop command with the firmware's
// wire-level field names.
func (l *Lifecycle) publishSettings(crop *model.Crop) error {
	cmd := messages.NewCropCommand{PodName: crop.PodName}
	if r, ok := crop.Threshold(model.SensorHumidity); ok {
		cmd.AirHumidity = [2]float64{r.Min, r.Max}
	}
	if r, ok := crop.Threshold(model.SensorAirTemperature); ok {
		cmd.AirTemperature = [2]float64{r.Min, r.Max}
	}
	if r, ok := crop.Threshold(model.SensorConductivity); ok {
		cmd.ECReading = [2]float64{r.Min, r.Max}
	}
	if r, ok := crop.Threshold(model.SensorPHLevel); ok {
		cmd.PHReading = [2]float64{r.Min, r.Max}
	}
	if crop.InitializePumps {
		cmd.InitPumps = 1
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return l.client.Publish(messages.NewCropTopic(crop.PodName), dataQoS, true, payload)
}

// validateThresholds requires a sane range for every thresholded sensor key.
func validateThresholds(tv model.ThresholdValues) error {
	for _, key := range thresholdedKeys {
		r, ok := tv[key]
		if !ok {
			return fmt.Errorf("missing threshold range for %s", key)
		}
		if r.Min >= r.Max {
			return fmt.Errorf("%s: min %v must be below max %v", key, r.Min, r.Max)
		}
	}
	for key := range tv {
		if !isThresholdedKey(key) {
			return fmt.Errorf("%s is not a configurable sensor", key)
		}
	}
	return nil
}

func isThresholdedKey(key string) bool {
	for _, k := range thresholdedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// normalizeCropName title-cases names typed in all caps or all lower case,
// and leaves mixed-case names as the user wrote them.
func normalizeCropName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "Unnamed Crop"
	}
	if trimmed != strings.ToUpper(trimmed) && trimmed != strings.ToLower(trimmed) {
		return trimmed
	}

	words := strings.Fields(strings.ToLower(trimmed))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
