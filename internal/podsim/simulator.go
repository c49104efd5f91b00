package podsim

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/hydragrow/pod-telemetry/internal/model/messages"
	"github.com/hydragrow/pod-telemetry/pkg/mqtt"
)

// containerLevels tracks the probe-class booleans. Containers drain slowly;
// each publish has a small chance of one running low.
type containerLevels struct {
	mu     sync.Mutex
	levels map[string]bool
}

var probeFields = []string{"nutrient_a", "nutrient_b", "nutrient_c", "ph_up", "ph_down", "water_level"}

func newContainerLevels() *containerLevels {
	levels := make(map[string]bool, len(probeFields))
	for _, f := range probeFields {
		levels[f] = true
	}
	return &containerLevels{levels: levels}
}

// Simulator is one fake pod. It publishes sensor_data and probe_data on the
// pod's topics and applies retained commands the way the firmware does.
type Simulator struct {
	podName   string
	client    mqtt.Client
	generator *Generator
	levels    *containerLevels
	rng       *rand.Rand
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
}

func New(podName string, client mqtt.Client, generator *Generator, logger *slog.Logger) *Simulator {
	return &Simulator{
		podName:   podName,
		client:    client,
		generator: generator,
		levels:    newContainerLevels(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:    logger,
	}
}

// Start subscribes to the command topics and publishes readings every
// interval until ctx is cancelled.
func (s *Simulator) Start(ctx context.Context, interval time.Duration) error {
	if err := s.subscribeCommands(); err != nil {
		return err
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !s.active() {
				continue
			}
			s.publishSensorData()
			s.publishProbeData()
		}
	}
}

func (s *Simulator) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Simulator) subscribeCommands() error {
	if err := s.client.Subscribe(messages.NewCropTopic(s.podName), 1, s.handleNewCrop); err != nil {
		return err
	}
	if err := s.client.Subscribe(messages.ChangeValueTopic(s.podName, "+"), 1, s.handleChangeValue); err != nil {
		return err
	}
	return s.client.Subscribe(messages.HarvestTopic(s.podName), 1, s.handleHarvest)
}

func (s *Simulator) handleNewCrop(_ string, payload []byte) {
	// An empty retained payload is the harvest-time settings clear.
	if len(payload) == 0 {
		return
	}
	var cmd messages.NewCropCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		s.logger.Warn("bad settings command", "pod", s.podName, "error", err)
		return
	}

	s.generator.SetBand("air_humidity", cmd.AirHumidity[0], cmd.AirHumidity[1])
	s.generator.SetBand("air_temperature", cmd.AirTemperature[0], cmd.AirTemperature[1])
	s.generator.SetBand("ec_reading", cmd.ECReading[0], cmd.ECReading[1])
	s.generator.SetBand("ph_reading", cmd.PHReading[0], cmd.PHReading[1])

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	s.logger.Info("settings applied", "pod", s.podName, "init_pumps", cmd.InitPumps)
}

func (s *Simulator) handleChangeValue(topic string, payload []byte) {
	var cmd messages.ChangeValueCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		s.logger.Warn("bad change command", "pod", s.podName, "topic", topic, "error", err)
		return
	}
	key := topic[len(messages.ChangeValueTopic(s.podName, "")):]
	field, ok := engineKeyToWire[key]
	if !ok {
		return
	}
	s.generator.SetBand(field, cmd.Min, cmd.Max)
	s.logger.Info("band changed", "pod", s.podName, "field", field, "min", cmd.Min, "max", cmd.Max)
}

// engineKeyToWire maps the engine's sensor keys, used in change_value
// topics, back to the wire field names the generator tracks.
var engineKeyToWire = map[string]string{
	"humidity":        "air_humidity",
	"air_temperature": "air_temperature",
	"conductivity":    "ec_reading",
	"ph_level":        "ph_reading",
}

func (s *Simulator) handleHarvest(_ string, _ []byte) {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.logger.Info("harvest received, going idle", "pod", s.podName)
}

func (s *Simulator) publishSensorData() {
	payload, err := json.Marshal(s.generator.Next())
	if err != nil {
		s.logger.Error("encode sensor payload", "error", err)
		return
	}
	topic := messages.DataTopic(s.podName, messages.ClassSensorData)
	if err := s.client.Publish(topic, 1, false, payload); err != nil {
		s.logger.Warn("sensor publish failed", "pod", s.podName, "error", err)
	}
}

func (s *Simulator) publishProbeData() {
	s.levels.mu.Lock()
	// Roughly one drain event per two hundred publishes, one refill per fifty.
	for _, f := range probeFields {
		switch {
		case s.levels.levels[f] && s.rng.Intn(200) == 0:
			s.levels.levels[f] = false
		case !s.levels.levels[f] && s.rng.Intn(50) == 0:
			s.levels.levels[f] = true
		}
	}
	snapshot := make(map[string]bool, len(s.levels.levels))
	for f, v := range s.levels.levels {
		snapshot[f] = v
	}
	s.levels.mu.Unlock()

	payload, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Error("encode probe payload", "error", err)
		return
	}
	topic := messages.DataTopic(s.podName, messages.ClassProbeData)
	if err := s.client.Publish(topic, 1, false, payload); err != nil {
		s.logger.Warn("probe publish failed", "pod", s.podName, "error", err)
	}
}
