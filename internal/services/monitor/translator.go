package monitor

import (
	"fmt"

	"github.com/hydragrow/pod-telemetry/internal/model"
	"github.com/hydragrow/pod-telemetry/internal/model/messages"
)

// The two inbound message classes carry different field sets. Wire names are
// what the firmware emits; values map onto the engine's canonical keys.
var sensorDataFields = map[string]string{
	"air_humidity":      model.SensorHumidity,
	"air_temperature":   model.SensorAirTemperature,
	"ec_reading":        model.SensorConductivity,
	"ph_reading":        model.SensorPHLevel,
	"water_temperature": model.SensorWaterTemperature,
}

var probeDataFields = map[string]string{
	"nutrient_a":  model.SensorNutrientA,
	"nutrient_b":  model.SensorNutrientB,
	"nutrient_c":  model.SensorNutrientC,
	"ph_up":       model.SensorPHUp,
	"ph_down":     model.SensorPHDown,
	"water_level": model.SensorWaterLevel,
}

// Reading is one translated (sensor key, value) pair ready for evaluation.
type Reading struct {
	Key   string
	Value float64
}

// TranslateKey maps a wire-level field name to the engine's sensor key.
// Unknown wire keys return ok=false; devices are free to report fields this
// engine does not track.
func TranslateKey(class messages.Class, wireKey string) (string, bool) {
	switch class {
	case messages.ClassSensorData:
		key, ok := sensorDataFields[wireKey]
		return key, ok
	case messages.ClassProbeData:
		key, ok := probeDataFields[wireKey]
		return key, ok
	}
	return "", false
}

// TranslateReadings converts a decoded payload into evaluated-ready
// readings. Sensor-class values must be numeric; probe-class values are
// booleans normalized to the coarse present/low levels. A field with the
// wrong value type yields a per-key error without affecting its siblings;
// unknown field names are silently dropped.
func TranslateReadings(class messages.Class, payload map[string]any) ([]Reading, []error) {
	var readings []Reading
	var errs []error

	for wireKey, raw := range payload {
		key, ok := TranslateKey(class, wireKey)
		if !ok {
			continue
		}

		switch class {
		case messages.ClassSensorData:
			v, ok := raw.(float64)
			if !ok {
				errs = append(errs, fmt.Errorf("field %s: expected number, got %T", wireKey, raw))
				continue
			}
			readings = append(readings, Reading{Key: key, Value: v})

		case messages.ClassProbeData:
			present, ok := raw.(bool)
			if !ok {
				errs = append(errs, fmt.Errorf("field %s: expected boolean, got %T", wireKey, raw))
				continue
			}
			level := float64(model.LevelLow)
			if present {
				level = model.LevelPresent
			}
			readings = append(readings, Reading{Key: key, Value: level})
		}
	}

	return readings, errs
}
