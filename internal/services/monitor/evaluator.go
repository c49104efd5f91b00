package monitor

import "github.com/hydragrow/pod-telemetry/internal/model"

// Outcome is the result of classifying one new reading against a crop's
// configuration and prior state.
type Outcome struct {
	Trend     int
	Normal    bool
	Violation model.ViolationKind
}

// Evaluate classifies value for key given the crop's thresholds and last
// known reading. Pure: no I/O, no mutation of crop.
//
// Trend compares against the previous reading and defaults to flat on the
// first-ever reading for a key. Classification depends on the key category:
// thresholded keys check the crop's configured min/max, binary-level keys
// check the normalized container level, and water temperature checks the
// fixed hardware band.
func Evaluate(crop *model.Crop, key string, value float64) Outcome {
	out := Outcome{Trend: model.TrendFlat}

	if prev, ok := crop.Latest(key); ok {
		switch {
		case value < prev.Value:
			out.Trend = model.TrendDown
		case value > prev.Value:
			out.Trend = model.TrendUp
		}
	}

	out.Violation = classify(crop, key, value)
	out.Normal = out.Violation == model.ViolationNone
	return out
}

func classify(crop *model.Crop, key string, value float64) model.ViolationKind {
	if r, ok := crop.Threshold(key); ok {
		switch {
		case value < r.Min:
			return model.ViolationMin
		case value > r.Max:
			return model.ViolationMax
		}
		return model.ViolationNone
	}

	if model.IsBinaryLevel(key) {
		// The reservoir float switch reports inverted: anything other than
		// the full level is critical. Container probes are critical only at
		// the low level.
		if key == model.SensorWaterLevel {
			if value != model.LevelPresent {
				return model.ViolationCritical
			}
			return model.ViolationNone
		}
		if value == model.LevelLow {
			return model.ViolationCritical
		}
		return model.ViolationNone
	}

	if key == model.SensorWaterTemperature {
		if value < model.WaterTempMin || value > model.WaterTempMax {
			return model.ViolationCritical
		}
	}

	return model.ViolationNone
}
