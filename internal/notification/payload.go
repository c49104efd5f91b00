// Package notification builds and delivers web-push alerts for threshold
// violations.
package notification

import (
	"github.com/hydragrow/pod-telemetry/internal/model"
)

// displayNames maps engine sensor keys to the human names shown in alerts.
var displayNames = map[string]string{
	model.SensorHumidity:         "humidity",
	model.SensorAirTemperature:   "air temperature",
	model.SensorConductivity:     "EC",
	model.SensorPHLevel:          "pH Level",
	model.SensorWaterTemperature: "water temperature",
	model.SensorNutrientA:        "Nutrient A",
	model.SensorNutrientB:        "Nutrient B",
	model.SensorNutrientC:        "Nutrient C",
	model.SensorPHUp:             "pH Up Buffer",
	model.SensorPHDown:           "pH Down Buffer",
	model.SensorWaterLevel:       "Water Reservoir",
}

// mitigations are the suggested operator actions per sensor key, shown in the
// alert body.
var mitigations = map[string]string{
	model.SensorHumidity:         "Check ventilation and ambient conditions around the pod.",
	model.SensorAirTemperature:   "Check room temperature and keep the pod away from heat sources.",
	model.SensorConductivity:     "Check nutrient concentration; the reservoir may need fresh water or more solution.",
	model.SensorPHLevel:          "Check the pH buffers; dosing may be needed to bring the solution back in range.",
	model.SensorWaterTemperature: "Check water temperature; move the pod away from direct sunlight or heat.",
	model.SensorNutrientA:        "Refill the Nutrient A container.",
	model.SensorNutrientB:        "Refill the Nutrient B container.",
	model.SensorNutrientC:        "Refill the Nutrient C container.",
	model.SensorPHUp:             "Refill the pH Up buffer container.",
	model.SensorPHDown:           "Refill the pH Down buffer container.",
	model.SensorWaterLevel:       "Refill the water reservoir.",
}

// Payload is the JSON document pushed to subscribed browsers.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// BuildPayload renders the alert for one violation, e.g.
// "[pod-1] EC: Exceeded Threshold".
func BuildPayload(podName string, kind model.ViolationKind, sensorKey string) Payload {
	name, ok := displayNames[sensorKey]
	if !ok {
		name = sensorKey
	}

	var state string
	switch kind {
	case model.ViolationMin:
		state = "Below Threshold"
	case model.ViolationMax:
		state = "Exceeded Threshold"
	default:
		state = "Critical Level"
	}

	return Payload{
		Title: "[" + podName + "] " + name + ": " + state,
		Body:  mitigations[sensorKey],
	}
}
