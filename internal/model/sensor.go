package model

import "time"

// Internal sensor keys. These are the canonical names the engine tracks;
// wire-level field names are mapped onto them by the translator.
const (
	SensorHumidity         = "humidity"
	SensorAirTemperature   = "air_temperature"
	SensorConductivity     = "conductivity"
	SensorPHLevel          = "ph_level"
	SensorWaterTemperature = "water_temperature"
	SensorNutrientA        = "nutrient_A"
	SensorNutrientB        = "nutrient_B"
	SensorNutrientC        = "nutrient_C"
	SensorPHUp             = "ph_up"
	SensorPHDown           = "ph_down"
	SensorWaterLevel       = "water_level"
)

// Coarse levels binary probe readings are normalized to before evaluation.
const (
	LevelPresent = 100
	LevelLow     = 15
)

// Acceptable water temperature band. This bound is fixed hardware-side and
// is not part of a crop's configurable thresholds.
const (
	WaterTempMin = 15
	WaterTempMax = 24
)

// AllSensorKeys lists every canonical sensor key, used for catalog seeding.
func AllSensorKeys() []string {
	return []string{
		SensorHumidity,
		SensorAirTemperature,
		SensorConductivity,
		SensorPHLevel,
		SensorWaterTemperature,
		SensorNutrientA,
		SensorNutrientB,
		SensorNutrientC,
		SensorPHUp,
		SensorPHDown,
		SensorWaterLevel,
	}
}

// IsBinaryLevel reports whether key carries a normalized reservoir/container
// level rather than a continuous measurement.
func IsBinaryLevel(key string) bool {
	switch key {
	case SensorNutrientA, SensorNutrientB, SensorNutrientC, SensorPHUp, SensorPHDown, SensorWaterLevel:
		return true
	}
	return false
}

// PodLink ties a catalog sensor to a pod it is installed on.
type PodLink struct {
	PodName        string    `json:"pod_name"`
	Calibrated     bool      `json:"calibrated"`
	LastCalibrated time.Time `json:"last_calibrated"`
}

// Sensor is a catalog entry for a known sensor key. Seeded idempotently at
// startup, keyed by name.
type Sensor struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"uniqueIndex;not null" json:"name"`
	PodsLinked []PodLink `gorm:"serializer:json" json:"pods_linked"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Sensor model.
func (Sensor) TableName() string {
	return "sensors"
}
