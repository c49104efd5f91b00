package messages

// NewCropCommand is the retained settings payload published to
// "<pod>/commands/new_crop" when a crop starts. Field names and the
// [min, max] pair layout match what the firmware parses.
type NewCropCommand struct {
	PodName        string     `json:"pod_name"`
	AirHumidity    [2]float64 `json:"air_humidity"`
	AirTemperature [2]float64 `json:"air_temperature"`
	ECReading      [2]float64 `json:"ec_reading"`
	PHReading      [2]float64 `json:"ph_reading"`
	InitPumps      int        `json:"init_pumps"` // 1 to prime the dosing pumps on first boot
}

// ChangeValueCommand is the retained payload published to
// "<pod>/commands/change_value/<sensorKey>" when a threshold is edited.
type ChangeValueCommand struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}
