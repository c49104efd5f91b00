package model

// Preset stores a named set of threshold values so later crops can start
// from a known-good configuration. Created automatically on crop start when
// no preset with that name exists yet.
type Preset struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	SchemaVersion   int             `gorm:"not null;default:1" json:"schema_version"`
	UserDefined     bool            `gorm:"not null;default:true" json:"user_defined"`
	PresetName      string          `gorm:"uniqueIndex;size:25;not null" json:"preset_name"`
	ThresholdValues ThresholdValues `gorm:"serializer:json" json:"threshold_values"`
}

// TableName specifies the table name for the Preset model.
func (Preset) TableName() string {
	return "presets"
}
