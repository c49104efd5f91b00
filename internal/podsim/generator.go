// Package podsim simulates a hydroponic pod: it publishes plausible sensor
// and probe readings over MQTT and reacts to the retained command topics the
// real firmware listens on.
package podsim

import (
	"math/rand"
	"sync"
)

// band is the range a simulated value drifts inside.
type band struct {
	min, max float64
}

func (b band) mid() float64 { return (b.min + b.max) / 2 }

// Generator random-walks one value per wire field, pulled gently toward the
// middle of its band so readings stay mostly in range with occasional
// excursions.
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	bands  map[string]band
	values map[string]float64
}

// defaultBands cover the sensor-class wire fields before any settings
// command arrives.
func defaultBands() map[string]band {
	return map[string]band{
		"air_humidity":      {min: 50, max: 70},
		"air_temperature":   {min: 18, max: 26},
		"ec_reading":        {min: 1.2, max: 2.2},
		"ph_reading":        {min: 5.5, max: 6.5},
		"water_temperature": {min: 16, max: 22},
	}
}

func NewGenerator(seed int64) *Generator {
	g := &Generator{
		rng:    rand.New(rand.NewSource(seed)),
		bands:  defaultBands(),
		values: make(map[string]float64),
	}
	for field, b := range g.bands {
		g.values[field] = b.mid()
	}
	return g
}

// SetBand points a wire field at a new target range, as a change_value or
// new_crop command would.
func (g *Generator) SetBand(field string, min, max float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if min >= max {
		return
	}
	g.bands[field] = band{min: min, max: max}
}

// Next advances every field one step and returns the sensor-class payload.
func (g *Generator) Next() map[string]float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]float64, len(g.bands))
	for field, b := range g.bands {
		v := g.values[field]
		span := b.max - b.min
		// Random step plus a pull toward mid-band.
		v += g.rng.NormFloat64()*span*0.02 + (b.mid()-v)*0.05
		g.values[field] = v
		out[field] = v
	}
	return out
}
