package podsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorEmitsAllFields(t *testing.T) {
	g := NewGenerator(1)

	out := g.Next()
	require.Len(t, out, 5)
	for _, field := range []string{"air_humidity", "air_temperature", "ec_reading", "ph_reading", "water_temperature"} {
		assert.Contains(t, out, field)
	}
}

func TestGeneratorStaysNearBand(t *testing.T) {
	g := NewGenerator(42)
	g.SetBand("ec_reading", 1.0, 2.0)

	// The mid-band pull keeps a long run from wandering far out of range.
	for i := 0; i < 500; i++ {
		v := g.Next()["ec_reading"]
		assert.Greater(t, v, 0.0)
		assert.Less(t, v, 3.0)
	}
}

func TestGeneratorIgnoresInvertedBand(t *testing.T) {
	g := NewGenerator(7)
	g.SetBand("ph_reading", 9, 3)

	v := g.Next()["ph_reading"]
	assert.InDelta(t, 6.0, v, 1.0, "band unchanged, value still near default mid")
}

func TestGeneratorDeterministicPerSeed(t *testing.T) {
	a := NewGenerator(5)
	b := NewGenerator(5)

	assert.Equal(t, a.Next(), b.Next())
}
