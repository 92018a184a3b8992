// Terrain generation using layered simplex noise.
package world

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds noise terrain parameters.
type GenConfig struct {
	Rows        int
	Columns     int
	Seed        int64   // Random seed (0 = random)
	Octaves     int     // Noise layers summed per sample
	Frequency   float64 // Base frequency in cycles per cell
	Persistence float64 // Amplitude falloff between octaves
	SeaLevel    float64 // Noise value mapped to height zero
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Rows:        48,
		Columns:     48,
		Seed:        0,
		Octaves:     4,
		Frequency:   0.06,
		Persistence: 0.2,
		SeaLevel:    -0.15,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Rows:        12,
		Columns:     12,
		Seed:        42,
		Octaves:     3,
		Frequency:   0.08,
		Persistence: 0.2,
		SeaLevel:    -0.15,
	}
}

// Generate samples fractal simplex noise over the configured grid. Values
// below zero are water.
func Generate(cfg GenConfig) (*Field, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	octaves := cfg.Octaves
	if octaves < 1 {
		octaves = 1
	}

	noise := opensimplex.New(seed)
	f, err := NewSampledField(cfg.Rows, cfg.Columns, func(x, y float64) float64 {
		return octaveNoise(noise, x, y, octaves, cfg.Frequency, cfg.Persistence) - cfg.SeaLevel
	})
	if err != nil {
		return nil, err
	}
	f.seed = seed
	return f, nil
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
