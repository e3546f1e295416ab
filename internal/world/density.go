// Package world provides the population-density field used to place agents.
// Density is layered simplex noise, so dense neighbourhoods cluster the way
// real settlements do.
package world

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
	"github.com/paulmach/orb"
)

// DensityConfig holds density-field parameters.
type DensityConfig struct {
	Frequency   float64 // Base noise frequency per unit distance
	Octaves     int
	Persistence float64
	Floor       float64 // Minimum acceptance probability anywhere (0.0–1.0)
	MaxTries    int     // Rejection-sampling attempts before accepting the last draw
}

// DefaultDensityConfig returns a field with a few large clusters per 100 units.
func DefaultDensityConfig() DensityConfig {
	return DensityConfig{
		Frequency:   0.03,
		Octaves:     3,
		Persistence: 0.5,
		Floor:       0.05,
		MaxTries:    64,
	}
}

// DensityField maps coordinates to a relative population density in [0, 1].
type DensityField struct {
	cfg   DensityConfig
	noise opensimplex.Noise
}

// NewDensityField creates a field from a noise seed.
func NewDensityField(seed int64, cfg DensityConfig) *DensityField {
	if cfg.Octaves < 1 {
		cfg.Octaves = 1
	}
	if cfg.MaxTries < 1 {
		cfg.MaxTries = 1
	}
	return &DensityField{cfg: cfg, noise: opensimplex.NewNormalized(seed)}
}

// At returns the density at (x, y).
func (d *DensityField) At(x, y float64) float64 {
	v := octaveNoise(d.noise, x, y, d.cfg.Octaves, d.cfg.Frequency, d.cfg.Persistence)
	if v < d.cfg.Floor {
		return d.cfg.Floor
	}
	if v > 1 {
		return 1
	}
	return v
}

// Sample draws a point from bound weighted by density.
func (d *DensityField) Sample(rng *rand.Rand, bound orb.Bound) orb.Point {
	w := bound.Max[0] - bound.Min[0]
	h := bound.Max[1] - bound.Min[1]

	var p orb.Point
	for try := 0; try < d.cfg.MaxTries; try++ {
		p = orb.Point{bound.Min[0] + w*rng.Float64(), bound.Min[1] + h*rng.Float64()}
		if rng.Float64() < d.At(p[0], p[1]) {
			return p
		}
	}
	return p
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
