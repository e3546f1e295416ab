package city

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/talgya/epicity/internal/policy"
	"github.com/talgya/epicity/internal/world"
)

// Densities is the number of agents served by one central location, per mode.
type Densities map[policy.Mode]int

// DefaultDensities returns one market per 50 agents, one transit hub per 100,
// one workplace per 15, and one home per 3.
func DefaultDensities() Densities {
	return Densities{
		policy.ModeMarket:  50,
		policy.ModeTransit: 100,
		policy.ModeWork:    15,
		policy.ModeHome:    3,
	}
}

// Config holds everything needed to build a City.
type Config struct {
	Name         string
	Width        float64
	Height       float64
	Population   int
	Proximity    float64 // Contact radius
	RecoveryRate float64 // Inverse of the mean infectious duration, in (0, 1]

	Policy    *policy.Policy
	Densities Densities

	// FixedLocations overrides Poisson sampling for the given modes.
	FixedLocations map[policy.Mode][]orb.Point

	// Quarantine
	QuarantineThreshold   int     // Infected timesteps before quarantine is possible
	QuarantineProbability float64 // Per-timestep chance once eligible; 0 disables
	QuarantineLocation    *orb.Point

	Velocity float64 // Agent step length
	Jitter   float64 // Std. deviation of destination jitter per axis

	// Density, when set, clusters initial agent positions.
	Density *world.DensityConfig
}

// DefaultConfig returns a 200×200 city of 600 agents with COVID-like
// parameters: contact radius 0.2, 18-timestep infectious period.
func DefaultConfig(name string) Config {
	return Config{
		Name:                  name,
		Width:                 200,
		Height:                200,
		Population:            600,
		Proximity:             0.2,
		RecoveryRate:          1.0 / 18.0,
		Policy:                policy.New(policy.HealthNormal, policy.RandomWalk()),
		Densities:             DefaultDensities(),
		QuarantineThreshold:   5,
		QuarantineProbability: 0,
		Velocity:              1.0,
		Jitter:                0.1,
	}
}

// Validate rejects configurations that cannot produce a meaningful run.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: city %q has non-positive dimensions %vx%v", policy.ErrConfiguration, c.Name, c.Width, c.Height)
	}
	if c.Population < 1 {
		return fmt.Errorf("%w: city %q has population %d", policy.ErrConfiguration, c.Name, c.Population)
	}
	if c.Proximity <= 0 {
		return fmt.Errorf("%w: city %q has proximity %v", policy.ErrConfiguration, c.Name, c.Proximity)
	}
	if c.RecoveryRate <= 0 || c.RecoveryRate > 1 {
		return fmt.Errorf("%w: city %q has recovery rate %v outside (0,1]", policy.ErrConfiguration, c.Name, c.RecoveryRate)
	}
	if c.QuarantineProbability < 0 || c.QuarantineProbability > 1 {
		return fmt.Errorf("%w: city %q has quarantine probability %v", policy.ErrConfiguration, c.Name, c.QuarantineProbability)
	}
	if c.Velocity <= 0 {
		return fmt.Errorf("%w: city %q has velocity %v", policy.ErrConfiguration, c.Name, c.Velocity)
	}
	if c.Policy == nil {
		return fmt.Errorf("%w: city %q has no policy", policy.ErrConfiguration, c.Name)
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("city %q: %w", c.Name, err)
	}
	for _, m := range policy.Modes {
		if c.Densities[m] < 1 && len(c.FixedLocations[m]) == 0 {
			return fmt.Errorf("%w: city %q has no %s density", policy.ErrConfiguration, c.Name, m)
		}
	}
	return nil
}
