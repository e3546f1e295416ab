// Package policy describes health and movement policy for a city's population.
// A Policy is read-only within a timestep; the city decides which Policy each
// agent follows.
package policy

import (
	"fmt"
	"math"
)

// Mode is a recurring activity an agent can travel to.
type Mode uint8

const (
	ModeHome    Mode = iota // Personal residence
	ModeWork                // Workplace
	ModeMarket              // Grocery or shop
	ModeTransit             // Public transit hub
)

// NumModes is the number of activity modes.
const NumModes = 4

// Modes lists every mode in selection priority order.
var Modes = [NumModes]Mode{ModeHome, ModeWork, ModeMarket, ModeTransit}

// String returns the lowercase mode name used in logs and presets.
func (m Mode) String() string {
	switch m {
	case ModeHome:
		return "home"
	case ModeWork:
		return "work"
	case ModeMarket:
		return "market"
	case ModeTransit:
		return "transit"
	default:
		return "unknown"
	}
}

// ModeDistribution holds one probability per mode, indexed by Mode.
type ModeDistribution [NumModes]float64

// Dist builds a distribution from probabilities in home, work, market, transit order.
func Dist(home, work, market, transit float64) ModeDistribution {
	return ModeDistribution{home, work, market, transit}
}

// Validate checks every probability is in [0,1] and the four sum to 1.
func (d ModeDistribution) Validate() error {
	sum := 0.0
	for _, m := range Modes {
		p := d[m]
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%w: %s probability %v", ErrProbabilityUnset, m, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("%w: probabilities sum to %v", ErrProbabilityUnset, sum)
	}
	return nil
}

// Choose maps a uniform draw u in [0,1) to a mode by partitioning the unit
// interval in home, work, market, transit order. A draw landing exactly on a
// boundary belongs to the later mode.
func (d ModeDistribution) Choose(u float64) Mode {
	upper := 0.0
	for _, m := range Modes[:NumModes-1] {
		upper += d[m]
		if u < upper {
			return m
		}
	}
	return ModeTransit
}

// HealthPolicy selects a behaviour modifier applied on top of movement.
type HealthPolicy uint8

const (
	HealthNormal           HealthPolicy = iota
	HealthSocialDistancing              // Bounce away from nearby agents
)

// String returns the policy tag.
func (h HealthPolicy) String() string {
	switch h {
	case HealthNormal:
		return "normal"
	case HealthSocialDistancing:
		return "social_distancing"
	default:
		return "unknown"
	}
}

// ParseHealthPolicy converts a tag into a HealthPolicy.
func ParseHealthPolicy(tag string) (HealthPolicy, error) {
	switch tag {
	case "normal", "":
		return HealthNormal, nil
	case "social_distancing":
		return HealthSocialDistancing, nil
	default:
		return HealthNormal, fmt.Errorf("%w: unknown health policy %q", ErrConfiguration, tag)
	}
}

// MovementKind identifies the mobility model an agent runs.
type MovementKind uint8

const (
	MovementRandomWalk         MovementKind = iota // Correlated random walk
	MovementPreferentialReturn                     // Teleport between personal destinations
)

// String returns the model name.
func (k MovementKind) String() string {
	switch k {
	case MovementRandomWalk:
		return "2d_random_walk"
	case MovementPreferentialReturn:
		return "preferential_return"
	default:
		return "unknown"
	}
}

// Movement is the movement half of a Policy. Schedule is only consulted by
// preferential return.
type Movement struct {
	Kind     MovementKind
	Label    string // Output label, e.g. "preferential_return_lockdown"
	Schedule map[int]ModeDistribution
}

// RandomWalk returns a movement model for the correlated random walk.
func RandomWalk() Movement {
	return Movement{Kind: MovementRandomWalk, Label: MovementRandomWalk.String()}
}

// PreferentialReturn returns a time-varying preferential return model.
func PreferentialReturn(label string, schedule map[int]ModeDistribution) Movement {
	if label == "" {
		label = MovementPreferentialReturn.String()
	}
	return Movement{Kind: MovementPreferentialReturn, Label: label, Schedule: schedule}
}

// DefaultDistance is the default social-distancing bounce distance.
const DefaultDistance = 4.0

// Policy pairs a health policy with a movement model.
type Policy struct {
	Health   HealthPolicy
	Movement Movement
	Distance float64 // Bounce distance for social distancing
}

// New creates a Policy with the default bounce distance.
func New(health HealthPolicy, movement Movement) *Policy {
	return &Policy{
		Health:   health,
		Movement: movement,
		Distance: DefaultDistance,
	}
}

// Update replaces the mode schedule. Call between runs, never mid-timestep.
func (p *Policy) Update(schedule map[int]ModeDistribution) {
	p.Movement.Schedule = schedule
}

// Distribution returns the mode distribution in force at timestep t.
func (p *Policy) Distribution(t int) (ModeDistribution, error) {
	if p.Movement.Kind != MovementPreferentialReturn {
		return ModeDistribution{}, fmt.Errorf("%w: %s has no mode probabilities", ErrProbabilityUnset, p.Movement.Kind)
	}
	if len(p.Movement.Schedule) == 0 {
		return ModeDistribution{}, fmt.Errorf("%w: %s schedule is empty", ErrProbabilityUnset, p.Movement.Label)
	}
	d, ok := p.Movement.Schedule[t]
	if !ok {
		return ModeDistribution{}, fmt.Errorf("%w: %s at timestep %d", ErrNoDistribution, p.Movement.Label, t)
	}
	if err := d.Validate(); err != nil {
		return ModeDistribution{}, fmt.Errorf("%s at timestep %d: %w", p.Movement.Label, t, err)
	}
	return d, nil
}

// Validate checks the policy is usable before a run starts.
func (p *Policy) Validate() error {
	switch p.Movement.Kind {
	case MovementRandomWalk:
	case MovementPreferentialReturn:
		if len(p.Movement.Schedule) == 0 {
			return fmt.Errorf("%w: %s schedule is empty", ErrProbabilityUnset, p.Movement.Label)
		}
		for t, d := range p.Movement.Schedule {
			if err := d.Validate(); err != nil {
				return fmt.Errorf("timestep %d: %w", t, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown movement kind %d", ErrConfiguration, p.Movement.Kind)
	}
	switch p.Health {
	case HealthNormal, HealthSocialDistancing:
	default:
		return fmt.Errorf("%w: unknown health policy %d", ErrConfiguration, p.Health)
	}
	if p.Distance < 0 {
		return fmt.Errorf("%w: negative policy distance %v", ErrConfiguration, p.Distance)
	}
	return nil
}
