// Package agents provides the agent data model, mobility models, and the
// susceptible–infected–removed state machine.
package agents

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/talgya/epicity/internal/policy"
)

// ErrInvariant marks a broken internal invariant, e.g. a destination lookup for
// a mode that was never assigned. It is fatal to the run.
var ErrInvariant = errors.New("invariant violation")

// AgentID is a stable index, unique within a city.
type AgentID int

// State is the epidemic compartment of an agent.
type State uint8

const (
	StateSusceptible State = iota
	StateInfected
	StateRemoved
)

// String returns the compartment name.
func (s State) String() string {
	switch s {
	case StateSusceptible:
		return "susceptible"
	case StateInfected:
		return "infected"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// TurnAngles is the discrete set of turning angles for the correlated random
// walk: 100 evenly spaced values spanning [-π/2, π/2].
var TurnAngles = linspace(-math.Pi/2, math.Pi/2, 100)

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// Agent is a single member of a city's population.
type Agent struct {
	ID   AgentID `json:"id"`
	Name string  `json:"name"`

	// Spatial
	Position orb.Point `json:"position"`
	Prior    orb.Point `json:"prior"`
	Heading  float64   `json:"heading"`  // Radians
	Turn     float64   `json:"turn"`     // Turning angle drawn this timestep
	Velocity float64   `json:"velocity"` // Constant step length

	// Epidemic
	State             State `json:"state"`
	TimestepsInfected int   `json:"timesteps_infected"`
	Transitioned      bool  `json:"-"` // Changed state during the current timestep

	// Mobility
	Mode         policy.Mode                `json:"mode"`
	HasMode      bool                       `json:"has_mode"`
	Destinations map[policy.Mode]orb.Point `json:"destinations"`

	// Set by the city, never by the agent.
	Quarantined        bool `json:"quarantined"`
	HealthPolicyActive bool `json:"-"`
}

// New creates a susceptible agent at pos facing heading.
func New(id AgentID, pos orb.Point, heading float64) *Agent {
	return &Agent{
		ID:           id,
		Name:         fmt.Sprintf("Agent #%d", id),
		Position:     pos,
		Prior:        pos,
		Heading:      heading,
		Velocity:     1.0,
		State:        StateSusceptible,
		Destinations: make(map[policy.Mode]orb.Point, policy.NumModes),
	}
}

// IsSusceptible reports whether the agent can still be infected.
func (a *Agent) IsSusceptible() bool { return a.State == StateSusceptible }

// IsInfected reports whether the agent is currently infectious.
func (a *Agent) IsInfected() bool { return a.State == StateInfected }

// IsRemoved reports whether the agent has recovered or otherwise left the process.
func (a *Agent) IsRemoved() bool { return a.State == StateRemoved }

// TransitionTo moves the agent into target and reports whether the state
// actually changed. Repeating the same target is a no-op. States only move
// forward (susceptible, infected, removed); a backward move is an
// ErrInvariant and leaves the agent unchanged.
func (a *Agent) TransitionTo(target State) (bool, error) {
	if a.State == target {
		return false, nil
	}
	if target < a.State || target > StateRemoved {
		return false, fmt.Errorf("%w: %s cannot go from %s to %s", ErrInvariant, a.Name, a.State, target)
	}
	a.State = target
	return true, nil
}

// SetDestination assigns the personal destination for a mode.
func (a *Agent) SetDestination(mode policy.Mode, p orb.Point) {
	a.Destinations[mode] = p
}

// Destination returns the personal destination for a mode.
func (a *Agent) Destination(mode policy.Mode) (orb.Point, error) {
	p, ok := a.Destinations[mode]
	if !ok {
		return orb.Point{}, fmt.Errorf("%w: %s has no %s destination", ErrInvariant, a.Name, mode)
	}
	return p, nil
}

// ActivateHealthPolicy arms the health-policy behaviour for the next move.
func (a *Agent) ActivateHealthPolicy() { a.HealthPolicyActive = true }

// ResetTick clears per-timestep flags without moving.
func (a *Agent) ResetTick() {
	a.Transitioned = false
	a.HealthPolicyActive = false
}
