// Package city runs the per-timestep epidemic process for one bounded city:
// agent movement, proximity graph construction, infection, and quarantine.
package city

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/talgya/epicity/internal/agents"
	"github.com/talgya/epicity/internal/geometry"
	"github.com/talgya/epicity/internal/policy"
	"github.com/talgya/epicity/internal/world"
)

var (
	// ErrAlreadySeeded is returned when SetInitialStates is called twice.
	ErrAlreadySeeded = errors.New("initial states already set")
	// ErrNotSeeded is returned by Timestep before SetInitialStates.
	ErrNotSeeded = errors.New("initial states not set")
)

// City owns a population of agents and the aggregate epidemic counts.
type City struct {
	Name         string
	Width        float64
	Height       float64
	N            int
	Proximity    float64
	RecoveryRate float64

	Agents    []*agents.Agent
	Locations map[policy.Mode][]orb.Point

	// Network is the contact graph of the current timestep; History holds every
	// timestep's graph in order.
	Network *simple.UndirectedGraph
	History []*simple.UndirectedGraph

	QuarantineLocation    orb.Point
	QuarantineThreshold   int
	QuarantineProbability float64

	// LastTally counts agents per mode after the most recent movement.
	LastTally map[policy.Mode]int

	policy      *policy.Policy
	groupPolicy map[agents.AgentID]*policy.Policy
	recoverAt   int
	space       agents.Space

	susceptible int
	infected    int
	removed     int
	quarantined int
	seeded      bool

	rng *rand.Rand
	log *slog.Logger
}

// New builds a city: agents are placed, central locations sampled and
// assigned, and every count is zero until SetInitialStates.
func New(cfg Config, rng *rand.Rand, logger *slog.Logger) (*City, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	quarantineAt := orb.Point{-cfg.Width, -cfg.Height}
	if cfg.QuarantineLocation != nil {
		quarantineAt = *cfg.QuarantineLocation
	}

	c := &City{
		Name:                  cfg.Name,
		Width:                 cfg.Width,
		Height:                cfg.Height,
		N:                     cfg.Population,
		Proximity:             cfg.Proximity,
		RecoveryRate:          cfg.RecoveryRate,
		QuarantineLocation:    quarantineAt,
		QuarantineThreshold:   cfg.QuarantineThreshold,
		QuarantineProbability: cfg.QuarantineProbability,
		LastTally:             make(map[policy.Mode]int, policy.NumModes),
		policy:                cfg.Policy,
		groupPolicy:           make(map[agents.AgentID]*policy.Policy),
		recoverAt:             recoveryThreshold(cfg.RecoveryRate),
		space:                 agents.Space{Width: cfg.Width, Height: cfg.Height, Jitter: cfg.Jitter},
		rng:                   rng,
		log:                   logger.With("city", cfg.Name),
	}

	c.spawnAgents(cfg)
	c.setupCentralLocations(cfg)
	return c, nil
}

// recoveryThreshold converts a rate into the whole number of infected
// timesteps after which an agent is removed.
func recoveryThreshold(rate float64) int {
	return int(math.Ceil(1/rate - 1e-9))
}

func (c *City) spawnAgents(cfg Config) {
	bound := geometry.Rect(c.Width, c.Height)

	var field *world.DensityField
	if cfg.Density != nil {
		field = world.NewDensityField(c.rng.Int63(), *cfg.Density)
	}

	c.Agents = make([]*agents.Agent, c.N)
	for i := range c.Agents {
		var pos orb.Point
		if field != nil {
			pos = field.Sample(c.rng, bound)
		} else {
			pos = geometry.UniformPoint(c.rng, bound)
		}
		heading := agents.TurnAngles[c.rng.Intn(len(agents.TurnAngles))]

		a := agents.New(agents.AgentID(i), pos, heading)
		a.Velocity = cfg.Velocity
		c.Agents[i] = a
	}
}

// Policy returns the city-wide default policy.
func (c *City) Policy() *policy.Policy {
	return c.policy
}

// AssignPolicy makes the given agents follow p instead of the city default,
// e.g. a group of essential workers.
func (c *City) AssignPolicy(p *policy.Policy, ids ...agents.AgentID) error {
	if err := p.Validate(); err != nil {
		return err
	}
	for _, id := range ids {
		if int(id) < 0 || int(id) >= c.N {
			return fmt.Errorf("assign policy: agent %d not in city %q", id, c.Name)
		}
		c.groupPolicy[id] = p
	}
	return nil
}

// PolicyFor returns the policy agent id follows this timestep.
func (c *City) PolicyFor(id agents.AgentID) *policy.Policy {
	if p, ok := c.groupPolicy[id]; ok {
		return p
	}
	return c.policy
}

// SetProximity changes the contact radius from the next timestep on.
func (c *City) SetProximity(r float64) error {
	if r <= 0 {
		return fmt.Errorf("%w: proximity %v", policy.ErrConfiguration, r)
	}
	c.Proximity = r
	return nil
}

// SetInitialStates infects one uniformly chosen agent and initializes the
// aggregate counts from the agents. It must be called exactly once.
func (c *City) SetInitialStates() error {
	if c.seeded {
		return fmt.Errorf("city %q: %w", c.Name, ErrAlreadySeeded)
	}
	c.seeded = true

	patientZero := c.Agents[c.rng.Intn(c.N)]
	if _, err := patientZero.TransitionTo(agents.StateInfected); err != nil {
		return fmt.Errorf("city %q: %w", c.Name, err)
	}
	c.log.Info("patient zero", "agent", patientZero.Name)

	c.recount()
	return nil
}

// recount rebuilds the aggregate counts from per-agent state.
func (c *City) recount() {
	c.susceptible, c.infected, c.removed, c.quarantined = 0, 0, 0, 0
	for _, a := range c.Agents {
		switch a.State {
		case agents.StateSusceptible:
			c.susceptible++
		case agents.StateInfected:
			c.infected++
		case agents.StateRemoved:
			c.removed++
		}
		if a.Quarantined {
			c.quarantined++
		}
	}
}

// Timestep runs one tick: move, build the contact graph, spread infection.
// It returns the tick's transmission pressure, the sum of per-agent
// transmission rates.
func (c *City) Timestep(i int) (float64, error) {
	if !c.seeded {
		return 0, fmt.Errorf("city %q timestep %d: %w", c.Name, i, ErrNotSeeded)
	}
	if err := c.checkPolicies(i); err != nil {
		return 0, err
	}

	c.Network = simple.NewUndirectedGraph()
	for _, a := range c.Agents {
		if i > 0 {
			if err := a.Move(c.rng, i, c.PolicyFor(a.ID), c.space); err != nil {
				return 0, fmt.Errorf("city %q timestep %d: %w", c.Name, i, err)
			}
		} else {
			a.ResetTick()
		}
		c.Network.AddNode(simple.Node(a.ID))
	}

	c.connect()
	c.History = append(c.History, c.Network)

	pressure := 0.0
	for _, a := range c.Agents {
		if a.Transitioned || !a.IsInfected() {
			continue
		}
		rate, err := c.handleInfection(a)
		if err != nil {
			return pressure, fmt.Errorf("city %q timestep %d: %w", c.Name, i, err)
		}
		pressure += rate
	}

	c.tallyModes(i)
	return pressure, nil
}

// checkPolicies surfaces a missing distribution for timestep i before any agent moves.
func (c *City) checkPolicies(i int) error {
	checked := make(map[*policy.Policy]bool, 1+len(c.groupPolicy))
	check := func(p *policy.Policy) error {
		if checked[p] || p.Movement.Kind != policy.MovementPreferentialReturn {
			return nil
		}
		checked[p] = true
		if _, err := p.Distribution(i); err != nil {
			return fmt.Errorf("city %q: %w", c.Name, err)
		}
		return nil
	}

	if err := check(c.policy); err != nil {
		return err
	}
	for _, a := range c.Agents {
		if p, ok := c.groupPolicy[a.ID]; ok {
			if err := check(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *City) tallyModes(i int) {
	for _, m := range policy.Modes {
		c.LastTally[m] = 0
	}
	for _, a := range c.Agents {
		if a.HasMode {
			c.LastTally[a.Mode]++
		}
	}
	if i > 0 {
		c.log.Info("movement",
			"timestep", i,
			"home", c.LastTally[policy.ModeHome],
			"work", c.LastTally[policy.ModeWork],
			"transit", c.LastTally[policy.ModeTransit],
			"market", c.LastTally[policy.ModeMarket],
		)
	}
}

// Agent returns the agent with the given id.
func (c *City) Agent(id agents.AgentID) (*agents.Agent, error) {
	if int(id) < 0 || int(id) >= len(c.Agents) {
		return nil, fmt.Errorf("city %q has no agent %d", c.Name, id)
	}
	return c.Agents[id], nil
}
