package city

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/talgya/epicity/internal/agents"
	"github.com/talgya/epicity/internal/policy"
	"github.com/talgya/epicity/internal/world"
)

// Scenario is a city configuration plus an optional group of agents that
// follow a different policy from the rest of the population.
type Scenario struct {
	Config Config

	// GroupShare of the population, taken from the lowest agent IDs, follows
	// GroupPolicy instead of Config.Policy.
	GroupShare  float64
	GroupPolicy *policy.Policy
}

// Build constructs the city and applies the group policy.
func (s Scenario) Build(rng *rand.Rand, logger *slog.Logger) (*City, error) {
	c, err := New(s.Config, rng, logger)
	if err != nil {
		return nil, err
	}
	if s.GroupPolicy == nil || s.GroupShare <= 0 {
		return c, nil
	}

	n := int(math.Ceil(s.GroupShare * float64(c.N)))
	if n > c.N {
		n = c.N
	}
	ids := make([]agents.AgentID, n)
	for i := range ids {
		ids[i] = agents.AgentID(i)
	}
	if err := c.AssignPolicy(s.GroupPolicy, ids...); err != nil {
		return nil, fmt.Errorf("assign group policy in %s: %w", c.Name, err)
	}
	c.log.Info("group policy assigned", "agents", n, "movement", s.GroupPolicy.Movement.Label)
	return c, nil
}

// StandardScenarios returns the comparison set run by the command-line
// driver: a restricted city that locks down at lockdownAt, plus variants with
// quarantine, social distancing, essential workers, an unconstrained random
// walk, and clustered housing.
func StandardScenarios(timesteps, lockdownAt int) ([]Scenario, error) {
	restrict, err := policy.BuildSchedule("lockdown", timesteps, lockdownAt)
	if err != nil {
		return nil, err
	}
	// Each city gets its own copy so a later Update does not leak across cities.
	schedule := func() map[int]policy.ModeDistribution {
		cp := make(map[int]policy.ModeDistribution, len(restrict))
		for k, v := range restrict {
			cp[k] = v
		}
		return cp
	}
	densities := Densities{
		policy.ModeMarket:  50,
		policy.ModeTransit: 200,
		policy.ModeWork:    20,
		policy.ModeHome:    3,
	}

	a := DefaultConfig("City A")
	a.Densities = densities
	a.Policy = policy.New(policy.HealthNormal, policy.PreferentialReturn("restrict", schedule()))

	b := a
	b.Name = "City B (quarantine)"
	b.Policy = policy.New(policy.HealthNormal, policy.PreferentialReturn("restrict", schedule()))
	b.QuarantineProbability = 0.3

	c := a
	c.Name = "City C (social distancing)"
	c.Policy = policy.New(policy.HealthSocialDistancing, policy.PreferentialReturn("restrict", schedule()))

	d := a
	d.Name = "City D (essential workers)"
	d.Policy = policy.New(policy.HealthNormal, policy.PreferentialReturn("restrict", schedule()))
	essential := policy.New(policy.HealthNormal,
		policy.PreferentialReturn("essential_worker", policy.Constant(policy.Presets["essential_worker"], timesteps)))

	e := DefaultConfig("City E (random walk)")

	f := a
	f.Name = "City F (clustered)"
	f.Policy = policy.New(policy.HealthNormal, policy.PreferentialReturn("restrict", schedule()))
	density := world.DefaultDensityConfig()
	f.Density = &density

	return []Scenario{
		{Config: a},
		{Config: b},
		{Config: c},
		{Config: d, GroupShare: 0.2, GroupPolicy: essential},
		{Config: e},
		{Config: f},
	}, nil
}
