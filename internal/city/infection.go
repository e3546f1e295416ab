package city

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/samber/lo"

	"github.com/talgya/epicity/internal/agents"
	"github.com/talgya/epicity/internal/policy"
)

// handleInfection runs one infected agent through the tick:
//  1. infect susceptible neighbours, each with probability |S neighbours| / N
//  2. advance the infected duration
//  3. quarantine if eligible
//  4. remove once the duration reaches 1/recovery rate
func (c *City) handleInfection(a *agents.Agent) (float64, error) {
	rate := 0.0

	susceptible := lo.Filter(c.Neighbors(a.ID), func(b *agents.Agent, _ int) bool {
		return b.IsSusceptible()
	})
	if len(susceptible) > 0 {
		rate = lo.Clamp(float64(len(susceptible))/float64(c.N), 0, 1)
		for _, b := range susceptible {
			if c.rng.Float64() < rate {
				c.log.Debug("transmission", "from", a.Name, "mode", modeName(a), "to", b.Name)
				if err := c.transition(b, agents.StateInfected); err != nil {
					return rate, err
				}
				b.Transitioned = true
			}
		}
	}

	a.TimestepsInfected++

	if !a.Quarantined && c.QuarantineProbability > 0 && a.TimestepsInfected >= c.QuarantineThreshold {
		if c.rng.Float64() < c.QuarantineProbability {
			c.quarantine(a)
		}
	}

	if a.TimestepsInfected >= c.recoverAt {
		c.log.Debug("removed", "agent", a.Name)
		if err := c.remove(a); err != nil {
			return rate, err
		}
	}

	return rate, nil
}

// remove moves a into the removed state, resets its infected duration and
// releases it from quarantine.
func (c *City) remove(a *agents.Agent) error {
	if err := c.transition(a, agents.StateRemoved); err != nil {
		return err
	}
	a.Transitioned = true
	a.TimestepsInfected = 0
	if a.Quarantined {
		return c.release(a)
	}
	return nil
}

// transition moves a into target and updates the aggregate counts in the same
// step. Repeating the current state changes nothing; a backward move fails
// without touching the counts.
func (c *City) transition(a *agents.Agent, target agents.State) error {
	prev := a.State
	changed, err := a.TransitionTo(target)
	if err != nil || !changed {
		return err
	}
	*c.counter(prev)--
	*c.counter(target)++
	return nil
}

func (c *City) counter(s agents.State) *int {
	switch s {
	case agents.StateInfected:
		return &c.infected
	case agents.StateRemoved:
		return &c.removed
	default:
		return &c.susceptible
	}
}

// Transition moves agent id forward into target, keeping counts in step.
// Removal is handled the same way as a natural recovery. Backward moves
// return an agents.ErrInvariant error.
func (c *City) Transition(id agents.AgentID, target agents.State) error {
	a, err := c.Agent(id)
	if err != nil {
		return err
	}
	if target == agents.StateRemoved {
		if a.IsRemoved() {
			return nil
		}
		return c.remove(a)
	}
	return c.transition(a, target)
}

// quarantine moves a to the quarantine location, out of ordinary movement.
func (c *City) quarantine(a *agents.Agent) {
	a.Quarantined = true
	c.quarantined++
	a.Prior = a.Position
	a.Position = c.jitter(c.QuarantineLocation)
	c.log.Debug("quarantined", "agent", a.Name, "timesteps_infected", a.TimestepsInfected)
}

// release ends quarantine and sends a home.
func (c *City) release(a *agents.Agent) error {
	home, err := a.Destination(policy.ModeHome)
	if err != nil {
		return fmt.Errorf("release %s: %w", a.Name, err)
	}
	a.Quarantined = false
	c.quarantined--
	a.Prior = a.Position
	a.Position = c.jitter(home)
	a.Reflect(c.space)
	return nil
}

func (c *City) jitter(p orb.Point) orb.Point {
	return orb.Point{
		p[0] + c.rng.NormFloat64()*c.space.Jitter,
		p[1] + c.rng.NormFloat64()*c.space.Jitter,
	}
}

func modeName(a *agents.Agent) string {
	if !a.HasMode {
		return "wandering"
	}
	return a.Mode.String()
}
