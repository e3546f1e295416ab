// Agent movement: correlated random walk, preferential return, social
// distancing bounce, and reflection at the city edges.
package agents

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/paulmach/orb"

	"github.com/talgya/epicity/internal/policy"
)

// Space is the region agents move within.
type Space struct {
	Width  float64
	Height float64
	Jitter float64 // Standard deviation of destination jitter per axis
}

// Move advances the agent by one timestep under p. Quarantined agents stay
// put. Per-timestep flags are cleared on every call.
func (a *Agent) Move(rng *rand.Rand, t int, p *policy.Policy, space Space) error {
	defer a.ResetTick()

	if a.Quarantined {
		return nil
	}

	if p.Health == policy.HealthSocialDistancing && a.HealthPolicyActive {
		a.bounce(rng)
	} else {
		switch p.Movement.Kind {
		case policy.MovementRandomWalk:
			a.randomWalk(rng)
		case policy.MovementPreferentialReturn:
			if err := a.preferentialReturn(rng, t, p, space.Jitter); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s has unknown movement kind %d", ErrInvariant, a.Name, p.Movement.Kind)
		}
	}

	a.Reflect(space)
	return nil
}

// randomWalk turns by a random angle from TurnAngles and steps forward.
func (a *Agent) randomWalk(rng *rand.Rand) {
	a.Turn = TurnAngles[rng.Intn(len(TurnAngles))]
	a.Heading += a.Turn
	a.step()
}

// preferentialReturn picks a mode from the timestep's distribution and
// teleports to that mode's personal destination, plus Gaussian jitter.
func (a *Agent) preferentialReturn(rng *rand.Rand, t int, p *policy.Policy, jitter float64) error {
	dist, err := p.Distribution(t)
	if err != nil {
		return fmt.Errorf("%s: %w", a.Name, err)
	}

	mode := dist.Choose(rng.Float64())
	a.Mode = mode
	a.HasMode = true

	dest, err := a.Destination(mode)
	if err != nil {
		return err
	}

	a.Prior = a.Position
	a.Position = orb.Point{
		dest[0] + rng.NormFloat64()*jitter,
		dest[1] + rng.NormFloat64()*jitter,
	}
	return nil
}

// bounce reverses the heading with a randomized angle in [155°, 205°] and
// steps along it.
func (a *Agent) bounce(rng *rand.Rand) {
	a.Heading = degToRad(float64(155+rng.Intn(51))) - a.Heading
	a.step()
}

func (a *Agent) step() {
	a.Prior = a.Position
	a.Position = orb.Point{
		a.Prior[0] + a.Velocity*math.Cos(a.Heading),
		a.Prior[1] + a.Velocity*math.Sin(a.Heading),
	}
}

// Reflect brings the agent back inside [0,width) × [0,height), mirroring the
// heading component on each axis that was corrected. A position exactly on the
// far edge counts as outside.
func (a *Agent) Reflect(space Space) {
	x, xOut := reflectAxis(a.Position[0], space.Width, a.Velocity)
	y, yOut := reflectAxis(a.Position[1], space.Height, a.Velocity)
	a.Position = orb.Point{x, y}

	if xOut {
		a.Heading = math.Pi - a.Heading
	}
	if yOut {
		a.Heading = -a.Heading
	}
}

func reflectAxis(v, limit, velocity float64) (float64, bool) {
	if v >= 0 && v < limit {
		return v, false
	}

	if v >= limit {
		v -= velocity
	}
	if v < 0 {
		v = -v * velocity
	}

	// Far overshoots fold back into range.
	if v >= limit || v < 0 {
		v = math.Mod(v, limit)
		if v < 0 {
			v += limit
		}
		if v >= limit {
			v = math.Nextafter(limit, 0)
		}
	}
	return v, true
}

func degToRad(d float64) float64 {
	return d * math.Pi / 180
}
