package city

import (
	"fmt"
	"io"

	"github.com/talgya/epicity/internal/agents"
)

// States is a snapshot of a city's aggregate counts.
type States struct {
	Susceptible int `json:"susceptible" db:"susceptible"`
	Infected    int `json:"infected" db:"infected"`
	Removed     int `json:"removed" db:"removed"`
	Quarantined int `json:"quarantined" db:"quarantined"` // Subset of Infected
	Total       int `json:"total" db:"total"`             // Susceptible + Infected + Removed
	TotalIR     int `json:"total_ir" db:"total_ir"`       // Infected + Removed
}

// States returns the current aggregate counts.
func (c *City) States() States {
	return States{
		Susceptible: c.susceptible,
		Infected:    c.infected,
		Removed:     c.removed,
		Quarantined: c.quarantined,
		Total:       c.susceptible + c.infected + c.removed,
		TotalIR:     c.infected + c.removed,
	}
}

// PrintStates writes a human-readable summary of the counts.
func (c *City) PrintStates(w io.Writer) error {
	s := c.States()
	_, err := fmt.Fprintf(w, "City: %s\nSusceptible: %d\nInfected: %d\nRemoved: %d\nQuarantined: %d\n\n",
		c.Name, s.Susceptible, s.Infected, s.Removed, s.Quarantined)
	return err
}

// LogStates emits the counts as a structured log record.
func (c *City) LogStates(timestep int) {
	s := c.States()
	c.log.Info("states",
		"timestep", timestep,
		"susceptible", s.Susceptible,
		"infected", s.Infected,
		"removed", s.Removed,
		"quarantined", s.Quarantined,
	)
}

// Reconcile checks the aggregate counts against per-agent state.
func (c *City) Reconcile() error {
	var want States
	for _, a := range c.Agents {
		switch a.State {
		case agents.StateSusceptible:
			want.Susceptible++
		case agents.StateInfected:
			want.Infected++
		case agents.StateRemoved:
			want.Removed++
		default:
			return fmt.Errorf("%w: %s in unknown state %d", agents.ErrInvariant, a.Name, a.State)
		}
		if a.Quarantined {
			if !a.IsInfected() {
				return fmt.Errorf("%w: %s quarantined while %s", agents.ErrInvariant, a.Name, a.State)
			}
			want.Quarantined++
		}
	}

	got := c.States()
	if got.Susceptible != want.Susceptible || got.Infected != want.Infected ||
		got.Removed != want.Removed || got.Quarantined != want.Quarantined {
		return fmt.Errorf("%w: counts %+v, agents say %+v", agents.ErrInvariant, got, want)
	}
	if got.Total != c.N {
		return fmt.Errorf("%w: %d agents counted, population %d", agents.ErrInvariant, got.Total, c.N)
	}
	return nil
}
