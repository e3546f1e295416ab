// Simulation ties cities to the engine and records each city's trajectory.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/epicity/internal/city"
)

// Series is one city's recorded trajectory.
type Series struct {
	Name   string        `json:"name"`
	N      int           `json:"n"`
	Ticks  []int         `json:"ticks"`
	States []city.States `json:"states"`
	Beta   []float64     `json:"beta"` // Transmission pressure / N per tick

	ConvergedAt   *int `json:"converged_at,omitempty"` // First tick with I+R == N
	PeakInfected  int  `json:"peak_infected"`
	PeakTick      int  `json:"peak_tick"`
	TotalInfected int  `json:"total_infected"` // I+R at the last recorded tick
}

// Record appends one tick.
func (s *Series) Record(tick int, st city.States, beta float64) {
	s.Ticks = append(s.Ticks, tick)
	s.States = append(s.States, st)
	s.Beta = append(s.Beta, beta)

	if st.TotalIR == s.N && s.ConvergedAt == nil {
		t := tick
		s.ConvergedAt = &t
	}
	if st.Infected > s.PeakInfected {
		s.PeakInfected = st.Infected
		s.PeakTick = tick
	}
	s.TotalInfected = st.TotalIR
}

// Simulation holds the cities of one run.
type Simulation struct {
	Cities   []*city.City
	Series   []*Series
	LastTick int
}

// NewSimulation seeds every city and prepares an empty series for each.
func NewSimulation(cities []*city.City) (*Simulation, error) {
	sim := &Simulation{Cities: cities, LastTick: -1}
	for _, c := range cities {
		if err := c.SetInitialStates(); err != nil {
			return nil, fmt.Errorf("seed %s: %w", c.Name, err)
		}
		sim.Series = append(sim.Series, &Series{Name: c.Name, N: c.N})
	}
	return sim, nil
}

// TickAll runs timestep tick in every city and records the results.
func (s *Simulation) TickAll(tick int) error {
	s.LastTick = tick
	for i, c := range s.Cities {
		pressure, err := c.Timestep(tick)
		if err != nil {
			return err
		}
		beta := pressure / float64(c.N)
		s.Series[i].Record(tick, c.States(), beta)

		c.LogStates(tick)
		slog.Debug("transmission pressure", "city", c.Name, "time", SimTime(tick), "beta", fmt.Sprintf("%.5f", beta))
	}
	return nil
}

// AllClear reports whether every city has zero infected agents.
func (s *Simulation) AllClear() bool {
	for _, c := range s.Cities {
		if c.States().Infected > 0 {
			return false
		}
	}
	return true
}

// Attach wires the simulation into an engine.
func (s *Simulation) Attach(e *Engine) {
	e.OnTick = s.TickAll
	e.Done = s.AllClear
}
