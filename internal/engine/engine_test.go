package engine

import (
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/epicity/internal/city"
	"github.com/talgya/epicity/internal/policy"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testCity(t *testing.T, name string, seed int64, recovery float64) *city.City {
	t.Helper()
	cfg := city.DefaultConfig(name)
	cfg.Width, cfg.Height = 20, 20
	cfg.Population = 30
	cfg.Proximity = 1.5
	cfg.RecoveryRate = recovery
	c, err := city.New(cfg, rand.New(rand.NewSource(seed)), nil)
	require.NoError(t, err)
	return c
}

func TestEngine_RunsToMaxTicks(t *testing.T) {
	e := NewEngine(5)
	var ticks []int
	e.OnTick = func(tick int) error {
		ticks = append(ticks, tick)
		return nil
	}
	require.NoError(t, e.Run())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, ticks)
	assert.False(t, e.Running())
}

func TestEngine_StopFromTick(t *testing.T) {
	e := NewEngine(10)
	e.OnTick = func(tick int) error {
		assert.True(t, e.Running())
		if tick == 2 {
			e.Stop()
		}
		return nil
	}
	require.NoError(t, e.Run())
	assert.Equal(t, 3, e.Tick)
	assert.False(t, e.Running())
}

func TestEngine_StopFromAnotherGoroutine(t *testing.T) {
	e := NewEngine(1_000_000)
	started := make(chan struct{})
	release := make(chan struct{})
	e.OnTick = func(tick int) error {
		if tick == 0 {
			close(started)
			<-release
		}
		return nil
	}

	go func() {
		<-started
		e.Stop()
		close(release)
	}()

	require.NoError(t, e.Run())
	assert.Equal(t, 1, e.Tick)
}

func TestEngine_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	e := NewEngine(10)
	e.OnTick = func(tick int) error {
		if tick == 2 {
			return boom
		}
		return nil
	}
	err := e.Run()
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 3, e.Tick)
}

func TestSimulation_HaltsWhenAllCitiesClear(t *testing.T) {
	a := testCity(t, "A", 1, 1.0/3)
	b := testCity(t, "B", 2, 1.0/4)
	sim, err := NewSimulation([]*city.City{a, b})
	require.NoError(t, err)

	e := NewEngine(500)
	sim.Attach(e)
	require.NoError(t, e.Run())

	assert.True(t, sim.AllClear())
	assert.Less(t, e.Tick, 500)
	assert.Equal(t, e.Tick-1, sim.LastTick)
	for _, s := range sim.Series {
		require.Len(t, s.States, e.Tick)
		assert.Len(t, s.Beta, e.Tick)
		assert.GreaterOrEqual(t, s.PeakInfected, 1)
		last := s.States[len(s.States)-1]
		assert.Equal(t, last.TotalIR, s.TotalInfected)
		assert.Zero(t, last.Infected)
	}
}

func TestSimulation_ConfigurationErrorAbortsRun(t *testing.T) {
	cfg := city.DefaultConfig("Short")
	cfg.Width, cfg.Height = 20, 20
	cfg.Population = 10
	cfg.RecoveryRate = 1.0 / 50
	cfg.Policy = policy.New(policy.HealthNormal,
		policy.PreferentialReturn("short", policy.Constant(policy.Presets["tight"], 2)))
	c, err := city.New(cfg, rand.New(rand.NewSource(3)), nil)
	require.NoError(t, err)

	sim, err := NewSimulation([]*city.City{c})
	require.NoError(t, err)
	e := NewEngine(10)
	sim.Attach(e)

	err = e.Run()
	require.Error(t, err)
	assert.True(t, policy.IsConfigurationError(err))
}

func TestSeries_Record(t *testing.T) {
	s := &Series{Name: "X", N: 4}
	s.Record(0, city.States{Susceptible: 3, Infected: 1, Total: 4, TotalIR: 1}, 0.1)
	s.Record(1, city.States{Susceptible: 1, Infected: 3, Total: 4, TotalIR: 3}, 0.5)
	s.Record(2, city.States{Infected: 2, Removed: 2, Total: 4, TotalIR: 4}, 0.0)
	s.Record(3, city.States{Removed: 4, Total: 4, TotalIR: 4}, 0.0)

	require.NotNil(t, s.ConvergedAt)
	assert.Equal(t, 2, *s.ConvergedAt)
	assert.Equal(t, 3, s.PeakInfected)
	assert.Equal(t, 1, s.PeakTick)
	assert.Equal(t, 4, s.TotalInfected)
}
