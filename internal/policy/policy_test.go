package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChoose_PartitionsInPriorityOrder(t *testing.T) {
	d := Dist(0.25, 0.25, 0.25, 0.25)

	assert.Equal(t, ModeHome, d.Choose(0))
	assert.Equal(t, ModeHome, d.Choose(0.2499))
	assert.Equal(t, ModeWork, d.Choose(0.25)) // boundary belongs to the later mode
	assert.Equal(t, ModeMarket, d.Choose(0.6))
	assert.Equal(t, ModeTransit, d.Choose(0.75))
	assert.Equal(t, ModeTransit, d.Choose(0.9999))
}

func TestChoose_ZeroProbabilityModeNeverChosen(t *testing.T) {
	d := Presets["lockdown"]
	for i := 0; i < 1000; i++ {
		u := float64(i) / 1000
		assert.NotEqual(t, ModeWork, d.Choose(u))
	}
}

func TestPresets_AllValid(t *testing.T) {
	for _, name := range PresetNames() {
		assert.NoError(t, Presets[name].Validate(), name)
	}
}

func TestValidate_RejectsBadDistributions(t *testing.T) {
	err := Dist(0.5, 0.5, 0.5, 0).Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProbabilityUnset))
	assert.True(t, IsConfigurationError(err))

	assert.Error(t, Dist(-0.1, 0.6, 0.3, 0.2).Validate())
}

func TestDistribution_MissingTimestepIsConfigurationError(t *testing.T) {
	schedule, err := BuildSchedule("lockdown", 10, 5)
	require.NoError(t, err)
	p := New(HealthNormal, PreferentialReturn("", schedule))

	d, err := p.Distribution(3)
	require.NoError(t, err)
	assert.Equal(t, Presets["lax"], d)

	d, err = p.Distribution(7)
	require.NoError(t, err)
	assert.Equal(t, Presets["lockdown"], d)

	_, err = p.Distribution(10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoDistribution))
	assert.True(t, IsConfigurationError(err))
}

func TestDistribution_RandomWalkHasNoProbabilities(t *testing.T) {
	p := New(HealthNormal, RandomWalk())
	_, err := p.Distribution(0)
	assert.True(t, errors.Is(err, ErrProbabilityUnset))
	assert.NoError(t, p.Validate())
}

func TestBuildSchedule_UnknownIntent(t *testing.T) {
	_, err := BuildSchedule("anarchy", 5, 1)
	assert.True(t, IsConfigurationError(err))
}

func TestUpdate_ReplacesSchedule(t *testing.T) {
	p := New(HealthSocialDistancing, PreferentialReturn("pr", Constant(Presets["even"], 2)))
	p.Update(Constant(Presets["tight"], 2))

	d, err := p.Distribution(1)
	require.NoError(t, err)
	assert.Equal(t, Presets["tight"], d)
	assert.Equal(t, DefaultDistance, p.Distance)
}

func TestParseHealthPolicy(t *testing.T) {
	h, err := ParseHealthPolicy("social_distancing")
	require.NoError(t, err)
	assert.Equal(t, HealthSocialDistancing, h)

	_, err = ParseHealthPolicy("curfew")
	assert.True(t, IsConfigurationError(err))
}
