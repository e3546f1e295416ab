package policy

import (
	"fmt"
	"sort"
)

// Presets are the named location policies used by scenarios.
var Presets = map[string]ModeDistribution{
	"lax":              Dist(0.3, 0.3, 0.1, 0.3),
	"tight":            Dist(0.8, 0.05, 0.1, 0.05),
	"even":             Dist(0.25, 0.25, 0.25, 0.25),
	"stay_at_home":     Dist(0.9, 0.0, 0.05, 0.05),
	"essential_worker": Dist(0.3, 0.5, 0.05, 0.15),
	"lockdown":         Dist(0.95, 0.0, 0.04, 0.01),
	"restrict":         Dist(0.75, 0.05, 0.1, 0.1),
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset looks up a named distribution.
func Preset(name string) (ModeDistribution, error) {
	d, ok := Presets[name]
	if !ok {
		return ModeDistribution{}, fmt.Errorf("%w: unknown location policy %q", ErrConfiguration, name)
	}
	return d, nil
}

// BuildSchedule returns a schedule covering timesteps [0, timesteps) that
// follows the "lax" preset before t0 and the intent preset from t0 on.
func BuildSchedule(intent string, timesteps, t0 int) (map[int]ModeDistribution, error) {
	before, err := Preset("lax")
	if err != nil {
		return nil, err
	}
	after, err := Preset(intent)
	if err != nil {
		return nil, err
	}

	schedule := make(map[int]ModeDistribution, timesteps)
	for i := 0; i < timesteps; i++ {
		if i < t0 {
			schedule[i] = before
		} else {
			schedule[i] = after
		}
	}
	return schedule, nil
}

// Constant returns a schedule applying one distribution to every timestep.
func Constant(d ModeDistribution, timesteps int) map[int]ModeDistribution {
	schedule := make(map[int]ModeDistribution, timesteps)
	for i := 0; i < timesteps; i++ {
		schedule[i] = d
	}
	return schedule
}
