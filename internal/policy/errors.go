package policy

import "errors"

// ErrConfiguration is the root of every configuration error. Configuration
// errors indicate a setup bug and abort the run.
var ErrConfiguration = errors.New("configuration error")

var (
	// ErrNoDistribution means a schedule has no entry for the requested timestep.
	ErrNoDistribution = wrapConfig("no mode distribution for timestep")

	// ErrProbabilityUnset means a movement model needs mode probabilities that
	// are missing or invalid.
	ErrProbabilityUnset = wrapConfig("mode probability unset")
)

type configError struct{ msg string }

func (e *configError) Error() string { return e.msg }
func (e *configError) Unwrap() error { return ErrConfiguration }

func wrapConfig(msg string) error { return &configError{msg: msg} }

// IsConfigurationError reports whether err is a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
