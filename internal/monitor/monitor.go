package monitor

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// #region monitor
// Monitor turns two per-step entropy readings into a weighted strain scalar
// and an exponentially smoothed rate of change. One Monitor per series; it is
// not safe for concurrent use.
type Monitor struct {
	config Config

	prev     float64
	hasPrev  bool
	velocity float64
}

// New validates config and returns a Monitor with no history.
func New(config Config) (*Monitor, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	return &Monitor{config: config}, nil
}

// ValidateConfig reports whether config can drive a Monitor.
func ValidateConfig(config Config) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"alpha", config.Alpha},
		{"beta", config.Beta},
		{"gamma", config.Gamma},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidConfig, f.name, f.v)
		}
	}
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if config.Alpha+config.Beta == 0 {
		return fmt.Errorf("%w: alpha and beta are both zero, strain would never move", ErrInvalidConfig)
	}
	return nil
}

// Config returns the weights the monitor was built with.
func (m *Monitor) Config() Config {
	return m.config
}

// #endregion monitor

// #region update
// Update folds one observation into the monitor.
// The first observation always reports zero velocity.
func (m *Monitor) Update(global, local float64) Reading {
	strain := m.config.Alpha*global + m.config.Beta*local

	var raw float64
	if m.hasPrev {
		raw = strain - m.prev
	}
	m.velocity = m.config.Gamma*m.velocity + (1-m.config.Gamma)*raw
	m.prev = strain
	m.hasPrev = true

	return Reading{Strain: strain, Velocity: m.velocity}
}

// Reset drops all history; the next Update behaves like the first.
func (m *Monitor) Reset() {
	m.prev = 0
	m.hasPrev = false
	m.velocity = 0
}

// #endregion update
