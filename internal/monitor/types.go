package monitor

import "errors"

// #region errors
// ErrInvalidConfig is returned when a monitor is constructed with unusable weights or smoothing.
var ErrInvalidConfig = errors.New("invalid monitor config")

// #endregion errors

// #region config
// Config holds the immutable weights and smoothing factor of a Monitor.
type Config struct {
	Alpha float64 `yaml:"alpha" json:"alpha" validate:"gte=0"`      // weight on global entropy
	Beta  float64 `yaml:"beta" json:"beta" validate:"gte=0"`        // weight on local entropy
	Gamma float64 `yaml:"gamma" json:"gamma" validate:"gte=0,lt=1"` // velocity smoothing, closer to 1 = slower
}

// DefaultConfig returns the weights used by the edge-case harness.
// Gamma is scenario dependent; callers should set it explicitly for slow drifts.
func DefaultConfig() Config {
	return Config{
		Alpha: 0.92,
		Beta:  0.08,
		Gamma: 0.95,
	}
}

// Override replaces selected fields of a base Config. Nil fields keep the
// base value, so an override can tune gamma alone.
type Override struct {
	Alpha *float64 `yaml:"alpha" json:"alpha,omitempty"`
	Beta  *float64 `yaml:"beta" json:"beta,omitempty"`
	Gamma *float64 `yaml:"gamma" json:"gamma,omitempty"`
}

// Apply lays o over base.
func (o Override) Apply(base Config) Config {
	if o.Alpha != nil {
		base.Alpha = *o.Alpha
	}
	if o.Beta != nil {
		base.Beta = *o.Beta
	}
	if o.Gamma != nil {
		base.Gamma = *o.Gamma
	}
	return base
}

// #endregion config

// #region reading
// Reading is the per-step output of Update.
type Reading struct {
	Strain   float64 // s_total
	Velocity float64 // smoothed ds/dt
}

// #endregion reading

// #region aggregate
// Aggregate is the running summary of a series of readings.
type Aggregate struct {
	Steps              int
	LastDelta          float64 // s_total - previous s_total, 0 on the first step
	CumulativeAbsDrift float64
	PeakAbsVelocity    float64
	PeakStrain         float64 // max(0, strains seen)
}

// #endregion aggregate
