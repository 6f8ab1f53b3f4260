// Package stability computes the damped, attractor-pulled step a caller
// should apply once the classifier asks it to stabilize.
package stability

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid stability config")

var validate = validator.New()

// emergencyGain is the engagement above which the hard velocity cap applies.
const emergencyGain = 0.65

// Config tunes how hard the stabilizer engages.
type Config struct {
	DampingLambda          float64 `yaml:"damping_lambda" json:"damping_lambda" default:"30" validate:"gte=0"`
	AttractorK             float64 `yaml:"attractor_k" json:"attractor_k" default:"0.35" validate:"gte=0"`
	StrainOn               float64 `yaml:"strain_on" json:"strain_on" default:"0.55" validate:"gte=0,lt=1"`
	DsDtHardCap            float64 `yaml:"dsdt_hard_cap" json:"dsdt_hard_cap" default:"0.003" validate:"gt=0"`
	CumDriftCritical       float64 `yaml:"cum_drift_critical" json:"cum_drift_critical" default:"0.75" validate:"gte=0,lt=1"`
	RecoverabilityCritical float64 `yaml:"recoverability_critical" json:"recoverability_critical" default:"0.35" validate:"gt=0,lte=1"`
}

// DefaultConfig returns the stock stabilizer settings.
func DefaultConfig() Config {
	return Config{
		DampingLambda:          30,
		AttractorK:             0.35,
		StrainOn:               0.55,
		DsDtHardCap:            0.003,
		CumDriftCritical:       0.75,
		RecoverabilityCritical: 0.35,
	}
}

// Validate rejects non-finite or out-of-range settings.
func (c Config) Validate() error {
	for _, v := range []float64{c.DampingLambda, c.AttractorK, c.StrainOn, c.DsDtHardCap, c.CumDriftCritical, c.RecoverabilityCritical} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: values must be finite", ErrInvalidConfig)
		}
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func smoothstep(x float64) float64 {
	x = clamp01(x)
	return x * x * (3 - 2*x)
}

// Gain returns the stabilizer engagement in [0,1]. Any of high strain,
// low recoverability or high cumulative drift can engage it.
func (c Config) Gain(strain, recoverability, cumDrift float64) float64 {
	s := smoothstep((strain - c.StrainOn) / (1 - c.StrainOn))
	r := smoothstep((c.RecoverabilityCritical - recoverability) / c.RecoverabilityCritical)
	d := smoothstep((cumDrift - c.CumDriftCritical) / (1 - c.CumDriftCritical))
	return clamp01(0.55*s + 0.30*r + 0.30*d)
}

// Damp shrinks dsdt by 1/(1+lambda*gain*|dsdt|) and, at emergency gain,
// caps its magnitude at DsDtHardCap. An infinite dsdt is capped at any gain.
func (c Config) Damp(dsdt, gain float64) float64 {
	if math.IsInf(dsdt, 0) {
		return math.Copysign(c.DsDtHardCap, dsdt)
	}
	eff := dsdt / (1 + c.DampingLambda*gain*math.Abs(dsdt))
	if gain > emergencyGain && math.Abs(eff) > c.DsDtHardCap {
		eff = math.Copysign(c.DsDtHardCap, eff)
	}
	return eff
}

// Pull is the restoring term toward target.
func (c Config) Pull(strain, target, gain float64) float64 {
	return -c.AttractorK * gain * (strain - target)
}

// Input is one stabilized step request.
type Input struct {
	Strain         float64
	Velocity       float64
	Target         float64
	Dt             float64
	Recoverability float64
	CumDrift       float64
}

// Output is the stabilized step for one Input.
type Output struct {
	Gain          float64
	DsDtEffective float64
	AttractorTerm float64
	StrainNext    float64
}

// Step combines Gain, Damp and Pull into the next strain value.
func (c Config) Step(in Input) Output {
	gain := c.Gain(in.Strain, in.Recoverability, in.CumDrift)
	eff := c.Damp(in.Velocity, gain)
	pull := c.Pull(in.Strain, in.Target, gain)
	return Output{
		Gain:          gain,
		DsDtEffective: eff,
		AttractorTerm: pull,
		StrainNext:    in.Strain + in.Dt*(eff+pull),
	}
}
