// Package observer holds passive trackers that watch a run without
// influencing the monitor or the classifier.
package observer

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned when an observer window cannot be built.
var ErrInvalidConfig = errors.New("invalid observer config")

// minEntropySamples is the warm-up before an entropy estimate is reported.
const minEntropySamples = 5

// window is a fixed-capacity ring of the most recent samples.
type window struct {
	buf  []float64
	next int
	full bool
}

func newWindow(size int) window {
	return window{buf: make([]float64, size)}
}

func (w *window) push(v float64) {
	w.buf[w.next] = v
	w.next = (w.next + 1) % len(w.buf)
	if w.next == 0 {
		w.full = true
	}
}

func (w *window) len() int {
	if w.full {
		return len(w.buf)
	}
	return w.next
}

// at returns the i-th oldest sample.
func (w *window) at(i int) float64 {
	if !w.full {
		return w.buf[i]
	}
	return w.buf[(w.next+i)%len(w.buf)]
}

func (w *window) reset() {
	w.next = 0
	w.full = false
}

// #region entropy
// EntropyConfig sizes the entropy observer.
type EntropyConfig struct {
	WindowSize int     `yaml:"window_size" json:"window_size" default:"50" validate:"gte=5"`
	Epsilon    float64 `yaml:"epsilon" json:"epsilon" default:"1e-9" validate:"gt=0"`
}

// DefaultEntropyConfig returns a 50-sample window with a 1e-9 variance floor.
func DefaultEntropyConfig() EntropyConfig {
	return EntropyConfig{WindowSize: 50, Epsilon: 1e-9}
}

// EntropyObserver estimates the differential entropy of |signal| over a
// rolling window. Low-amplitude, long-horizon drift raises it before any
// primary threshold fires.
type EntropyObserver struct {
	config EntropyConfig
	hist   window
}

// NewEntropyObserver validates config and returns an empty observer.
func NewEntropyObserver(config EntropyConfig) (*EntropyObserver, error) {
	if config.WindowSize < minEntropySamples {
		return nil, fmt.Errorf("%w: entropy window %d below %d samples", ErrInvalidConfig, config.WindowSize, minEntropySamples)
	}
	if !(config.Epsilon > 0) || math.IsInf(config.Epsilon, 0) {
		return nil, fmt.Errorf("%w: entropy epsilon must be positive and finite, got %v", ErrInvalidConfig, config.Epsilon)
	}
	return &EntropyObserver{config: config, hist: newWindow(config.WindowSize)}, nil
}

// Update records v and returns the current estimate, 0 during warm-up.
// The Gaussian estimate 0.5*ln(2*pi*e*var) is floored at 0.
func (o *EntropyObserver) Update(v float64) float64 {
	o.hist.push(math.Abs(v))
	n := o.hist.len()
	if n < minEntropySamples {
		return 0
	}

	var mean float64
	for i := 0; i < n; i++ {
		mean += o.hist.at(i)
	}
	mean /= float64(n)

	var variance float64
	for i := 0; i < n; i++ {
		d := o.hist.at(i) - mean
		variance += d * d
	}
	variance /= float64(n)

	h := 0.5 * math.Log(2*math.Pi*math.E*(variance+o.config.Epsilon))
	return math.Max(h, 0)
}

// Reset clears the window.
func (o *EntropyObserver) Reset() { o.hist.reset() }

// #endregion entropy

// #region recoverability-velocity
// VelocityConfig sizes the recoverability velocity tracker.
type VelocityConfig struct {
	Window    int `yaml:"window" json:"window" default:"10" validate:"gte=2"`
	MinPoints int `yaml:"min_points" json:"min_points" default:"3" validate:"gte=2"`
}

// DefaultVelocityConfig returns a 10-sample window that reports from 3 points.
func DefaultVelocityConfig() VelocityConfig {
	return VelocityConfig{Window: 10, MinPoints: 3}
}

// RecoverabilityVelocity tracks the mean per-step change of recoverability.
// A negative value means recovery capacity is eroding.
type RecoverabilityVelocity struct {
	config VelocityConfig
	hist   window
}

// NewRecoverabilityVelocity validates config and returns an empty tracker.
func NewRecoverabilityVelocity(config VelocityConfig) (*RecoverabilityVelocity, error) {
	if config.MinPoints < 2 {
		return nil, fmt.Errorf("%w: min points %d below 2", ErrInvalidConfig, config.MinPoints)
	}
	if config.Window < config.MinPoints {
		return nil, fmt.Errorf("%w: window %d smaller than min points %d", ErrInvalidConfig, config.Window, config.MinPoints)
	}
	return &RecoverabilityVelocity{config: config, hist: newWindow(config.Window)}, nil
}

// Update records r and returns the average first difference across the
// window, or 0 until MinPoints samples are held.
func (v *RecoverabilityVelocity) Update(r float64) float64 {
	v.hist.push(r)
	n := v.hist.len()
	if n < v.config.MinPoints {
		return 0
	}
	// the mean of consecutive deltas telescopes to (last-first)/(n-1)
	var sum float64
	for i := 1; i < n; i++ {
		sum += v.hist.at(i) - v.hist.at(i-1)
	}
	return sum / float64(n-1)
}

// Reset clears the window.
func (v *RecoverabilityVelocity) Reset() { v.hist.reset() }

// #endregion recoverability-velocity
