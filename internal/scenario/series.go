// Package scenario produces synthetic two-signal series for the run loop.
// Every generator is deterministic for a given seed.
package scenario

import (
	"fmt"
	"math"
)

// Series is one run's input: a (global, local) pair per step plus the
// recoverability the producer reports for that step.
type Series struct {
	Name           string
	Global         []float64
	Local          []float64
	Recoverability []float64
}

func (s Series) Len() int { return len(s.Global) }

// Validate checks that the three columns line up.
func (s Series) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("series has no name")
	}
	if len(s.Local) != len(s.Global) || len(s.Recoverability) != len(s.Global) {
		return fmt.Errorf("series %s: column lengths differ (global %d, local %d, recoverability %d)",
			s.Name, len(s.Global), len(s.Local), len(s.Recoverability))
	}
	return nil
}

// Constant repeats one reading for steps steps.
func Constant(name string, steps int, global, local, recoverability float64) Series {
	s := alloc(name, steps)
	for i := 0; i < steps; i++ {
		s.Global[i] = global
		s.Local[i] = local
		s.Recoverability[i] = recoverability
	}
	return s
}

// Step holds (g0, l0) for before steps then jumps to (g1, l1) for after steps.
func Step(name string, before, after int, g0, l0, g1, l1, recoverability float64) Series {
	s := alloc(name, before+after)
	for i := range s.Global {
		if i < before {
			s.Global[i], s.Local[i] = g0, l0
		} else {
			s.Global[i], s.Local[i] = g1, l1
		}
		s.Recoverability[i] = recoverability
	}
	return s
}

// Ramp moves both signals linearly by perStep each step from (g0, l0).
func Ramp(name string, steps int, g0, l0, perStep, recoverability float64) Series {
	s := alloc(name, steps)
	for i := 0; i < steps; i++ {
		s.Global[i] = g0 + perStep*float64(i)
		s.Local[i] = l0 + perStep*float64(i)
		s.Recoverability[i] = recoverability
	}
	return s
}

func alloc(name string, steps int) Series {
	if steps < 0 {
		steps = 0
	}
	return Series{
		Name:           name,
		Global:         make([]float64, steps),
		Local:          make([]float64, steps),
		Recoverability: make([]float64, steps),
	}
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// binaryEntropy is the natural-log Shannon entropy of a two-state
// distribution with probability p, kept away from the 0/1 poles.
func binaryEntropy(p float64) float64 {
	p = clamp(p, 1e-6, 1-1e-6)
	return -p*math.Log(p) - (1-p)*math.Log(1-p)
}
