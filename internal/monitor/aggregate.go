package monitor

import "math"

// #region aggregator
// Aggregator keeps the running drift sum and peaks over a series of readings.
type Aggregator struct {
	agg     Aggregate
	prev    float64
	hasPrev bool
}

// Observe folds reading into the running aggregate and returns a copy of it.
func (a *Aggregator) Observe(r Reading) Aggregate {
	var delta float64
	if a.hasPrev {
		delta = r.Strain - a.prev
	}
	a.prev = r.Strain
	a.hasPrev = true

	a.agg.Steps++
	a.agg.LastDelta = delta
	a.agg.CumulativeAbsDrift += math.Abs(delta)
	a.agg.PeakAbsVelocity = peak(a.agg.PeakAbsVelocity, math.Abs(r.Velocity))
	a.agg.PeakStrain = peak(a.agg.PeakStrain, r.Strain)
	return a.agg
}

// Current returns the aggregate without observing anything.
func (a *Aggregator) Current() Aggregate {
	return a.agg
}

// #endregion aggregator

// #region helpers
// peak is max that lets NaN win, so a poisoned series stays poisoned.
func peak(cur, v float64) float64 {
	if math.IsNaN(cur) || math.IsNaN(v) {
		return math.NaN()
	}
	if v > cur {
		return v
	}
	return cur
}

// #endregion helpers
