package engine

import (
	"math"

	"github.com/danielpatrickdp/gv-guard/internal/eval"
	"github.com/danielpatrickdp/gv-guard/internal/monitor"
	"github.com/danielpatrickdp/gv-guard/internal/observer"
	"github.com/danielpatrickdp/gv-guard/internal/policy"
	"github.com/danielpatrickdp/gv-guard/internal/stability"
)

// #region session
// Session is the private state of one series: monitor, aggregator,
// observers, counters and input guard. Run drives one per series; the
// gRPC server keeps one per stream. Not safe for concurrent use.
type Session struct {
	engine   *Engine
	scenario string

	mon      *monitor.Monitor
	agg      monitor.Aggregator
	entropy  *observer.EntropyObserver
	recVel   *observer.RecoverabilityVelocity
	counters policy.Counters
	guard    inputGuard
	baseline float64

	substitutions int
	lastAction    policy.Action
	haltStep      int
	haltReason    policy.Reason
}

// NewSession starts an empty session for scenario.
func (e *Engine) NewSession(scenario string) (*Session, error) {
	mon, err := monitor.New(e.MonitorConfig(scenario))
	if err != nil {
		return nil, err
	}
	entropy, err := observer.NewEntropyObserver(e.config.Entropy)
	if err != nil {
		return nil, err
	}
	recVel, err := observer.NewRecoverabilityVelocity(e.config.RecVelocity)
	if err != nil {
		return nil, err
	}
	return &Session{
		engine:   e,
		scenario: scenario,
		mon:      mon,
		entropy:  entropy,
		recVel:   recVel,
	}, nil
}

// Scenario returns the scenario the session classifies for.
func (s *Session) Scenario() string { return s.scenario }

// Steps returns how many steps the session has processed.
func (s *Session) Steps() int { return s.counters.StepsTotal }

// Halted reports whether a step has produced SAFE_REFUSAL.
func (s *Session) Halted() bool { return s.haltStep > 0 }

// #endregion session

// #region step
// Step guards one raw reading, folds it into the monitor and aggregator,
// classifies it and updates the counters. It does not stop after a
// refusal; halting is the caller's decision.
func (s *Session) Step(global, local, recoverability float64) StepRow {
	g, l, rec, substituted := s.guard.apply(global, local, recoverability)
	if substituted {
		s.substitutions++
	}

	reading := s.mon.Update(g, l)
	a := s.agg.Observe(reading)
	if a.Steps == 1 {
		s.baseline = reading.Strain
	}

	d := s.engine.classifier.Classify(policy.Metrics{
		Scenario:           s.scenario,
		Recoverability:     rec,
		CumulativeAbsDrift: a.CumulativeAbsDrift,
		PeakAbsVelocity:    a.PeakAbsVelocity,
	})

	closing := s.counters.InBadStreak() && d.Environment == policy.EnvGood
	s.counters.Update(d.Environment)

	row := StepRow{
		Scenario:               s.scenario,
		Step:                   s.counters.StepsTotal,
		Global:                 g,
		Local:                  l,
		Recoverability:         rec,
		Substituted:            substituted,
		Reading:                reading,
		Aggregate:              a,
		Entropy:                s.entropy.Update(reading.Strain),
		RecoverabilityVelocity: s.recVel.Update(rec),
		Decision:               d,
		Counters:               s.counters.Snapshot(),
		GoodnessRatio:          s.counters.GoodnessRatio(),
	}
	if closing {
		row.RecoverySteps = row.Counters.LastRecoverySteps
	}
	if d.Action == policy.ActionStabilize || d.Action == policy.ActionConstrain {
		out := s.engine.config.Stability.Step(stability.Input{
			Strain:         reading.Strain,
			Velocity:       reading.Velocity,
			Target:         s.baseline,
			Dt:             1,
			Recoverability: rec,
			CumDrift:       a.CumulativeAbsDrift,
		})
		row.Stabilized = &out
	}

	s.lastAction = d.Action
	if d.Action.Halts() && s.haltStep == 0 {
		s.haltStep = row.Step
		s.haltReason = d.Reason
	}
	return row
}

// #endregion step

// #region summary
// Summary reports the session so far. An empty session bins as
// unclassifiable.
func (s *Session) Summary() Summary {
	a := s.agg.Current()
	sum := Summary{
		Scenario:            s.scenario,
		Steps:               s.counters.StepsTotal,
		FinalRecoverability: s.guard.rec,
		CumulativeAbsDrift:  a.CumulativeAbsDrift,
		PeakAbsVelocity:     a.PeakAbsVelocity,
		PeakStrain:          a.PeakStrain,
		Counters:            s.counters.Snapshot(),
		GoodnessRatio:       s.counters.GoodnessRatio(),
		Substitutions:       s.substitutions,
		LastAction:          s.lastAction,
		Halted:              s.Halted(),
		HaltStep:            s.haltStep,
		HaltReason:          s.haltReason,
	}
	if s.counters.StepsTotal == 0 {
		sum.Bin = eval.BinUnclassifiable
	} else {
		sum.Bin = s.engine.evaluator.Run(eval.RunMetrics{
			FinalRecoverability: s.guard.rec,
			CumulativeAbsDrift:  a.CumulativeAbsDrift,
			PeakAbsVelocity:     a.PeakAbsVelocity,
		}).Bin
	}
	return sum
}

// #endregion summary

// #region input-guard
// inputGuard replaces non-finite readings with the last finite value seen
// for that column, or 0 before any. A missing recoverability therefore
// reads as fully unrecoverable rather than healthy.
type inputGuard struct {
	g, l, rec float64
}

func (ig *inputGuard) apply(g, l, rec float64) (float64, float64, float64, bool) {
	var substituted bool
	g, substituted = pickFinite(g, ig.g, substituted)
	l, substituted = pickFinite(l, ig.l, substituted)
	rec, substituted = pickFinite(rec, ig.rec, substituted)
	ig.g, ig.l, ig.rec = g, l, rec
	return g, l, rec, substituted
}

func pickFinite(v, prior float64, substituted bool) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return prior, true
	}
	return v, substituted
}

// #endregion input-guard
