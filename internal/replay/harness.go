package replay

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/gv-guard/internal/engine"
	"github.com/danielpatrickdp/gv-guard/internal/policy"
)

// #region types

// ReplayResult captures the outcome of one replayed step.
type ReplayResult struct {
	Step            int
	Action          policy.Action
	Reason          policy.Reason
	Environment     policy.Environment
	Rule            string
	Strain          float64
	Velocity        float64
	CumulativeDrift float64
	PeakVelocity    float64
	Recoverability  float64
	GoodnessRatio   float64
	Substituted     bool
}

// ComparisonRow pairs an expected action with the replayed one for a step.
// Either side is empty when the step exists on one side only.
type ComparisonRow struct {
	Step     int
	Expected string
	Replayed string
	Reason   string
	Match    bool
}

// Comparison is the outcome of Compare.
type Comparison struct {
	Rows     []ComparisonRow
	Matched  int
	Diverged int
}

// OK reports whether every step matched.
func (c Comparison) OK() bool {
	return c.Diverged == 0
}

// #endregion types

// #region replay

// Replay runs the fixture's steps through a fresh engine with the fixture's
// config. No sink or recorder is attached, so replay never writes anywhere.
func Replay(f *Fixture) ([]ReplayResult, error) {
	return ReplayContext(context.Background(), f)
}

// ReplayContext is Replay with cancellation.
func ReplayContext(ctx context.Context, f *Fixture) ([]ReplayResult, error) {
	eng, err := engine.New(f.Config.ToEngineConfig(), engine.Deps{})
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	res, err := eng.Run(ctx, f.ToSeries())
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", f.Scenario, err)
	}

	results := make([]ReplayResult, len(res.Rows))
	for i, row := range res.Rows {
		results[i] = ReplayResult{
			Step:            row.Step,
			Action:          row.Decision.Action,
			Reason:          row.Decision.Reason,
			Environment:     row.Decision.Environment,
			Rule:            row.Decision.Rule,
			Strain:          row.Reading.Strain,
			Velocity:        row.Reading.Velocity,
			CumulativeDrift: row.Aggregate.CumulativeAbsDrift,
			PeakVelocity:    row.Aggregate.PeakAbsVelocity,
			Recoverability:  row.Recoverability,
			GoodnessRatio:   row.GoodnessRatio,
			Substituted:     row.Substituted,
		}
	}
	return results, nil
}

// #endregion replay

// #region compare

// Compare lines results up with expected by step number. Steps that only
// one side has count as diverging, so a run that halts earlier or later
// than recorded is caught.
func Compare(results []ReplayResult, expected []FixtureExpectedResult) Comparison {
	byStep := make(map[int]ReplayResult, len(results))
	for _, r := range results {
		byStep[r.Step] = r
	}

	var c Comparison
	seen := make(map[int]bool, len(expected))
	for _, e := range expected {
		seen[e.Step] = true
		row := ComparisonRow{Step: e.Step, Expected: e.Action}
		if r, ok := byStep[e.Step]; ok {
			row.Replayed = string(r.Action)
			row.Reason = string(r.Reason)
			row.Match = row.Replayed == e.Action && (e.Reason == "" || e.Reason == row.Reason)
		}
		c.add(row)
	}
	for _, r := range results {
		if seen[r.Step] {
			continue
		}
		c.add(ComparisonRow{Step: r.Step, Replayed: string(r.Action), Reason: string(r.Reason)})
	}
	return c
}

func (c *Comparison) add(row ComparisonRow) {
	c.Rows = append(c.Rows, row)
	if row.Match {
		c.Matched++
	} else {
		c.Diverged++
	}
}

// #endregion compare

// #region summary

// Summarize counts the replayed steps by action.
func Summarize(results []ReplayResult) map[policy.Action]int {
	counts := make(map[policy.Action]int)
	for _, r := range results {
		counts[r.Action]++
	}
	return counts
}

// #endregion summary
