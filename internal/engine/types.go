package engine

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/danielpatrickdp/gv-guard/internal/eval"
	"github.com/danielpatrickdp/gv-guard/internal/monitor"
	"github.com/danielpatrickdp/gv-guard/internal/observer"
	"github.com/danielpatrickdp/gv-guard/internal/policy"
	"github.com/danielpatrickdp/gv-guard/internal/stability"
)

// Rule set names accepted by Config.RuleSet.
const (
	RuleSetDefault = "default"
	RuleSetTiered  = "tiered"
)

// #region config
// Config is everything a run needs besides its input series.
type Config struct {
	Monitor monitor.Config `yaml:"monitor" json:"monitor"`
	// MonitorOverrides adjusts Monitor for the named scenarios, so the
	// smoothing factor can be tuned to each signal's noise. Unset fields
	// keep the Monitor value.
	MonitorOverrides map[string]monitor.Override `yaml:"monitor_overrides" json:"monitor_overrides,omitempty"`

	Policy  policy.Config `yaml:"policy" json:"policy"`
	RuleSet string        `yaml:"rule_set" json:"rule_set"`

	Stability   stability.Config        `yaml:"stability" json:"stability"`
	Entropy     observer.EntropyConfig  `yaml:"entropy" json:"entropy"`
	RecVelocity observer.VelocityConfig `yaml:"recoverability_velocity" json:"recoverability_velocity"`
	Eval        eval.EvalConfig         `yaml:"eval" json:"eval"`
}

// DefaultConfig returns the stock settings for every stage.
func DefaultConfig() Config {
	return Config{
		Monitor:     monitor.DefaultConfig(),
		Policy:      policy.DefaultConfig(),
		RuleSet:     RuleSetDefault,
		Stability:   stability.DefaultConfig(),
		Entropy:     observer.DefaultEntropyConfig(),
		RecVelocity: observer.DefaultVelocityConfig(),
		Eval:        eval.DefaultEvalConfig(),
	}
}

// #endregion config

// #region step-row
// StepRow is the per-step output of a run, ready for longitudinal logging.
type StepRow struct {
	Scenario string
	Step     int // 1-indexed

	// Inputs as fed to the monitor; Substituted marks a replaced non-finite reading.
	Global         float64
	Local          float64
	Recoverability float64
	Substituted    bool

	Reading   monitor.Reading
	Aggregate monitor.Aggregate

	Entropy                float64
	RecoverabilityVelocity float64

	Decision      policy.Decision
	Counters      policy.Counters
	GoodnessRatio float64
	// RecoverySteps is set on the step that closes a bad streak.
	RecoverySteps *int

	// Stabilized holds the damped step for STABILIZE and CONSTRAIN decisions.
	Stabilized *stability.Output
}

// #endregion step-row

// #region summary
// Summary is the end-of-run view.
type Summary struct {
	Scenario            string          `json:"scenario"`
	RunID               string          `json:"run_id,omitempty"`
	Steps               int             `json:"steps"`
	FinalRecoverability float64         `json:"final_recoverability"`
	CumulativeAbsDrift  float64         `json:"cum_abs_drift"`
	PeakAbsVelocity     float64         `json:"peak_abs_velocity"`
	PeakStrain          float64         `json:"peak_strain"`
	Counters            policy.Counters `json:"counters"`
	GoodnessRatio       float64         `json:"goodness_ratio"`
	Substitutions       int             `json:"substitutions"`
	LastAction          policy.Action   `json:"last_action"`
	Halted              bool            `json:"halted"`
	HaltStep            int             `json:"halt_step,omitempty"`
	HaltReason          policy.Reason   `json:"halt_reason,omitempty"`
	Cancelled           bool            `json:"cancelled,omitempty"`
	Bin                 eval.Bin        `json:"bin"`
	Elapsed             time.Duration   `json:"elapsed_ns"`
}

// MarshalJSON writes non-finite floats as null. Overflowing inputs can
// drive drift and velocity to Inf, which encoding/json rejects.
func (s Summary) MarshalJSON() ([]byte, error) {
	type alias Summary
	return json.Marshal(struct {
		alias
		FinalRecoverability *float64 `json:"final_recoverability"`
		CumulativeAbsDrift  *float64 `json:"cum_abs_drift"`
		PeakAbsVelocity     *float64 `json:"peak_abs_velocity"`
		PeakStrain          *float64 `json:"peak_strain"`
		GoodnessRatio       *float64 `json:"goodness_ratio"`
	}{
		alias:               alias(s),
		FinalRecoverability: finitePtr(s.FinalRecoverability),
		CumulativeAbsDrift:  finitePtr(s.CumulativeAbsDrift),
		PeakAbsVelocity:     finitePtr(s.PeakAbsVelocity),
		PeakStrain:          finitePtr(s.PeakStrain),
		GoodnessRatio:       finitePtr(s.GoodnessRatio),
	})
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Result is a finished run: its summary and every step row.
type Result struct {
	Summary Summary
	Rows    []StepRow
}

// #endregion summary

// #region deps
// Sink persists a run as it happens. Implementations must be safe for
// concurrent use when RunAll is used.
type Sink interface {
	BeginRun(ctx context.Context, scenario string) (runID string, err error)
	WriteStep(ctx context.Context, runID string, row StepRow) error
	FinishRun(ctx context.Context, runID string, sum Summary) error
}

// Recorder receives metrics. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveStep(scenario string, d policy.Decision, substituted bool)
	ObserveRun(scenario string, goodnessRatio, peakVelocity float64, halted bool, elapsed time.Duration)
}

// #endregion deps
