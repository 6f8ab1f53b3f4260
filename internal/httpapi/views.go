package httpapi

import (
	"encoding/json"
	"math"
	"time"

	"github.com/danielpatrickdp/gv-guard/internal/store"
)

// #region views
// RunView is the JSON shape of a stored run.
type RunView struct {
	RunID      string          `json:"run_id"`
	Scenario   string          `json:"scenario"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Halted     bool            `json:"halted"`
	HaltReason string          `json:"halt_reason,omitempty"`
	Summary    json.RawMessage `json:"summary,omitempty"`
	Steps      []StepView      `json:"steps,omitempty"`
}

// StepView is the JSON shape of one step_log row. Values stored as NULL
// are omitted.
type StepView struct {
	Step            int      `json:"step"`
	Global          float64  `json:"global"`
	Local           float64  `json:"local"`
	Strain          *float64 `json:"strain,omitempty"`
	Velocity        *float64 `json:"velocity,omitempty"`
	CumulativeDrift *float64 `json:"cum_drift,omitempty"`
	PeakVelocity    *float64 `json:"peak_velocity,omitempty"`
	Recoverability  *float64 `json:"recoverability,omitempty"`
	Action          string   `json:"action"`
	Reason          string   `json:"reason,omitempty"`
	Environment     string   `json:"environment"`
	Rule            string   `json:"rule,omitempty"`
	GoodnessRatio   float64  `json:"goodness_ratio"`
	RecoverySteps   *int     `json:"recovery_steps,omitempty"`
	Substituted     bool     `json:"substituted,omitempty"`
}

// NewRunView converts a stored run. steps may be nil.
func NewRunView(r store.RunRecord, steps []store.StepRow) RunView {
	v := RunView{
		RunID:      r.RunID,
		Scenario:   r.Scenario,
		CreatedAt:  r.CreatedAt,
		Halted:     r.Halted,
		HaltReason: r.HaltReason,
	}
	if r.Finished() {
		t := r.FinishedAt
		v.FinishedAt = &t
	}
	if r.SummaryJSON != "" && json.Valid([]byte(r.SummaryJSON)) {
		v.Summary = json.RawMessage(r.SummaryJSON)
	}
	for _, s := range steps {
		v.Steps = append(v.Steps, NewStepView(s))
	}
	return v
}

// NewStepView converts a stored step row.
func NewStepView(s store.StepRow) StepView {
	return StepView{
		Step:            s.Step,
		Global:          s.Global,
		Local:           s.Local,
		Strain:          finitePtr(s.Strain),
		Velocity:        finitePtr(s.Velocity),
		CumulativeDrift: finitePtr(s.CumulativeDrift),
		PeakVelocity:    finitePtr(s.PeakVelocity),
		Recoverability:  finitePtr(s.Recoverability),
		Action:          s.Action,
		Reason:          s.Reason,
		Environment:     s.Environment,
		Rule:            s.Rule,
		GoodnessRatio:   s.GoodnessRatio,
		RecoverySteps:   s.RecoverySteps,
		Substituted:     s.Substituted,
	}
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// #endregion views
