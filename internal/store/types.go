package store

import "time"

// #region run-record
// RunRecord is one monitored series, from creation to its final summary.
type RunRecord struct {
	RunID       string
	Scenario    string
	ConfigJSON  string
	CreatedAt   time.Time
	FinishedAt  time.Time // zero while the run is open
	SummaryJSON string
	Halted      bool
	HaltReason  string
}

// Finished reports whether FinishRun has been called for the run.
func (r RunRecord) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// #endregion run-record

// #region step-row
// StepRow is one row of step_log as read back for inspection and replay.
type StepRow struct {
	RunID           string
	Step            int
	Global          float64
	Local           float64
	Strain          float64
	Velocity        float64
	CumulativeDrift float64
	PeakVelocity    float64
	Recoverability  float64
	Action          string
	Reason          string
	Environment     string
	Rule            string
	GoodnessRatio   float64
	RecoverySteps   *int
	Substituted     bool
	RecordJSON      string
	CreatedAt       time.Time
}

// #endregion step-row
