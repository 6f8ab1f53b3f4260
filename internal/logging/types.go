package logging

import "time"

// #region step-entry
// StepEntry is a single row in the step_log table.
type StepEntry struct {
	RunID          string
	Step           int
	Global         float64
	Local          float64
	Strain         float64
	Velocity       float64
	CumDrift       float64
	PeakVelocity   float64
	Recoverability float64
	Action         string // CONTINUE | PROPOSE | CONSTRAIN | STABILIZE | SAFE_REFUSAL
	Reason         string
	Environment    string // GOOD | BAD
	Rule           string
	GoodnessRatio  float64
	RecoverySteps  *int
	Substituted    bool
	RecordJSON     string
	CreatedAt      time.Time
}

// #endregion step-entry

// #region step-record
// StepRecord captures everything the classifier saw for one step.
// Serialized as JSON into step_log.record_json for deterministic replay.
type StepRecord struct {
	Scenario string `json:"scenario"`
	Step     int    `json:"step"`

	// Raw inputs after non-finite substitution
	Global      float64 `json:"global"`
	Local       float64 `json:"local"`
	Substituted bool    `json:"substituted,omitempty"`

	// Monitor and aggregate outputs
	Strain          float64 `json:"strain"`
	Velocity        float64 `json:"velocity"`
	CumulativeDrift float64 `json:"cum_drift"`
	PeakVelocity    float64 `json:"peak_velocity"`
	Recoverability  float64 `json:"recoverability"`

	// Passive observers
	Entropy                float64 `json:"entropy"`
	RecoverabilityVelocity float64 `json:"recoverability_velocity"`

	// Thresholds active at decision time
	Thresholds StepRecordThresholds `json:"thresholds"`

	// Classifier output
	Action        string   `json:"action"`
	Reason        string   `json:"reason,omitempty"`
	Environment   string   `json:"environment"`
	Rule          string   `json:"rule,omitempty"`
	DsDtEffective *float64 `json:"dsdt_effective,omitempty"` // set on STABILIZE steps
}

// StepRecordThresholds mirrors the policy thresholds in effect for a step.
type StepRecordThresholds struct {
	GoodRecoverability      float64 `json:"good_recoverability"`
	GoodDrift               float64 `json:"good_drift"`
	GoodVelocity            float64 `json:"good_velocity"`
	StabilizeRecoverability float64 `json:"stabilize_recoverability"`
	StabilizeDrift          float64 `json:"stabilize_drift"`
	StabilizeVelocity       float64 `json:"stabilize_velocity"`
	RefuseRecoverability    float64 `json:"refuse_recoverability"`
	RefuseDrift             float64 `json:"refuse_drift"`
	RefuseVelocity          float64 `json:"refuse_velocity"`
	Unrecoverable           bool    `json:"unrecoverable"`
}

// #endregion step-record
