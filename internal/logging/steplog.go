package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// #region log-step
// LogStep writes a step entry to the step_log table.
func LogStep(db *sql.DB, entry StepEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var recovery interface{}
	if entry.RecoverySteps != nil {
		recovery = *entry.RecoverySteps
	}
	substituted := 0
	if entry.Substituted {
		substituted = 1
	}

	_, err := db.Exec(
		`INSERT INTO step_log (run_id, step, global_value, local_value, strain, velocity, cum_drift,
		                       peak_velocity, recoverability, action, reason, environment, rule,
		                       goodness_ratio, recovery_steps, substituted, record_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.Step,
		entry.Global,
		entry.Local,
		nullIfNaN(entry.Strain),
		nullIfNaN(entry.Velocity),
		nullIfNaN(entry.CumDrift),
		nullIfNaN(entry.PeakVelocity),
		nullIfNaN(entry.Recoverability),
		entry.Action,
		nullIfEmpty(entry.Reason),
		entry.Environment,
		nullIfEmpty(entry.Rule),
		entry.GoodnessRatio,
		recovery,
		substituted,
		nullIfEmpty(entry.RecordJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log step %d: %w", entry.Step, err)
	}
	return nil
}

// #endregion log-step

// #region record-json
// MarshalRecord encodes rec for StepEntry.RecordJSON. NaN and Inf are not
// representable in JSON, so non-finite floats are written as null.
func MarshalRecord(rec StepRecord) (string, error) {
	b, err := json.Marshal(recordJSON(rec))
	if err != nil {
		return "", fmt.Errorf("marshal step record: %w", err)
	}
	return string(b), nil
}

// recordJSON swaps the float fields that can legitimately go non-finite
// for nullable pointers.
func recordJSON(rec StepRecord) any {
	type alias StepRecord
	return struct {
		alias
		Strain          *float64 `json:"strain"`
		Velocity        *float64 `json:"velocity"`
		CumulativeDrift *float64 `json:"cum_drift"`
		PeakVelocity    *float64 `json:"peak_velocity"`
		Recoverability  *float64 `json:"recoverability"`
		Entropy         *float64 `json:"entropy"`
		RecVelocity     *float64 `json:"recoverability_velocity"`
		DsDtEffective   *float64 `json:"dsdt_effective,omitempty"`
	}{
		alias:           alias(rec),
		Strain:          finitePtr(rec.Strain),
		Velocity:        finitePtr(rec.Velocity),
		CumulativeDrift: finitePtr(rec.CumulativeDrift),
		PeakVelocity:    finitePtr(rec.PeakVelocity),
		Recoverability:  finitePtr(rec.Recoverability),
		Entropy:         finitePtr(rec.Entropy),
		RecVelocity:     finitePtr(rec.RecoverabilityVelocity),
		DsDtEffective:   finiteDeref(rec.DsDtEffective),
	}
}

// #endregion record-json

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullIfNaN(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func finiteDeref(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return finitePtr(*v)
}

// #endregion helpers
