package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/danielpatrickdp/gv-guard/internal/logging"
	"github.com/danielpatrickdp/gv-guard/internal/policy"
	"github.com/danielpatrickdp/gv-guard/internal/store"
)

// #region store-sink
// StoreSink writes runs to a SQLite store: one runs row per series and one
// step_log row per step, each with a replayable StepRecord.
type StoreSink struct {
	store      *store.Store
	configJSON string
	thresholds policy.Config
	classifier *policy.Classifier
}

// NewStoreSink snapshots config into every run it opens.
func NewStoreSink(s *store.Store, config Config) (*StoreSink, error) {
	b, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal run config: %w", err)
	}
	c, err := policy.NewClassifier(config.Policy)
	if err != nil {
		return nil, err
	}
	return &StoreSink{store: s, configJSON: string(b), thresholds: config.Policy, classifier: c}, nil
}

// BeginRun inserts a runs row carrying the config snapshot and returns its id.
func (s *StoreSink) BeginRun(_ context.Context, scenario string) (string, error) {
	rec, err := s.store.CreateRun(scenario, s.configJSON)
	if err != nil {
		return "", err
	}
	return rec.RunID, nil
}

// WriteStep appends one step_log row with its StepRecord JSON.
func (s *StoreSink) WriteStep(_ context.Context, runID string, row StepRow) error {
	record := logging.StepRecord{
		Scenario:               row.Scenario,
		Step:                   row.Step,
		Global:                 row.Global,
		Local:                  row.Local,
		Substituted:            row.Substituted,
		Strain:                 row.Reading.Strain,
		Velocity:               row.Reading.Velocity,
		CumulativeDrift:        row.Aggregate.CumulativeAbsDrift,
		PeakVelocity:           row.Aggregate.PeakAbsVelocity,
		Recoverability:         row.Recoverability,
		Entropy:                row.Entropy,
		RecoverabilityVelocity: row.RecoverabilityVelocity,
		Thresholds:             s.recordThresholds(row.Scenario),
		Action:                 string(row.Decision.Action),
		Reason:                 string(row.Decision.Reason),
		Environment:            string(row.Decision.Environment),
		Rule:                   row.Decision.Rule,
	}
	if row.Stabilized != nil {
		eff := row.Stabilized.DsDtEffective
		record.DsDtEffective = &eff
	}
	recordJSON, err := logging.MarshalRecord(record)
	if err != nil {
		return err
	}

	return logging.LogStep(s.store.DB(), logging.StepEntry{
		RunID:          runID,
		Step:           row.Step,
		Global:         row.Global,
		Local:          row.Local,
		Strain:         row.Reading.Strain,
		Velocity:       row.Reading.Velocity,
		CumDrift:       row.Aggregate.CumulativeAbsDrift,
		PeakVelocity:   row.Aggregate.PeakAbsVelocity,
		Recoverability: row.Recoverability,
		Action:         string(row.Decision.Action),
		Reason:         string(row.Decision.Reason),
		Environment:    string(row.Decision.Environment),
		Rule:           row.Decision.Rule,
		GoodnessRatio:  row.GoodnessRatio,
		RecoverySteps:  row.RecoverySteps,
		Substituted:    row.Substituted,
		RecordJSON:     recordJSON,
	})
}

// FinishRun stores the summary JSON on the runs row.
func (s *StoreSink) FinishRun(_ context.Context, runID string, sum Summary) error {
	b, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return s.store.FinishRun(runID, string(b), sum.Halted, string(sum.HaltReason))
}

func (s *StoreSink) recordThresholds(scenario string) logging.StepRecordThresholds {
	t := s.thresholds
	return logging.StepRecordThresholds{
		GoodRecoverability:      t.Good.Recoverability,
		GoodDrift:               t.Good.Drift,
		GoodVelocity:            t.Good.Velocity,
		StabilizeRecoverability: t.Stabilize.Recoverability,
		StabilizeDrift:          t.Stabilize.Drift,
		StabilizeVelocity:       t.Stabilize.Velocity,
		RefuseRecoverability:    t.Refuse.Recoverability,
		RefuseDrift:             t.Refuse.Drift,
		RefuseVelocity:          t.Refuse.Velocity,
		Unrecoverable:           s.classifier.IsUnrecoverable(scenario),
	}
}

// #endregion store-sink
