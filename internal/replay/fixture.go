package replay

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/danielpatrickdp/gv-guard/internal/engine"
	"github.com/danielpatrickdp/gv-guard/internal/monitor"
	"github.com/danielpatrickdp/gv-guard/internal/policy"
	"github.com/danielpatrickdp/gv-guard/internal/scenario"
	"github.com/danielpatrickdp/gv-guard/internal/store"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Scenario        string                  `json:"scenario"`
	Config          FixtureConfig           `json:"config"`
	Steps           []FixtureStep           `json:"steps"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureConfig overrides the stock engine settings. Omitted sections keep
// their defaults.
type FixtureConfig struct {
	Monitor *monitor.Config `json:"monitor,omitempty"`
	Policy  *policy.Config  `json:"policy,omitempty"`
	RuleSet string          `json:"rule_set,omitempty"`
}

// FixtureStep is one input row. A null field stands for a missing reading.
type FixtureStep struct {
	Global         *float64 `json:"global"`
	Local          *float64 `json:"local"`
	Recoverability *float64 `json:"recoverability"`
}

// FixtureExpectedResult captures the expected action per step. Reason is
// only compared when set.
type FixtureExpectedResult struct {
	Step   int    `json:"step"`
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("parse fixture %s: no steps", path)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToSeries converts the fixture steps to an input series; nulls become NaN.
func (f *Fixture) ToSeries() scenario.Series {
	s := scenario.Series{
		Name:           f.Scenario,
		Global:         make([]float64, len(f.Steps)),
		Local:          make([]float64, len(f.Steps)),
		Recoverability: make([]float64, len(f.Steps)),
	}
	for i, st := range f.Steps {
		s.Global[i] = orNaN(st.Global)
		s.Local[i] = orNaN(st.Local)
		s.Recoverability[i] = orNaN(st.Recoverability)
	}
	return s
}

// ToEngineConfig lays the fixture overrides over engine.DefaultConfig.
func (fc *FixtureConfig) ToEngineConfig() engine.Config {
	config := engine.DefaultConfig()
	if fc.Monitor != nil {
		config.Monitor = *fc.Monitor
	}
	if fc.Policy != nil {
		config.Policy = *fc.Policy
	}
	if fc.RuleSet != "" {
		config.RuleSet = fc.RuleSet
	}
	return config
}

// #endregion fixture-loader

// #region fixture-export

// FixtureFromRun rebuilds a fixture from a stored run: its config snapshot,
// the inputs as the engine saw them, and the recorded actions as expected
// results.
func FixtureFromRun(st *store.Store, runID string) (*Fixture, error) {
	run, err := st.GetRun(runID)
	if err != nil {
		return nil, err
	}
	config := engine.DefaultConfig()
	if run.ConfigJSON != "" {
		if err := json.Unmarshal([]byte(run.ConfigJSON), &config); err != nil {
			return nil, fmt.Errorf("parse config of run %s: %w", runID, err)
		}
	}
	rows, err := st.Steps(runID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("run %s has no steps", runID)
	}

	mc := config.Monitor
	if o, ok := config.MonitorOverrides[run.Scenario]; ok {
		mc = o.Apply(config.Monitor)
	}
	pc := config.Policy

	f := &Fixture{
		Description: fmt.Sprintf("exported from run %s", runID),
		Scenario:    run.Scenario,
		Config: FixtureConfig{
			Monitor: &mc,
			Policy:  &pc,
			RuleSet: config.RuleSet,
		},
		Steps:           make([]FixtureStep, len(rows)),
		ExpectedResults: make([]FixtureExpectedResult, len(rows)),
	}
	for i, r := range rows {
		f.Steps[i] = FixtureStep{
			Global:         finitePtr(r.Global),
			Local:          finitePtr(r.Local),
			Recoverability: finitePtr(r.Recoverability),
		}
		f.ExpectedResults[i] = FixtureExpectedResult{
			Step:   r.Step,
			Action: r.Action,
			Reason: r.Reason,
		}
	}
	return f, nil
}

// #endregion fixture-export

// #region helpers
func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// #endregion helpers
