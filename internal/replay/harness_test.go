package replay

import (
	"testing"

	"github.com/danielpatrickdp/gv-guard/internal/engine"
	"github.com/danielpatrickdp/gv-guard/internal/monitor"
	"github.com/danielpatrickdp/gv-guard/internal/policy"
)

// helper: fixture with a flat strain and the given recoverability per step.
func flatFixture(scenarioName string, recs ...float64) *Fixture {
	mc := monitor.Config{Alpha: 1, Beta: 0, Gamma: 0.5}
	f := &Fixture{
		Scenario: scenarioName,
		Config:   FixtureConfig{Monitor: &mc},
	}
	for _, r := range recs {
		g, l, rec := 0.5, 0.0, r
		f.Steps = append(f.Steps, FixtureStep{Global: &g, Local: &l, Recoverability: &rec})
	}
	return f
}

func expect(actions ...policy.Action) []FixtureExpectedResult {
	out := make([]FixtureExpectedResult, len(actions))
	for i, a := range actions {
		out[i] = FixtureExpectedResult{Step: i + 1, Action: string(a)}
	}
	return out
}

// 1. Healthy flat series: every step continues, nothing substituted.
func TestReplay_AllContinue(t *testing.T) {
	f := flatFixture("benign", 0.9, 0.9, 0.9)
	results, err := Replay(f)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Action != policy.ActionContinue {
			t.Errorf("step %d: expected CONTINUE, got %s", r.Step, r.Action)
		}
		if r.Environment != policy.EnvGood {
			t.Errorf("step %d: expected GOOD, got %s", r.Step, r.Environment)
		}
		if r.Substituted {
			t.Errorf("step %d: unexpected substitution", r.Step)
		}
	}
	if results[2].GoodnessRatio != 1 {
		t.Errorf("expected goodness ratio 1, got %v", results[2].GoodnessRatio)
	}
}

// 2. Refusal halts the replay: no result past the refusing step.
func TestReplay_HaltsOnRefusal(t *testing.T) {
	f := flatFixture("swarm_amplification", 0.9, 0.01, 0.9, 0.9)
	results, err := Replay(f)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected replay to stop after 2 steps, got %d", len(results))
	}
	if results[1].Action != policy.ActionRefuse {
		t.Errorf("expected SAFE_REFUSAL, got %s", results[1].Action)
	}
	if results[1].Reason != policy.ReasonRecoverabilityFloor {
		t.Errorf("expected recoverability_floor, got %s", results[1].Reason)
	}
}

// 3. The same collapse on a recoverable scenario stabilizes and keeps going.
func TestReplay_RecoverableNeverRefuses(t *testing.T) {
	f := flatFixture("benign", 0.9, 0.01, 0.9, 0.9)
	results, err := Replay(f)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if results[1].Action != policy.ActionStabilize {
		t.Errorf("expected STABILIZE, got %s", results[1].Action)
	}
	counts := Summarize(results)
	if counts[policy.ActionRefuse] != 0 {
		t.Errorf("expected no refusals, got %d", counts[policy.ActionRefuse])
	}
}

// 4. Rule set passes through from the fixture config.
func TestReplay_TieredRuleSet(t *testing.T) {
	f := flatFixture("benign", 0.9, 0.5, 0.2)
	f.Config.RuleSet = engine.RuleSetTiered
	results, err := Replay(f)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	want := []policy.Action{policy.ActionContinue, policy.ActionPropose, policy.ActionConstrain}
	for i, a := range want {
		if results[i].Action != a {
			t.Errorf("step %d: expected %s, got %s", i+1, a, results[i].Action)
		}
	}
}

// 5. An invalid fixture config fails before any step runs.
func TestReplay_InvalidConfig(t *testing.T) {
	f := flatFixture("benign", 0.9)
	f.Config.Monitor.Gamma = 1.5
	if _, err := Replay(f); err == nil {
		t.Fatal("expected error for gamma outside [0,1)")
	}
	f = flatFixture("benign", 0.9)
	f.Config.RuleSet = "strict"
	if _, err := Replay(f); err == nil {
		t.Fatal("expected error for unknown rule set")
	}
}

// 6. Replay is deterministic.
func TestReplay_Deterministic(t *testing.T) {
	f := flatFixture("adversarial_saturation", 0.9, 0.4, 0.3, 0.8, 0.2)
	a, err := Replay(f)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	b, err := Replay(f)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("step %d differs: %+v vs %+v", i+1, a[i], b[i])
		}
	}
}

// #region compare-tests

func TestCompare_AllMatch(t *testing.T) {
	f := flatFixture("benign", 0.9, 0.9)
	results, err := Replay(f)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	c := Compare(results, expect(policy.ActionContinue, policy.ActionContinue))
	if !c.OK() || c.Matched != 2 {
		t.Errorf("expected 2 matches and no divergence, got %+v", c)
	}
}

func TestCompare_MissingStepDiverges(t *testing.T) {
	results := []ReplayResult{{Step: 1, Action: policy.ActionContinue}}
	c := Compare(results, expect(policy.ActionContinue, policy.ActionContinue))
	if c.Matched != 1 || c.Diverged != 1 {
		t.Fatalf("expected 1 match and 1 divergence, got %d/%d", c.Matched, c.Diverged)
	}
	if c.Rows[1].Replayed != "" {
		t.Errorf("expected empty replayed action for missing step, got %s", c.Rows[1].Replayed)
	}
}

func TestCompare_ExtraStepDiverges(t *testing.T) {
	results := []ReplayResult{
		{Step: 1, Action: policy.ActionContinue},
		{Step: 2, Action: policy.ActionStabilize, Reason: policy.ReasonTrendingUnsafe},
	}
	c := Compare(results, expect(policy.ActionContinue))
	if c.OK() {
		t.Fatal("expected divergence for a step with no expectation")
	}
	if len(c.Rows) != 2 || c.Rows[1].Expected != "" {
		t.Errorf("expected trailing row with no expectation, got %+v", c.Rows)
	}
}

func TestCompare_ReasonChecked(t *testing.T) {
	results := []ReplayResult{{Step: 1, Action: policy.ActionRefuse, Reason: policy.ReasonDsDtSpike}}
	expected := []FixtureExpectedResult{{Step: 1, Action: "SAFE_REFUSAL", Reason: "recoverability_floor"}}
	if Compare(results, expected).OK() {
		t.Error("expected reason mismatch to diverge")
	}
	expected[0].Reason = ""
	if !Compare(results, expected).OK() {
		t.Error("expected action-only expectation to match")
	}
}

func TestReplay_Summarize(t *testing.T) {
	results := []ReplayResult{
		{Step: 1, Action: policy.ActionContinue},
		{Step: 2, Action: policy.ActionContinue},
		{Step: 3, Action: policy.ActionStabilize},
		{Step: 4, Action: policy.ActionRefuse},
	}
	counts := Summarize(results)
	if counts[policy.ActionContinue] != 2 {
		t.Errorf("expected 2 continue, got %d", counts[policy.ActionContinue])
	}
	if counts[policy.ActionStabilize] != 1 {
		t.Errorf("expected 1 stabilize, got %d", counts[policy.ActionStabilize])
	}
	if counts[policy.ActionRefuse] != 1 {
		t.Errorf("expected 1 refuse, got %d", counts[policy.ActionRefuse])
	}
}

// #endregion compare-tests
