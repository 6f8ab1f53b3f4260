package replay

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/gv-guard/internal/engine"
	"github.com/danielpatrickdp/gv-guard/internal/scenario"
	"github.com/danielpatrickdp/gv-guard/internal/store"
)

// #region fixture-tests

// runFixture loads a testdata fixture, replays it and compares each step
// against the expected action. If monitor or policy parameters change,
// these catch the drift.
func runFixture(t *testing.T, name string) {
	t.Helper()
	f, err := LoadFixture(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	results, err := Replay(f)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(results) != len(f.ExpectedResults) {
		t.Fatalf("expected %d results, got %d", len(f.ExpectedResults), len(results))
	}

	c := Compare(results, f.ExpectedResults)
	for _, row := range c.Rows {
		if !row.Match {
			t.Errorf("step %d: expected %s, got %s (reason: %s)", row.Step, row.Expected, row.Replayed, row.Reason)
		}
	}
}

func TestFixture_AdversarialFloor(t *testing.T) {
	runFixture(t, "adversarial_floor.json")
}

func TestFixture_BenignSpike(t *testing.T) {
	runFixture(t, "benign_spike.json")
}

func TestFixture_NullBecomesNaN(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "benign_spike.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	s := f.ToSeries()
	if s.Name != "benign" {
		t.Errorf("expected series name benign, got %s", s.Name)
	}
	if !math.IsNaN(s.Recoverability[2]) {
		t.Errorf("expected NaN for null recoverability, got %v", s.Recoverability[2])
	}

	results, err := Replay(f)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !results[2].Substituted {
		t.Error("expected step 3 to be marked substituted")
	}
	if results[2].Recoverability != 0.9 {
		t.Errorf("expected prior recoverability 0.9, got %v", results[2].Recoverability)
	}
}

func TestFixture_ConfigDefaults(t *testing.T) {
	var fc FixtureConfig
	got := fc.ToEngineConfig()
	want := engine.DefaultConfig()
	if got.Monitor != want.Monitor {
		t.Errorf("expected default monitor %+v, got %+v", want.Monitor, got.Monitor)
	}
	if got.RuleSet != engine.RuleSetDefault {
		t.Errorf("expected rule set %s, got %s", engine.RuleSetDefault, got.RuleSet)
	}
	if len(got.Policy.UnrecoverableScenarios) != len(want.Policy.UnrecoverableScenarios) {
		t.Errorf("expected default unrecoverable scenarios, got %v", got.Policy.UnrecoverableScenarios)
	}
}

func TestLoadFixture_NotFound(t *testing.T) {
	_, err := LoadFixture("testdata/nonexistent.json")
	if err == nil {
		t.Fatal("expected error for missing fixture")
	}
}

func TestLoadFixture_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected error for malformed fixture")
	}
}

func TestLoadFixture_NoSteps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(path, []byte(`{"scenario":"benign","steps":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected error for fixture without steps")
	}
}

// #endregion fixture-tests

// #region export-tests

// A run written through the store sink, exported and replayed, reproduces
// every recorded action.
func TestFixtureFromRun_RoundTrip(t *testing.T) {
	st, err := store.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer st.Close()

	config := engine.DefaultConfig()
	sink, err := engine.NewStoreSink(st, config)
	if err != nil {
		t.Fatalf("NewStoreSink: %v", err)
	}
	eng, err := engine.New(config, engine.Deps{Sink: sink})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	series := scenario.Step(scenario.NameAdversarialSaturation, 5, 5, 0.40, 0.20, 0.90, 0.60, 0.9)
	series.Recoverability[8] = 0.01
	res, err := eng.Run(context.Background(), series)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	f, err := FixtureFromRun(st, res.Summary.RunID)
	if err != nil {
		t.Fatalf("FixtureFromRun: %v", err)
	}
	if len(f.Steps) != len(res.Rows) {
		t.Fatalf("expected %d steps, got %d", len(res.Rows), len(f.Steps))
	}

	path := filepath.Join(t.TempDir(), "exported.json")
	if err := WriteFixture(path, f); err != nil {
		t.Fatalf("WriteFixture: %v", err)
	}
	loaded, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	results, err := Replay(loaded)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	c := Compare(results, loaded.ExpectedResults)
	if !c.OK() {
		t.Errorf("expected exported run to replay cleanly, %d of %d steps diverged", c.Diverged, len(c.Rows))
	}
}

func TestFixtureFromRun_UnknownRun(t *testing.T) {
	st, err := store.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer st.Close()

	if _, err := FixtureFromRun(st, "missing"); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

// #endregion export-tests
