package store

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insertStep(t *testing.T, s *Store, runID string, step int, strain interface{}) {
	t.Helper()
	_, err := s.DB().Exec(
		`INSERT INTO step_log (run_id, step, global_value, local_value, strain, action, environment, goodness_ratio, recovery_steps, created_at)
		 VALUES (?, ?, 0.5, 0.4, ?, 'CONTINUE', 'GOOD', 1.0, ?, '2026-01-01T00:00:00Z')`,
		runID, step, strain, step,
	)
	require.NoError(t, err)
}

func TestCreateAndGetRun(t *testing.T) {
	s := tempDB(t)

	rec, err := s.CreateRun("swarm_amplification", `{"alpha":0.92}`)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.RunID)
	assert.False(t, rec.Finished())

	got, err := s.GetRun(rec.RunID)
	require.NoError(t, err)
	assert.Equal(t, "swarm_amplification", got.Scenario)
	assert.Equal(t, `{"alpha":0.92}`, got.ConfigJSON)
	assert.False(t, got.Finished())
	assert.False(t, got.Halted)
}

func TestFinishRun(t *testing.T) {
	s := tempDB(t)
	rec, err := s.CreateRun("adversarial_saturation", "")
	require.NoError(t, err)

	require.NoError(t, s.FinishRun(rec.RunID, `{"steps":12}`, true, "recoverability_floor"))

	got, err := s.GetRun(rec.RunID)
	require.NoError(t, err)
	assert.True(t, got.Finished())
	assert.True(t, got.Halted)
	assert.Equal(t, "recoverability_floor", got.HaltReason)
	assert.Equal(t, `{"steps":12}`, got.SummaryJSON)
	assert.Empty(t, got.ConfigJSON)

	err = s.FinishRun(rec.RunID, "{}", false, "")
	assert.Error(t, err, "a run finishes once")
}

func TestRunNotFound(t *testing.T) {
	s := tempDB(t)
	_, err := s.GetRun("nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.FinishRun("nope", "{}", false, "")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListRuns(t *testing.T) {
	s := tempDB(t)
	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		rec, err := s.CreateRun(name, "")
		require.NoError(t, err)
		ids = append(ids, rec.RunID)
	}

	runs, err := s.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].RunID, "newest first")
	assert.Equal(t, ids[1], runs[1].RunID)
}

func TestSteps(t *testing.T) {
	s := tempDB(t)
	rec, err := s.CreateRun("benign", "")
	require.NoError(t, err)

	insertStep(t, s, rec.RunID, 2, 0.49)
	insertStep(t, s, rec.RunID, 1, nil)

	steps, err := s.Steps(rec.RunID)
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, 1, steps[0].Step)
	assert.True(t, math.IsNaN(steps[0].Strain), "NULL strain reads back as NaN")
	assert.Equal(t, 2, steps[1].Step)
	assert.InDelta(t, 0.49, steps[1].Strain, 1e-12)
	require.NotNil(t, steps[1].RecoverySteps)
	assert.Equal(t, 2, *steps[1].RecoverySteps)
	assert.Equal(t, "GOOD", steps[1].Environment)
	assert.False(t, steps[1].CreatedAt.IsZero())

	none, err := s.Steps("other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStepForeignKey(t *testing.T) {
	s := tempDB(t)
	_, err := s.DB().Exec(
		`INSERT INTO step_log (run_id, step, global_value, local_value, action, environment, goodness_ratio, created_at)
		 VALUES ('ghost', 1, 0, 0, 'CONTINUE', 'GOOD', 0, 'x')`,
	)
	assert.Error(t, err)
}

func TestInMemoryStoreShared(t *testing.T) {
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	rec, err := s.CreateRun("benign", "")
	require.NoError(t, err)
	_, err = s.GetRun(rec.RunID)
	require.NoError(t, err)
}
