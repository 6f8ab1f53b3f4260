package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/gv-guard/internal/engine"
	"github.com/danielpatrickdp/gv-guard/internal/monitor"
	"github.com/danielpatrickdp/gv-guard/internal/policy"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "console", c.Log.Format)
	assert.Equal(t, "gvguard.db", c.Store.Path)
	assert.Equal(t, ":50061", c.Server.Addr)
	assert.Equal(t, 15*time.Minute, c.Server.StreamIdleTimeout)
	assert.Equal(t, 4, c.Parallelism)
	assert.Equal(t, engine.DefaultConfig().Policy, c.Engine.Policy)
	require.NoError(t, c.Validate())
}

func TestParse_OverridesDefaults(t *testing.T) {
	doc := []byte(`
log:
  level: debug
  format: json
store:
  path: /tmp/runs.db
server:
  stream_idle_timeout: 90s
engine:
  rule_set: tiered
  monitor:
    alpha: 0.9
    beta: 0.1
    gamma: 0.97
  monitor_overrides:
    swarm_amplification:
      alpha: 0.92
      beta: 0.08
      gamma: 0.95
  policy:
    unrecoverable_scenarios: [adversarial_saturation]
scenarios:
  - name: benign
    steps: 50
  - name: swarm_amplification
    seed: 99
`)
	c, err := Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "/tmp/runs.db", c.Store.Path)
	assert.Equal(t, engine.RuleSetTiered, c.Engine.RuleSet)
	assert.Equal(t, monitor.Config{Alpha: 0.9, Beta: 0.1, Gamma: 0.97}, c.Engine.Monitor)
	require.NotNil(t, c.Engine.MonitorOverrides["swarm_amplification"].Gamma)
	assert.Equal(t, 0.95, *c.Engine.MonitorOverrides["swarm_amplification"].Gamma)
	assert.Equal(t, []string{"adversarial_saturation"}, c.Engine.Policy.UnrecoverableScenarios)
	// untouched thresholds keep their defaults
	assert.Equal(t, policy.DefaultConfig().Refuse, c.Engine.Policy.Refuse)
	require.Len(t, c.Scenarios, 2)
	assert.Equal(t, int64(99), c.Scenarios[1].Seed)
	assert.Equal(t, ":50061", c.Server.Addr)
	assert.Equal(t, 90*time.Second, c.Server.StreamIdleTimeout)
}

func TestParse_PartialMonitorOverride(t *testing.T) {
	doc := []byte("engine:\n  monitor_overrides:\n    adversarial_saturation:\n      gamma: 0.97\n")
	c, err := Parse(doc)
	require.NoError(t, err)

	e, err := engine.New(c.Engine, engine.Deps{})
	require.NoError(t, err)
	mc := e.MonitorConfig("adversarial_saturation")
	assert.Equal(t, monitor.DefaultConfig().Alpha, mc.Alpha)
	assert.Equal(t, monitor.DefaultConfig().Beta, mc.Beta)
	assert.Equal(t, 0.97, mc.Gamma)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad gamma":      "engine:\n  monitor:\n    alpha: 1\n    beta: 0\n    gamma: 1.0\n",
		"zero weights":   "engine:\n  monitor_overrides:\n    benign:\n      alpha: 0\n      beta: 0\n",
		"inverted floor": "engine:\n  policy:\n    refuse:\n      recoverability: 0.9\n",
		"bad rule set":   "engine:\n  rule_set: nine\n",
		"bad log level":  "log:\n  level: loud\n",
		"unnamed":        "scenarios:\n  - steps: 3\n",
		"malformed":      "engine: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_InvalidPolicyIsTyped(t *testing.T) {
	_, err := Parse([]byte("engine:\n  policy:\n    stabilize:\n      drift: 2\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, policy.ErrInvalidConfig))
}

func TestApplyEnv(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	env := map[string]string{
		"GVGUARD_DB":        "env.db",
		"GVGUARD_ADDR":      ":7000",
		"GVGUARD_LOG_LEVEL": "warn",
	}
	c.ApplyEnv(func(k string) string { return env[k] })
	assert.Equal(t, "env.db", c.Store.Path)
	assert.Equal(t, ":7000", c.Server.Addr)
	assert.Equal(t, ":9090", c.Server.MetricsAddr)
	assert.Equal(t, "warn", c.Log.Level)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gvguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parallelism: 2\n"), 0o644))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Parallelism)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
