package policy

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// #region classifier
// Classifier maps run metrics to an action using an ordered rule list.
// It holds no per-run state and is safe for concurrent use.
type Classifier struct {
	config        Config
	rules         []Rule
	unrecoverable map[string]struct{}
}

// NewClassifier validates config and builds a classifier over DefaultRules.
func NewClassifier(config Config) (*Classifier, error) {
	return NewClassifierWithRules(config, DefaultRules(config))
}

// NewClassifierWithRules validates config and uses rules in the given order.
func NewClassifierWithRules(config Config, rules []Rule) (*Classifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	for i, r := range rules {
		if r.When == nil {
			return nil, fmt.Errorf("%w: rule %d (%s) has no predicate", ErrInvalidConfig, i, r.Name)
		}
		if r.Action.Severity() < 0 {
			return nil, fmt.Errorf("%w: rule %d (%s) has unknown action %q", ErrInvalidConfig, i, r.Name, r.Action)
		}
	}

	set := make(map[string]struct{}, len(config.UnrecoverableScenarios))
	for _, s := range config.UnrecoverableScenarios {
		set[s] = struct{}{}
	}
	// copy so later edits to the caller's slices do not leak in
	cfg := config
	cfg.UnrecoverableScenarios = append([]string(nil), config.UnrecoverableScenarios...)

	return &Classifier{
		config:        cfg,
		rules:         append([]Rule(nil), rules...),
		unrecoverable: set,
	}, nil
}

// Config returns the thresholds the classifier was built with.
func (c *Classifier) Config() Config {
	return c.config
}

// Rules returns the rule names in evaluation order.
func (c *Classifier) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// IsUnrecoverable reports whether hard-refusal rules apply to scenario.
func (c *Classifier) IsUnrecoverable(scenario string) bool {
	_, ok := c.unrecoverable[scenario]
	return ok
}

// #endregion classifier

// #region classify
// Classify evaluates the rules top-down; the first match wins.
// Non-finite metrics never yield CONTINUE.
func (c *Classifier) Classify(m Metrics) Decision {
	env := c.Environment(m)
	unrecoverable := c.IsUnrecoverable(m.Scenario)

	for _, r := range c.rules {
		if r.Scope == ScopeUnrecoverable && !unrecoverable {
			continue
		}
		if r.When(m) {
			return Decision{
				Action:      r.Action,
				Reason:      r.Reason,
				Environment: env,
				Rule:        r.Name,
			}
		}
	}

	if !m.finite() {
		return Decision{
			Action:      ActionStabilize,
			Reason:      ReasonUnclassifiable,
			Environment: EnvBad,
			Rule:        "non_finite_guard",
		}
	}

	return Decision{
		Action:      ActionContinue,
		Reason:      ReasonNone,
		Environment: env,
	}
}

// Environment labels m GOOD only when every good-tier comparison holds.
// NaN fails every comparison and so lands in BAD.
func (c *Classifier) Environment(m Metrics) Environment {
	g := c.config.Good
	if m.Recoverability >= g.Recoverability &&
		m.CumulativeAbsDrift <= g.Drift &&
		m.PeakAbsVelocity <= g.Velocity &&
		m.finite() {
		return EnvGood
	}
	return EnvBad
}

// ClassifyAndDecide is the one-shot form: validate config, classify m.
func ClassifyAndDecide(m Metrics, config Config) (Decision, error) {
	c, err := NewClassifier(config)
	if err != nil {
		return Decision{}, err
	}
	return c.Classify(m), nil
}

// #endregion classify

// #region validate
// Validate rejects threshold sets that are out of range or inverted.
// Thresholds are never clamped.
func (c Config) Validate() error {
	groups := []struct {
		name string
		t    Thresholds
	}{
		{"good", c.Good},
		{"stabilize", c.Stabilize},
		{"refuse", c.Refuse},
	}
	for _, g := range groups {
		for _, v := range []float64{g.t.Recoverability, g.t.Drift, g.t.Velocity} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s thresholds must be finite", ErrInvalidConfig, g.name)
			}
		}
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Refuse.Recoverability > c.Stabilize.Recoverability {
		return fmt.Errorf("%w: refuse recoverability floor %.4f above stabilize threshold %.4f",
			ErrInvalidConfig, c.Refuse.Recoverability, c.Stabilize.Recoverability)
	}
	if c.Stabilize.Recoverability > c.Good.Recoverability {
		return fmt.Errorf("%w: stabilize recoverability %.4f above good threshold %.4f",
			ErrInvalidConfig, c.Stabilize.Recoverability, c.Good.Recoverability)
	}
	if c.Stabilize.Drift > c.Refuse.Drift {
		return fmt.Errorf("%w: stabilize drift %.4f above refuse drift limit %.4f",
			ErrInvalidConfig, c.Stabilize.Drift, c.Refuse.Drift)
	}
	return nil
}

// #endregion validate

// #region helpers
func (m Metrics) finite() bool {
	for _, v := range []float64{m.Recoverability, m.CumulativeAbsDrift, m.PeakAbsVelocity} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// #endregion helpers
