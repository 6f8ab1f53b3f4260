package policy

import "errors"

// ErrInvalidConfig is returned for threshold sets that cannot be evaluated safely.
var ErrInvalidConfig = errors.New("invalid policy config")

// #region action
// Action is the classifier's recommendation for the calling run loop.
type Action string

const (
	ActionContinue  Action = "CONTINUE"
	ActionPropose   Action = "PROPOSE"   // tiered rule set: stable but trending risky
	ActionConstrain Action = "CONSTRAIN" // tiered rule set: high strain, still recoverable
	ActionStabilize Action = "STABILIZE"
	ActionRefuse    Action = "SAFE_REFUSAL"
)

// Halts reports whether the run loop is expected to stop on this action.
func (a Action) Halts() bool {
	return a == ActionRefuse
}

// Severity orders actions from 0 (continue) to 3 (refuse).
func (a Action) Severity() int {
	switch a {
	case ActionContinue:
		return 0
	case ActionPropose:
		return 1
	case ActionConstrain, ActionStabilize:
		return 2
	case ActionRefuse:
		return 3
	}
	return -1
}

// #endregion action

// #region reason
// Reason is the structured code attached to every non-continue decision.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonRecoverabilityFloor Reason = "recoverability_floor"
	ReasonDriftBudgetExceeded Reason = "drift_budget_exceeded"
	ReasonDsDtSpike           Reason = "dsdt_spike"
	ReasonTrendingUnsafe      Reason = "trending_unsafe"
	ReasonHighStrain          Reason = "high_strain"
	ReasonTrendingRisky       Reason = "trending_risky"
	ReasonUnclassifiable      Reason = "unclassifiable_input"
)

// #endregion reason

// #region environment
// Environment is the longitudinal health label counted by Counters.
type Environment string

const (
	EnvGood Environment = "GOOD"
	EnvBad  Environment = "BAD"
)

// #endregion environment

// #region metrics
// Metrics is the point-in-time input to the classifier.
type Metrics struct {
	Scenario           string
	Recoverability     float64 // [0,1], 1 = fully recoverable
	CumulativeAbsDrift float64
	PeakAbsVelocity    float64
}

// #endregion metrics

// #region decision
// Decision is the classifier output. Rule names the rule that fired ("" when none did).
type Decision struct {
	Action      Action
	Reason      Reason
	Environment Environment
	Rule        string
}

// #endregion decision

// #region config
// Thresholds groups the three comparisons a tier is defined by.
// Whether each is a floor or a ceiling depends on the rule that reads it.
type Thresholds struct {
	Recoverability float64 `yaml:"recoverability" json:"recoverability" validate:"gte=0,lte=1"`
	Drift          float64 `yaml:"drift" json:"drift" validate:"gte=0"`
	Velocity       float64 `yaml:"velocity" json:"velocity" validate:"gte=0"`
}

// Config holds every threshold the classifier reads plus the scenarios
// for which hard refusal applies. Treat it as immutable once a run starts.
type Config struct {
	Good                   Thresholds `yaml:"good" json:"good"`
	Stabilize              Thresholds `yaml:"stabilize" json:"stabilize"`
	Refuse                 Thresholds `yaml:"refuse" json:"refuse"`
	UnrecoverableScenarios []string   `yaml:"unrecoverable_scenarios" json:"unrecoverable_scenarios" validate:"dive,required"`
}

// DefaultConfig returns a fresh copy of the stock thresholds.
func DefaultConfig() Config {
	return Config{
		Good: Thresholds{
			Recoverability: 0.60,
			Drift:          0.30,
			Velocity:       0.0025,
		},
		Stabilize: Thresholds{
			Recoverability: 0.35,
			Drift:          0.30,
			Velocity:       0.005,
		},
		Refuse: Thresholds{
			Recoverability: 0.05,
			Drift:          0.75,
			Velocity:       0.004,
		},
		UnrecoverableScenarios: []string{
			"swarm_amplification",
			"adversarial_saturation",
		},
	}
}

// #endregion config

// #region rule
// Scope restricts which scenarios a rule is evaluated for.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeUnrecoverable
)

// Rule is one entry of the ordered rule list. The first rule whose When
// returns true decides the action.
type Rule struct {
	Name   string
	Scope  Scope
	Action Action
	Reason Reason
	When   func(Metrics) bool
}

// #endregion rule
