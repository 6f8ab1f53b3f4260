package policy

// #region default-rules
// DefaultRules is the three-outcome rule set: hard refusal for unrecoverable
// scenarios, then stabilization for any scenario trending unsafe.
func DefaultRules(config Config) []Rule {
	ref := config.Refuse
	stab := config.Stabilize
	return []Rule{
		{
			Name:   "refuse_recoverability_floor",
			Scope:  ScopeUnrecoverable,
			Action: ActionRefuse,
			Reason: ReasonRecoverabilityFloor,
			When:   func(m Metrics) bool { return m.Recoverability <= ref.Recoverability },
		},
		{
			Name:   "refuse_drift_budget",
			Scope:  ScopeUnrecoverable,
			Action: ActionRefuse,
			Reason: ReasonDriftBudgetExceeded,
			When:   func(m Metrics) bool { return m.CumulativeAbsDrift >= ref.Drift },
		},
		{
			Name:   "refuse_dsdt_spike",
			Scope:  ScopeUnrecoverable,
			Action: ActionRefuse,
			Reason: ReasonDsDtSpike,
			When:   func(m Metrics) bool { return m.PeakAbsVelocity >= ref.Velocity },
		},
		{
			Name:   "stabilize_trending_unsafe",
			Scope:  ScopeAll,
			Action: ActionStabilize,
			Reason: ReasonTrendingUnsafe,
			When: func(m Metrics) bool {
				return m.Recoverability < stab.Recoverability ||
					m.CumulativeAbsDrift > stab.Drift ||
					m.PeakAbsVelocity > stab.Velocity
			},
		},
	}
}

// #endregion default-rules

// #region tiered-rules
// TieredRules is the finer four-tier variant: refuse, constrain (high strain
// but recoverable), propose (stable but trending risky), continue.
// Refusal keeps the unrecoverable-only scope of DefaultRules.
func TieredRules(config Config) []Rule {
	ref := config.Refuse
	stab := config.Stabilize
	good := config.Good
	return []Rule{
		{
			Name:   "refuse_recoverability_floor",
			Scope:  ScopeUnrecoverable,
			Action: ActionRefuse,
			Reason: ReasonRecoverabilityFloor,
			When:   func(m Metrics) bool { return m.Recoverability <= ref.Recoverability },
		},
		{
			Name:   "refuse_drift_budget",
			Scope:  ScopeUnrecoverable,
			Action: ActionRefuse,
			Reason: ReasonDriftBudgetExceeded,
			When:   func(m Metrics) bool { return m.CumulativeAbsDrift >= ref.Drift },
		},
		{
			Name:   "constrain_high_strain",
			Scope:  ScopeAll,
			Action: ActionConstrain,
			Reason: ReasonHighStrain,
			When: func(m Metrics) bool {
				return m.Recoverability < stab.Recoverability || m.PeakAbsVelocity > stab.Velocity
			},
		},
		{
			Name:   "propose_trending_risky",
			Scope:  ScopeAll,
			Action: ActionPropose,
			Reason: ReasonTrendingRisky,
			When: func(m Metrics) bool {
				return m.Recoverability < good.Recoverability || m.CumulativeAbsDrift > good.Drift
			},
		},
	}
}

// #endregion tiered-rules
