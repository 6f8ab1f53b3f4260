package policy

// #region counters
// Counters tracks longitudinal health over one run. Update is called once
// per step after classification. Not safe for concurrent use.
type Counters struct {
	StepsTotal int `json:"steps_total"`
	StepsGood  int `json:"steps_good"`
	StepsBad   int `json:"steps_bad"`

	// FirstBadStep is the 1-indexed step that opened the current bad streak; nil outside a streak.
	FirstBadStep *int `json:"first_bad_step,omitempty"`
	// LastRecoverySteps is the length of the most recently closed bad streak,
	// counted from the first bad step through the good step that closed it.
	LastRecoverySteps *int `json:"last_recovery_steps,omitempty"`
}

// Update counts one step labelled env.
func (c *Counters) Update(env Environment) {
	c.StepsTotal++
	if env == EnvGood {
		c.StepsGood++
		if c.FirstBadStep != nil {
			n := c.StepsTotal - *c.FirstBadStep + 1
			c.LastRecoverySteps = &n
			c.FirstBadStep = nil
		}
		return
	}

	c.StepsBad++
	if c.FirstBadStep == nil {
		start := c.StepsTotal
		c.FirstBadStep = &start
	}
}

// GoodnessRatio is StepsGood/StepsTotal, or 0 before any step.
func (c *Counters) GoodnessRatio() float64 {
	if c.StepsTotal == 0 {
		return 0
	}
	return float64(c.StepsGood) / float64(c.StepsTotal)
}

// InBadStreak reports whether a bad streak is currently open.
func (c *Counters) InBadStreak() bool {
	return c.FirstBadStep != nil
}

// Snapshot returns a deep copy safe to keep after further updates.
func (c *Counters) Snapshot() Counters {
	out := Counters{
		StepsTotal: c.StepsTotal,
		StepsGood:  c.StepsGood,
		StepsBad:   c.StepsBad,
	}
	if c.FirstBadStep != nil {
		v := *c.FirstBadStep
		out.FirstBadStep = &v
	}
	if c.LastRecoverySteps != nil {
		v := *c.LastRecoverySteps
		out.LastRecoverySteps = &v
	}
	return out
}

// #endregion counters
