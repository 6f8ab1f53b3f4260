package eval

import (
	"fmt"
	"math"
)

// #region eval-harness
// EvalHarness bins finished runs.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run sorts m into a bin. Rules are checked in order: quiet degradation,
// shock recovered, saturation drift, else healthy. Non-finite metrics are
// never binned healthy.
func (h *EvalHarness) Run(m RunMetrics) EvalResult {
	c := h.config
	metrics := []EvalMetric{
		{Name: "final_recoverability", Value: m.FinalRecoverability, Pass: m.FinalRecoverability >= c.ShockRecoverability},
		{Name: "cumulative_abs_drift", Value: m.CumulativeAbsDrift, Pass: m.CumulativeAbsDrift < c.QuietDrift},
		{Name: "peak_abs_velocity", Value: m.PeakAbsVelocity, Pass: m.PeakAbsVelocity < c.QuietVelocity},
	}

	for _, v := range metrics {
		if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
			return EvalResult{
				Bin:     BinUnclassifiable,
				Metrics: metrics,
				Reason:  fmt.Sprintf("%s is not finite", v.Name),
			}
		}
	}

	rec, cum, peak := m.FinalRecoverability, m.CumulativeAbsDrift, m.PeakAbsVelocity
	switch {
	case rec < c.QuietRecoverability && cum < c.QuietDrift && peak < c.QuietVelocity:
		return EvalResult{
			Bin:     BinQuietDegradation,
			Metrics: metrics,
			Reason:  fmt.Sprintf("recoverability %.4f fell below %.4f without drift or spikes", rec, c.QuietRecoverability),
		}
	case rec >= c.ShockRecoverability && (cum > c.ShockDrift || peak > c.ShockVelocity):
		return EvalResult{
			Bin:     BinShockRecoverable,
			Metrics: metrics,
			Reason:  fmt.Sprintf("recoverability %.4f held through drift %.4f / peak %.4f", rec, cum, peak),
		}
	case rec >= c.QuietRecoverability && rec < c.ShockRecoverability:
		return EvalResult{
			Bin:     BinSaturationDrift,
			Metrics: metrics,
			Reason:  fmt.Sprintf("recoverability %.4f in the saturation band", rec),
		}
	}

	return EvalResult{
		Bin:     BinHealthy,
		Metrics: metrics,
		Reason:  "all checks passed",
	}
}

// #endregion eval-harness
