package eval

// #region eval-config
// EvalConfig holds the thresholds that sort a finished run into a behavior bin.
// Quiet* describe a run that lost recoverability without drift or spikes;
// Shock* describe a run that kept recoverability through one.
type EvalConfig struct {
	QuietRecoverability float64 `yaml:"quiet_recoverability" json:"quiet_recoverability" default:"0.4"`
	QuietDrift          float64 `yaml:"quiet_drift" json:"quiet_drift" default:"0.3"`
	QuietVelocity       float64 `yaml:"quiet_velocity" json:"quiet_velocity" default:"0.001"`
	ShockRecoverability float64 `yaml:"shock_recoverability" json:"shock_recoverability" default:"0.6"`
	ShockDrift          float64 `yaml:"shock_drift" json:"shock_drift" default:"0.6"`
	ShockVelocity       float64 `yaml:"shock_velocity" json:"shock_velocity" default:"0.005"`
}

// DefaultEvalConfig returns the stock longitudinal binning thresholds.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		QuietRecoverability: 0.4,
		QuietDrift:          0.3,
		QuietVelocity:       0.001,
		ShockRecoverability: 0.6,
		ShockDrift:          0.6,
		ShockVelocity:       0.005,
	}
}

// #endregion eval-config

// #region bin
// Bin is the behavior class of a finished run.
type Bin string

const (
	BinHealthy          Bin = "healthy"
	BinQuietDegradation Bin = "quiet_degradation"
	BinShockRecoverable Bin = "shock_recoverable"
	BinSaturationDrift  Bin = "saturation_drift"
	BinUnclassifiable   Bin = "unclassifiable"
)

// #endregion bin

// #region run-metrics
// RunMetrics is the end-of-run view eval reads.
type RunMetrics struct {
	FinalRecoverability float64
	CumulativeAbsDrift  float64
	PeakAbsVelocity     float64
}

// #endregion run-metrics

// #region eval-metric
// EvalMetric captures a single check that fed the bin decision.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the binning outcome.
type EvalResult struct {
	Bin     Bin
	Metrics []EvalMetric
	Reason  string
}

// #endregion eval-result
