// Package metrics exports run and decision metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/danielpatrickdp/gv-guard/internal/policy"
)

// OtherScenario labels scenarios outside the recorder's known set.
const OtherScenario = "other"

// Recorder implements engine.Recorder using Prometheus.
type Recorder struct {
	known map[string]struct{}

	decisions     *prometheus.CounterVec
	steps         *prometheus.CounterVec
	substitutions *prometheus.CounterVec
	runs          *prometheus.CounterVec
	goodness      *prometheus.GaugeVec
	peakVelocity  *prometheus.GaugeVec
	runDuration   *prometheus.HistogramVec
}

// New registers the gvguard collectors on reg. When scenarios are given,
// any other scenario name is recorded as OtherScenario so client-supplied
// names cannot grow the label set.
func New(reg prometheus.Registerer, scenarios ...string) *Recorder {
	var known map[string]struct{}
	if len(scenarios) > 0 {
		known = make(map[string]struct{}, len(scenarios))
		for _, s := range scenarios {
			known[s] = struct{}{}
		}
	}
	factory := promauto.With(reg)
	return &Recorder{
		known: known,
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gvguard_decisions_total",
				Help: "Classifier decisions by scenario, action and reason",
			},
			[]string{"scenario", "action", "reason"},
		),
		steps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gvguard_steps_total",
				Help: "Steps processed by environment label",
			},
			[]string{"scenario", "environment"},
		),
		substitutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gvguard_input_substitutions_total",
				Help: "Non-finite inputs replaced before reaching the monitor",
			},
			[]string{"scenario"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gvguard_runs_total",
				Help: "Finished runs by outcome",
			},
			[]string{"scenario", "outcome"},
		),
		goodness: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gvguard_goodness_ratio",
				Help: "Goodness ratio of the last finished run",
			},
			[]string{"scenario"},
		),
		peakVelocity: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gvguard_peak_abs_velocity",
				Help: "Peak absolute smoothed velocity of the last finished run",
			},
			[]string{"scenario"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gvguard_run_duration_seconds",
				Help:    "Wall time of a run",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"scenario"},
		),
	}
}

// ObserveStep records one classified step.
func (r *Recorder) ObserveStep(scenario string, d policy.Decision, substituted bool) {
	scenario = r.label(scenario)
	r.decisions.WithLabelValues(scenario, string(d.Action), string(d.Reason)).Inc()
	r.steps.WithLabelValues(scenario, string(d.Environment)).Inc()
	if substituted {
		r.substitutions.WithLabelValues(scenario).Inc()
	}
}

// ObserveRun records a finished run.
func (r *Recorder) ObserveRun(scenario string, goodnessRatio, peakVelocity float64, halted bool, elapsed time.Duration) {
	scenario = r.label(scenario)
	outcome := "completed"
	if halted {
		outcome = "refused"
	}
	r.runs.WithLabelValues(scenario, outcome).Inc()
	r.goodness.WithLabelValues(scenario).Set(goodnessRatio)
	r.peakVelocity.WithLabelValues(scenario).Set(peakVelocity)
	r.runDuration.WithLabelValues(scenario).Observe(elapsed.Seconds())
}

func (r *Recorder) label(scenario string) string {
	if r.known == nil {
		return scenario
	}
	if _, ok := r.known[scenario]; ok {
		return scenario
	}
	return OtherScenario
}
