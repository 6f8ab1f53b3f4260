package eval

import (
	"math"
	"testing"
)

func TestEvalBins(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	tests := []struct {
		name string
		m    RunMetrics
		want Bin
	}{
		{"healthy", RunMetrics{FinalRecoverability: 0.95, CumulativeAbsDrift: 0.1, PeakAbsVelocity: 0.001}, BinHealthy},
		{"quiet degradation", RunMetrics{FinalRecoverability: 0.2, CumulativeAbsDrift: 0.1, PeakAbsVelocity: 0.0005}, BinQuietDegradation},
		{"shock by drift", RunMetrics{FinalRecoverability: 0.8, CumulativeAbsDrift: 0.7, PeakAbsVelocity: 0.001}, BinShockRecoverable},
		{"shock by spike", RunMetrics{FinalRecoverability: 0.6, CumulativeAbsDrift: 0.1, PeakAbsVelocity: 0.01}, BinShockRecoverable},
		{"saturation lower edge", RunMetrics{FinalRecoverability: 0.4, CumulativeAbsDrift: 0.1}, BinSaturationDrift},
		{"saturation", RunMetrics{FinalRecoverability: 0.55, CumulativeAbsDrift: 0.9, PeakAbsVelocity: 0.02}, BinSaturationDrift},
		// low recoverability with a spike matches no degradation pattern
		{"loud collapse", RunMetrics{FinalRecoverability: 0.1, CumulativeAbsDrift: 0.1, PeakAbsVelocity: 0.01}, BinHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.Run(tt.m)
			if got.Bin != tt.want {
				t.Fatalf("expected %s, got %s (%s)", tt.want, got.Bin, got.Reason)
			}
			if len(got.Metrics) != 3 {
				t.Fatalf("expected 3 metrics, got %d", len(got.Metrics))
			}
		})
	}
}

func TestEvalNonFiniteIsUnclassifiable(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	for _, m := range []RunMetrics{
		{FinalRecoverability: math.NaN()},
		{FinalRecoverability: 0.9, CumulativeAbsDrift: math.Inf(1)},
		{FinalRecoverability: 0.9, PeakAbsVelocity: math.NaN()},
	} {
		if got := h.Run(m); got.Bin != BinUnclassifiable {
			t.Errorf("%+v: expected unclassifiable, got %s", m, got.Bin)
		}
	}
}
