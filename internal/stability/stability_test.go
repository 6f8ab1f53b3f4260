package stability

import (
	"errors"
	"math"
	"testing"
)

const tol = 1e-12

func TestGain_QuietState(t *testing.T) {
	c := DefaultConfig()
	if g := c.Gain(0.2, 0.9, 0.1); g != 0 {
		t.Fatalf("expected no engagement, got %f", g)
	}
}

func TestGain_Components(t *testing.T) {
	c := DefaultConfig()
	if g := c.Gain(1.0, 1.0, 0); math.Abs(g-0.55) > tol {
		t.Errorf("full strain: expected 0.55, got %f", g)
	}
	if g := c.Gain(0, 0, 0); math.Abs(g-0.30) > tol {
		t.Errorf("zero recoverability: expected 0.30, got %f", g)
	}
	if g := c.Gain(0, 1, 1); math.Abs(g-0.30) > tol {
		t.Errorf("full drift: expected 0.30, got %f", g)
	}
	if g := c.Gain(1, 0, 1); g != 1 {
		t.Errorf("all engaged: expected clamp to 1, got %f", g)
	}
}

func TestDamp_NoGainPassesThrough(t *testing.T) {
	c := DefaultConfig()
	if got := c.Damp(0.01, 0); got != 0.01 {
		t.Fatalf("expected passthrough, got %f", got)
	}
}

func TestDamp_ShrinksMagnitudeKeepsSign(t *testing.T) {
	c := DefaultConfig()
	for _, v := range []float64{0.02, -0.02} {
		got := c.Damp(v, 0.5)
		want := v / (1 + 30*0.5*0.02)
		if math.Abs(got-want) > tol {
			t.Errorf("Damp(%f): expected %f, got %f", v, want, got)
		}
		if math.Signbit(got) != math.Signbit(v) {
			t.Errorf("Damp(%f) flipped sign", v)
		}
	}
}

func TestDamp_HardCapAtEmergencyGain(t *testing.T) {
	c := DefaultConfig()
	if got := c.Damp(0.5, 0.9); got != c.DsDtHardCap {
		t.Errorf("expected cap %f, got %f", c.DsDtHardCap, got)
	}
	if got := c.Damp(-0.5, 0.9); got != -c.DsDtHardCap {
		t.Errorf("expected cap %f, got %f", -c.DsDtHardCap, got)
	}
}

func TestDamp_InfiniteVelocityIsCapped(t *testing.T) {
	c := DefaultConfig()
	for _, gain := range []float64{0, 0.3, 0.9} {
		if got := c.Damp(math.Inf(-1), gain); got != -c.DsDtHardCap {
			t.Errorf("gain %.1f: expected %f, got %f", gain, -c.DsDtHardCap, got)
		}
		if got := c.Damp(math.Inf(1), gain); got != c.DsDtHardCap {
			t.Errorf("gain %.1f: expected %f, got %f", gain, c.DsDtHardCap, got)
		}
	}
}

func TestStep_PullsTowardTarget(t *testing.T) {
	c := DefaultConfig()
	out := c.Step(Input{Strain: 1.0, Velocity: 0, Target: 0.5, Dt: 1, Recoverability: 1, CumDrift: 0})
	if out.Gain <= 0 {
		t.Fatalf("expected engagement at full strain, got %f", out.Gain)
	}
	if out.AttractorTerm >= 0 {
		t.Fatalf("expected negative pull above target, got %f", out.AttractorTerm)
	}
	if !(out.StrainNext < 1.0 && out.StrainNext > 0.5) {
		t.Fatalf("expected strain to move toward target, got %f", out.StrainNext)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := []func(*Config){
		func(c *Config) { c.StrainOn = 1 },
		func(c *Config) { c.RecoverabilityCritical = 0 },
		func(c *Config) { c.DsDtHardCap = 0 },
		func(c *Config) { c.DampingLambda = math.Inf(1) },
		func(c *Config) { c.CumDriftCritical = -0.1 },
	}
	for i, mutate := range bad {
		c := DefaultConfig()
		mutate(&c)
		if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("case %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
}
