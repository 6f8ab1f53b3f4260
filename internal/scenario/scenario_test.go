package scenario

import (
	"math"
	"testing"
)

func mean(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func TestGeneratorsAreDeterministic(t *testing.T) {
	a := SwarmAmplification(DefaultSwarmParams())
	b := SwarmAmplification(DefaultSwarmParams())
	for i := range a.Global {
		if a.Global[i] != b.Global[i] || a.Local[i] != b.Local[i] {
			t.Fatalf("step %d differs between runs with the same seed", i)
		}
	}

	p := DefaultSwarmParams()
	p.Seed = 8
	c := SwarmAmplification(p)
	same := true
	for i := range a.Global {
		if a.Local[i] != c.Local[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical series")
	}
}

func TestSwarmAmplification_EntropyRisesAfterKick(t *testing.T) {
	p := DefaultSwarmParams()
	p.Steps = 260
	p.Agents = 30
	p.Coupling = 0.35
	p.DriftKick = 0.0022
	s := SwarmAmplification(p)

	if err := s.Validate(); err != nil {
		t.Fatalf("invalid series: %v", err)
	}
	for i := range s.Global {
		if s.Global[i] < 0 || s.Global[i] > math.Ln2 || s.Local[i] < 0 || s.Local[i] > math.Ln2 {
			t.Fatalf("step %d: entropy outside [0, ln2]: %f %f", i, s.Global[i], s.Local[i])
		}
	}
	early := mean(s.Global[:20])
	late := mean(s.Global[len(s.Global)-20:])
	if late <= early+0.2 {
		t.Fatalf("expected coherence loss to raise entropy: early %f, late %f", early, late)
	}
}

func TestAdversarialSaturation_SlowMonotoneRise(t *testing.T) {
	s := AdversarialSaturation(SaturationParams{Steps: 650, Eps: 0.00045, Wobble: 0.00018, Seed: 11})
	if s.Len() != 650 {
		t.Fatalf("expected 650 steps, got %d", s.Len())
	}
	for i := 1; i < s.Len(); i++ {
		if s.Global[i] < s.Global[i-1] {
			t.Fatalf("step %d: global fell from %f to %f", i, s.Global[i-1], s.Global[i])
		}
		if s.Global[i]-s.Global[i-1] > 0.00045+0.00018+1e-12 {
			t.Fatalf("step %d: jump too large for slow poison", i)
		}
	}
	for i := range s.Local {
		if s.Local[i] < 0.10 || s.Local[i] > 0.69 {
			t.Fatalf("step %d: local %f outside clamp", i, s.Local[i])
		}
	}
	if s.Global[s.Len()-1] < 0.62 {
		t.Fatalf("expected global to saturate upward, ended at %f", s.Global[s.Len()-1])
	}
}

func TestHumanAIFeedbackLoop_SilentRecoverabilityLoss(t *testing.T) {
	s := HumanAIFeedbackLoop(FeedbackParams{Steps: 520, BiasAccum: 0.0006, RecoveryDecay: 0.0012, Seed: 23})

	for i := range s.Global {
		if s.Global[i] > 0.69 || s.Local[i] > 0.69 {
			t.Fatalf("step %d: entropy exceeded clamp", i)
		}
	}
	r := s.Recoverability
	if r[0] <= 0.90 {
		t.Fatalf("expected high initial recoverability, got %f", r[0])
	}
	for i := 1; i < len(r); i++ {
		if r[i] >= r[i-1] {
			t.Fatalf("step %d: recoverability did not decay (%f -> %f)", i, r[i-1], r[i])
		}
	}
	if r[len(r)-1] > 0.75 {
		t.Fatalf("expected significant recoverability loss, ended at %f", r[len(r)-1])
	}
}

func TestStepAndConstant(t *testing.T) {
	s := Step("jump", 3, 2, 0.5, 0.4, 0.9, 0.9, 1)
	if s.Len() != 5 || s.Global[2] != 0.5 || s.Global[3] != 0.9 {
		t.Fatalf("unexpected step series: %+v", s)
	}
	c := Constant("flat", 4, 0.1, 0.2, 0.7)
	if c.Len() != 4 || c.Local[3] != 0.2 || c.Recoverability[0] != 0.7 {
		t.Fatalf("unexpected constant series: %+v", c)
	}
	r := Ramp("ramp", 3, 0, 0, 0.5, 1)
	if r.Global[2] != 1.0 {
		t.Fatalf("unexpected ramp end %f", r.Global[2])
	}
}

func TestSeriesValidate(t *testing.T) {
	s := Constant("x", 3, 0, 0, 1)
	s.Local = s.Local[:2]
	if err := s.Validate(); err == nil {
		t.Fatal("expected length mismatch error")
	}
	if err := (Series{}).Validate(); err == nil {
		t.Fatal("expected missing name error")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	names := r.Names()
	want := []string{NameAdversarialSaturation, NameBenign, NameHumanAIFeedbackLoop, NameSwarmAmplification}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}

	s, err := r.Generate(NameAdversarialSaturation, Options{Steps: 40})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if s.Len() != 40 || s.Name != NameAdversarialSaturation {
		t.Fatalf("unexpected series %s with %d steps", s.Name, s.Len())
	}

	if _, err := r.Generate("nope", Options{}); err == nil {
		t.Fatal("expected unknown scenario error")
	}
	if err := r.Register(NameBenign, func(Options) Series { return Series{} }); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if err := r.Register("flat", func(o Options) Series { return Constant("", o.Steps, 0.1, 0.1, 1) }); err != nil {
		t.Fatalf("register: %v", err)
	}
	flat, err := r.Generate("flat", Options{Steps: 5})
	if err != nil || flat.Name != "flat" || flat.Len() != 5 {
		t.Fatalf("unexpected custom series %+v, err %v", flat, err)
	}
}
