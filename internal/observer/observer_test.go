package observer

import (
	"errors"
	"math"
	"testing"
)

func TestEntropyObserver_WarmUp(t *testing.T) {
	o, err := NewEntropyObserver(DefaultEntropyConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < minEntropySamples-1; i++ {
		if h := o.Update(float64(i)); h != 0 {
			t.Fatalf("sample %d: expected 0 during warm-up, got %f", i+1, h)
		}
	}
}

func TestEntropyObserver_ConstantSignalFloorsAtZero(t *testing.T) {
	o, _ := NewEntropyObserver(DefaultEntropyConfig())
	var h float64
	for i := 0; i < 20; i++ {
		h = o.Update(0.5)
	}
	if h != 0 {
		t.Fatalf("expected 0 for a constant signal, got %f", h)
	}
}

func TestEntropyObserver_WideSignal(t *testing.T) {
	o, _ := NewEntropyObserver(EntropyConfig{WindowSize: 5, Epsilon: 1e-9})
	var h float64
	for _, v := range []float64{-2, 2, -2, 2, 0} {
		h = o.Update(v)
	}
	// |v| = 2,2,2,2,0: mean 1.6, population variance 0.64
	want := 0.5 * math.Log(2*math.Pi*math.E*(0.64+1e-9))
	if math.Abs(h-want) > 1e-12 {
		t.Fatalf("expected %f, got %f", want, h)
	}
}

func TestEntropyObserver_WindowEvictsOldSamples(t *testing.T) {
	o, _ := NewEntropyObserver(EntropyConfig{WindowSize: 5, Epsilon: 1e-9})
	for _, v := range []float64{10, 0, 10, 0, 10} {
		o.Update(v)
	}
	var h float64
	for i := 0; i < 5; i++ {
		h = o.Update(1)
	}
	if h != 0 {
		t.Fatalf("expected old samples evicted, got %f", h)
	}
}

func TestNewEntropyObserver_Invalid(t *testing.T) {
	cases := []EntropyConfig{
		{WindowSize: 4, Epsilon: 1e-9},
		{WindowSize: 50, Epsilon: 0},
		{WindowSize: 50, Epsilon: math.NaN()},
	}
	for _, c := range cases {
		if _, err := NewEntropyObserver(c); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%+v: expected ErrInvalidConfig, got %v", c, err)
		}
	}
}

func TestRecoverabilityVelocity(t *testing.T) {
	v, err := NewRecoverabilityVelocity(DefaultVelocityConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := v.Update(1.0); got != 0 {
		t.Fatalf("expected 0 before min points, got %f", got)
	}
	if got := v.Update(0.9); got != 0 {
		t.Fatalf("expected 0 before min points, got %f", got)
	}
	got := v.Update(0.7)
	if math.Abs(got-(-0.15)) > 1e-12 {
		t.Fatalf("expected -0.15, got %f", got)
	}
}

func TestRecoverabilityVelocity_Window(t *testing.T) {
	v, _ := NewRecoverabilityVelocity(VelocityConfig{Window: 3, MinPoints: 3})
	for _, r := range []float64{0.0, 1.0, 1.0, 1.0} {
		v.Update(r)
	}
	if got := v.Update(1.0); got != 0 {
		t.Fatalf("expected flat window after eviction, got %f", got)
	}
	v.Reset()
	if got := v.Update(0.2); got != 0 {
		t.Fatalf("expected 0 after reset, got %f", got)
	}
}

func TestNewRecoverabilityVelocity_Invalid(t *testing.T) {
	cases := []VelocityConfig{
		{Window: 10, MinPoints: 1},
		{Window: 2, MinPoints: 3},
	}
	for _, c := range cases {
		if _, err := NewRecoverabilityVelocity(c); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%+v: expected ErrInvalidConfig, got %v", c, err)
		}
	}
}
