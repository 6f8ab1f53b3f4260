package rpc

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/gv-guard/internal/policy"
)

// #region types
// ObserveRequest is one reading for a stream. NaN marks a missing value;
// it is sent as an absent field.
type ObserveRequest struct {
	StreamID       string
	Scenario       string
	Global         float64
	Local          float64
	Recoverability float64
	// Reset drops the stream's history before applying the reading.
	Reset bool
}

// Observation is the server's answer to an ObserveRequest.
type Observation struct {
	StreamID        string
	Step            int
	Strain          float64
	Velocity        float64
	CumulativeDrift float64
	PeakVelocity    float64
	Recoverability  float64
	Substituted     bool
	Decision        policy.Decision
	GoodnessRatio   float64
	RecoverySteps   *int
	Halted          bool
	Explanation     string
}

// Verdict is the server's answer to a Classify call.
type Verdict struct {
	Decision    policy.Decision
	Explanation string
}

// #endregion types

// #region encode
func observeRequestStruct(r ObserveRequest) (*structpb.Struct, error) {
	m := map[string]any{
		"stream_id": r.StreamID,
		"scenario":  r.Scenario,
		"reset":     r.Reset,
	}
	putFinite(m, "global", r.Global)
	putFinite(m, "local", r.Local)
	putFinite(m, "recoverability", r.Recoverability)
	return structpb.NewStruct(m)
}

func metricsStruct(m policy.Metrics) (*structpb.Struct, error) {
	out := map[string]any{"scenario": m.Scenario}
	putFinite(out, "recoverability", m.Recoverability)
	putFinite(out, "cum_drift", m.CumulativeAbsDrift)
	putFinite(out, "peak_velocity", m.PeakAbsVelocity)
	return structpb.NewStruct(out)
}

func decisionFields(m map[string]any, d policy.Decision, explanation string) {
	m["action"] = string(d.Action)
	m["reason"] = string(d.Reason)
	m["environment"] = string(d.Environment)
	m["rule"] = d.Rule
	m["explanation"] = explanation
}

func putFinite(m map[string]any, key string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	m[key] = v
}

// #endregion encode

// #region decode
// number reads a numeric field. Absent and null fields read as NaN.
func number(s *structpb.Struct, key string) (float64, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return math.NaN(), nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return k.NumberValue, nil
	case *structpb.Value_NullValue:
		return math.NaN(), nil
	}
	return 0, fmt.Errorf("field %s must be a number", key)
}

func str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func boolean(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func decodeMetrics(s *structpb.Struct) (policy.Metrics, error) {
	m := policy.Metrics{Scenario: str(s, "scenario")}
	var err error
	if m.Recoverability, err = number(s, "recoverability"); err != nil {
		return m, err
	}
	if m.CumulativeAbsDrift, err = number(s, "cum_drift"); err != nil {
		return m, err
	}
	if m.PeakAbsVelocity, err = number(s, "peak_velocity"); err != nil {
		return m, err
	}
	return m, nil
}

func decodeDecision(s *structpb.Struct) policy.Decision {
	return policy.Decision{
		Action:      policy.Action(str(s, "action")),
		Reason:      policy.Reason(str(s, "reason")),
		Environment: policy.Environment(str(s, "environment")),
		Rule:        str(s, "rule"),
	}
}

func decodeObservation(s *structpb.Struct) Observation {
	num := func(key string) float64 {
		v, _ := number(s, key)
		return v
	}
	o := Observation{
		StreamID:        str(s, "stream_id"),
		Step:            int(num("step")),
		Strain:          num("strain"),
		Velocity:        num("velocity"),
		CumulativeDrift: num("cum_drift"),
		PeakVelocity:    num("peak_velocity"),
		Recoverability:  num("recoverability"),
		Substituted:     boolean(s, "substituted"),
		Decision:        decodeDecision(s),
		GoodnessRatio:   num("goodness_ratio"),
		Halted:          boolean(s, "halted"),
		Explanation:     str(s, "explanation"),
	}
	if v, ok := s.GetFields()["recovery_steps"]; ok {
		n := int(v.GetNumberValue())
		o.RecoverySteps = &n
	}
	return o
}

// #endregion decode
