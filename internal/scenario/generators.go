package scenario

import "math/rand"

// Scenario names shared with the policy's unrecoverable list.
const (
	NameSwarmAmplification    = "swarm_amplification"
	NameAdversarialSaturation = "adversarial_saturation"
	NameHumanAIFeedbackLoop   = "human_ai_feedback_loop"
	NameBenign                = "benign"
)

type rng struct{ *rand.Rand }

func newRNG(seed int64) rng { return rng{rand.New(rand.NewSource(seed))} }

func (r rng) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

// #region swarm
// SwarmParams configures SwarmAmplification.
type SwarmParams struct {
	Steps         int     `yaml:"steps" json:"steps"`
	Agents        int     `yaml:"agents" json:"agents"`
	Coupling      float64 `yaml:"coupling" json:"coupling"`
	BaseNoise     float64 `yaml:"base_noise" json:"base_noise"`
	DriftKickStep int     `yaml:"drift_kick_step" json:"drift_kick_step"`
	DriftKick     float64 `yaml:"drift_kick" json:"drift_kick"`
	Seed          int64   `yaml:"seed" json:"seed"`
}

func DefaultSwarmParams() SwarmParams {
	return SwarmParams{
		Steps:         300,
		Agents:        25,
		Coupling:      0.25,
		BaseNoise:     0.003,
		DriftKickStep: 60,
		DriftKick:     0.0025,
		Seed:          7,
	}
}

// SwarmAmplification models agents whose coherence is coupled to the swarm
// mean. A small persistent drift begins at DriftKickStep and the coupling
// turns it into a correlated decline. Global is the entropy of the mean
// coherence; local is the average per-agent entropy.
func SwarmAmplification(p SwarmParams) Series {
	r := newRNG(p.Seed)
	s := alloc(NameSwarmAmplification, p.Steps)
	if p.Agents <= 0 {
		return s
	}

	coh := make([]float64, p.Agents)
	for i := range coh {
		coh[i] = 0.98 + r.uniform(-0.01, 0.01)
	}
	next := make([]float64, p.Agents)

	for t := 0; t < p.Steps; t++ {
		var mean float64
		for _, c := range coh {
			mean += c
		}
		mean /= float64(p.Agents)

		drift := 0.0
		if t >= p.DriftKickStep {
			drift = p.DriftKick
		}
		for i, c := range coh {
			noise := r.uniform(-p.BaseNoise, p.BaseNoise)
			next[i] = clamp(c+p.Coupling*(mean-c)+noise-drift, 0, 1)
		}
		coh, next = next, coh

		var local float64
		for _, c := range coh {
			local += binaryEntropy(c)
		}
		s.Global[t] = binaryEntropy(mean)
		s.Local[t] = local / float64(p.Agents)
		s.Recoverability[t] = 1
	}
	return s
}

// #endregion swarm

// #region adversarial
// SaturationParams configures AdversarialSaturation.
type SaturationParams struct {
	Steps  int     `yaml:"steps" json:"steps"`
	Eps    float64 `yaml:"eps" json:"eps"`
	Wobble float64 `yaml:"wobble" json:"wobble"`
	Seed   int64   `yaml:"seed" json:"seed"`
}

func DefaultSaturationParams() SaturationParams {
	return SaturationParams{Steps: 600, Eps: 0.00035, Wobble: 0.0002, Seed: 11}
}

// AdversarialSaturation is the slow-poison case: global entropy creeps up
// by Eps per step with a small wobble and local follows with a lag. Both
// stay inside [0.10, 0.69].
func AdversarialSaturation(p SaturationParams) Series {
	r := newRNG(p.Seed)
	s := alloc(NameAdversarialSaturation, p.Steps)

	g, l := 0.45, 0.35
	for t := 0; t < p.Steps; t++ {
		g = clamp(g+p.Eps+r.uniform(-p.Wobble, p.Wobble), 0.10, 0.69)
		l = clamp(l+0.55*(g-l)+r.uniform(-p.Wobble, p.Wobble), 0.10, 0.69)
		s.Global[t] = g
		s.Local[t] = l
		s.Recoverability[t] = 1
	}
	return s
}

// #endregion adversarial

// #region feedback-loop
// FeedbackParams configures HumanAIFeedbackLoop.
type FeedbackParams struct {
	Steps         int     `yaml:"steps" json:"steps"`
	BiasAccum     float64 `yaml:"bias_accum" json:"bias_accum"`
	RecoveryDecay float64 `yaml:"recovery_decay" json:"recovery_decay"`
	Seed          int64   `yaml:"seed" json:"seed"`
}

func DefaultFeedbackParams() FeedbackParams {
	return FeedbackParams{Steps: 500, BiasAccum: 0.0006, RecoveryDecay: 0.0012, Seed: 23}
}

// HumanAIFeedbackLoop accumulates a bias that quietly erodes
// recoverability while the entropy signals rise only mildly.
func HumanAIFeedbackLoop(p FeedbackParams) Series {
	r := newRNG(p.Seed)
	s := alloc(NameHumanAIFeedbackLoop, p.Steps)

	g, l := 0.35, 0.30
	rec := 0.98
	bias := 0.0
	for t := 0; t < p.Steps; t++ {
		bias += p.BiasAccum + r.uniform(-p.BiasAccum*0.15, p.BiasAccum*0.15)
		bias = max(bias, 0)

		g += 0.0002 + r.uniform(-0.00015, 0.00015)
		l += 0.00018 + r.uniform(-0.00015, 0.00015)

		rec = clamp(rec-p.RecoveryDecay*(0.3+bias), 0, 1)

		g = clamp(g, 0.10, 0.69)
		l = clamp(l, 0.10, 0.69)

		s.Global[t] = g
		s.Local[t] = l
		s.Recoverability[t] = rec
	}
	return s
}

// #endregion feedback-loop
