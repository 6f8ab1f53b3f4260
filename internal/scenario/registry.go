package scenario

import (
	"fmt"
	"sort"
	"sync"
)

// Options overrides the length and seed of a registered generator.
// Zero fields keep the generator's defaults.
type Options struct {
	Steps int
	Seed  int64
}

// Generator builds a series from options.
type Generator func(Options) Series

// Registry maps scenario names to generators. Safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	gens map[string]Generator
}

// NewRegistry returns a registry holding the stock scenarios.
func NewRegistry() *Registry {
	r := &Registry{gens: make(map[string]Generator)}
	r.gens[NameSwarmAmplification] = func(o Options) Series {
		p := DefaultSwarmParams()
		p.Steps, p.Seed = pick(o, p.Steps, p.Seed)
		return SwarmAmplification(p)
	}
	r.gens[NameAdversarialSaturation] = func(o Options) Series {
		p := DefaultSaturationParams()
		p.Steps, p.Seed = pick(o, p.Steps, p.Seed)
		return AdversarialSaturation(p)
	}
	r.gens[NameHumanAIFeedbackLoop] = func(o Options) Series {
		p := DefaultFeedbackParams()
		p.Steps, p.Seed = pick(o, p.Steps, p.Seed)
		return HumanAIFeedbackLoop(p)
	}
	r.gens[NameBenign] = func(o Options) Series {
		steps, _ := pick(o, 300, 0)
		return Constant(NameBenign, steps, 0.5, 0.4, 1)
	}
	return r
}

func pick(o Options, steps int, seed int64) (int, int64) {
	if o.Steps > 0 {
		steps = o.Steps
	}
	if o.Seed != 0 {
		seed = o.Seed
	}
	return steps, seed
}

// Register adds gen under name. Names are unique.
func (r *Registry) Register(name string, gen Generator) error {
	if name == "" || gen == nil {
		return fmt.Errorf("register scenario: name and generator are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.gens[name]; ok {
		return fmt.Errorf("register scenario: %s already registered", name)
	}
	r.gens[name] = gen
	return nil
}

// Generate builds the named series.
func (r *Registry) Generate(name string, o Options) (Series, error) {
	r.mu.RLock()
	gen, ok := r.gens[name]
	r.mu.RUnlock()
	if !ok {
		return Series{}, fmt.Errorf("unknown scenario %q", name)
	}
	s := gen(o)
	s.Name = name
	return s, nil
}

// Names lists registered scenarios in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.gens))
	for n := range r.gens {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
