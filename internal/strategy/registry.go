package strategy

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds named strategies for lookup by CLI flags and sweep runners.
// Strategies are stateless, so a single instance per name is shared.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Default returns a registry with all built-in strategies registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(NewMACrossover())
	r.Register(NewRSIReversal())
	r.Register(NewMACDCrossover())
	r.Register(NewBollingerReversion())
	r.Register(NewPatternRecognition())
	r.Register(NewMultiTimeframe())
	r.Register(NewSentimentWeighted())
	return r
}

// Register adds a strategy, replacing any previous one with the same name.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	r.strategies[s.Name()] = s
	r.mu.Unlock()
}

// Get returns the named strategy or an error listing what is available.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q not registered (have %v)", name, r.names())
	}
	return s, nil
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
