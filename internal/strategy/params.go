package strategy

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameter is returned when a strategy parameter is out of range.
// Wrapped errors describe the offending key and value.
var ErrInvalidParameter = errors.New("invalid parameter")

// Parameters is the open tuning surface of a strategy: a named mapping of
// numeric values. Unknown keys are ignored; missing keys fall back to the
// strategy's defaults via Merge. This is the single fallback point, with no
// per-field defaulting inside strategies.
type Parameters map[string]float64

// Merge returns defaults overlaid with the receiver's values.
// Neither map is mutated.
func (p Parameters) Merge(defaults Parameters) Parameters {
	out := make(Parameters, len(defaults)+len(p))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Period reads a parameter as a positive integer period.
func (p Parameters) Period(key string) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s missing", ErrInvalidParameter, key)
	}
	n := int(v)
	if n < 1 || float64(n) != v {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %v", ErrInvalidParameter, key, v)
	}
	return n, nil
}

// Positive reads a parameter that must be a finite value > 0.
func (p Parameters) Positive(key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s missing", ErrInvalidParameter, key)
	}
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be > 0, got %v", ErrInvalidParameter, key, v)
	}
	return v, nil
}

// Value reads a parameter that must simply be finite.
func (p Parameters) Value(key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s missing", ErrInvalidParameter, key)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be finite", ErrInvalidParameter, key)
	}
	return v, nil
}
