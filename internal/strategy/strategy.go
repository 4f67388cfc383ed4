// Package strategy defines the Strategy interface for signal-generating
// trading strategies and provides a Registry that is consulted both to
// construct strategies and to validate user-supplied strategy names.
package strategy

import (
	"errors"
	"fmt"
	"sort"

	"quantbt/internal/domain"
)

// ErrUnknownStrategy is returned when a strategy name is not present in the
// registry. It is a configuration error and is raised before any price data
// is loaded.
var ErrUnknownStrategy = errors.New("unknown strategy type")

// Strategy maps an aligned price series to a signal frame. Implementations
// are parameterised once at construction and hold no state across calls:
// GenerateSignals is deterministic in its input.
type Strategy interface {
	// Name returns the canonical display name for this strategy.
	Name() string

	// GenerateSignals produces one signal row per input row. For an empty
	// series it returns an empty, fully-schematised frame.
	GenerateSignals(series *domain.PriceSeries) (*domain.SignalFrame, error)
}

// Factory constructs a strategy from a fixed parameter set, applying
// defaults for omitted parameters.
type Factory func(params domain.Params) (Strategy, error)

// Registry holds the closed set of known strategies. Membership in the
// registry is the validity check for user input.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a strategy factory under the given canonical name.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Known reports whether name identifies a registered strategy.
func (r *Registry) Known(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Create builds a strategy by name. It returns ErrUnknownStrategy (wrapped
// with the offending name) when the name is not registered.
func (r *Registry) Create(name string, params domain.Params) (Strategy, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return f(params)
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
