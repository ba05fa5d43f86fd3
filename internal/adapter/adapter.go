package adapter

import (
	"context"
	"fmt"

	"BlogHarvester/internal/domain"
)

// Adapter extracts a normalized post list from one platform family.
// Implementations absorb partial failure: a broken page or item is
// skipped, not propagated.
type Adapter interface {
	Kind() domain.PlatformKind
	Fetch(ctx context.Context, source domain.Source) ([]domain.RawPost, error)
}

// Registry keeps a mapping from platform kinds to their adapters.
type Registry struct {
	adapters map[domain.PlatformKind]Adapter
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: map[domain.PlatformKind]Adapter{}}
}

// Register adds or replaces an adapter implementation.
func (r *Registry) Register(a Adapter) {
	if r.adapters == nil {
		r.adapters = map[domain.PlatformKind]Adapter{}
	}
	r.adapters[a.Kind()] = a
}

// Resolve returns an adapter by platform kind or an error if it is absent.
func (r *Registry) Resolve(kind domain.PlatformKind) (Adapter, error) {
	if a, ok := r.adapters[kind]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("no adapter registered for platform %s", kind)
}
