package usecase

import (
	"errors"

	"crosspost/domain/model"
	"crosspost/domain/repository"
)

var ErrUnknownPlatform = errors.New("no adapter registered for platform")

// Registry resolves platform adapters by enum. Orchestration code looks up
// capabilities here and never branches on platform identity.
type Registry struct {
	adapters map[model.Platform]repository.IPlatformAdapter
}

func NewRegistry(adapters ...repository.IPlatformAdapter) *Registry {
	m := make(map[model.Platform]repository.IPlatformAdapter, len(adapters))
	for _, a := range adapters {
		m[a.Platform()] = a
	}
	return &Registry{adapters: m}
}

func (r *Registry) Get(p model.Platform) (repository.IPlatformAdapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, ErrUnknownPlatform
	}
	return a, nil
}

// Refresher returns the token-refresh capability when the platform has one.
func (r *Registry) Refresher(p model.Platform) (repository.ITokenRefresher, bool) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, false
	}
	ref, ok := a.(repository.ITokenRefresher)
	return ref, ok
}

// Poller returns the async-ingestion capability when the platform has one.
func (r *Registry) Poller(p model.Platform) (repository.IContainerPoller, bool) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, false
	}
	pl, ok := a.(repository.IContainerPoller)
	return pl, ok
}

// Metrics returns the metrics-fetch capability when the platform has one.
func (r *Registry) Metrics(p model.Platform) (repository.IMetricsFetcher, bool) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, false
	}
	m, ok := a.(repository.IMetricsFetcher)
	return m, ok
}
