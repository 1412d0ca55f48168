// Package registry holds the configured platform adapters and resolves
// change-request URLs to the adapter serving them.
package registry

import (
	"context"

	"github.com/augurhq/augur/internal/config"
	"github.com/augurhq/augur/internal/provider"
	"github.com/augurhq/augur/internal/provider/bitbucket"
	"github.com/augurhq/augur/internal/provider/generic"
	"github.com/augurhq/augur/internal/provider/github"
	"github.com/augurhq/augur/internal/provider/gitlab"
)

// Registry manages adapter instances.
type Registry struct {
	adapters map[string]provider.Adapter
	fallback provider.Adapter
}

// New creates a registry from config. All platform adapters are
// registered even without credentials; tokenless adapters serve public
// repositories only.
func New(cfg *config.Config) *Registry {
	r := &Registry{
		adapters: make(map[string]provider.Adapter),
		fallback: generic.New(),
	}

	r.adapters["github"] = github.New(cfg.Providers.GitHub.Token)
	r.adapters["gitlab"] = gitlab.New(cfg.Providers.GitLab.Token)
	r.adapters["bitbucket"] = bitbucket.New(cfg.Providers.Bitbucket.Username, cfg.Providers.Bitbucket.AppPassword)

	return r
}

// Get returns the adapter for the given platform name, falling back to
// the generic adapter for unknown platforms.
func (r *Registry) Get(name string) provider.Adapter {
	if a, ok := r.adapters[name]; ok {
		return a
	}
	return r.fallback
}

// ForURL parses a change-request URL and returns the adapter serving it
// together with the parsed reference.
func (r *Registry) ForURL(rawURL string) (provider.Adapter, provider.ChangeRef, error) {
	ref, err := provider.ParseChangeURL(rawURL)
	if err != nil {
		return nil, provider.ChangeRef{}, err
	}
	return r.Get(ref.Platform), ref, nil
}

// Fetch resolves a change-request URL and retrieves its metadata from
// the owning platform.
func (r *Registry) Fetch(ctx context.Context, rawURL string) (*provider.ChangeRequest, provider.ChangeRef, error) {
	adapter, ref, err := r.ForURL(rawURL)
	if err != nil {
		return nil, provider.ChangeRef{}, err
	}
	cr, err := adapter.FetchChangeRequest(ctx, ref)
	if err != nil {
		return nil, ref, err
	}
	return cr, ref, nil
}

// PostComment posts a comment through the adapter owning the reference.
func (r *Registry) PostComment(ctx context.Context, ref provider.ChangeRef, body string) error {
	return r.Get(ref.Platform).PostComment(ctx, ref, body)
}

// List returns all registered platform names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
