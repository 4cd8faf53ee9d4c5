package graph

import (
	"context"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
)

// Resolver turns a canonical reference into an artifact. A missing target is (nil, nil).
type Resolver interface {
	Resolve(ctx context.Context, ref models.Canonical) (*models.Artifact, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, ref models.Canonical) (*models.Artifact, error)

func (f ResolverFunc) Resolve(ctx context.Context, ref models.Canonical) (*models.Artifact, error) {
	return f(ctx, ref)
}

// RepositoryResolver resolves versioned references exactly and unversioned references to
// the latest version in the repository.
type RepositoryResolver struct {
	repository persistence.Repository
}

// NewRepositoryResolver creates a resolver backed by a repository.
func NewRepositoryResolver(repository persistence.Repository) *RepositoryResolver {
	return &RepositoryResolver{repository: repository}
}

func (r *RepositoryResolver) Resolve(ctx context.Context, ref models.Canonical) (*models.Artifact, error) {
	if ref.URL == "" {
		return nil, nil
	}

	if ref.IsVersioned() {
		return r.repository.FindExact(ctx, ref.URL, ref.Version)
	}

	return r.repository.FindLatest(ctx, ref.URL)
}

// Overlay resolves staged in-memory artifacts ahead of a base resolver, so a walk can see
// mutations that have not been written yet.
type Overlay struct {
	base  Resolver
	exact map[string]*models.Artifact
	byURL map[string]*models.Artifact
}

// NewOverlay creates an overlay on top of base.
func NewOverlay(base Resolver) *Overlay {
	return &Overlay{
		base:  base,
		exact: make(map[string]*models.Artifact),
		byURL: make(map[string]*models.Artifact),
	}
}

// Stage registers an artifact under its current identity and under any alias identities,
// typically the identity it had before being mutated.
func (o *Overlay) Stage(artifact *models.Artifact, aliases ...models.Canonical) {
	o.exact[artifact.Canonical().String()] = artifact
	o.byURL[artifact.URL] = artifact

	for _, alias := range aliases {
		o.exact[alias.String()] = artifact
	}
}

func (o *Overlay) Resolve(ctx context.Context, ref models.Canonical) (*models.Artifact, error) {
	if artifact, ok := o.exact[ref.String()]; ok {
		return artifact, nil
	}

	if !ref.IsVersioned() {
		if artifact, ok := o.byURL[ref.URL]; ok {
			return artifact, nil
		}
	}

	return o.base.Resolve(ctx, ref)
}

// Cache memoizes lookups of a base resolver for the lifetime of one operation.
type Cache struct {
	base    Resolver
	entries map[string]*models.Artifact
}

// NewCache creates a memoizing resolver.
func NewCache(base Resolver) *Cache {
	return &Cache{base: base, entries: make(map[string]*models.Artifact)}
}

func (c *Cache) Resolve(ctx context.Context, ref models.Canonical) (*models.Artifact, error) {
	key := ref.String()
	if artifact, ok := c.entries[key]; ok {
		return artifact, nil
	}

	artifact, err := c.base.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	c.entries[key] = artifact

	return artifact, nil
}
