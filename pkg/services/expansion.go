package services

import (
	"context"
	"fmt"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/terminology"
)

// expansionRun expands the value sets of one bundle. Leaves go through the cache and the
// expander; groupers are the union of their expanded children.
type expansionRun struct {
	*packageRun

	parameters *models.Parameters
	bundled    map[string]*models.Artifact
	done       map[string]*models.Expansion
	visiting   map[string]struct{}
}

func (r *packageRun) expand(ctx context.Context, entries []*models.BundleEntry) {
	params, err := InferManifestParameters(ctx, r.manifest.Artifact, r.resolver)
	if err != nil {
		r.packager.logger.WarnContext(ctx, "manifest parameters unavailable for expansion", "error", err)

		params = &models.Parameters{}
	}

	run := &expansionRun{
		packageRun: r,
		parameters: params,
		bundled:    make(map[string]*models.Artifact, len(entries)),
		done:       map[string]*models.Expansion{},
		visiting:   map[string]struct{}{},
	}

	for _, entry := range entries {
		run.bundled[entry.Artifact.URL] = entry.Artifact
	}

	for _, entry := range entries {
		vs := entry.Artifact
		if vs.Kind != models.KindValueSet {
			continue
		}

		expansion, err := run.valueSet(ctx, vs)
		if err != nil {
			r.issues = append(r.issues, models.Diagnostic{
				Severity:  models.SeverityWarning,
				Code:      CodeExpansion,
				Message:   err.Error(),
				Reference: vs.Canonical().String(),
			})

			continue
		}

		vs.Expansion = expansion
	}
}

func (r *expansionRun) valueSet(ctx context.Context, vs *models.Artifact) (*models.Expansion, error) {
	key := terminology.CacheKey(vs.Canonical())

	if expansion, ok := r.done[key]; ok {
		return expansion, nil
	}

	if _, cycle := r.visiting[key]; cycle {
		return nil, fmt.Errorf("value set %s includes itself", vs.Canonical())
	}

	r.visiting[key] = struct{}{}
	defer delete(r.visiting, key)

	var (
		expansion *models.Expansion
		err       error
	)

	if vs.Compose.IsGrouper() {
		expansion, err = r.grouper(ctx, vs)
	} else {
		expansion, err = r.leaf(ctx, vs, key)
	}

	if err != nil {
		return nil, err
	}

	r.done[key] = expansion

	return expansion, nil
}

func (r *expansionRun) grouper(ctx context.Context, vs *models.Artifact) (*models.Expansion, error) {
	children := make([]*models.Expansion, 0, len(vs.Compose.ChildValueSets()))

	for _, ref := range vs.Compose.ChildValueSets() {
		child, err := r.child(ctx, models.ParseCanonical(ref))
		if err != nil {
			return nil, err
		}

		if child == nil {
			return nil, fmt.Errorf("value set %s of grouper %s not found", ref, vs.Canonical())
		}

		expansion, err := r.valueSet(ctx, child)
		if err != nil {
			return nil, err
		}

		children = append(children, expansion)
	}

	return terminology.Union(children, r.packager.now()), nil
}

func (r *expansionRun) child(ctx context.Context, ref models.Canonical) (*models.Artifact, error) {
	if bundled, ok := r.bundled[ref.URL]; ok && (!ref.IsVersioned() || bundled.Version == ref.Version) {
		return bundled, nil
	}

	return r.resolver.Resolve(ctx, ref)
}

func (r *expansionRun) leaf(ctx context.Context, vs *models.Artifact, key string) (*models.Expansion, error) {
	cache := r.packager.cache

	if cache != nil {
		expansion, ok, err := cache.Get(ctx, key)
		if err != nil {
			r.packager.logger.WarnContext(ctx, "expansion cache read failed", "key", key, "error", err)
		} else if ok {
			return expansion, nil
		}
	}

	expansion, err := r.packager.expander.Expand(ctx, vs, r.params.TerminologyEndpoint, r.parameters)
	if err != nil {
		return nil, fmt.Errorf("expanding %s: %w", vs.Canonical(), err)
	}

	if cache != nil {
		if err := cache.Set(ctx, key, expansion); err != nil {
			r.packager.logger.WarnContext(ctx, "expansion cache write failed", "key", key, "error", err)
		}
	}

	return expansion, nil
}
