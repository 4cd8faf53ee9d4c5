package services

import (
	"context"

	"github.com/dukex/curator/pkg/graph"
	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/versioning"
)

// InferManifestParameters derives expansion parameters from the manifest's dependency
// edges: system-version for code systems, canonicalVersion for everything else, the
// latter tagged with the resource kind unless it is a value set or code system.
// Unversioned references are versioned through the manifest's declared packages; those
// that stay unversioned are skipped.
func InferManifestParameters(ctx context.Context, manifest *models.Artifact, resolver graph.Resolver) (*models.Parameters, error) {
	packages := versioning.NewPackageResolver(manifest)
	params := &models.Parameters{}

	type key struct{ name, value string }

	seen := map[key]struct{}{}

	for _, edge := range manifest.DependencyEdges() {
		ref := edge.Target()
		if ref.URL == "" {
			continue
		}

		target, err := resolver.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}

		if pinned, ok := packages.Resolve(ref, target); ok {
			ref = pinned
		}

		if !ref.IsVersioned() {
			continue
		}

		kind := edge.TargetKind
		if kind == "" && target != nil {
			kind = target.Kind
		}

		param := models.Parameter{Name: models.ParamCanonicalVersion, Value: ref.String()}

		switch {
		case kind.IsCodeSystemLike():
			param.Name = models.ParamSystemVersion
		case kind != "" && kind != models.KindValueSet:
			param.Extensions = map[string]string{models.ExtResourceKind: string(kind)}
		}

		k := key{param.Name, param.Value}
		if _, dup := seen[k]; dup {
			continue
		}

		seen[k] = struct{}{}
		params.Parameters = append(params.Parameters, param)
	}

	return params, nil
}

// InferParameters runs InferManifestParameters against the repository.
func (p *Packager) InferParameters(ctx context.Context, manifest *models.Artifact) (_ *models.Parameters, err error) {
	ctx, span := p.startSpan(ctx, "infer-parameters", manifest)
	defer func() { endSpan(span, err) }()

	params, err := InferManifestParameters(ctx, manifest, graph.NewRepositoryResolver(p.repository))
	if err != nil {
		return nil, err
	}

	params.ID = manifest.ID + "-expansion-parameters"

	return params, nil
}
