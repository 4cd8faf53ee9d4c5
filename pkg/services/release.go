package services

import (
	"context"
	"slices"
	"time"

	"github.com/dukex/curator/pkg/events"
	"github.com/dukex/curator/pkg/graph"
	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/versioning"
)

const opRelease = "release"

// Release activates an approved draft and its owned components at one version, then
// gathers every transitive dependency onto the root as a de-duplicated manifest.
func (l *Lifecycle) Release(ctx context.Context, root *models.Artifact, params ReleaseParams) (_ *Result, err error) {
	ctx, span := l.startSpan(ctx, opRelease, root)
	defer func() { endSpan(span, err) }()

	version, err := l.checkRelease(ctx, root, params)
	if err != nil {
		return nil, err
	}

	run := &releaseRun{
		lifecycle: l,
		root:      root,
		params:    params,
		version:   version,
		now:       l.now().UTC(),
		overlay:   graph.NewOverlay(graph.NewCache(graph.NewRepositoryResolver(l.repository))),
		packages:  versioning.NewPackageResolver(root),
		owned:     map[string]models.Canonical{},
		manifest:  map[manifestKey]*models.Edge{},
	}

	if err := run.activate(ctx); err != nil {
		return nil, classify(opRelease, err)
	}

	if err := run.gather(ctx); err != nil {
		return nil, classify(opRelease, err)
	}

	released := run.released[0]
	released.Edges = run.rootEdges(released)

	writes := make([]models.Write, 0, len(run.released))
	for _, artifact := range run.released {
		writes = append(writes, models.UpdateArtifact(artifact))
	}

	tx, err := l.commit(ctx, opRelease, writes)
	if err != nil {
		return nil, err
	}

	event := events.ArtifactReleased{
		BaseEvent:    events.NewBaseEvent(events.ArtifactReleasedEvent, released.Canonical(), tx.ID),
		ReleaseLabel: params.ReleaseLabel,
		Components:   canonicals(run.released[1:]),
		Dependencies: len(run.ordered),
	}
	l.publish(ctx, l.logger, event.Key(), event)

	return &Result{Artifact: released, Writes: writes, Transaction: tx}, nil
}

// checkRelease validates the release preconditions and returns the release version.
func (l *Lifecycle) checkRelease(ctx context.Context, root *models.Artifact, params ReleaseParams) (string, error) {
	if err := validateParams(l.validate, opRelease, params); err != nil {
		return "", err
	}

	if root.Status != models.StatusDraft {
		return "", preconditionFailed(opRelease, CodeInvalidStatus, "cannot release %s: status is %q, must be draft", root.Canonical(), root.Status)
	}

	if root.ApprovalDate == nil || root.ApprovalDate.Before(root.LastModified) {
		return "", preconditionFailed(opRelease, CodeNotApproved, "%s must be approved after its last modification before release", root.Canonical())
	}

	version, err := resolveReleaseVersion(root, params)
	if err != nil {
		return "", err
	}

	if err := versioning.ValidateReleaseVersion(version); err != nil {
		return "", classify(opRelease, err)
	}

	occupant, err := l.repository.FindExact(ctx, root.URL, version)
	if err != nil {
		return "", err
	}

	if occupant != nil && occupant.ID != root.ID {
		return "", preconditionFailed(opRelease, CodeVersionConflict, "%s|%s is already released", root.URL, version)
	}

	return version, nil
}

func resolveReleaseVersion(root *models.Artifact, params ReleaseParams) (string, error) {
	own := versioning.StripDraft(root.Version)

	switch params.VersionBehavior {
	case VersionCheck:
		if own != "" && params.Version != "" && own != params.Version {
			return "", preconditionFailed(opRelease, CodeVersionConflict, "draft version %s does not match requested version %s", own, params.Version)
		}

		if own != "" {
			return own, nil
		}
	case VersionForce:
		// parameter below
	default:
		if own != "" {
			return own, nil
		}
	}

	if params.Version == "" {
		return "", unprocessable(opRelease, CodeInvalidParameter, "a release version is required")
	}

	return params.Version, nil
}

type manifestKey struct {
	url      string
	edgeType models.EdgeType
}

type releaseRun struct {
	lifecycle *Lifecycle
	root      *models.Artifact
	params    ReleaseParams
	version   string
	now       time.Time
	overlay   *graph.Overlay
	packages  *versioning.PackageResolver

	released []*models.Artifact
	// owned maps every owned URL to the identity it has after release.
	owned    map[string]models.Canonical
	manifest map[manifestKey]*models.Edge
	ordered  []*models.Edge
}

// activate walks the owned subtree, staging every released copy in the overlay.
func (r *releaseRun) activate(ctx context.Context) error {
	walker := graph.NewWalker(r.overlay, r.lifecycle.logger)

	err := walker.Walk(ctx, r.root, func(ctx context.Context, v graph.Visit) ([]*models.Edge, error) {
		node := v.Node

		if !v.IsRoot() && node.Status == models.StatusActive {
			r.owned[node.URL] = node.Canonical()

			return nil, graph.ErrSkip
		}

		if node.Status == models.StatusRetired {
			return nil, preconditionFailed(opRelease, CodeInvalidStatus, "owned component %s is retired", node.Canonical())
		}

		if err := r.checkExperimental(ctx, node); err != nil {
			return nil, err
		}

		if !v.IsRoot() {
			occupant, err := r.lifecycle.repository.FindExact(ctx, node.URL, r.version)
			if err != nil {
				return nil, err
			}

			if occupant != nil && occupant.ID != node.ID {
				return nil, preconditionFailed(opRelease, CodeVersionConflict, "owned component %s|%s is already released", node.URL, r.version)
			}
		}

		released := node.Clone()
		released.Status = models.StatusActive
		released.Version = r.version
		released.LastModified = r.now

		if released.EffectivePeriod == nil && r.root.EffectivePeriod != nil {
			period := *r.root.EffectivePeriod
			released.EffectivePeriod = &period
		}

		if v.IsRoot() && r.params.ReleaseLabel != "" {
			released.SetExtension(models.ExtReleaseLabel, r.params.ReleaseLabel)
		}

		r.overlay.Stage(released, node.Canonical())
		r.released = append(r.released, released)
		r.owned[node.URL] = released.Canonical()

		return node.Edges, nil
	}, graph.Options{OwnedOnly: true})
	if err != nil {
		return err
	}

	for _, artifact := range r.released {
		for _, edge := range artifact.OwnedEdges() {
			if identity, ok := r.owned[edge.Target().URL]; ok {
				edge.Reference = identity.String()
			}
		}
	}

	return nil
}

func (r *releaseRun) checkExperimental(ctx context.Context, node *models.Artifact) error {
	if !node.Experimental {
		return nil
	}

	switch r.params.RequireNonExperimental {
	case ExperimentalError:
		return preconditionFailed(opRelease, CodeExperimental, "%s is experimental", node.Canonical())
	case ExperimentalWarn:
		r.lifecycle.logger.WarnContext(ctx, "releasing experimental artifact", "artifact", node.Canonical().String())
	}

	return nil
}

// gather walks every edge from the released root and collects the dependency edges.
func (r *releaseRun) gather(ctx context.Context) error {
	walker := graph.NewWalker(r.overlay, r.lifecycle.logger)
	originals := r.root.DependencyEdges()

	return walker.Walk(ctx, r.released[0], func(ctx context.Context, v graph.Visit) ([]*models.Edge, error) {
		node := v.Node
		edges := make([]*models.Edge, 0, len(node.Edges))

		for _, edge := range node.Edges {
			if edge.Owned || edge.Target().URL == "" {
				edges = append(edges, edge)

				continue
			}

			resolved, err := r.resolveDependency(ctx, node, edge)
			if err != nil {
				return nil, err
			}

			edges = append(edges, resolved)

			if _, internal := r.owned[resolved.Target().URL]; !internal {
				r.collect(resolved, originals)
			}
		}

		if slices.Contains(r.released, node) {
			node.Edges = edges
		}

		return edges, nil
	}, graph.Options{})
}

// resolveDependency versions an edge through the declared-package map, falling back to the
// latest active version, and tags it with its roles.
func (r *releaseRun) resolveDependency(ctx context.Context, source *models.Artifact, edge *models.Edge) (*models.Edge, error) {
	ref := edge.Target()

	if !ref.IsVersioned() {
		latest, err := r.overlay.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}

		if pinned, ok := r.packages.Resolve(ref, latest); ok {
			ref = pinned
		} else {
			active, err := r.lifecycle.repository.FindLatestWithStatus(ctx, ref.URL, models.StatusActive)
			if err != nil {
				return nil, err
			}

			if active != nil {
				ref = active.Canonical()
			}
		}
	}

	target, err := r.overlay.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	resolved := edge.Clone()
	resolved.Reference = ref.String()
	resolved.AddRoles(r.lifecycle.classifier.Classify(edge, source, target)...)

	if target != nil {
		resolved.TargetKind = target.Kind
	}

	return resolved, nil
}

// rootEdges orders the released root's edges: owned edges, then the manifest, then the
// root's own dependency edges the manifest does not carry (reference-less edges and
// edges into the owned subtree), which are kept as they are.
func (r *releaseRun) rootEdges(root *models.Artifact) []*models.Edge {
	edges := append(root.OwnedEdges(), r.ordered...)

	for _, edge := range root.DependencyEdges() {
		url := edge.Target().URL
		if _, internal := r.owned[url]; url == "" || internal {
			edges = append(edges, edge)
		}
	}

	return edges
}

// collect adds an edge to the manifest. The first edge seen for a (url, type) pair is
// kept with its roles; later ones are dropped.
func (r *releaseRun) collect(edge *models.Edge, originals []*models.Edge) {
	key := manifestKey{url: edge.Target().URL, edgeType: edge.Type()}

	if _, ok := r.manifest[key]; ok {
		return
	}

	kept := edge.Clone()

	for _, original := range originals {
		if original.Target().URL != key.url || len(original.Extensions) == 0 {
			continue
		}

		if kept.Extensions == nil {
			kept.Extensions = map[string]string{}
		}

		for k, v := range original.Extensions {
			if _, exists := kept.Extensions[k]; !exists {
				kept.Extensions[k] = v
			}
		}
	}

	r.manifest[key] = kept
	r.ordered = append(r.ordered, kept)
}
