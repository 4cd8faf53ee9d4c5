package services

import (
	"context"
	"log/slog"
	"slices"

	"github.com/dukex/curator/pkg/events"
	"github.com/dukex/curator/pkg/graph"
	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/otelhelper"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/versioning"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	opPackage = "package"

	// IncludeArtifact packages the root alone, without traversal.
	IncludeArtifact = "artifact"
)

// Packager assembles distribution bundles from an artifact and everything it reaches.
type Packager struct {
	config

	repository persistence.Repository
	logger     *slog.Logger
	validate   *validator.Validate
}

// NewPackager creates a new packaging service.
func NewPackager(repository persistence.Repository, logger *slog.Logger, opts ...Option) *Packager {
	return &Packager{
		config:     newConfig(opts),
		repository: repository,
		logger:     logger.With("module", "packager"),
		validate:   newValidator(),
	}
}

// packageRun holds the state of one Package call.
type packageRun struct {
	packager *Packager
	params   PackageParams
	policy   *versioning.Policy
	resolver graph.Resolver

	manifest *models.BundleEntry
	entries  []*models.BundleEntry
	issues   []models.Diagnostic

	// reached holds every URL the walk resolved, bundled or not; accepted maps the
	// URLs that passed the policy to their final version.
	reached  map[string]struct{}
	accepted map[string]string
	fellBack map[models.Canonical]struct{}
	walked   bool
}

// Package walks every edge from root and returns the filtered, paged bundle. Version
// check mismatches below the root exclude the resource with a diagnostic; every other
// failure aborts.
func (p *Packager) Package(ctx context.Context, root *models.Artifact, params PackageParams) (_ *models.Bundle, err error) {
	ctx, span := p.startSpan(ctx, opPackage, root)
	defer func() { endSpan(span, err) }()

	if err := validateParams(p.validate, opPackage, params); err != nil {
		return nil, err
	}

	if params.BundleType == "" {
		params.BundleType = models.BundleCollection
	}

	if params.Paged() && params.BundleType == models.BundleTransaction {
		return nil, unprocessable(opPackage, CodeInvalidParameter, "paging is not supported for transaction bundles")
	}

	policy, err := versioning.NewPolicy(params.CheckVersion, params.ForceVersion, params.DefaultVersion)
	if err != nil {
		return nil, classify(opPackage, err)
	}

	run := &packageRun{
		packager: p,
		params:   params,
		policy:   policy,
		resolver: graph.NewCache(graph.NewRepositoryResolver(p.repository)),
	}

	if err := run.collect(ctx, root); err != nil {
		return nil, classify(opPackage, err)
	}

	included := run.filter()
	pinToBundled(included)
	run.normalizeIDs(included)

	if params.Expand && p.expander != nil {
		run.expand(ctx, included)
	}

	run.manifest.Outcome = run.issues

	bundle := &models.Bundle{
		ID:      uuid.New().String(),
		Type:    params.BundleType,
		Total:   len(included),
		Entries: page(included, params.Offset, params.Count),
		Issues:  run.issues,
	}

	if bundle.Type == models.BundleTransaction {
		for _, entry := range bundle.Entries {
			entry.Request = &models.EntryRequest{
				Method: "PUT",
				URL:    string(entry.Artifact.Kind) + "/" + entry.Artifact.ID,
			}
		}
	}

	span.SetAttributes(
		attribute.String(otelhelper.BundleTypeKey, string(bundle.Type)),
		attribute.Int(otelhelper.BundleTotalKey, bundle.Total),
	)

	p.logger.InfoContext(ctx, "package assembled",
		"artifact", root.Canonical().String(),
		"total", bundle.Total,
		"entries", len(bundle.Entries),
		"issues", len(bundle.Issues))

	event := events.ArtifactPackaged{
		BaseEvent:  events.NewBaseEvent(events.ArtifactPackagedEvent, root.Canonical(), ""),
		BundleType: bundle.Type,
		Total:      bundle.Total,
		Entries:    len(bundle.Entries),
	}
	p.publish(ctx, p.logger, event.Key(), event)

	return bundle, nil
}

// collect builds the manifest entry and walks the graph unless only the root is requested.
func (r *packageRun) collect(ctx context.Context, root *models.Artifact) error {
	manifest := root.Clone()

	if err := r.policy.Apply(manifest); err != nil {
		return err
	}

	if err := r.checkCapabilities(manifest); err != nil {
		return err
	}

	r.manifest = &models.BundleEntry{Artifact: manifest}
	r.reached = map[string]struct{}{manifest.URL: {}}
	r.accepted = map[string]string{manifest.URL: manifest.Version}
	r.fellBack = make(map[models.Canonical]struct{})

	if slices.Contains(r.params.Include, IncludeArtifact) {
		r.pinEdges(manifest)

		return nil
	}

	walker := graph.NewWalker(graph.ResolverFunc(r.resolve), r.packager.logger)

	err := walker.Walk(ctx, manifest, func(_ context.Context, v graph.Visit) ([]*models.Edge, error) {
		if v.IsRoot() {
			return manifest.Edges, nil
		}

		r.reached[v.Node.URL] = struct{}{}
		node := v.Node.Clone()

		if err := r.checkCapabilities(node); err != nil {
			return nil, err
		}

		if err := r.policy.Apply(node); err != nil {
			if !versioning.IsMismatch(err) {
				return nil, err
			}

			r.issues = append(r.issues, models.Diagnostic{
				Severity:  models.SeverityError,
				Code:      CodeVersionCheck,
				Message:   err.Error(),
				Reference: node.Canonical().String(),
			})

			return nil, graph.ErrSkip
		}

		r.accepted[node.URL] = node.Version
		r.entries = append(r.entries, &models.BundleEntry{
			Artifact: node,
			Roles:    r.roles(v, node),
		})

		return node.Edges, nil
	}, graph.Options{})
	if err != nil {
		return err
	}

	r.walked = true
	r.pinEdges(manifest)

	for _, entry := range r.entries {
		r.pinEdges(entry.Artifact)
	}

	return nil
}

// resolve looks a reference up at the version the policy pins it to. A pinned version
// missing from the repository falls back to the declared reference, so the policy is
// applied to whatever that resolves to instead of dropping the dependency.
func (r *packageRun) resolve(ctx context.Context, ref models.Canonical) (*models.Artifact, error) {
	pinned := r.policy.Pin(ref)
	if pinned == ref {
		return r.resolver.Resolve(ctx, ref)
	}

	target, err := r.resolver.Resolve(ctx, pinned)
	if err != nil || target != nil {
		return target, err
	}

	target, err = r.resolver.Resolve(ctx, ref)
	if err != nil || target == nil {
		return target, err
	}

	if _, ok := r.fellBack[pinned]; !ok {
		r.fellBack[pinned] = struct{}{}
		r.issues = append(r.issues, models.Diagnostic{
			Severity:  models.SeverityWarning,
			Code:      CodeUnresolvedDependency,
			Message:   pinned.String() + " is not in the repository, using " + target.Canonical().String(),
			Reference: pinned.String(),
		})
	}

	return target, nil
}

// pinEdges runs after the walk. Policy-governed edges are pointed at the version their
// target was accepted with. References the walk could not resolve get the force and
// default lists applied, and after a walk those governed by the policy are reported on
// the manifest.
func (r *packageRun) pinEdges(a *models.Artifact) {
	for _, edge := range a.Edges {
		ref := edge.Target()
		if ref.URL == "" {
			continue
		}

		if _, ok := r.reached[ref.URL]; ok {
			if version, ok := r.accepted[ref.URL]; ok && version != "" && r.policy.Governs(ref.URL) {
				edge.Reference = ref.WithVersion(version).String()
			}

			continue
		}

		edge.Reference = r.policy.Pin(ref).String()

		if !r.walked || !r.policy.Governs(ref.URL) {
			continue
		}

		r.issues = append(r.issues, models.Diagnostic{
			Severity:  models.SeverityWarning,
			Code:      CodeUnresolvedDependency,
			Message:   "dependency " + ref.String() + " of " + a.Canonical().String() + " is not in the repository",
			Reference: edge.Reference,
		})
	}
}

// checkCapabilities enforces the capability filter: every artifact must declare at least
// one recognized tag and none outside the requested list.
func (r *packageRun) checkCapabilities(a *models.Artifact) error {
	allowed := r.params.Capability
	if len(allowed) == 0 {
		return nil
	}

	recognized := false

	for _, capability := range a.Capabilities {
		if !models.IsKnownCapability(capability) {
			continue
		}

		recognized = true

		if !slices.Contains(allowed, capability) {
			return preconditionFailed(opPackage, CodeCapability, "%s declares capability %q outside %v", a.Canonical(), capability, allowed)
		}
	}

	if !recognized {
		return preconditionFailed(opPackage, CodeCapability, "%s declares no recognized capability", a.Canonical())
	}

	return nil
}

// roles returns the edge's explicit role tags, or the classifier's verdict, plus the
// usage-derived roles of the node.
func (r *packageRun) roles(v graph.Visit, node *models.Artifact) []string {
	var roles []string

	if v.Edge != nil && len(v.Edge.RoleTags) > 0 {
		roles = slices.Clone(v.Edge.RoleTags)
	} else {
		roles = r.packager.classifier.Classify(v.Edge, v.Parent, node)
	}

	switch node.Usage {
	case models.UsageTest:
		roles = append(roles, models.RoleTest)
	case models.UsageExample:
		roles = append(roles, models.RoleExample)
	}

	slices.Sort(roles)

	return slices.Compact(roles)
}

// normalizeIDs assigns storage ids. An artifact whose canonical cannot be made into an id
// keeps its id and is reported on the manifest.
func (r *packageRun) normalizeIDs(entries []*models.BundleEntry) {
	for _, entry := range entries {
		id, ok := models.NormalizeID(entry.Artifact)
		if ok {
			entry.Artifact.ID = id

			continue
		}

		r.issues = append(r.issues, models.Diagnostic{
			Severity:  models.SeverityWarning,
			Code:      CodeIdentifierTooLong,
			Message:   "canonical does not fit an identifier, keeping id " + entry.Artifact.ID,
			Reference: entry.Artifact.Canonical().String(),
		})
	}
}

// pinToBundled versions unversioned edges with the version of the artifact bundled for
// that URL.
func pinToBundled(entries []*models.BundleEntry) {
	versions := make(map[string]string, len(entries))
	for _, entry := range entries {
		versions[entry.Artifact.URL] = entry.Artifact.Version
	}

	for _, entry := range entries {
		for _, edge := range entry.Artifact.Edges {
			ref := edge.Target()
			if ref.IsVersioned() {
				continue
			}

			if version, ok := versions[ref.URL]; ok && version != "" {
				edge.Reference = ref.WithVersion(version).String()
			}
		}
	}
}

// page slices entries. An offset past the end yields no entries.
func page(entries []*models.BundleEntry, offset int, count *int) []*models.BundleEntry {
	start := min(offset, len(entries))
	end := len(entries)

	if count != nil {
		end = min(start+*count, end)
	}

	return entries[start:end]
}
