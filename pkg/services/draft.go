package services

import (
	"context"

	"github.com/dukex/curator/pkg/events"
	"github.com/dukex/curator/pkg/graph"
	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/versioning"
	"github.com/google/uuid"
)

const opDraft = "draft"

// Draft creates "<version>-draft" copies of an active artifact and every owned component.
// Components that already have a draft at the target version are adopted as they are.
func (l *Lifecycle) Draft(ctx context.Context, root *models.Artifact, params DraftParams) (_ *Result, err error) {
	ctx, span := l.startSpan(ctx, opDraft, root)
	defer func() { endSpan(span, err) }()

	if err := validateParams(l.validate, opDraft, params); err != nil {
		return nil, err
	}

	if root.Status != models.StatusActive {
		return nil, preconditionFailed(opDraft, CodeInvalidStatus, "cannot draft %s: status is %q, must be active", root.Canonical(), root.Status)
	}

	if err := versioning.ValidateReleaseVersion(params.Version); err != nil {
		return nil, classify(opDraft, err)
	}

	draftVersion := versioning.DraftVersion(params.Version)

	existing, err := l.repository.FindExact(ctx, root.URL, draftVersion)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return nil, preconditionFailed(opDraft, CodeDuplicate, "a draft of %s already exists at version %s", root.URL, draftVersion)
	}

	var (
		writes  []models.Write
		created []*models.Artifact
		adopted []string
		newRoot *models.Artifact
		usedIDs = map[string]struct{}{}
	)

	visit := func(ctx context.Context, v graph.Visit) ([]*models.Edge, error) {
		if !v.IsRoot() {
			current, err := l.repository.FindExact(ctx, v.Node.URL, draftVersion)
			if err != nil {
				return nil, err
			}

			if current != nil {
				adopted = append(adopted, current.Canonical().String())

				return nil, graph.ErrSkip
			}
		}

		draft := l.draftCopy(v.Node, draftVersion)

		id, err := l.allocateID(ctx, draft, usedIDs)
		if err != nil {
			return nil, err
		}

		draft.ID = id
		usedIDs[id] = struct{}{}

		writes = append(writes, models.CreateArtifact(draft))
		created = append(created, draft)

		if v.IsRoot() {
			newRoot = draft
		}

		return v.Node.Edges, nil
	}

	if err := l.walker().Walk(ctx, root, visit, graph.Options{OwnedOnly: true}); err != nil {
		return nil, classify(opDraft, err)
	}

	tx, err := l.commit(ctx, opDraft, writes)
	if err != nil {
		return nil, err
	}

	event := events.ArtifactDrafted{
		BaseEvent:     events.NewBaseEvent(events.ArtifactDraftedEvent, newRoot.Canonical(), tx.ID),
		SourceVersion: root.Version,
		Created:       canonicals(created),
		Adopted:       adopted,
	}
	l.publish(ctx, l.logger, event.Key(), event)

	return &Result{Artifact: newRoot, Writes: writes, Transaction: tx}, nil
}

// draftCopy clones node into a draft at version, clearing release and approval metadata
// and pointing owned edges at the draft versions of their targets.
func (l *Lifecycle) draftCopy(node *models.Artifact, version string) *models.Artifact {
	draft := node.Clone()
	draft.Status = models.StatusDraft
	draft.Version = version
	draft.ApprovalDate = nil
	draft.EffectivePeriod = nil
	draft.LastModified = l.now().UTC()

	delete(draft.Extensions, models.ExtReleaseLabel)
	delete(draft.Extensions, models.ExtReleaseDescription)

	for _, edge := range draft.OwnedEdges() {
		edge.Reference = edge.Target().WithVersion(version).String()
	}

	return draft
}

// allocateID prefers the normalized readable id and falls back to a random one when it
// cannot be derived or is taken.
func (l *Lifecycle) allocateID(ctx context.Context, a *models.Artifact, used map[string]struct{}) (string, error) {
	id, ok := models.NormalizeID(a)
	if ok && id != a.ID {
		if _, taken := used[id]; !taken {
			occupant, err := l.repository.FindByID(ctx, id)
			if err != nil {
				return "", err
			}

			if occupant == nil {
				return id, nil
			}
		}
	}

	return uuid.New().String(), nil
}
