package services

import (
	"context"

	"github.com/dukex/curator/pkg/events"
	"github.com/dukex/curator/pkg/graph"
	"github.com/dukex/curator/pkg/models"
)

const opRetire = "retire"

// Retire marks an active artifact and its active owned components as retired. Dependencies
// are not re-resolved.
func (l *Lifecycle) Retire(ctx context.Context, root *models.Artifact) (_ *Result, err error) {
	ctx, span := l.startSpan(ctx, opRetire, root)
	defer func() { endSpan(span, err) }()

	if root.Status != models.StatusActive {
		return nil, preconditionFailed(opRetire, CodeInvalidStatus, "cannot retire %s: status is %q, must be active", root.Canonical(), root.Status)
	}

	now := l.now().UTC()

	var retired []*models.Artifact

	err = l.walker().Walk(ctx, root, func(_ context.Context, v graph.Visit) ([]*models.Edge, error) {
		if v.Node.Status != models.StatusActive {
			return nil, graph.ErrSkip
		}

		node := v.Node.Clone()
		node.Status = models.StatusRetired
		node.LastModified = now
		retired = append(retired, node)

		return node.Edges, nil
	}, graph.Options{OwnedOnly: true})
	if err != nil {
		return nil, classify(opRetire, err)
	}

	writes := make([]models.Write, 0, len(retired))
	for _, artifact := range retired {
		writes = append(writes, models.UpdateArtifact(artifact))
	}

	tx, err := l.commit(ctx, opRetire, writes)
	if err != nil {
		return nil, err
	}

	event := events.ArtifactRetired{
		BaseEvent:  events.NewBaseEvent(events.ArtifactRetiredEvent, root.Canonical(), tx.ID),
		Components: canonicals(retired[1:]),
	}
	l.publish(ctx, l.logger, event.Key(), event)

	return &Result{Artifact: retired[0], Writes: writes, Transaction: tx}, nil
}
