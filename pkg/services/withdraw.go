package services

import (
	"context"

	"github.com/dukex/curator/pkg/events"
	"github.com/dukex/curator/pkg/graph"
	"github.com/dukex/curator/pkg/models"
)

const opWithdraw = "withdraw"

// Withdraw deletes a draft, its draft owned components and every assessment about them.
func (l *Lifecycle) Withdraw(ctx context.Context, root *models.Artifact) (_ *Result, err error) {
	ctx, span := l.startSpan(ctx, opWithdraw, root)
	defer func() { endSpan(span, err) }()

	if root.Status != models.StatusDraft {
		return nil, preconditionFailed(opWithdraw, CodeInvalidStatus, "cannot withdraw %s: status is %q, must be draft", root.Canonical(), root.Status)
	}

	var (
		deleted     []*models.Artifact
		assessments []models.Write
	)

	err = l.walker().Walk(ctx, root, func(ctx context.Context, v graph.Visit) ([]*models.Edge, error) {
		if v.Node.Status != models.StatusDraft {
			return nil, graph.ErrSkip
		}

		found, err := l.repository.FindAssessments(ctx, v.Node.URL, v.Node.Version)
		if err != nil {
			return nil, err
		}

		for _, assessment := range found {
			assessments = append(assessments, models.DeleteAssessment(assessment))
		}

		deleted = append(deleted, v.Node)

		return v.Node.Edges, nil
	}, graph.Options{OwnedOnly: true})
	if err != nil {
		return nil, classify(opWithdraw, err)
	}

	writes := make([]models.Write, 0, len(deleted)+len(assessments))
	for _, artifact := range deleted {
		writes = append(writes, models.DeleteArtifact(artifact))
	}

	writes = append(writes, assessments...)

	tx, err := l.commit(ctx, opWithdraw, writes)
	if err != nil {
		return nil, err
	}

	event := events.ArtifactWithdrawn{
		BaseEvent:   events.NewBaseEvent(events.ArtifactWithdrawnEvent, root.Canonical(), tx.ID),
		Deleted:     canonicals(deleted),
		Assessments: len(assessments),
	}
	l.publish(ctx, l.logger, event.Key(), event)

	return &Result{Artifact: root, Writes: writes, Transaction: tx}, nil
}
