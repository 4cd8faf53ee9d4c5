package services

import (
	"context"
	"time"

	"github.com/dukex/curator/pkg/events"
	"github.com/dukex/curator/pkg/models"
	"github.com/google/uuid"
)

const opApprove = "approve"

// Approve records an approval assessment for a single artifact and stamps its approval
// date. Status is never changed. The artifact's lastModified becomes today, so an explicit
// approval date before today is rejected: Release would never accept it.
func (l *Lifecycle) Approve(ctx context.Context, artifact *models.Artifact, params ApproveParams) (_ *Result, err error) {
	ctx, span := l.startSpan(ctx, opApprove, artifact)
	defer func() { endSpan(span, err) }()

	if err := validateParams(l.validate, opApprove, params); err != nil {
		return nil, err
	}

	if params.Target != "" {
		target := models.ParseCanonical(params.Target)
		if target.URL != artifact.URL || target.Version != artifact.Version {
			return nil, unprocessable(opApprove, CodeTargetMismatch, "assessment target %s does not match %s", target, artifact.Canonical())
		}
	}

	today := l.today()

	approvalDate := today
	if params.ApprovalDate != nil {
		approvalDate = params.ApprovalDate.UTC().Truncate(dayPrecision)
	}

	if approvalDate.Before(today) {
		return nil, unprocessable(opApprove, CodeInvalidParameter, "approval date %s is before today (%s)",
			approvalDate.Format(time.DateOnly), today.Format(time.DateOnly))
	}

	infoType := params.InfoType
	if infoType == "" {
		infoType = models.InfoTypeComment
	}

	approved := artifact.Clone()
	approved.ApprovalDate = &approvalDate
	approved.LastModified = today

	assessment := &models.Assessment{
		ID:              uuid.New().String(),
		ArtifactURL:     artifact.URL,
		ArtifactVersion: artifact.Version,
		InfoType:        infoType,
		Summary:         params.Summary,
		Author:          params.Author,
		RelatedArtifact: params.RelatedArtifact,
		Date:            approvalDate,
	}

	writes := []models.Write{
		models.UpdateArtifact(approved),
		models.CreateAssessment(assessment),
	}

	tx, err := l.commit(ctx, opApprove, writes)
	if err != nil {
		return nil, err
	}

	event := events.ArtifactApproved{
		BaseEvent:    events.NewBaseEvent(events.ArtifactApprovedEvent, approved.Canonical(), tx.ID),
		AssessmentID: assessment.ID,
		ApprovalDate: approvalDate,
	}
	l.publish(ctx, l.logger, event.Key(), event)

	return &Result{Artifact: approved, Assessment: assessment, Writes: writes, Transaction: tx}, nil
}
