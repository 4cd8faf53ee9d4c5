package persistence

import (
	"fmt"

	"github.com/dukex/curator/pkg/models"
)

// Snapshot exposes committed state to transaction validation. Missing documents are nil.
type Snapshot interface {
	ArtifactByID(id string) *models.Artifact
	ArtifactAt(url, version string) *models.Artifact
	AssessmentByID(id string) *models.Assessment
}

// CheckWrites validates a whole transaction against a snapshot, taking the effect of
// earlier writes in the same transaction into account. Nothing is applied.
func CheckWrites(writes []models.Write, snapshot Snapshot) ([]models.WriteOutcome, error) {
	view := &stagedView{
		snapshot:    snapshot,
		artifacts:   make(map[string]*models.Artifact),
		assessments: make(map[string]*models.Assessment),
	}

	outcomes := make([]models.WriteOutcome, 0, len(writes))

	for i, w := range writes {
		if err := view.apply(w); err != nil {
			return nil, fmt.Errorf("write %d: %w", i, err)
		}

		outcomes = append(outcomes, models.WriteOutcome{
			Method:       w.Method,
			ResourceType: w.ResourceType(),
			ID:           w.DocumentID(),
		})
	}

	return outcomes, nil
}

type stagedView struct {
	snapshot    Snapshot
	artifacts   map[string]*models.Artifact // nil value marks a staged delete
	assessments map[string]*models.Assessment
}

func (v *stagedView) artifactByID(id string) *models.Artifact {
	if staged, ok := v.artifacts[id]; ok {
		return staged
	}

	return v.snapshot.ArtifactByID(id)
}

func (v *stagedView) artifactAt(url, version string) *models.Artifact {
	for _, staged := range v.artifacts {
		if staged != nil && staged.URL == url && staged.Version == version {
			return staged
		}
	}

	committed := v.snapshot.ArtifactAt(url, version)
	if committed == nil {
		return nil
	}

	if _, touched := v.artifacts[committed.ID]; touched {
		return nil
	}

	return committed
}

func (v *stagedView) assessmentByID(id string) *models.Assessment {
	if staged, ok := v.assessments[id]; ok {
		return staged
	}

	return v.snapshot.AssessmentByID(id)
}

func (v *stagedView) apply(w models.Write) error {
	switch {
	case w.Artifact != nil && w.Assessment != nil:
		return fmt.Errorf("%w: write carries both an artifact and an assessment", ErrInvalidWrite)
	case w.Artifact != nil:
		return v.applyArtifact(w.Method, w.Artifact)
	case w.Assessment != nil:
		return v.applyAssessment(w.Method, w.Assessment)
	default:
		return fmt.Errorf("%w: empty write", ErrInvalidWrite)
	}
}

func (v *stagedView) applyArtifact(method models.WriteMethod, a *models.Artifact) error {
	if a.ID == "" || a.URL == "" {
		return fmt.Errorf("%w: artifact id and url are required", ErrInvalidWrite)
	}

	switch method {
	case models.WriteCreate:
		if v.artifactByID(a.ID) != nil {
			return NewArtifactIDError("Create", a.ID, ErrArtifactAlreadyExists)
		}

		if v.artifactAt(a.URL, a.Version) != nil {
			return NewArtifactError("Create", a.URL, a.Version, ErrArtifactAlreadyExists)
		}
	case models.WriteUpdate:
		if v.artifactByID(a.ID) == nil {
			return NewArtifactIDError("Update", a.ID, ErrArtifactNotFound)
		}

		if occupant := v.artifactAt(a.URL, a.Version); occupant != nil && occupant.ID != a.ID {
			return NewArtifactError("Update", a.URL, a.Version, ErrArtifactAlreadyExists)
		}
	case models.WriteDelete:
		if v.artifactByID(a.ID) == nil {
			return NewArtifactIDError("Delete", a.ID, ErrArtifactNotFound)
		}

		v.artifacts[a.ID] = nil

		return nil
	default:
		return fmt.Errorf("%w: unknown method %q", ErrInvalidWrite, method)
	}

	v.artifacts[a.ID] = a

	return nil
}

func (v *stagedView) applyAssessment(method models.WriteMethod, a *models.Assessment) error {
	if a.ID == "" {
		return fmt.Errorf("%w: assessment id is required", ErrInvalidWrite)
	}

	switch method {
	case models.WriteCreate:
		if v.assessmentByID(a.ID) != nil {
			return fmt.Errorf("%w: assessment %s already exists", ErrInvalidWrite, a.ID)
		}

		v.assessments[a.ID] = a
	case models.WriteDelete:
		if v.assessmentByID(a.ID) == nil {
			return fmt.Errorf("assessment %s: %w", a.ID, ErrAssessmentNotFound)
		}

		v.assessments[a.ID] = nil
	default:
		return fmt.Errorf("%w: method %q not supported for assessments", ErrInvalidWrite, method)
	}

	return nil
}
