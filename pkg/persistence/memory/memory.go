// Package memory provides an in-memory repository used by tests and the memory:// backend.
package memory

import (
	"context"
	"sync"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/versioning"
	"github.com/google/uuid"
)

// Repository implements persistence.Repository with maps guarded by a mutex. Stored
// documents are copied on the way in and out.
type Repository struct {
	mu          sync.RWMutex
	artifacts   map[string]*models.Artifact
	assessments map[string]*models.Assessment
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		artifacts:   make(map[string]*models.Artifact),
		assessments: make(map[string]*models.Assessment),
	}
}

// Seed stores artifacts directly, bypassing transaction validation.
func (r *Repository) Seed(artifacts ...*models.Artifact) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range artifacts {
		r.artifacts[a.ID] = a.Clone()
	}
}

// SeedAssessments stores assessments directly.
func (r *Repository) SeedAssessments(assessments ...*models.Assessment) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range assessments {
		c := *a
		r.assessments[a.ID] = &c
	}
}

// Len returns the number of stored artifacts.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.artifacts)
}

func (r *Repository) FindExact(_ context.Context, url, version string) (*models.Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.ArtifactAt(url, version).Clone(), nil
}

func (r *Repository) FindLatest(_ context.Context, url string) (*models.Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return versioning.Latest(r.byURL(url, "")).Clone(), nil
}

func (r *Repository) FindLatestWithStatus(_ context.Context, url string, status models.ArtifactStatus) (*models.Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return versioning.Latest(r.byURL(url, status)).Clone(), nil
}

func (r *Repository) FindByID(_ context.Context, id string) (*models.Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.artifacts[id].Clone(), nil
}

func (r *Repository) FindAssessments(_ context.Context, url, version string) ([]*models.Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	target := models.Canonical{URL: url, Version: version}

	var found []*models.Assessment

	for _, a := range r.assessments {
		if a.Targets(target) {
			c := *a
			found = append(found, &c)
		}
	}

	return found, nil
}

// SubmitTransaction validates all writes against the current state and applies them under
// a single lock.
func (r *Repository) SubmitTransaction(_ context.Context, writes []models.Write) (*models.TransactionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	outcomes, err := persistence.CheckWrites(writes, r)
	if err != nil {
		return nil, err
	}

	for _, w := range writes {
		switch {
		case w.Artifact != nil && w.Method == models.WriteDelete:
			delete(r.artifacts, w.Artifact.ID)
		case w.Artifact != nil:
			r.artifacts[w.Artifact.ID] = w.Artifact.Clone()
		case w.Method == models.WriteDelete:
			delete(r.assessments, w.Assessment.ID)
		default:
			c := *w.Assessment
			r.assessments[c.ID] = &c
		}
	}

	return &models.TransactionResult{ID: uuid.NewString(), Outcomes: outcomes}, nil
}

func (r *Repository) HealthCheck(_ context.Context) error {
	return nil
}

func (r *Repository) Close(_ context.Context) error {
	return nil
}

// ArtifactByID implements persistence.Snapshot. Callers must hold the lock.
func (r *Repository) ArtifactByID(id string) *models.Artifact {
	return r.artifacts[id]
}

// ArtifactAt implements persistence.Snapshot. Callers must hold the lock.
func (r *Repository) ArtifactAt(url, version string) *models.Artifact {
	for _, a := range r.artifacts {
		if a.URL == url && a.Version == version {
			return a
		}
	}

	return nil
}

// AssessmentByID implements persistence.Snapshot. Callers must hold the lock.
func (r *Repository) AssessmentByID(id string) *models.Assessment {
	return r.assessments[id]
}

func (r *Repository) byURL(url string, status models.ArtifactStatus) []*models.Artifact {
	var matches []*models.Artifact

	for _, a := range r.artifacts {
		if a.URL == url && (status == "" || a.Status == status) {
			matches = append(matches, a)
		}
	}

	return matches
}
