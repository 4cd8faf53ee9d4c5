// Package persistence provides the data storage abstraction for artifacts and assessments.
package persistence

import (
	"context"

	"github.com/dukex/curator/pkg/models"
)

// Repository is the document store consumed by the lifecycle services. Lookups return
// (nil, nil) when nothing matches.
type Repository interface {
	FindExact(ctx context.Context, url, version string) (*models.Artifact, error)
	FindLatest(ctx context.Context, url string) (*models.Artifact, error)
	FindLatestWithStatus(ctx context.Context, url string, status models.ArtifactStatus) (*models.Artifact, error)
	FindByID(ctx context.Context, id string) (*models.Artifact, error)
	FindAssessments(ctx context.Context, url, version string) ([]*models.Assessment, error)

	// SubmitTransaction applies every write or none of them.
	SubmitTransaction(ctx context.Context, writes []models.Write) (*models.TransactionResult, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
