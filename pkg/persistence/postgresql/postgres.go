// Package postgresql provides the PostgreSQL artifact repository.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence/sqlbase"
)

// Persistence implements persistence.Repository for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	artifactRepo *ArtifactRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	postgres := &Persistence{
		db:           database,
		logger:       logger,
		artifactRepo: NewArtifactRepository(database, logger),
	}

	// Run migrations on initialization
	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) FindExact(ctx context.Context, url, version string) (*models.Artifact, error) {
	return p.artifactRepo.FindExact(ctx, url, version)
}

func (p *Persistence) FindLatest(ctx context.Context, url string) (*models.Artifact, error) {
	return p.artifactRepo.FindLatest(ctx, url, "")
}

func (p *Persistence) FindLatestWithStatus(ctx context.Context, url string, status models.ArtifactStatus) (*models.Artifact, error) {
	return p.artifactRepo.FindLatest(ctx, url, status)
}

func (p *Persistence) FindByID(ctx context.Context, id string) (*models.Artifact, error) {
	return p.artifactRepo.FindByID(ctx, id)
}

func (p *Persistence) FindAssessments(ctx context.Context, url, version string) ([]*models.Assessment, error) {
	return p.artifactRepo.FindAssessments(ctx, url, version)
}

func (p *Persistence) SubmitTransaction(ctx context.Context, writes []models.Write) (*models.TransactionResult, error) {
	return p.artifactRepo.SubmitTransaction(ctx, writes)
}
