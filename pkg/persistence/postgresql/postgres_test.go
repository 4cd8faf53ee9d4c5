package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/persistence/postgresql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const libURL = "http://example.org/Library/screening"

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"assessments", "artifacts", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("curator_test"),
			postgres.WithUsername("curator"),
			postgres.WithPassword("curator"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func artifact(id, version string, status models.ArtifactStatus) *models.Artifact {
	return &models.Artifact{
		ID:           id,
		Kind:         models.KindLibrary,
		URL:          libURL,
		Version:      version,
		Status:       status,
		LastModified: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Edges:        []*models.Edge{{Reference: "http://example.org/ValueSet/a|1.0.0", RoleTags: []string{models.RoleDefault}}},
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	for _, table := range []string{"artifacts", "assessments", "schema_migrations"} {
		var exists bool

		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.HealthCheck(ctx)
	assert.NoError(t, err)
}

func TestPersistence_SubmitAndFind(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	result, err := p.SubmitTransaction(ctx, []models.Write{
		models.CreateArtifact(artifact("lib-1", "1.0.0", models.StatusActive)),
		models.CreateArtifact(artifact("lib-2", "1.10.0", models.StatusRetired)),
		models.CreateArtifact(artifact("lib-3", "2.0.0-draft", models.StatusDraft)),
		models.CreateAssessment(&models.Assessment{
			ID:              "as-1",
			ArtifactURL:     libURL,
			ArtifactVersion: "1.0.0",
			InfoType:        models.InfoTypeComment,
			Date:            time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		}),
	})
	require.NoError(t, err)
	assert.Len(t, result.Outcomes, 4)

	exact, err := p.FindExact(ctx, libURL, "1.0.0")
	require.NoError(t, err)
	require.NotNil(t, exact)
	assert.Equal(t, "lib-1", exact.ID)
	assert.Equal(t, []string{models.RoleDefault}, exact.Edges[0].RoleTags)

	latest, err := p.FindLatest(ctx, libURL)
	require.NoError(t, err)
	assert.Equal(t, "lib-3", latest.ID)

	active, err := p.FindLatestWithStatus(ctx, libURL, models.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, "lib-1", active.ID)

	missing, err := p.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assessments, err := p.FindAssessments(ctx, libURL, "1.0.0")
	require.NoError(t, err)
	require.Len(t, assessments, 1)
	assert.Equal(t, "as-1", assessments[0].ID)
}

func TestPersistence_TransactionIsAtomic(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	_, err := p.SubmitTransaction(ctx, []models.Write{
		models.CreateArtifact(artifact("lib-1", "1.0.0", models.StatusActive)),
	})
	require.NoError(t, err)

	_, err = p.SubmitTransaction(ctx, []models.Write{
		models.CreateArtifact(artifact("lib-2", "2.0.0", models.StatusActive)),
		models.CreateArtifact(artifact("lib-3", "1.0.0", models.StatusDraft)),
	})
	require.Error(t, err)
	assert.True(t, persistence.IsArtifactAlreadyExists(err))

	notCommitted, err := p.FindByID(ctx, "lib-2")
	require.NoError(t, err)
	assert.Nil(t, notCommitted)

	_, err = p.SubmitTransaction(ctx, []models.Write{
		models.UpdateArtifact(artifact("ghost", "3.0.0", models.StatusActive)),
	})
	assert.True(t, persistence.IsArtifactNotFound(err))

	_, err = p.SubmitTransaction(ctx, []models.Write{
		models.DeleteArtifact(artifact("lib-1", "1.0.0", models.StatusActive)),
	})
	require.NoError(t, err)

	deleted, err := p.FindExact(ctx, libURL, "1.0.0")
	require.NoError(t, err)
	assert.Nil(t, deleted)
}
