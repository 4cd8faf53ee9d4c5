package services

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/persistence/memory"
)

const base = "http://example.org/"

var clock = time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)

func fixedClock() time.Time {
	return clock
}

func library(name, version string, status models.ArtifactStatus, edges ...*models.Edge) *models.Artifact {
	return artifactOf(models.KindLibrary, name, version, status, edges...)
}

func artifactOf(kind models.Kind, name, version string, status models.ArtifactStatus, edges ...*models.Edge) *models.Artifact {
	return &models.Artifact{
		ID:           name + "-" + version,
		Kind:         kind,
		URL:          base + name,
		Version:      version,
		Name:         name,
		Status:       status,
		LastModified: clock.Add(-48 * time.Hour),
		Edges:        edges,
	}
}

func owns(name, version string) *models.Edge {
	return &models.Edge{Reference: base + name + "|" + version, Owned: true}
}

func dependsOn(ref string) *models.Edge {
	return &models.Edge{Reference: base + ref}
}

func seeded(t *testing.T, artifacts ...*models.Artifact) *memory.Repository {
	t.Helper()

	repo := memory.NewRepository()
	repo.Seed(artifacts...)

	return repo
}

func newTestLifecycle(repo *memory.Repository, opts ...Option) *Lifecycle {
	return NewLifecycle(repo, slog.Default(), append([]Option{WithClock(fixedClock)}, opts...)...)
}

func newTestPackager(repo *memory.Repository, opts ...Option) *Packager {
	return NewPackager(repo, slog.Default(), append([]Option{WithClock(fixedClock)}, opts...)...)
}

func approved(a *models.Artifact) *models.Artifact {
	date := a.LastModified
	a.ApprovalDate = &date

	return a
}

func find(t *testing.T, repo *memory.Repository, name, version string) *models.Artifact {
	t.Helper()

	found, err := repo.FindExact(t.Context(), base+name, version)
	if err != nil {
		t.Fatalf("find %s|%s: %v", name, version, err)
	}

	return found
}

func edgeTo(a *models.Artifact, url string) *models.Edge {
	for _, edge := range a.Edges {
		if edge.Target().URL == url {
			return edge
		}
	}

	return nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func errAlreadyExists() error {
	return persistence.NewArtifactError("submit", base+"lib", "2.0.0-draft", persistence.ErrArtifactAlreadyExists)
}
