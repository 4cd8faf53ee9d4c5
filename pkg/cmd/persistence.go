// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/persistence/file"
	"github.com/dukex/curator/pkg/persistence/memory"
	"github.com/dukex/curator/pkg/persistence/postgresql"
)

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql", "memory"}

// NewPersistence opens the repository named by the database URL scheme. URLs without a
// recognized scheme are treated as file system paths.
func NewPersistence(ctx context.Context, databaseURL string, logger *slog.Logger) (persistence.Repository, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case "memory":
		return memory.NewRepository(), nil
	default:
		repo, err := file.NewPersistence(databaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open file repository: %w", err)
		}

		return repo, nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
