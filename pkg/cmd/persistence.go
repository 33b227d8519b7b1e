package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/festa-dev/festa/pkg/persistence"
	"github.com/festa-dev/festa/pkg/persistence/file"
	"github.com/festa-dev/festa/pkg/persistence/postgresql"
)

// NewPersistence picks the backend from the database URL scheme. Anything
// that is not postgres falls back to file storage rooted at the URL path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgres persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.SplitN(databaseURL, "://", 2)
	if len(parts) < 2 {
		return "file"
	}

	return parts[0]
}
