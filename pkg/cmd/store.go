// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"obpm/pkg/store"
	"obpm/pkg/store/memory"
	"obpm/pkg/store/postgresql"
)

var supportedStoreProviders = []string{"memory", "postgres", "postgresql"}

func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (store.Store, error) {
	switch parseStoreProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewStore(ctx, logger, databaseURL)
	default:
		return memory.NewStore(), nil
	}
}

func parseStoreProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "memory"
	}

	for _, supported := range supportedStoreProviders {
		if provider == supported {
			return provider
		}
	}

	return "memory"
}
