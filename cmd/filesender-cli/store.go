package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fjmerc/filesender-client/internal/database"
	"github.com/fjmerc/filesender-client/internal/repository"
	"github.com/fjmerc/filesender-client/internal/repository/postgres"
	"github.com/fjmerc/filesender-client/internal/repository/sqlite"
)

// openDrafts opens the draft store named by ref: a postgres:// URL for a
// shared store, otherwise a local SQLite file. An empty ref disables drafts
// and returns a nil repository.
func openDrafts(ctx context.Context, ref string) (repository.DraftRepository, func(), error) {
	if ref == "" {
		return nil, func() {}, nil
	}

	if strings.HasPrefix(ref, "postgres://") || strings.HasPrefix(ref, "postgresql://") {
		pool, err := postgres.NewPool(ctx, ref, 0)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		repo, err := postgres.NewDraftRepository(pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil
	}

	db, err := database.Initialize(ref)
	if err != nil {
		return nil, nil, fmt.Errorf("opening draft store %s: %w", ref, err)
	}
	repo, err := sqlite.NewDraftRepository(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, func() { db.Close() }, nil
}
