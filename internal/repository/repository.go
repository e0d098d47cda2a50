// Package repository defines interfaces for data access operations.
// Implementations for SQLite, PostgreSQL and an in-memory mock can be
// swapped without changing the transfer engine.
package repository

import (
	"context"
	"errors"

	"github.com/fjmerc/filesender-client/internal/models"
)

// Common errors returned by repository operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNilDatabase is returned when a nil database connection is provided.
	ErrNilDatabase = errors.New("nil database connection")
)

// DraftRepository stores local snapshots of registered transfers.
// All methods accept a context for cancellation and timeout support.
type DraftRepository interface {
	// Save inserts or replaces the draft for draft.TransferID.
	Save(ctx context.Context, draft *models.Draft) error

	// Get retrieves a draft by transfer id.
	// Returns ErrNotFound if no draft exists.
	Get(ctx context.Context, transferID string) (*models.Draft, error)

	// List returns all drafts, most recently updated first.
	List(ctx context.Context) ([]models.Draft, error)

	// Delete removes a draft.
	// Returns ErrNotFound if no draft exists.
	Delete(ctx context.Context, transferID string) error
}

// ValidateDraft checks the fields every backend requires.
func ValidateDraft(draft *models.Draft) error {
	if draft == nil {
		return errors.Join(ErrInvalidInput, errors.New("draft cannot be nil"))
	}
	if draft.TransferID == "" {
		return errors.Join(ErrInvalidInput, errors.New("transfer_id cannot be empty"))
	}
	return nil
}
