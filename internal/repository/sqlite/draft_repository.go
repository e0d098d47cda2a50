package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjmerc/filesender-client/internal/models"
	"github.com/fjmerc/filesender-client/internal/repository"
)

// DraftRepository implements repository.DraftRepository for SQLite.
type DraftRepository struct {
	db *sql.DB
}

// NewDraftRepository creates a new SQLite draft repository.
func NewDraftRepository(db *sql.DB) (*DraftRepository, error) {
	if db == nil {
		return nil, repository.ErrNilDatabase
	}
	return &DraftRepository{db: db}, nil
}

// Save inserts or replaces a draft. CreatedAt is preserved across saves.
func (r *DraftRepository) Save(ctx context.Context, draft *models.Draft) error {
	if err := repository.ValidateDraft(draft); err != nil {
		return err
	}

	files, recipients, options, err := encodeJSONColumns(draft)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now

	query := `
		INSERT INTO drafts (
			transfer_id, size, files, recipients, subject, message,
			expires_at, options, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transfer_id) DO UPDATE SET
			size = excluded.size,
			files = excluded.files,
			recipients = excluded.recipients,
			subject = excluded.subject,
			message = excluded.message,
			expires_at = excluded.expires_at,
			options = excluded.options,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		draft.TransferID,
		draft.Size,
		files,
		recipients,
		draft.Subject,
		draft.Message,
		draft.Expires.UTC().Format(timeLayout),
		options,
		draft.CreatedAt.UTC().Format(timeLayout),
		draft.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}

	return nil
}

// Get retrieves a draft by transfer id.
func (r *DraftRepository) Get(ctx context.Context, transferID string) (*models.Draft, error) {
	query := `
		SELECT transfer_id, size, files, recipients, subject, message,
			expires_at, options, created_at, updated_at
		FROM drafts WHERE transfer_id = ?
	`

	draft, err := scanDraft(r.db.QueryRowContext(ctx, query, transferID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	return draft, nil
}

// List returns all drafts, most recently updated first.
func (r *DraftRepository) List(ctx context.Context) ([]models.Draft, error) {
	query := `
		SELECT transfer_id, size, files, recipients, subject, message,
			expires_at, options, created_at, updated_at
		FROM drafts ORDER BY updated_at DESC, transfer_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	drafts := []models.Draft{}
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		drafts = append(drafts, *draft)
	}

	return drafts, rows.Err()
}

// Delete removes a draft.
func (r *DraftRepository) Delete(ctx context.Context, transferID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM drafts WHERE transfer_id = ?", transferID)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*models.Draft, error) {
	var (
		draft                           models.Draft
		files, recipients, options      string
		expiresAt, createdAt, updatedAt string
	)

	err := row.Scan(
		&draft.TransferID,
		&draft.Size,
		&files,
		&recipients,
		&draft.Subject,
		&draft.Message,
		&expiresAt,
		&options,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeJSONColumns(&draft, files, recipients, options); err != nil {
		return nil, err
	}

	if draft.Expires, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("invalid expires_at: %w", err)
	}
	if draft.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	if draft.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}

	return &draft, nil
}
