package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fjmerc/filesender-client/internal/models"
	"github.com/fjmerc/filesender-client/internal/repository"
)

const maxRetries = 3

// DraftRepository implements repository.DraftRepository for PostgreSQL.
type DraftRepository struct {
	pool *Pool
}

// NewDraftRepository creates a new PostgreSQL draft repository.
func NewDraftRepository(pool *Pool) (*DraftRepository, error) {
	if pool == nil {
		return nil, repository.ErrNilDatabase
	}
	return &DraftRepository{pool: pool}, nil
}

// Save inserts or replaces a draft. CreatedAt is preserved across saves.
func (r *DraftRepository) Save(ctx context.Context, draft *models.Draft) error {
	if err := repository.ValidateDraft(draft); err != nil {
		return err
	}

	files, err := json.Marshal(draft.Files)
	if err != nil {
		return fmt.Errorf("failed to encode files: %w", err)
	}
	recipients, err := json.Marshal(draft.Recipients)
	if err != nil {
		return fmt.Errorf("failed to encode recipients: %w", err)
	}
	options, err := json.Marshal(draft.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
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
		) VALUES ($1, $2, $3::jsonb, $4::jsonb, $5, $6, $7, $8::jsonb, $9, $10)
		ON CONFLICT (transfer_id) DO UPDATE SET
			size = EXCLUDED.size,
			files = EXCLUDED.files,
			recipients = EXCLUDED.recipients,
			subject = EXCLUDED.subject,
			message = EXCLUDED.message,
			expires_at = EXCLUDED.expires_at,
			options = EXCLUDED.options,
			updated_at = EXCLUDED.updated_at
	`

	err = withRetry(ctx, maxRetries, func() error {
		_, err := r.pool.Exec(ctx, query,
			draft.TransferID,
			draft.Size,
			string(files),
			string(recipients),
			draft.Subject,
			draft.Message,
			draft.Expires,
			string(options),
			draft.CreatedAt,
			draft.UpdatedAt,
		)
		return err
	})
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
		FROM drafts WHERE transfer_id = $1
	`

	draft, err := scanDraft(r.pool.QueryRow(ctx, query, transferID))
	if errors.Is(err, pgx.ErrNoRows) {
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

	rows, err := r.pool.Query(ctx, query)
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
	tag, err := r.pool.Exec(ctx, "DELETE FROM drafts WHERE transfer_id = $1", transferID)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanDraft(row pgx.Row) (*models.Draft, error) {
	var (
		draft                      models.Draft
		files, recipients, options []byte
	)

	err := row.Scan(
		&draft.TransferID,
		&draft.Size,
		&files,
		&recipients,
		&draft.Subject,
		&draft.Message,
		&draft.Expires,
		&options,
		&draft.CreatedAt,
		&draft.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(files, &draft.Files); err != nil {
		return nil, fmt.Errorf("failed to decode files: %w", err)
	}
	if err := json.Unmarshal(recipients, &draft.Recipients); err != nil {
		return nil, fmt.Errorf("failed to decode recipients: %w", err)
	}
	if err := json.Unmarshal(options, &draft.Options); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}

	return &draft, nil
}
