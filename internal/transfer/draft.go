package transfer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fjmerc/filesender-client/internal/models"
	"github.com/fjmerc/filesender-client/internal/repository"
)

// Draft returns a snapshot of the transfer suitable for local persistence.
func (t *Transfer) Draft() *models.Draft {
	t.mu.Lock()
	defer t.mu.Unlock()

	d := &models.Draft{
		TransferID: t.id,
		Size:       t.size,
		Recipients: append([]string(nil), t.recipients...),
		Subject:    t.subject,
		Message:    t.message,
		Expires:    t.expires,
		Options:    make(map[string]any, len(t.options)),
		CreatedAt:  t.startTime,
		UpdatedAt:  t.now(),
	}
	for k, v := range t.options {
		d.Options[k] = v
	}
	for _, f := range t.files {
		d.Files = append(d.Files, models.DraftFile{
			CID:      f.CID,
			ID:       f.ID,
			UID:      f.UID,
			Name:     f.Name,
			Size:     f.Size,
			MimeType: f.MimeType,
			Uploaded: f.Uploaded,
			Complete: f.Complete && f.acked,
		})
	}
	return d
}

// saveDraft persists the snapshot. Failures are logged, never surfaced.
func (t *Transfer) saveDraft(ctx context.Context) {
	if t.drafts == nil {
		return
	}

	d := t.Draft()
	if d.TransferID == "" {
		return
	}

	if err := t.drafts.Save(ctx, d); err != nil {
		slog.Warn("failed to save transfer draft", "transfer_id", d.TransferID, "error", err)
	}
}

// deleteDraft removes the snapshot once the transfer is finished or deleted.
func (t *Transfer) deleteDraft(ctx context.Context) {
	if t.drafts == nil {
		return
	}

	id := t.ID()
	if id == "" {
		return
	}

	if err := t.drafts.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		slog.Warn("failed to delete transfer draft", "transfer_id", id, "error", err)
	}
}
