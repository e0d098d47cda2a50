// Package transport connects the transfer engine to a FileSender server
// through the REST client SDK.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	filesender "github.com/fjmerc/filesender-client/sdk/go"

	"github.com/fjmerc/filesender-client/internal/transfer"
)

// REST implements transfer.Transport on top of the SDK client.
type REST struct {
	client *filesender.Client
}

// NewREST wraps client.
func NewREST(client *filesender.Client) *REST {
	return &REST{client: client}
}

// PostTransfer registers the transfer and maps the server file records.
func (r *REST) PostTransfer(ctx context.Context, reg transfer.Registration) (*transfer.RegisteredTransfer, error) {
	req := &filesender.TransferRequest{
		From:       reg.From,
		Recipients: reg.Recipients,
		Subject:    reg.Subject,
		Message:    reg.Message,
		Expires:    reg.Expires.Unix(),
		Options:    reg.Options,
		GuestToken: reg.GuestToken,
	}
	for _, f := range reg.Files {
		req.Files = append(req.Files, filesender.FileSpec{
			Name:     f.Name,
			Size:     f.Size,
			MimeType: f.MimeType,
			CID:      f.CID,
		})
	}

	tr, err := r.client.PostTransfer(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &transfer.RegisteredTransfer{
		Path:  tr.Path,
		ID:    string(tr.ID),
		Files: make([]transfer.ServerFile, 0, len(tr.Files)),
	}
	for _, f := range tr.Files {
		out.Files = append(out.Files, transfer.ServerFile{
			ID:   string(f.ID),
			UID:  f.UID,
			CID:  f.CID,
			Name: f.Name,
			Size: f.Size,
		})
	}
	return out, nil
}

// PutChunk uploads one chunk of file.
func (r *REST) PutChunk(ctx context.Context, file transfer.FileRef, data []byte, offset int64) error {
	return r.client.PutChunk(ctx, file.ID, file.UID, data, offset, file.Size)
}

// FileComplete acknowledges the last chunk of file.
func (r *REST) FileComplete(ctx context.Context, file transfer.FileRef) error {
	return r.client.FileComplete(ctx, file.ID, file.UID)
}

// TransferComplete closes the transfer.
func (r *REST) TransferComplete(ctx context.Context, transferID, guestToken string) error {
	return r.client.TransferComplete(ctx, transferID, guestToken)
}

// DeleteTransfer removes a stopped transfer. A transfer the server no
// longer knows is already gone.
func (r *REST) DeleteTransfer(ctx context.Context, transferID string) error {
	err := r.client.DeleteTransfer(ctx, transferID)
	if errors.Is(err, filesender.ErrNotFound) {
		return nil
	}
	return err
}

// GetLegacyUploadProgress returns nil, nil when the server has no record
// of trackingKey.
func (r *REST) GetLegacyUploadProgress(ctx context.Context, trackingKey string) (*transfer.LegacyProgress, error) {
	p, err := r.client.GetLegacyUploadProgress(ctx, trackingKey)
	if err != nil || p == nil {
		return nil, err
	}
	return &transfer.LegacyProgress{BytesProcessed: p.BytesProcessed}, nil
}

// Frame implements transfer.LegacyFrame by posting whole files as
// multipart forms in the background.
type Frame struct {
	client      *filesender.Client
	completions *transfer.Completions
}

// NewFrame creates a frame delivering results to completions.
func NewFrame(client *filesender.Client, completions *transfer.Completions) *Frame {
	return &Frame{client: client, completions: completions}
}

// Submit starts the upload and returns. The outcome is delivered under
// sub.CallbackKey; a failed request is delivered as an error payload
// carrying the file key as uid.
func (f *Frame) Submit(ctx context.Context, sub transfer.LegacySubmission) error {
	if sub.Source == nil {
		return fmt.Errorf("submission %s has no source", sub.CallbackKey)
	}

	go func() {
		content := io.NewSectionReader(sub.Source, 0, sub.Source.Size())
		res, err := f.client.UploadWhole(ctx, sub.URL, sub.File.Name, content, sub.TrackingKey)

		var result transfer.LegacyResult
		switch {
		case err != nil:
			if ctx.Err() != nil {
				slog.Debug("whole file upload aborted", "file_id", sub.File.ID, "error", err)
				return
			}
			result = transfer.LegacyResult{Message: err.Error(), UID: sub.File.UID}
			if result.UID == "" {
				result.UID = sub.File.ID
			}
		default:
			result = transfer.LegacyResult{Message: res.Message, UID: res.UID}
		}

		if err := f.completions.Deliver(sub.CallbackKey, result); err != nil {
			slog.Debug("dropping whole file result", "callback", sub.CallbackKey, "error", err)
		}
	}()

	return nil
}

var (
	_ transfer.Transport   = (*REST)(nil)
	_ transfer.LegacyFrame = (*Frame)(nil)
)
