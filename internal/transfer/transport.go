package transfer

import (
	"context"
	"time"

	"github.com/fjmerc/filesender-client/internal/storage"
)

// FileDescriptor describes a file when registering a transfer.
type FileDescriptor struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	CID      string `json:"cid"`
}

// Registration is the transfer metadata submitted to the server.
type Registration struct {
	From       string
	Files      []FileDescriptor
	Recipients []string
	Subject    string
	Message    string
	Expires    time.Time
	Options    map[string]any
	GuestToken string
}

// ServerFile is a file record returned by the server on registration.
// CID is echoed back by servers that support client correlation ids.
type ServerFile struct {
	ID   string
	UID  string
	CID  string
	Name string
	Size int64
}

// RegisteredTransfer is the server response to a registration.
type RegisteredTransfer struct {
	Path  string
	ID    string
	Files []ServerFile
}

// FileRef identifies a registered file in transport calls.
// UID doubles as the per-file upload key.
type FileRef struct {
	TransferID string
	ID         string
	UID        string
	Name       string
	Size       int64
}

// LegacyProgress is the server-side byte count of a whole-file upload.
type LegacyProgress struct {
	BytesProcessed int64
}

// Transport performs the network calls of a transfer.
type Transport interface {
	PostTransfer(ctx context.Context, reg Registration) (*RegisteredTransfer, error)
	PutChunk(ctx context.Context, file FileRef, data []byte, offset int64) error
	FileComplete(ctx context.Context, file FileRef) error
	TransferComplete(ctx context.Context, transferID, guestToken string) error
	DeleteTransfer(ctx context.Context, transferID string) error
	// GetLegacyUploadProgress returns nil, nil when no progress is available.
	GetLegacyUploadProgress(ctx context.Context, trackingKey string) (*LegacyProgress, error)
}

// LegacySubmission is one whole-file upload handed to a LegacyFrame.
type LegacySubmission struct {
	TransferID string
	File       FileRef
	Source     storage.Source
	// URL is the resolved endpoint including the iframe_callback parameter.
	URL string
	// CallbackKey is the Completions key the result must be delivered to.
	CallbackKey string
	// TrackingKey is sent ahead of the file content when progress tracking is on.
	TrackingKey string
}

// LegacyResult is the payload delivered when a whole-file upload finishes.
type LegacyResult struct {
	Message string `json:"message,omitempty"`
	UID     string `json:"uid,omitempty"`
}

// IsError reports whether the payload is error-shaped.
func (r LegacyResult) IsError() bool {
	return r.Message != "" && r.UID != ""
}

// LegacyFrame submits whole files. Submit must return once the upload is
// under way; the outcome is delivered to Completions under CallbackKey.
type LegacyFrame interface {
	Submit(ctx context.Context, sub LegacySubmission) error
}
