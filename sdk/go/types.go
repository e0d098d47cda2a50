// Package filesender provides a Go client SDK for the FileSender REST API.
package filesender

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the server root, e.g. https://filesender.example.org.
	BaseURL string
	// APIToken is sent as a bearer token when set.
	APIToken string
	// ChunkUploadSecurity is "key" when file operations must carry the
	// per-file key. It can be updated later from the server info.
	ChunkUploadSecurity string
	// Timeout bounds each API request. Defaults to five minutes. Whole-file
	// uploads are bounded only by their context.
	Timeout time.Duration
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	// Transport replaces the default HTTP transport when non-nil.
	Transport http.RoundTripper
}

// ID is a server identifier. The API returns ids as numbers or strings.
type ID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// FileSpec describes a file in a transfer request.
type FileSpec struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type,omitempty"`
	// CID is the client correlation id echoed back by the server.
	CID string `json:"cid,omitempty"`
}

// TransferRequest is the body of a transfer registration.
type TransferRequest struct {
	From       string         `json:"from,omitempty"`
	Files      []FileSpec     `json:"files"`
	Recipients []string       `json:"recipients"`
	Subject    string         `json:"subject,omitempty"`
	Message    string         `json:"message,omitempty"`
	Expires    int64          `json:"expires"` // Unix seconds
	Options    map[string]any `json:"options,omitempty"`
	// GuestToken is sent as the vid query parameter, not in the body.
	GuestToken string `json:"-"`
}

// File is a file record of a registered transfer.
type File struct {
	ID       ID     `json:"id"`
	UID      string `json:"uid"`
	CID      string `json:"cid,omitempty"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type,omitempty"`
}

// Transfer is a registered transfer.
type Transfer struct {
	ID         ID     `json:"id"`
	Status     string `json:"status,omitempty"`
	Files      []File `json:"files"`
	Recipients []any  `json:"recipients,omitempty"`
	Expires    Time   `json:"expires,omitempty"`
	// Path is the resource location reported by the server.
	Path string `json:"-"`
}

// Time decodes the API's date representations: Unix seconds, or an
// object carrying a raw timestamp.
type Time struct {
	time.Time
}

// UnmarshalJSON accepts a number, a numeric string or {"raw": n}.
func (t *Time) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		return nil
	}

	if data[0] == '{' {
		var obj struct {
			Raw json.Number `json:"raw"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		data = []byte(obj.Raw.String())
	}

	s := string(bytes.Trim(data, `"`))
	if s == "" {
		return nil
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		parsed, perr := time.Parse(time.RFC3339, s)
		if perr != nil {
			return err
		}
		t.Time = parsed
		return nil
	}
	t.Time = time.Unix(secs, 0).UTC()
	return nil
}

// ServerInfo is the public configuration published at /info.
// Fields the server omits stay zero.
type ServerInfo struct {
	URL                               string `json:"url,omitempty"`
	Version                           string `json:"version,omitempty"`
	MaxTransferFiles                  int    `json:"max_transfer_files,omitempty"`
	MaxTransferSize                   int64  `json:"max_transfer_size,omitempty"`
	MaxTransferRecipients             int    `json:"max_transfer_recipients,omitempty"`
	BanExtension                      string `json:"ban_extension,omitempty"`
	UploadChunkSize                   int64  `json:"upload_chunk_size,omitempty"`
	DefaultDaysValid                  int    `json:"default_transfer_days_valid,omitempty"`
	ChunkUploadSecurity               string `json:"chunk_upload_security,omitempty"`
	TerasenderEnabled                 *bool  `json:"terasender_enabled,omitempty"`
	LegacyUploadProgressRefreshPeriod int    `json:"legacy_upload_progress_refresh_period,omitempty"`
}

// LegacyProgress is the server-side progress of a whole-file upload.
type LegacyProgress struct {
	BytesProcessed int64 `json:"bytes_processed"`
	BytesTotal     int64 `json:"bytes_total,omitempty"`
}

// WholeFileResult is the payload returned by the whole-file endpoint.
// Message and UID are both set when the upload failed.
type WholeFileResult struct {
	Message string `json:"message,omitempty"`
	UID     string `json:"uid,omitempty"`
}

// IsError reports whether the payload is error-shaped.
func (r WholeFileResult) IsError() bool {
	return r.Message != "" && r.UID != ""
}
