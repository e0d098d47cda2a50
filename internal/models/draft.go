package models

import "time"

// Draft is a local snapshot of a registered transfer, kept so an
// interrupted upload can be inspected and cleaned up later.
type Draft struct {
	TransferID string         `json:"transfer_id"`
	Size       int64          `json:"size"`
	Files      []DraftFile    `json:"files"`
	Recipients []string       `json:"recipients"`
	Subject    string         `json:"subject"`
	Message    string         `json:"message"`
	Expires    time.Time      `json:"expires"`
	Options    map[string]any `json:"options,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// DraftFile is the per-file part of a Draft.
type DraftFile struct {
	CID      string `json:"cid"`
	ID       string `json:"id"`
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	Uploaded int64  `json:"uploaded"`
	Complete bool   `json:"complete"`
}

// UploadedBytes returns the bytes uploaded across all files.
func (d *Draft) UploadedBytes() int64 {
	var total int64
	for _, f := range d.Files {
		total += f.Uploaded
	}
	return total
}
