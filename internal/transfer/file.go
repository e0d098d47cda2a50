package transfer

import (
	"fmt"
	"unicode/utf8"

	"github.com/fjmerc/filesender-client/internal/storage"
)

// File is one entry of a transfer. Callbacks receive copies.
type File struct {
	CID      string
	ID       string
	UID      string
	Name     string
	MimeType string
	Size     int64
	Uploaded int64
	Complete bool

	source storage.Source
	// acked is set once the server acknowledged the file completion.
	acked bool
}

// Source returns the byte source of the file.
func (f *File) Source() storage.Source {
	return f.source
}

func (f *File) ref(transferID string) FileRef {
	return FileRef{
		TransferID: transferID,
		ID:         f.ID,
		UID:        f.UID,
		Name:       f.Name,
		Size:       f.Size,
	}
}

func (f *File) descriptor() FileDescriptor {
	return FileDescriptor{
		Name:     f.Name,
		Size:     f.Size,
		MimeType: f.MimeType,
		CID:      f.CID,
	}
}

// advance records n more bytes, capped at Size. Uploaded never decreases.
func (f *File) advance(to int64) {
	if to > f.Size {
		to = f.Size
	}
	if to > f.Uploaded {
		f.Uploaded = to
	}
}

// newCID builds a client correlation id unique among taken.
// rnd returns a value in [0, n).
func newCID(name string, size int64, nowMillis int64, taken map[string]bool, rnd func(n int) int) string {
	prefix := fmt.Sprintf("file_%d_%d_%d_", nowMillis, utf8.RuneCountInString(name), size)
	for {
		cid := fmt.Sprintf("%s%d", prefix, rnd(1000000))
		if !taken[cid] {
			return cid
		}
	}
}
