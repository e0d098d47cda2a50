// Package storage provides the byte sources a transfer reads file contents from.
// A Source is never copied into memory wholesale: the chunk scheduler reads
// one byte range at a time through ReadAt.
package storage

import (
	"errors"
	"fmt"
	"io"
)

// Source is a readable, sized byte source for one file (the transfer's blob reference).
type Source interface {
	io.ReaderAt

	// Name returns the file name presented to the server (no path components).
	Name() string

	// Size returns the total size in bytes.
	Size() int64

	// MimeType returns the detected or declared MIME type.
	MimeType() string
}

// ErrInvalidRange is returned when a read falls outside the source.
var ErrInvalidRange = errors.New("storage: invalid range")

// SourceError represents errors from source operations with additional context.
type SourceError struct {
	Op   string // Operation that failed (e.g., "Open", "ReadAt", "Stat")
	Name string // Source name or reference
	Err  error  // Underlying error
}

func (e *SourceError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a new SourceError.
func NewSourceError(op, name string, err error) *SourceError {
	return &SourceError{Op: op, Name: name, Err: err}
}

// ReadRange reads exactly length bytes starting at offset.
// A short read at the end of the source is an error.
func ReadRange(src Source, offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > src.Size() {
		return nil, NewSourceError("ReadRange", src.Name(), fmt.Errorf("%w: offset=%d length=%d size=%d", ErrInvalidRange, offset, length, src.Size()))
	}

	buf := make([]byte, length)
	n, err := src.ReadAt(buf, offset)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return nil, NewSourceError("ReadRange", src.Name(), err)
}

// Close closes the source if it holds resources.
func Close(src Source) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
