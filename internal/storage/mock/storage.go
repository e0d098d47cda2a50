// Package mock provides an in-memory storage.Source for testing.
// It records every read and supports error injection.
package mock

import (
	"fmt"
	"io"
	"sync"
)

// Read records one ReadAt call.
type Read struct {
	Offset int64
	Length int
}

// Source is an in-memory storage.Source.
type Source struct {
	mu sync.Mutex

	name     string
	mimeType string
	data     []byte
	size     int64
	reads    []Read

	// Error injection for testing
	// NOTE: Set these BEFORE concurrent access begins
	ReadAtError error
	OnReadAt    func(p []byte, off int64) (int, error)
}

// NewSource creates a Source holding data.
func NewSource(name, mimeType string, data []byte) *Source {
	return &Source{
		name:     name,
		mimeType: mimeType,
		data:     data,
		size:     int64(len(data)),
	}
}

// NewSizedSource creates a Source of size bytes filled with a repeating pattern.
func NewSizedSource(name string, size int64) *Source {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	return NewSource(name, "application/octet-stream", data)
}

// NewPhantomSource reports size without holding data; reads fail.
// Useful for quota tests with very large declared sizes.
func NewPhantomSource(name string, size int64) *Source {
	return &Source{
		name:        name,
		mimeType:    "application/octet-stream",
		size:        size,
		ReadAtError: fmt.Errorf("phantom source %s has no data", name),
	}
}

// ReadAt implements io.ReaderAt.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	s.reads = append(s.reads, Read{Offset: off, Length: len(p)})
	s.mu.Unlock()

	if s.OnReadAt != nil {
		return s.OnReadAt(p, off)
	}
	if s.ReadAtError != nil {
		return 0, s.ReadAtError
	}
	if off >= int64(len(s.data)) {
		return 0, io.EOF
	}

	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Name returns the file name.
func (s *Source) Name() string { return s.name }

// Size returns the declared size.
func (s *Source) Size() int64 { return s.size }

// MimeType returns the MIME type.
func (s *Source) MimeType() string { return s.mimeType }

// Bytes returns the backing data.
func (s *Source) Bytes() []byte { return s.data }

// Reads returns a copy of the recorded reads.
func (s *Source) Reads() []Read {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Read, len(s.reads))
	copy(out, s.reads)
	return out
}
