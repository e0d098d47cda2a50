// Package filesystem implements storage.Source for local files.
package filesystem

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fjmerc/filesender-client/internal/storage"
)

// FileSource is a storage.Source backed by an open local file.
type FileSource struct {
	file     *os.File
	path     string
	name     string
	size     int64
	mimeType string
}

// Open opens a regular file as a Source. The caller must Close it.
func Open(path string) (*FileSource, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, storage.NewSourceError("Open", path, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, storage.NewSourceError("Open", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, storage.NewSourceError("Open", path, fmt.Errorf("not a regular file"))
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, storage.NewSourceError("Open", path, err)
	}

	// Detect MIME type from content (not trusting the extension alone)
	mimeType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(absPath); err == nil && mt != nil {
		mimeType = mt.String()
	} else if err != nil {
		slog.Debug("mime detection failed, using default", "path", absPath, "error", err)
	}

	return &FileSource{
		file:     f,
		path:     absPath,
		name:     filepath.Base(absPath),
		size:     info.Size(),
		mimeType: mimeType,
	}, nil
}

// ReadAt implements io.ReaderAt.
func (s *FileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.file.ReadAt(p, off)
}

// Name returns the base name of the file.
func (s *FileSource) Name() string { return s.name }

// Size returns the file size captured at open time.
func (s *FileSource) Size() int64 { return s.size }

// MimeType returns the content-detected MIME type.
func (s *FileSource) MimeType() string { return s.mimeType }

// Path returns the absolute path of the file.
func (s *FileSource) Path() string { return s.path }

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.file.Close()
}

// Walk returns the regular files below root in lexical order.
// A root that is itself a regular file is returned as the only entry.
func Walk(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, storage.NewSourceError("Walk", root, err)
	}
	if info.Mode().IsRegular() {
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, storage.NewSourceError("Walk", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}
