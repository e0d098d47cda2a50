// Package resolver normalizes user-supplied references (files, directories,
// s3:// URLs) into a flat list of storage.Source handles.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjmerc/filesender-client/internal/storage"
	"github.com/fjmerc/filesender-client/internal/storage/filesystem"
	"github.com/fjmerc/filesender-client/internal/storage/s3"
)

// Resolver opens references as sources.
type Resolver struct {
	// S3 is used for s3:// references. Nil rejects them.
	S3 s3.ObjectAPI
}

// Resolve expands every reference into sources, in order. Directories are
// walked recursively. A reference that fails to open is reported in the
// joined error and skipped; the others are still returned.
// Callers must storage.Close every returned source.
func (r *Resolver) Resolve(ctx context.Context, refs []string) ([]storage.Source, error) {
	var (
		sources []storage.Source
		errs    []error
	)

	for _, ref := range refs {
		opened, err := r.resolveOne(ctx, ref)
		if err != nil {
			slog.Warn("failed to resolve source", "ref", ref, "error", err)
			errs = append(errs, err)
		}
		sources = append(sources, opened...)
	}

	return sources, errors.Join(errs...)
}

func (r *Resolver) resolveOne(ctx context.Context, ref string) ([]storage.Source, error) {
	if s3.IsURL(ref) {
		if r.S3 == nil {
			return nil, fmt.Errorf("s3 reference %s given but no S3 client configured", ref)
		}
		bucket, key, err := s3.ParseURL(ref)
		if err != nil {
			return nil, err
		}
		src, err := s3.Open(ctx, r.S3, bucket, key)
		if err != nil {
			return nil, err
		}
		return []storage.Source{src}, nil
	}

	paths, err := filesystem.Walk(ref)
	if err != nil {
		return nil, err
	}

	var (
		sources []storage.Source
		errs    []error
	)
	for _, p := range paths {
		src, err := filesystem.Open(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sources = append(sources, src)
	}
	return sources, errors.Join(errs...)
}

// CloseAll closes every source, returning the joined errors.
func CloseAll(sources []storage.Source) error {
	var errs []error
	for _, src := range sources {
		if err := storage.Close(src); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
