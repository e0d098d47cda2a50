// Package s3 implements storage.Source for objects in AWS S3 and S3-compatible storage.
// Each ReadAt is a ranged GetObject, so only the requested chunk is fetched.
package s3

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"

	"github.com/fjmerc/filesender-client/internal/storage"
)

// sniffLength is how many leading bytes are fetched for MIME detection.
const sniffLength = 3072

// ObjectAPI is the subset of the S3 client used by ObjectSource.
type ObjectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds configuration for S3 access.
type S3Config struct {
	Region          string
	Endpoint        string // Custom endpoint for MinIO or other S3-compatible services
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool // Use path-style addressing (required for MinIO)
}

// NewClient creates an S3 client from the given configuration.
func NewClient(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var optFuncs []func(*config.LoadOptions) error

	if cfg.Region != "" {
		optFuncs = append(optFuncs, config.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFuncs = append(optFuncs, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, optFuncs...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.PathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	slog.Debug("S3 client initialized",
		"region", cfg.Region,
		"endpoint", cfg.Endpoint,
		"path_style", cfg.PathStyle,
	)

	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

// ParseURL splits an s3://bucket/key reference.
func ParseURL(ref string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(ref, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 url: %s", ref)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("s3 url must be s3://bucket/key: %s", ref)
	}
	return bucket, key, nil
}

// IsURL reports whether ref looks like an s3:// reference.
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "s3://")
}

// ObjectSource is a storage.Source backed by one S3 object.
type ObjectSource struct {
	ctx      context.Context
	api      ObjectAPI
	bucket   string
	key      string
	size     int64
	mimeType string
}

// Open resolves the object's size and MIME type. ctx bounds every later ReadAt.
func Open(ctx context.Context, api ObjectAPI, bucket, key string) (*ObjectSource, error) {
	ref := "s3://" + bucket + "/" + key

	head, err := api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, storage.NewSourceError("Open", ref, err)
	}

	src := &ObjectSource{
		ctx:    ctx,
		api:    api,
		bucket: bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
	}

	src.mimeType = aws.ToString(head.ContentType)
	if src.mimeType == "" || src.mimeType == "binary/octet-stream" {
		src.mimeType = src.detectMimeType()
	}

	return src, nil
}

// detectMimeType sniffs the leading bytes of the object.
func (s *ObjectSource) detectMimeType() string {
	n := int64(sniffLength)
	if s.size < n {
		n = s.size
	}
	if n == 0 {
		return "application/octet-stream"
	}

	head, err := storage.ReadRange(s, 0, n)
	if err != nil {
		slog.Debug("mime detection failed, using default", "bucket", s.bucket, "key", s.key, "error", err)
		return "application/octet-stream"
	}
	return mimetype.Detect(head).String()
}

// ReadAt fetches len(p) bytes at off with a ranged GetObject.
func (s *ObjectSource) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off >= s.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	if end >= s.size {
		end = s.size - 1
	}

	out, err := s.api.GetObject(s.ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return 0, storage.NewSourceError("ReadAt", s.key, err)
	}
	defer out.Body.Close()

	want := int(end - off + 1)
	n, err := io.ReadFull(out.Body, p[:want])
	if err != nil {
		return n, err
	}
	if want < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Name returns the last path segment of the key.
func (s *ObjectSource) Name() string { return path.Base(s.key) }

// Size returns the object size.
func (s *ObjectSource) Size() int64 { return s.size }

// MimeType returns the declared or detected MIME type.
func (s *ObjectSource) MimeType() string { return s.mimeType }
