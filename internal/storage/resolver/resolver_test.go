package resolver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) HeadObject(ctx context.Context, params *awss3.HeadObjectInput, optFns ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, fmt.Errorf("no such key")
	}
	return &awss3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/octet-stream"),
	}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	data := f.objects[aws.ToString(params.Key)]
	return &awss3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestResolve_FilesAndDirectories(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "dir"), 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range map[string]string{
		"single.txt": "one",
		"dir/a.txt":  "alpha",
		"dir/b.txt":  "beta",
	} {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	r := &Resolver{}
	sources, err := r.Resolve(context.Background(), []string{
		filepath.Join(root, "single.txt"),
		filepath.Join(root, "dir"),
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	defer CloseAll(sources)

	var names []string
	for _, s := range sources {
		names = append(names, s.Name())
	}
	want := []string{"single.txt", "a.txt", "b.txt"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestResolve_PartialFailure(t *testing.T) {
	root := t.TempDir()
	good := filepath.Join(root, "good.txt")
	if err := os.WriteFile(good, []byte("ok"), 0644); err != nil {
		t.Fatal(err)
	}

	r := &Resolver{}
	sources, err := r.Resolve(context.Background(), []string{
		filepath.Join(root, "missing.txt"),
		good,
	})
	defer CloseAll(sources)

	if err == nil {
		t.Error("expected error for missing reference")
	}
	if len(sources) != 1 || sources[0].Name() != "good.txt" {
		t.Errorf("expected only good.txt to resolve, got %d sources", len(sources))
	}
}

func TestResolve_S3(t *testing.T) {
	r := &Resolver{S3: &fakeS3{objects: map[string][]byte{"backups/db.dump": []byte("dumpdata")}}}

	sources, err := r.Resolve(context.Background(), []string{"s3://bucket/backups/db.dump"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(sources))
	}
	if sources[0].Name() != "db.dump" || sources[0].Size() != 8 {
		t.Errorf("source = (%q, %d), want (db.dump, 8)", sources[0].Name(), sources[0].Size())
	}
}

func TestResolve_S3WithoutClient(t *testing.T) {
	r := &Resolver{}
	sources, err := r.Resolve(context.Background(), []string{"s3://bucket/key"})
	if err == nil {
		t.Error("expected error without S3 client")
	}
	if len(sources) != 0 {
		t.Errorf("expected no sources, got %d", len(sources))
	}
}
