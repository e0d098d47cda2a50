package testutil

import (
	"time"

	"github.com/fjmerc/filesender-client/internal/models"
	"github.com/fjmerc/filesender-client/internal/storage"
	storageMock "github.com/fjmerc/filesender-client/internal/storage/mock"
)

// SampleDraft returns a draft for a two-file transfer, the first file
// fully uploaded.
func SampleDraft() *models.Draft {
	now := time.Now().UTC().Truncate(time.Second)

	return &models.Draft{
		TransferID: "100",
		Size:       15,
		Files: []models.DraftFile{
			{CID: "file_1_5_10_1", ID: "f0", UID: "uid-0", Name: "a.txt", Size: 10, MimeType: "text/plain", Uploaded: 10, Complete: true},
			{CID: "file_1_5_5_2", ID: "f1", UID: "uid-1", Name: "b.txt", Size: 5, MimeType: "text/plain", Uploaded: 4},
		},
		Recipients: []string{"alice@example.com"},
		Subject:    "Quarterly report",
		Message:    "See attached",
		Expires:    now.Add(7 * 24 * time.Hour),
		Options:    map[string]any{"email_me_copies": true},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// SampleSources returns in-memory sources of 10 and 5 bytes named a.txt
// and b.txt.
func SampleSources() []*storageMock.Source {
	return []*storageMock.Source{
		storageMock.NewSource("a.txt", "text/plain", []byte("0123456789")),
		storageMock.NewSource("b.txt", "text/plain", []byte("abcde")),
	}
}

// AsSources converts mock sources to storage.Source values.
func AsSources(srcs []*storageMock.Source) []storage.Source {
	out := make([]storage.Source, len(srcs))
	for i, s := range srcs {
		out[i] = s
	}
	return out
}
