package testutil

import (
	"os"
	"testing"

	"github.com/fjmerc/filesender-client/internal/database"
)

func TestSetupTestDB(t *testing.T) {
	db := SetupTestDB(t)

	status, err := database.GetMigrationStatus(db)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(status) == 0 {
		t.Fatal("expected at least one migration")
	}
	for _, m := range status {
		if !m.Applied {
			t.Errorf("migration %s not applied", m.Name)
		}
	}
}

func TestSetupTestConfig(t *testing.T) {
	cfg := SetupTestConfig(t)

	if cfg.UploadChunkSize != 4 {
		t.Errorf("UploadChunkSize = %d, want 4", cfg.UploadChunkSize)
	}
	if len(cfg.BannedExtensions) != 2 {
		t.Errorf("BannedExtensions = %v, want 2 entries", cfg.BannedExtensions)
	}
	if cfg.TerasenderEnabled {
		t.Error("TerasenderEnabled should default to false")
	}
}

func TestCreateTestFile(t *testing.T) {
	path := CreateTestFile(t, "report.txt", []byte("hello"))

	data, err := os.ReadFile(path)
	AssertNoError(t, err)
	AssertEqual(t, string(data), "hello")
	AssertContains(t, path, "report.txt")
}
