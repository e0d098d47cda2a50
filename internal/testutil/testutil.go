package testutil

import (
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fjmerc/filesender-client/internal/config"
	"github.com/fjmerc/filesender-client/internal/database"
)

// SetupTestDB creates an in-memory SQLite draft store for testing.
// The database is automatically closed when the test completes.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Initialize(":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// SetupTestConfig returns a configuration with small quotas, a 4-byte
// chunk size and millisecond timers, independent of the environment.
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{
		MaxTransferFiles:       5,
		MaxTransferSize:        1 << 20, // 1MB
		MaxTransferRecipients:  3,
		BanExtension:           "exe,bat",
		UploadChunkSize:        4,
		DefaultDaysValid:       7,
		LegacyUploadEndpoint:   "/rest.php/file/{file_id}/whole?key={key}",
		ChunkUploadSecurity:    config.ChunkUploadSecurityKey,
		TerasenderWorkerCount:  2,
		PausePollInterval:      5 * time.Millisecond,
		StopGraceDelay:         time.Millisecond,
		RetryPolicy:            config.RetryPolicyNone,
		RetryMaxAttempts:       3,
		RetryBaseDelay:         time.Millisecond,
		BanExtensionIgnoreCase: false,

		LegacyProgressRefreshPeriod: 5 * time.Millisecond,
	}
	cfg.BannedExtensions = config.ParseExtensionList(cfg.BanExtension)

	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}

	return cfg
}

// CreateTestFile writes content to a file in a temporary directory and
// returns its path. The file is removed when the test completes.
func CreateTestFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := t.TempDir() + string(os.PathSeparator) + name
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	return path
}

// Eventually polls cond until it holds or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, msg)
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()

	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

// AssertEqual fails the test if got != want
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()

	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// AssertContains fails the test if haystack doesn't contain needle
func AssertContains(t *testing.T, haystack, needle string) {
	t.Helper()

	if !strings.Contains(haystack, needle) {
		t.Errorf("expected %q to contain %q", haystack, needle)
	}
}
