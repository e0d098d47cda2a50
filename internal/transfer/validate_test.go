package transfer

import (
	"errors"
	"testing"
	"time"

	"github.com/fjmerc/filesender-client/internal/config"
	"github.com/fjmerc/filesender-client/internal/storage"
	storageMock "github.com/fjmerc/filesender-client/internal/storage/mock"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		MaxTransferFiles:            3,
		MaxTransferSize:             100,
		MaxTransferRecipients:       2,
		BanExtension:                "exe,bat",
		UploadChunkSize:             4,
		DefaultDaysValid:            7,
		LegacyUploadEndpoint:        "/rest.php/file/{file_id}/whole",
		ChunkUploadSecurity:         config.ChunkUploadSecurityKey,
		LegacyProgressRefreshPeriod: 5 * time.Millisecond,
		TerasenderWorkerCount:       2,
		PausePollInterval:           5 * time.Millisecond,
		StopGraceDelay:              time.Millisecond,
		RetryPolicy:                 config.RetryPolicyNone,
	}
	cfg.BannedExtensions = config.ParseExtensionList(cfg.BanExtension)
	return cfg
}

func src(name string, size int64) storage.Source {
	return storageMock.NewSizedSource(name, size)
}

func TestAddFile_Rules(t *testing.T) {
	tests := []struct {
		name     string
		existing []storage.Source
		add      storage.Source
		wantKind Kind
	}{
		{"valid", nil, src("report.pdf", 10), ""},
		{"nil source", nil, nil, KindNoFileGiven},
		{"duplicate", []storage.Source{src("a.txt", 5)}, src("a.txt", 5), KindDuplicateFile},
		{"same name other size", []storage.Source{src("a.txt", 5)}, src("a.txt", 6), ""},
		{"too many files", []storage.Source{src("a", 1), src("b", 1), src("c", 1)}, src("d", 1), KindMaxFilesExceeded},
		{"invalid name", nil, src("a:b.txt", 5), KindInvalidFileName},
		{"empty name", nil, src("", 5), KindInvalidFileName},
		{"empty file", nil, src("empty.txt", 0), KindEmptyFile},
		{"banned extension", nil, src("setup.exe", 5), KindBannedExtension},
		{"banned is case sensitive", nil, src("setup.EXE", 5), ""},
		{"no extension", nil, src("Makefile", 5), ""},
		{"size exceeded", []storage.Source{src("big.bin", 90)}, src("more.bin", 11), KindMaxSizeExceeded},
		{"size at limit", []storage.Source{src("big.bin", 90)}, src("more.bin", 10), ""},
		{"duplicate checked before count", []storage.Source{src("a", 1), src("b", 1), src("c", 1)}, src("c", 1), KindDuplicateFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(testConfig(), nil, nil)
			for _, s := range tt.existing {
				if _, err := tr.AddFile(s, func(*Error) {}); err != nil {
					t.Fatalf("setup AddFile(%s) error = %v", s.Name(), err)
				}
			}
			before := tr.Size()

			var handled *Error
			cid, err := tr.AddFile(tt.add, func(e *Error) { handled = e })

			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("AddFile() error = %v", err)
				}
				if cid == "" {
					t.Error("expected a cid")
				}
				if tr.Size() != before+tt.add.Size() {
					t.Errorf("Size() = %d, want %d", tr.Size(), before+tt.add.Size())
				}
				return
			}

			var e *Error
			if !errors.As(err, &e) || e.Kind != tt.wantKind {
				t.Fatalf("AddFile() error = %v, want kind %s", err, tt.wantKind)
			}
			if handled == nil || handled.Kind != tt.wantKind {
				t.Errorf("handler got %v, want kind %s", handled, tt.wantKind)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("validation errors should match ErrValidation")
			}
			if tr.Size() != before {
				t.Errorf("Size() changed to %d after rejected file", tr.Size())
			}
		})
	}
}

func TestAddFile_BannedDetails(t *testing.T) {
	tr := New(testConfig(), nil, nil)

	_, err := tr.AddFile(src("setup.exe", 5), func(*Error) {})

	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if e.Details["extension"] != "exe" || e.Details["filename"] != "setup.exe" || e.Details["banned"] != "exe,bat" {
		t.Errorf("unexpected details: %v", e.Details)
	}
}

func TestAddFile_BannedIgnoreCase(t *testing.T) {
	cfg := testConfig()
	cfg.BanExtensionIgnoreCase = true
	tr := New(cfg, nil, nil)

	_, err := tr.AddFile(src("SETUP.Exe", 5), func(*Error) {})
	if !errors.Is(err, &Error{Kind: KindBannedExtension}) {
		t.Errorf("AddFile() error = %v, want banned_extension", err)
	}
}

func TestRemoveFile_DecrementsSize(t *testing.T) {
	tr := New(testConfig(), nil, nil)
	cid, _ := tr.AddFile(src("a.txt", 10), nil)
	if _, err := tr.AddFile(src("b.txt", 5), nil); err != nil {
		t.Fatal(err)
	}

	if err := tr.RemoveFile(cid); err != nil {
		t.Fatalf("RemoveFile() error = %v", err)
	}
	if tr.Size() != 5 {
		t.Errorf("Size() = %d, want 5", tr.Size())
	}
	if len(tr.Files()) != 1 {
		t.Errorf("Files() = %d entries, want 1", len(tr.Files()))
	}

	// The removed file can be added again.
	if _, err := tr.AddFile(src("a.txt", 10), nil); err != nil {
		t.Errorf("re-adding removed file: %v", err)
	}
}

func TestAddRecipient_Rules(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		email    string
		wantKind Kind
	}{
		{"valid", nil, "alice@example.com", ""},
		{"invalid", nil, "not-an-email", KindInvalidRecipient},
		{"no tld", nil, "alice@localhost", KindInvalidRecipient},
		{"duplicate", []string{"alice@example.com"}, "alice@example.com", KindDuplicateRecipient},
		{"too many", []string{"a@example.com", "b@example.com"}, "c@example.com", KindMaxRecipientsExceeded},
		{"invalid checked before count", []string{"a@example.com", "b@example.com"}, "bad", KindInvalidRecipient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(testConfig(), nil, nil)
			for _, r := range tt.existing {
				if err := tr.AddRecipient(r, nil); err != nil {
					t.Fatalf("setup AddRecipient(%s) error = %v", r, err)
				}
			}

			err := tr.AddRecipient(tt.email, func(*Error) {})
			if tt.wantKind == "" {
				if err != nil {
					t.Errorf("AddRecipient() error = %v", err)
				}
				return
			}
			if !errors.Is(err, &Error{Kind: tt.wantKind}) {
				t.Errorf("AddRecipient() error = %v, want %s", err, tt.wantKind)
			}
			if len(tr.Recipients()) != len(tt.existing) {
				t.Errorf("recipient list changed on rejection")
			}
		})
	}
}

func TestValidateStart(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cfg := testConfig()
	one := []*File{{Name: "a", Size: 1}}

	tests := []struct {
		name     string
		files    []*File
		size     int64
		expires  time.Time
		wantKind Kind
	}{
		{"valid", one, 1, now.Add(3 * day), ""},
		{"no files", nil, 0, now.Add(day), KindNoFileGiven},
		{"too many files", make([]*File, 4), 4, now.Add(day), KindMaxFilesExceeded},
		{"exactly max files", make([]*File, 3), 3, now.Add(day), ""},
		{"size exceeded", one, 101, now.Add(day), KindMaxSizeExceeded},
		{"yesterday", one, 1, now.Add(-day), ""},
		{"two days ago", one, 1, now.Add(-2 * day), KindBadExpire},
		{"last valid day", one, 1, now.Add(8 * day), ""},
		{"too far", one, 1, now.Add(9 * day), KindBadExpire},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateStart(cfg, tt.files, tt.size, tt.expires, now)
			if tt.wantKind == "" {
				if err != nil {
					t.Errorf("validateStart() = %v", err)
				}
				return
			}
			if err == nil || err.Kind != tt.wantKind {
				t.Errorf("validateStart() = %v, want %s", err, tt.wantKind)
			}
		})
	}
}

func TestDayNumber(t *testing.T) {
	tests := []struct {
		in   time.Time
		want int64
	}{
		{time.Unix(0, 0), 0},
		{time.Unix(86399, 0), 0},
		{time.Unix(86400, 0), 1},
		{time.Unix(-1, 0), -1},
		{time.Unix(-86400, 0), -1},
	}
	for _, tt := range tests {
		if got := dayNumber(tt.in); got != tt.want {
			t.Errorf("dayNumber(%d) = %d, want %d", tt.in.Unix(), got, tt.want)
		}
	}
}
