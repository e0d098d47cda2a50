package transfer

import (
	"time"

	"github.com/fjmerc/filesender-client/internal/config"
	"github.com/fjmerc/filesender-client/internal/storage"
	"github.com/fjmerc/filesender-client/internal/utils"
)

const day = 24 * time.Hour

// validateFile applies the add-time rules in order.
// files and size describe the current collection.
func validateFile(cfg *config.Config, src storage.Source, files []*File, size int64) *Error {
	if src == nil {
		return newError(KindNoFileGiven, nil)
	}

	name, fileSize := src.Name(), src.Size()

	for _, f := range files {
		if f.Name == name && f.Size == fileSize {
			return newError(KindDuplicateFile, map[string]any{"name": name, "size": fileSize})
		}
	}

	if len(files) >= cfg.MaxTransferFiles {
		return newError(KindMaxFilesExceeded, map[string]any{"max": cfg.MaxTransferFiles})
	}

	if !utils.IsValidFileName(name) {
		return newError(KindInvalidFileName, map[string]any{"name": name})
	}

	if fileSize <= 0 {
		return newError(KindEmptyFile, map[string]any{"name": name})
	}

	if banned, _ := utils.IsExtensionBanned(name, cfg.BannedExtensions, cfg.BanExtensionIgnoreCase); banned {
		return newError(KindBannedExtension, map[string]any{
			"extension": utils.FileExtension(name),
			"filename":  name,
			"banned":    cfg.BanExtension,
		})
	}

	if size+fileSize > cfg.MaxTransferSize {
		return newError(KindMaxSizeExceeded, map[string]any{"size": fileSize, "max": cfg.MaxTransferSize})
	}

	return nil
}

// validateRecipient checks format, uniqueness and count.
func validateRecipient(cfg *config.Config, email string, recipients []string) *Error {
	if !utils.IsValidEmail(email) {
		return newError(KindInvalidRecipient, map[string]any{"email": email})
	}

	for _, r := range recipients {
		if r == email {
			return newError(KindDuplicateRecipient, map[string]any{"email": email})
		}
	}

	if len(recipients) >= cfg.MaxTransferRecipients {
		return newError(KindMaxRecipientsExceeded, map[string]any{"max": cfg.MaxTransferRecipients})
	}

	return nil
}

// validateStart re-checks quotas and the expiry window before registration.
func validateStart(cfg *config.Config, files []*File, size int64, expires, now time.Time) *Error {
	if len(files) == 0 {
		return newError(KindNoFileGiven, nil)
	}

	if len(files) > cfg.MaxTransferFiles {
		return newError(KindMaxFilesExceeded, map[string]any{"max": cfg.MaxTransferFiles})
	}

	if size > cfg.MaxTransferSize {
		return newError(KindMaxSizeExceeded, map[string]any{"size": size, "max": cfg.MaxTransferSize})
	}

	today := dayNumber(now)
	exp := dayNumber(expires)
	if exp < today-1 || exp > today+int64(cfg.DefaultDaysValid)+1 {
		return newError(KindBadExpire, map[string]any{"expires": expires.UTC().Format(time.DateOnly)})
	}

	return nil
}

// dayNumber returns the number of whole days since the Unix epoch.
func dayNumber(t time.Time) int64 {
	secs := t.Unix()
	d := secs / 86400
	if secs < 0 && secs%86400 != 0 {
		d--
	}
	return d
}
