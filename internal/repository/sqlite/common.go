// Package sqlite provides SQLite implementations of repository interfaces.
package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjmerc/filesender-client/internal/models"
)

// timeLayout is used for every timestamp column. Fixed width keeps
// lexical order equal to chronological order for UTC values.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// encodeJSONColumns serializes the list and map fields of a draft.
func encodeJSONColumns(draft *models.Draft) (files, recipients, options string, err error) {
	f, err := json.Marshal(draft.Files)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode files: %w", err)
	}
	r, err := json.Marshal(draft.Recipients)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode recipients: %w", err)
	}
	o, err := json.Marshal(draft.Options)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode options: %w", err)
	}
	return string(f), string(r), string(o), nil
}

// decodeJSONColumns fills the list and map fields of a draft.
func decodeJSONColumns(draft *models.Draft, files, recipients, options string) error {
	if err := json.Unmarshal([]byte(files), &draft.Files); err != nil {
		return fmt.Errorf("failed to decode files: %w", err)
	}
	if err := json.Unmarshal([]byte(recipients), &draft.Recipients); err != nil {
		return fmt.Errorf("failed to decode recipients: %w", err)
	}
	if err := json.Unmarshal([]byte(options), &draft.Options); err != nil {
		return fmt.Errorf("failed to decode options: %w", err)
	}
	return nil
}

// parseTime parses a stored timestamp, tolerating SQLite's default format.
func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
