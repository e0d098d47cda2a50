package utils

import (
	"strings"
)

// reservedFileNameChars are path and separator characters rejected in file names.
const reservedFileNameChars = `\/:;*?"<>|`

// IsValidFileName returns false for empty names and names containing
// reserved path/separator characters.
func IsValidFileName(name string) bool {
	if name == "" {
		return false
	}
	return !strings.ContainsAny(name, reservedFileNameChars)
}

// FileExtension returns the text after the last dot of name, or "" when
// the name has no dot. The case is preserved.
func FileExtension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}

// IsExtensionBanned checks name's extension against a ban-list.
// Returns the matched list entry when banned.
func IsExtensionBanned(name string, banned []string, ignoreCase bool) (bool, string) {
	ext := FileExtension(name)
	if ext == "" || len(banned) == 0 {
		return false, ""
	}

	for _, b := range banned {
		if ext == b || (ignoreCase && strings.EqualFold(ext, b)) {
			return true, b
		}
	}

	return false, ""
}
