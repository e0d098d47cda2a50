package utils

import (
	"net/url"
)

// MaskToken masks a guest token or upload key for logging.
// Shows first 3 and last 3 characters, masks the middle
// Example: "abc123xyz789" -> "abc***789"
func MaskToken(token string) string {
	if token == "" {
		return ""
	}

	// Short tokens are masked completely
	if len(token) <= 6 {
		return "***"
	}

	return token[:3] + "***" + token[len(token)-3:]
}

// MaskURLKey returns rawURL with the value of its "key" query parameter
// masked. Unparsable URLs are returned unchanged.
func MaskURLKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	q := u.Query()
	key := q.Get("key")
	if key == "" {
		return rawURL
	}

	q.Set("key", MaskToken(key))
	u.RawQuery = q.Encode()
	return u.String()
}
