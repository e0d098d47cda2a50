package utils

import (
	"net/mail"
	"strings"

	"golang.org/x/net/idna"
)

// IsValidEmail reports whether s is a bare email address (no display
// name, no surrounding whitespace) with a valid, possibly internationalized,
// domain containing at least one dot.
func IsValidEmail(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}

	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}

	at := strings.LastIndex(addr.Address, "@")
	if at <= 0 || at == len(addr.Address)-1 {
		return false
	}

	domain := addr.Address[at+1:]
	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return false
	}

	return strings.Contains(ascii, ".") && !strings.HasSuffix(ascii, ".")
}
