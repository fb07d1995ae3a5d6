// Package emailaddr holds the one email pattern shared by token issuance
// and notification dispatch, so both reject the same inputs before any I/O.
package emailaddr

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func Valid(email string) bool {
	return emailRegex.MatchString(email)
}

// Normalize lower-cases and trims an address for lookups and comparisons.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
