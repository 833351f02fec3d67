// Package session validates the tab-scoped session tokens that correlate
// records from one browsing session without identifying a person.
//
// Tokens are minted and stored by the browser shim served at /tracker.js,
// which applies the same shape check before reusing a stored token.
package session

import (
	"regexp"
	"strings"
)

// StorageKey is the slot name the tracker uses in sessionStorage.
const StorageKey = "sitepulse_session_id"

var pattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Valid reports whether token has the canonical 8-4-4-4-12 hexadecimal shape.
func Valid(token string) bool {
	return pattern.MatchString(token)
}

// Normalize returns token in lowercase canonical form, or nil when it is not a
// valid UUID-shaped value. Malformed tokens are coerced, never rejected.
func Normalize(token string) *string {
	token = strings.TrimSpace(token)
	if !Valid(token) {
		return nil
	}
	lower := strings.ToLower(token)
	return &lower
}
