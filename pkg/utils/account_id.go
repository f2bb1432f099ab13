package utils

import (
	"regexp"
	"strings"
)

const (
	// SpecialAccountMarker prefixes identifiers of special-tier accounts.
	SpecialAccountMarker = "#"
	// specialKeyPrefix namespaces special accounts in storage so "#123456" never collides with "123456".
	specialKeyPrefix = "special_"
)

var accountIDRegex = regexp.MustCompile(`^\d{6}$`)

// AccountID is a parsed account identifier.
type AccountID struct {
	Numeric string
	special bool
}

// ParseAccountID validates a raw identifier.
// Rules: exactly 6 digits, optionally prefixed with "#".
func ParseAccountID(raw string) (AccountID, error) {
	raw = strings.TrimSpace(raw)

	special := strings.HasPrefix(raw, SpecialAccountMarker)
	numeric := strings.TrimPrefix(raw, SpecialAccountMarker)

	if !accountIDRegex.MatchString(numeric) {
		return AccountID{}, &ValidationError{
			Field:   "user_id",
			Message: "Please enter a valid 6-digit numeric ID, optionally prefixed with #",
		}
	}

	return AccountID{Numeric: numeric, special: special}, nil
}

// ParseAccountKey reverses Key.
func ParseAccountKey(key string) (AccountID, error) {
	if strings.HasPrefix(key, specialKeyPrefix) {
		return ParseAccountID(SpecialAccountMarker + strings.TrimPrefix(key, specialKeyPrefix))
	}
	return ParseAccountID(key)
}

// Special reports whether the identifier carried the special marker.
// Only consulted when an account is first created.
func (id AccountID) Special() bool {
	return id.special
}

// Key returns the storage key for the identifier.
func (id AccountID) Key() string {
	if id.special {
		return specialKeyPrefix + id.Numeric
	}
	return id.Numeric
}

// String returns the identifier as the user typed it.
func (id AccountID) String() string {
	if id.special {
		return SpecialAccountMarker + id.Numeric
	}
	return id.Numeric
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
