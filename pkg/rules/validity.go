package rules

import (
	"strings"
	"time"
	"unicode"
)

// IssuanceWithinValidity reports whether the certificate was issued on or
// before the end of its validity period.
func IssuanceWithinValidity(issuance, validityEnd time.Time) bool {
	return !Day(issuance).After(Day(validityEnd))
}

// NotExpired reports whether the reference date falls on or before the end
// of the validity period.
func NotExpired(validityEnd, reference time.Time) bool {
	return !Day(reference).After(Day(validityEnd))
}

// ValidityOK requires both IssuanceWithinValidity and NotExpired.
func ValidityOK(issuance, validityEnd, reference time.Time) bool {
	return IssuanceWithinValidity(issuance, validityEnd) && NotExpired(validityEnd, reference)
}

var placeholders = map[string]bool{
	"":     true,
	"-":    true,
	"NA":   true,
	"N/A":  true,
	"NULL": true,
	"NONE": true,
	"NIL":  true,
}

// PolicyPresent reports whether s looks like a real policy number rather than
// an empty or placeholder value. At least one letter or digit is required.
func PolicyPresent(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	if placeholders[s] {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
