package validation

import (
	"regexp"
	"strings"
)

// isValidEmail matches Express: /^[^\s@]+@[^\s@]+\.[^\s@]+$/
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Digits with optional leading +, spaces, dashes, dots and parentheses.
var phoneRe = regexp.MustCompile(`^\+?[0-9][0-9\s\-().]{2,19}$`)

// Indian PAN: five letters, four digits, one letter.
var panRe = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)

var certPrefixRe = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{0,19}$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

func IsValidPhone(phone string) bool {
	return phoneRe.MatchString(phone)
}

func IsValidPAN(pan string) bool {
	return panRe.MatchString(pan)
}

func IsValidCertificatePrefix(prefix string) bool {
	return certPrefixRe.MatchString(prefix)
}

// NormalizeName lowercases and collapses runs of whitespace, so
// "  Jane   DOE " and "jane doe" compare equal.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// CleanName trims and collapses whitespace but keeps the original casing.
func CleanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}

func NormalizePAN(pan string) string {
	return strings.ToUpper(strings.TrimSpace(pan))
}

// OptionalString returns nil for blank input so optional columns stay NULL.
func OptionalString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
