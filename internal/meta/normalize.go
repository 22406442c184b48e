// Package meta holds the text cleaning rules shared by the cleaning stages.
package meta

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Cleaner cleans raw text values
type Cleaner struct {
	// NFC applies Unicode NFC composition after trimming, so composed and
	// decomposed accents produce the same key. Off by default: keys are trim-only.
	NFC bool
}

// Clean trims leading and trailing whitespace and, when enabled, composes
// the result to NFC. It never changes case or inner whitespace.
func (c Cleaner) Clean(s string) string {
	s = strings.TrimSpace(s)
	if c.NFC && s != "" {
		s = norm.NFC.String(s)
	}
	return s
}

// Value cleans an optional raw value. Absent and blank values are nil.
func (c Cleaner) Value(raw *string) *string {
	if raw == nil {
		return nil
	}
	s := c.Clean(*raw)
	if s == "" {
		return nil
	}
	return &s
}

// IsBlank reports whether a raw value is absent or whitespace only
func IsBlank(raw *string) bool {
	return raw == nil || strings.TrimSpace(*raw) == ""
}
