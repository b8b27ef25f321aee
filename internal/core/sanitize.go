package core

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips markup from user-supplied text, leaving plain text
// only. The strict policy drops every tag and attribute; script and
// style elements are removed together with their contents.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer creates a sanitizer with the strict (no markup) policy.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean trims the input and strips all markup. Idempotent: cleaning
// already-clean text returns it unchanged.
func (s *Sanitizer) Clean(text string) string {
	return strings.TrimSpace(s.policy.Sanitize(strings.TrimSpace(text)))
}

// CleanOptional cleans an optional field. Nil stays nil, and a value
// that is empty after cleaning collapses to nil rather than an empty
// string.
func (s *Sanitizer) CleanOptional(text *string) *string {
	if text == nil {
		return nil
	}
	cleaned := s.Clean(*text)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
