package sanitize

import (
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

type Sanitizer interface {
	Text(s string) string
	URL(s string) string
}

// ContentSanitizer strips markup from free-text fields and rejects
// URLs outside the http(s) schemes. Sanitized values are what the
// dedup cache and the store see, so callers must sanitize before
// either.
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

func NewContentSanitizer() *ContentSanitizer {
	return &ContentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

func (s *ContentSanitizer) Text(text string) string {
	return strings.TrimSpace(s.policy.Sanitize(text))
}

func (s *ContentSanitizer) URL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	switch u.Scheme {
	case "http", "https":
		return u.String()
	default:
		return ""
	}
}
