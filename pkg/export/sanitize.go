package export

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// CleanText strips any markup from free text before it lands in the
// artifact. Descriptions travel inside loaded progress files, so they are
// untrusted input by the time they get here.
func CleanText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	// StrictPolicy leaves entity-escaped text; unescape to get plain prose
	// back for the non-HTML artifact.
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(trimmed)))
}
