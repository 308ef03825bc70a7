package schema

import (
	_ "embed"
	"sync"
)

//go:embed templates/archive.yaml
var embeddedTemplate []byte

var (
	defaultOnce sync.Once
	defaultTpl  Template
	defaultErr  error
)

// Default returns the bundled archive template. The embedded document is
// parsed once; a malformed bundle is a build defect, so the error is
// surfaced rather than swallowed.
func Default() (Template, error) {
	defaultOnce.Do(func() {
		defaultTpl, defaultErr = Parse(embeddedTemplate)
	})
	return defaultTpl, defaultErr
}
