package wizard

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

// sanitizeText strips markup from free text input and returns plain text.
func sanitizeText(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return raw
	}
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return html.UnescapeString(textPolicy.Sanitize(raw))
}
