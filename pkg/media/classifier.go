package media

import (
	"net/url"
	"strings"

	"github.com/goliatone/go-userwizard/pkg/entity"
)

// Classifier recognises references that already live in persisted storage.
// Domains are matched against the reference as URL prefixes or host names.
type Classifier struct {
	Domains []string
}

// NewClassifier trims and drops empty domains.
func NewClassifier(domains ...string) Classifier {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return Classifier{Domains: out}
}

// IsPersisted reports whether ref points at a configured storage domain.
func (c Classifier) IsPersisted(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || len(c.Domains) == 0 {
		return false
	}
	parsed, err := url.Parse(ref)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return false
	}
	for _, domain := range c.Domains {
		if strings.Contains(domain, "://") {
			if strings.HasPrefix(ref, domain) {
				return true
			}
			continue
		}
		host := parsed.Hostname()
		if strings.EqualFold(host, domain) || strings.HasSuffix(strings.ToLower(host), "."+strings.ToLower(domain)) {
			return true
		}
	}
	return false
}

// Stage builds the staged entry for a freshly selected reference, tagging it
// persisted when the classifier recognises the storage domain.
func (c Classifier) Stage(field, ref, name, today string) Staged {
	if c.IsPersisted(ref) {
		return NewPersisted(field, entity.Document{
			Name:       SanitizeName(name),
			URL:        ref,
			UploadedAt: today,
		})
	}
	return NewLocal(field, ref, name)
}
