package validation

import (
	"fmt"
	"net/url"
	"path/filepath"
)

// SourceKind identifies where an API document is read from.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
	SourceKindURL  SourceKind = "url"
)

// Source locates an OpenAPI document.
type Source struct {
	Kind     SourceKind
	Location string
}

// SourceFromFile points at a document on disk.
func SourceFromFile(path string) Source {
	return Source{Kind: SourceKindFile, Location: filepath.Clean(path)}
}

// SourceFromFS points at a document inside the loader's fs.FS.
func SourceFromFS(name string) Source {
	return Source{Kind: SourceKindFS, Location: name}
}

// SourceFromURL points at a remote document.
func SourceFromURL(raw string) (Source, error) {
	if raw == "" {
		return Source{}, fmt.Errorf("validation: empty url source")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		return Source{}, fmt.Errorf("validation: invalid url %q: %w", raw, err)
	}
	return Source{Kind: SourceKindURL, Location: raw}, nil
}

// ParseSource maps a configuration value onto a Source: http(s) URLs load
// remotely, everything else is a file path.
func ParseSource(raw string) (Source, error) {
	if u, err := url.Parse(raw); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return SourceFromURL(raw)
	}
	if raw == "" {
		return Source{}, fmt.Errorf("validation: empty source")
	}
	return SourceFromFile(raw), nil
}
