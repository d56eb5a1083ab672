// Package storage persists uploaded files for the reference backend and
// reports the public URL each object is served from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Backend stores objects under slash-separated keys.
type Backend interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	// BaseURL is the public prefix every returned URL starts with.
	BaseURL() string
}

// ErrInvalidKey is returned for empty keys or keys escaping the root.
var ErrInvalidKey = errors.New("storage: invalid key")

// CleanKey normalises key and rejects traversal outside the storage root.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// ObjectKey joins an upload folder and file name into a key.
func ObjectKey(folder, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: empty file name", ErrInvalidKey)
	}
	return CleanKey(path.Join(folder, path.Base(strings.ReplaceAll(name, "\\", "/"))))
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
