package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local stores objects on disk under Root and serves them from PublicURL.
type Local struct {
	Root      string
	PublicURL string
}

// NewLocal creates root if needed.
func NewLocal(root, publicURL string) (*Local, error) {
	if root == "" {
		return nil, errors.New("storage: local root is required")
	}
	if publicURL == "" {
		return nil, errors.New("storage: local public url is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &Local{Root: root, PublicURL: publicURL}, nil
}

func (l *Local) BaseURL() string { return l.PublicURL }

// Put writes r to Root/key atomically.
func (l *Local) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	target := filepath.Join(l.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("storage: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: create temp: %w", err)
	}
	written, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && size >= 0 && written != size {
		err = fmt.Errorf("short write: %d of %d bytes", written, size)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("storage: commit %s: %w", key, err)
	}
	return joinURL(l.PublicURL, key), nil
}

// Delete removes Root/key. Missing objects are not an error.
func (l *Local) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(l.Root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}
