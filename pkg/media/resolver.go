package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// File is a staged reference converted into uploadable content.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.ReadCloser
}

// Resolver converts a local reference into a File.
type Resolver interface {
	Open(ctx context.Context, ref string) (File, error)
}

// ErrEmptyReference is returned when asked to open an empty reference.
var ErrEmptyReference = errors.New("media: empty reference")

// OSResolver opens references as paths on the local filesystem.
type OSResolver struct{}

// Open implements Resolver.
func (OSResolver) Open(ctx context.Context, ref string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	if strings.TrimSpace(ref) == "" {
		return File{}, ErrEmptyReference
	}
	f, err := os.Open(ref)
	if err != nil {
		return File{}, fmt.Errorf("media: open %s: %w", ref, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return File{}, fmt.Errorf("media: stat %s: %w", ref, err)
	}
	return File{
		Name:        filepath.Base(ref),
		Size:        info.Size(),
		ContentType: ContentType(ref),
		Body:        f,
	}, nil
}

// FSResolver opens references inside an fs.FS.
type FSResolver struct {
	FS fs.FS
}

// Open implements Resolver.
func (r FSResolver) Open(ctx context.Context, ref string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	if r.FS == nil {
		return File{}, errors.New("media: filesystem is nil")
	}
	if strings.TrimSpace(ref) == "" {
		return File{}, ErrEmptyReference
	}
	f, err := r.FS.Open(ref)
	if err != nil {
		return File{}, fmt.Errorf("media: open %s: %w", ref, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return File{}, fmt.Errorf("media: stat %s: %w", ref, err)
	}
	return File{
		Name:        path.Base(ref),
		Size:        info.Size(),
		ContentType: ContentType(ref),
		Body:        f,
	}, nil
}

// ContentType guesses the MIME type from the file extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
