// Package transport defines the collaborators the wizard talks to: an entity
// store for users and an uploader for staged files.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goliatone/go-userwizard/pkg/entity"
	"github.com/goliatone/go-userwizard/pkg/media"
)

// ErrNotFound is matched with errors.Is when a requested entity is absent.
var ErrNotFound = errors.New("transport: not found")

// Entities persists users.
type Entities interface {
	List(ctx context.Context) ([]entity.User, error)
	Get(ctx context.Context, id string) (entity.User, error)
	Create(ctx context.Context, user entity.User) (entity.User, error)
	Update(ctx context.Context, id string, user entity.User) (entity.User, error)
	Delete(ctx context.Context, id string) error
}

// ProgressFunc receives the cumulative bytes sent and the total size.
type ProgressFunc func(sent, total int64)

// Uploader transfers a file to remote storage and returns its URL. Upload
// takes ownership of file.Body and closes it.
type Uploader interface {
	Upload(ctx context.Context, file media.File, destination string, image bool, onProgress ProgressFunc) (string, error)
}

// Error is a network or server failure during an entity or upload call.
type Error struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets a 404 match ErrNotFound even when the body carried its own message.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}
