package console

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("console: aborted")
	// ErrCancelled is returned when the user leaves a form without saving.
	ErrCancelled = errors.New("console: form cancelled")
)
