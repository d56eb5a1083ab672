package console

import (
	"io"
	"time"

	"github.com/goliatone/go-userwizard/pkg/progress"
)

// Theme captures the prefixes printed in front of messages.
type Theme struct {
	InfoPrefix    string
	SuccessPrefix string
	ErrorPrefix   string
}

// DefaultTheme is used when no theme is configured.
func DefaultTheme() Theme {
	return Theme{InfoPrefix: "", SuccessPrefix: "✓ ", ErrorPrefix: "✗ "}
}

// Option configures a Runner.
type Option func(*Runner)

// WithPromptDriver overrides the prompt driver used by the runner.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutput redirects tables, notifications and progress output.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithProgressRenderer selects how upload progress is drawn.
func WithProgressRenderer(renderer progress.Renderer) Option {
	return func(r *Runner) {
		if renderer != nil {
			r.progress = renderer
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Runner) {
		r.theme = theme
	}
}

// WithClock sets the time used when checking date bounds while prompting.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}
