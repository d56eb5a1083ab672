package wizard

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-userwizard/pkg/entity"
	"github.com/goliatone/go-userwizard/pkg/media"
	"github.com/goliatone/go-userwizard/pkg/progress"
)

// PayloadValidator checks an assembled user before it is dispatched.
type PayloadValidator interface {
	ValidateUser(ctx context.Context, user entity.User) error
}

// Option configures a Session.
type Option func(*Session)

// WithRegistry shares a progress registry with a display.
func WithRegistry(registry *progress.Registry) Option {
	return func(s *Session) {
		if registry != nil {
			s.registry = registry
		}
	}
}

// WithResolver sets how local references are opened for upload.
func WithResolver(resolver media.Resolver) Option {
	return func(s *Session) {
		if resolver != nil {
			s.resolver = resolver
		}
	}
}

// WithStorageDomains configures which references count as already persisted.
func WithStorageDomains(domains ...string) Option {
	return func(s *Session) {
		s.classifier = media.NewClassifier(domains...)
	}
}

// WithValidator checks payloads against the API schema before dispatch.
func WithValidator(v PayloadValidator) Option {
	return func(s *Session) {
		s.validator = v
	}
}

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithNavigator sets the navigation sink.
func WithNavigator(n Navigator) Option {
	return func(s *Session) {
		if n != nil {
			s.navigator = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the provisional id generator used in create mode.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(s *Session) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func newUUID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
