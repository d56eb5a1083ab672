package wizard

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-userwizard/pkg/entity"
	"github.com/goliatone/go-userwizard/pkg/transport"
)

// List backs the user listing view.
type List struct {
	entities transport.Entities
	notifier Notifier
	logger   *zap.Logger
}

// NewList creates a listing over entities. A nil notifier or logger is
// replaced by a no-op.
func NewList(entities transport.Entities, notifier Notifier, logger *zap.Logger) (*List, error) {
	if entities == nil {
		return nil, errors.New("wizard: entity transport is required")
	}
	if notifier == nil {
		notifier = discard{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &List{entities: entities, notifier: notifier, logger: logger}, nil
}

// Load fetches every user and keeps those matching query.
func (l *List) Load(ctx context.Context, query string) ([]entity.User, error) {
	users, err := l.entities.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("wizard: list users: %w", err)
	}
	return entity.Filter(users, query), nil
}

// Delete removes a user and reports the outcome as a notification.
func (l *List) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	if err := l.entities.Delete(ctx, id); err != nil {
		l.logger.Error("delete failed", zap.String("id", id), zap.Error(err))
		l.notifier.Notify(Notification{Status: StatusFailure, Message: MessageDeleteFailed, Dismiss: DefaultDismiss})
		return fmt.Errorf("wizard: delete user %s: %w", id, err)
	}
	l.notifier.Notify(Notification{Status: StatusSuccess, Message: MessageDeleted, Dismiss: DefaultDismiss})
	return nil
}
