package wizard

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-userwizard/pkg/entity"
	"github.com/goliatone/go-userwizard/pkg/media"
	"github.com/goliatone/go-userwizard/pkg/progress"
)

type stagedDocument struct {
	field    string
	document entity.Document
}

// Submit runs the submission pipeline: persisted entries short-circuit,
// local entries upload concurrently under <id>/<field>, the progress
// registry is cleared once every upload settled, and the assembled user is
// created or updated. On success the session notifies, navigates to the list
// and resets. On failure it notifies once and keeps its staged state so the
// whole submission can be retried.
func (s *Session) Submit(ctx context.Context) (entity.User, error) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return entity.User{}, ErrNotInitialized
	}
	if s.pending {
		s.mu.Unlock()
		return entity.User{}, ErrSubmitPending
	}
	s.pending = true
	mode, id := s.mode, s.id
	staged := append([]media.Staged(nil), s.staged...)
	values := newValues(s.values.Map())
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pending = false
		s.mu.Unlock()
	}()

	saved, err := s.run(ctx, mode, id, staged, values)
	if err != nil {
		s.registry.Clear()
		s.logger.Error("submission failed",
			zap.Stringer("mode", mode),
			zap.String("id", id),
			zap.Error(err),
		)
		s.notifier.Notify(Notification{Status: StatusFailure, Message: MessageFailed, Dismiss: DefaultDismiss})
		return entity.User{}, err
	}

	message := MessageCreated
	if mode == ModeEdit {
		message = MessageUpdated
	}
	s.logger.Info("submission completed",
		zap.Stringer("mode", mode),
		zap.String("id", id),
		zap.Int("files", len(staged)),
	)

	s.mu.Lock()
	s.reset(mode)
	s.mu.Unlock()

	s.notifier.Notify(Notification{Status: StatusSuccess, Message: message, Dismiss: DefaultDismiss})
	s.navigator.Navigate(RouteList)
	return saved, nil
}

func (s *Session) run(ctx context.Context, mode Mode, id string, staged []media.Staged, values *Values) (entity.User, error) {
	today := entity.Today(s.now())

	docs, err := s.resolveStaged(ctx, id, staged, today)
	if err != nil {
		return entity.User{}, err
	}

	user, err := assembleUser(id, values, docs, today)
	if err != nil {
		return entity.User{}, err
	}
	if s.validator != nil {
		if err := s.validator.ValidateUser(ctx, user); err != nil {
			return entity.User{}, fmt.Errorf("wizard: invalid payload: %w", err)
		}
	}

	if mode == ModeEdit {
		saved, err := s.entities.Update(ctx, id, user)
		if err != nil {
			return entity.User{}, fmt.Errorf("wizard: update user %s: %w", id, err)
		}
		return saved, nil
	}
	saved, err := s.entities.Create(ctx, user)
	if err != nil {
		return entity.User{}, fmt.Errorf("wizard: create user: %w", err)
	}
	return saved, nil
}

// resolveStaged turns every staged entry into a persisted document. Uploads
// run concurrently and are all waited for, even after one fails; the first
// error is returned. The registry is cleared once they have settled.
func (s *Session) resolveStaged(ctx context.Context, id string, staged []media.Staged, today string) ([]stagedDocument, error) {
	docs := make([]stagedDocument, len(staged))

	for i, entry := range staged {
		if entry.State != media.StatePersisted {
			continue
		}
		doc := entry.Document
		doc.Name = entry.Name
		if doc.UploadedAt == "" {
			doc.UploadedAt = today
		}
		docs[i] = stagedDocument{field: entry.Field, document: doc}
	}

	var g errgroup.Group
	for i, entry := range staged {
		if entry.State == media.StatePersisted {
			continue
		}
		g.Go(func() error {
			doc, err := s.upload(ctx, id, entry, today)
			if err != nil {
				return err
			}
			docs[i] = stagedDocument{field: entry.Field, document: doc}
			return nil
		})
	}
	err := g.Wait()
	s.registry.Clear()
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Session) upload(ctx context.Context, id string, entry media.Staged, today string) (entity.Document, error) {
	if entry.Local == "" {
		return entity.Document{Name: entry.Name, UploadedAt: today}, nil
	}

	file, err := s.resolver.Open(ctx, entry.Local)
	if err != nil {
		return entity.Document{}, fmt.Errorf("wizard: open %s: %w", entry.Name, err)
	}
	source := progress.FileInfo{Name: file.Name, Size: file.Size, ContentType: file.ContentType}
	file.Name = entry.UploadName()
	s.registry.Update(progress.Entry{
		Identifier: entry.Name,
		BytesTotal: file.Size,
		Source:     source,
		Media:      entry,
	})

	image := false
	if spec, ok := s.fileField(entry.Field); ok {
		image = spec.Image
	}
	destination := id + "/" + entry.Field

	url, err := s.uploader.Upload(ctx, file, destination, image, func(sent, total int64) {
		s.registry.Update(progress.Entry{
			Identifier: entry.Name,
			BytesSent:  sent,
			BytesTotal: total,
			Source:     source,
			Media:      entry,
		})
	})
	if err != nil {
		return entity.Document{}, fmt.Errorf("wizard: upload %s: %w", entry.Name, err)
	}
	s.logger.Debug("file uploaded",
		zap.String("name", entry.Name),
		zap.String("destination", destination),
		zap.String("url", url),
	)
	return entity.Document{Name: entry.Name, URL: url, UploadedAt: today}, nil
}
