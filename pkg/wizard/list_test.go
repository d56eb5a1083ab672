package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-userwizard/pkg/entity"
	"github.com/goliatone/go-userwizard/pkg/transport"
)

func TestListLoadFilters(t *testing.T) {
	entities := newMemoryEntities(
		entity.User{ID: "1", Username: "Alice", Gender: entity.GenderFemale},
		entity.User{ID: "2", Username: "Bob", Gender: entity.GenderMale},
	)
	list, err := NewList(entities, nil, nil)
	if err != nil {
		t.Fatalf("new list: %v", err)
	}
	users, err := list.Load(context.Background(), "ali")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(users) != 1 || users[0].ID != "1" {
		t.Fatalf("unexpected filter result %+v", users)
	}
}

func TestListDeleteNotifies(t *testing.T) {
	entities := newMemoryEntities(entity.User{ID: "1", Username: "Alice"})
	rec := &Recorder{}
	list, _ := NewList(entities, rec, nil)

	if err := list.Delete(context.Background(), "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err := list.Delete(context.Background(), "1")
	if !errors.Is(err, transport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := list.Delete(context.Background(), ""); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}

	want := []Notification{
		{Status: StatusSuccess, Message: MessageDeleted, Dismiss: DefaultDismiss},
		{Status: StatusFailure, Message: MessageDeleteFailed, Dismiss: DefaultDismiss},
	}
	if diff := cmp.Diff(want, rec.Notifications()); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestRoutes(t *testing.T) {
	if EditRoute("42") != "/user/edit/42" {
		t.Fatalf("unexpected edit route %q", EditRoute("42"))
	}
}
