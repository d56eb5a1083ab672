package wizard

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-userwizard/pkg/entity"
	"github.com/goliatone/go-userwizard/pkg/media"
	"github.com/goliatone/go-userwizard/pkg/model"
	"github.com/goliatone/go-userwizard/pkg/transport"
)

const storageDomain = "https://storage.example.com/"

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type memoryEntities struct {
	mu      sync.Mutex
	users   map[string]entity.User
	created []entity.User
	updated []entity.User
	deleted []string
	err     error
}

func newMemoryEntities(users ...entity.User) *memoryEntities {
	m := &memoryEntities{users: map[string]entity.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memoryEntities) List(ctx context.Context) ([]entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []entity.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memoryEntities) Get(ctx context.Context, id string) (entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return entity.User{}, &transport.Error{Op: "get user", StatusCode: 404, Err: errors.New("user not found")}
	}
	return u, nil
}

func (m *memoryEntities) Create(ctx context.Context, user entity.User) (entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return entity.User{}, m.err
	}
	m.created = append(m.created, user)
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryEntities) Update(ctx context.Context, id string, user entity.User) (entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return entity.User{}, m.err
	}
	m.updated = append(m.updated, user)
	m.users[id] = user
	return user, nil
}

func (m *memoryEntities) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[id]; !ok {
		return &transport.Error{Op: "delete user", StatusCode: 404, Err: errors.New("user not found")}
	}
	delete(m.users, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type uploadCall struct {
	Name        string
	Destination string
	Image       bool
	Size        int64
}

type stubUploader struct {
	mu     sync.Mutex
	calls  []uploadCall
	stored map[string]string
	fail   map[string]error
	// before runs ahead of the transfer, letting tests block uploads.
	before func(name string) error
}

func (u *stubUploader) Upload(ctx context.Context, file media.File, destination string, image bool, onProgress transport.ProgressFunc) (string, error) {
	defer file.Body.Close()
	u.mu.Lock()
	u.calls = append(u.calls, uploadCall{Name: file.Name, Destination: destination, Image: image, Size: file.Size})
	failure := u.fail[file.Name]
	before := u.before
	u.mu.Unlock()

	if before != nil {
		if err := before(file.Name); err != nil {
			return "", err
		}
	}

	buf := make([]byte, 4)
	var sent int64
	var body []byte
	for {
		n, err := file.Body.Read(buf)
		if n > 0 {
			body = append(body, buf[:n]...)
			sent += int64(n)
			if onProgress != nil {
				onProgress(sent, file.Size)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	if failure != nil {
		return "", &transport.Error{Op: "upload file", StatusCode: 502, Err: failure}
	}
	url := storageDomain + destination + "/" + file.Name
	u.mu.Lock()
	if u.stored == nil {
		u.stored = map[string]string{}
	}
	u.stored[url] = string(body)
	u.mu.Unlock()
	return url, nil
}

func (u *stubUploader) Stored() map[string]string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]string, len(u.stored))
	for k, v := range u.stored {
		out[k] = v
	}
	return out
}

func (u *stubUploader) Calls() []uploadCall {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]uploadCall(nil), u.calls...)
}

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"cv.pdf":     {Data: []byte("%PDF-1.4 curriculum vitae")},
		"degree.pdf": {Data: []byte("%PDF-1.4 degree certificate")},
		"id.docx":    {Data: []byte("identity document body")},
		"extra.pdf":  {Data: []byte("%PDF-1.4 extra")},
		"me.png":     {Data: []byte("\x89PNG portrait bytes")},
		"a/cv.pdf":   {Data: []byte("%PDF-1.4 resume")},
		"b/cv.pdf":   {Data: []byte("%PDF-1.4 diploma")},
	}
}

type harness struct {
	session  *Session
	entities *memoryEntities
	uploader *stubUploader
	recorder *Recorder
}

func newHarness(t *testing.T, users []entity.User, opts ...Option) harness {
	t.Helper()
	h := harness{
		entities: newMemoryEntities(users...),
		uploader: &stubUploader{},
		recorder: &Recorder{},
	}
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() (string, error) { return "prov-1", nil }),
		WithResolver(media.FSResolver{FS: testFiles()}),
		WithStorageDomains(storageDomain),
		WithNotifier(h.recorder),
		WithNavigator(h.recorder),
	}
	session, err := New(model.UserForm(), h.entities, h.uploader, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	h.session = session
	return h
}

func fillPersonal(t *testing.T, s *Session) {
	t.Helper()
	for path, value := range map[string]any{
		FieldUsername: "Alice",
		FieldDOB:      "2000-06-15",
		FieldGender:   "FEMALE",
	} {
		if err := s.UpdateField(path, value); err != nil {
			t.Fatalf("update %s: %v", path, err)
		}
	}
}
