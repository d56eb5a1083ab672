package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-userwizard/pkg/entity"
	"github.com/goliatone/go-userwizard/pkg/media"
	"github.com/goliatone/go-userwizard/pkg/model"
	"github.com/goliatone/go-userwizard/pkg/storage"
	"github.com/goliatone/go-userwizard/pkg/transport"
	"github.com/goliatone/go-userwizard/pkg/transport/httpapi"
	"github.com/goliatone/go-userwizard/pkg/wizard"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	url    string
	client *httpapi.Client
	repo   *Repository
	root   string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := OpenSQLite(filepath.Join(dir, "users.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	repo, err := NewRepository(db, 6)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	root := filepath.Join(dir, "files")
	local, err := storage.NewLocal(root, "http://placeholder/files")
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}

	ids := 0
	srv, err := New(repo, local,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() (string, error) {
			ids++
			return "srv-" + string(rune('0'+ids)), nil
		}),
		WithStatic("/files", root),
	)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	local.PublicURL = ts.URL + "/files"

	client, err := httpapi.New(ts.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return fixture{url: ts.URL, client: client, repo: repo, root: root}
}

func TestUserLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.client.Create(ctx, entity.User{
		Username:  "  Alice ",
		DOB:       "2000-06-16",
		Age:       99,
		Gender:    entity.GenderFemale,
		Languages: []string{"English", "Hindi"},
		Addresses: []entity.Address{{Type: "CURRENT", City: "Pune", Pincode: 411001}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "srv-1" {
		t.Fatalf("id = %q, want generated id", created.ID)
	}
	if len(created.UserID) < 6 {
		t.Fatalf("userId %q shorter than configured minimum", created.UserID)
	}
	if created.Age != 23 {
		t.Fatalf("age = %d, want server-derived 23", created.Age)
	}
	if created.Username != "Alice" || created.CreatedAt != "2024-06-15" {
		t.Fatalf("unexpected created user %+v", created)
	}

	got, err := f.client.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(created, got); diff != "" {
		t.Fatalf("get mismatch (-want +got):\n%s", diff)
	}

	got.Username = "Alice B"
	got.UserID = ""
	got.CreatedAt = "1999-01-01"
	updated, err := f.client.Update(ctx, created.ID, got)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Username != "Alice B" || updated.UserID != created.UserID || updated.CreatedAt != created.CreatedAt {
		t.Fatalf("update must keep userId and createdAt: %+v", updated)
	}

	users, err := f.client.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 || users[0].Username != "Alice B" {
		t.Fatalf("unexpected list %+v", users)
	}

	if err := f.client.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.client.Get(ctx, created.ID); !errors.Is(err, transport.ErrNotFound) {
		t.Fatalf("get after delete = %v, want ErrNotFound", err)
	}
	if err := f.client.Delete(ctx, created.ID); !errors.Is(err, transport.ErrNotFound) {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}
}

func TestCreateKeepsClientID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := entity.User{ID: "client-7", Username: "Bob", DOB: "1990-01-01", Gender: entity.GenderMale}

	created, err := f.client.Create(ctx, user)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "client-7" {
		t.Fatalf("id = %q, want client id", created.ID)
	}

	_, err = f.client.Create(ctx, user)
	var terr *transport.Error
	if !errors.As(err, &terr) || terr.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate create = %v, want 409", err)
	}
}

func TestCreateRejectsInvalidPayload(t *testing.T) {
	f := newFixture(t)
	cases := map[string]entity.User{
		"missing username": {DOB: "1990-01-01", Gender: entity.GenderMale},
		"bad dob":          {Username: "x", DOB: "01/01/1990", Gender: entity.GenderMale},
		"bad gender":       {Username: "x", DOB: "1990-01-01", Gender: "UNKNOWN"},
		"unnamed document": {Username: "x", DOB: "1990-01-01", Gender: entity.GenderMale, Documents: []entity.Document{{URL: "http://a.test/x"}}},
	}
	for name, user := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.client.Create(context.Background(), user)
			var terr *transport.Error
			if !errors.As(err, &terr) || terr.StatusCode != http.StatusBadRequest {
				t.Fatalf("create = %v, want 400", err)
			}
			if !strings.Contains(terr.Error(), "invalid") {
				t.Fatalf("error message %q does not explain the failure", terr.Error())
			}
		})
	}
}

func TestUpdateMissingUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.client.Update(context.Background(), "nope", entity.User{Username: "x", DOB: "1990-01-01", Gender: entity.GenderOther})
	if !errors.Is(err, transport.ErrNotFound) {
		t.Fatalf("update = %v, want ErrNotFound", err)
	}
}

func TestUploadStoresAndServesFile(t *testing.T) {
	f := newFixture(t)
	body := "portrait bytes"
	var progressed int64
	url, err := f.client.Upload(context.Background(), media.File{
		Name:        "me.png",
		Size:        int64(len(body)),
		ContentType: "image/png",
		Body:        io.NopCloser(strings.NewReader(body)),
	}, "u1/photo", true, func(sent, total int64) { progressed = sent })
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if want := f.url + "/files/u1/photo/me.png"; url != want {
		t.Fatalf("url = %q, want %q", url, want)
	}
	if progressed != int64(len(body)) {
		t.Fatalf("progress reported %d bytes", progressed)
	}

	onDisk, err := os.ReadFile(filepath.Join(f.root, "u1", "photo", "me.png"))
	if err != nil || string(onDisk) != body {
		t.Fatalf("stored file = %q, %v", onDisk, err)
	}

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("fetch stored file: %v", err)
	}
	defer resp.Body.Close()
	served, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(served) != body {
		t.Fatalf("served %d %q", resp.StatusCode, served)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	f := newFixture(t)
	_, err := f.client.Upload(context.Background(), media.File{
		Name: "cv.pdf",
		Size: 3,
		Body: io.NopCloser(strings.NewReader("pdf")),
	}, "u1/photo", true, nil)
	var terr *transport.Error
	if !errors.As(err, &terr) || terr.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("upload = %v, want 415", err)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	if _, err := f.client.List(context.Background()); err != nil {
		t.Fatalf("list: %v", err)
	}
	resp, err := http.Get(f.url + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(raw), "userwizard_requests_total") {
		t.Fatalf("metrics output missing request counter:\n%s", raw)
	}
}

func newServerSession(t *testing.T, f fixture, files fstest.MapFS) (*wizard.Session, *wizard.Recorder) {
	t.Helper()
	recorder := &wizard.Recorder{}
	session, err := wizard.New(model.UserForm(), f.client, f.client,
		wizard.WithClock(func() time.Time { return fixedNow }),
		wizard.WithIDGenerator(func() (string, error) { return "prov-1", nil }),
		wizard.WithResolver(media.FSResolver{FS: files}),
		wizard.WithStorageDomains(f.url+"/files"),
		wizard.WithNotifier(recorder),
		wizard.WithNavigator(recorder),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := session.Initialize(context.Background(), wizard.ModeCreate, ""); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for path, value := range map[string]any{
		wizard.FieldUsername: "Carol",
		wizard.FieldDOB:      "1995-03-01",
		wizard.FieldGender:   "OTHER",
	} {
		if err := session.UpdateField(path, value); err != nil {
			t.Fatalf("update %s: %v", path, err)
		}
	}
	return session, recorder
}

func TestWizardSubmitsAgainstServer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, recorder := newServerSession(t, f, fstest.MapFS{
		"cv.pdf": {Data: []byte("%PDF-1.4 curriculum vitae")},
		"me.png": {Data: []byte("\x89PNG portrait")},
	})
	if _, err := session.StageFile(wizard.FieldDocument, "cv.pdf", ""); err != nil {
		t.Fatalf("stage document: %v", err)
	}
	if _, err := session.StageFile(wizard.FieldPhoto, "me.png", ""); err != nil {
		t.Fatalf("stage photo: %v", err)
	}
	for session.Step() < session.Steps()-1 {
		if err := session.Advance(ctx); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if err := session.Advance(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	stored, err := f.repo.Get(ctx, "prov-1")
	if err != nil {
		t.Fatalf("stored user: %v", err)
	}
	if len(stored.Documents) != 1 || stored.Documents[0].URL != f.url+"/files/prov-1/document/cv.pdf" {
		t.Fatalf("unexpected documents %+v", stored.Documents)
	}
	if stored.Photo == nil || stored.Photo.URL != f.url+"/files/prov-1/photo/me.png" {
		t.Fatalf("unexpected photo %+v", stored.Photo)
	}
	if stored.Age != 29 {
		t.Fatalf("age = %d, want 29", stored.Age)
	}
	if diff := cmp.Diff([]wizard.Route{wizard.RouteList}, recorder.Routes()); diff != "" {
		t.Fatalf("routes mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(f.root, "prov-1", "document", "cv.pdf")); err != nil {
		t.Fatalf("document not stored: %v", err)
	}
}

func TestWizardKeepsSameBasenameUploadsApart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, _ := newServerSession(t, f, fstest.MapFS{
		"a/cv.pdf": {Data: []byte("%PDF-1.4 resume")},
		"b/cv.pdf": {Data: []byte("%PDF-1.4 diploma")},
	})
	if _, err := session.StageFile(wizard.FieldDocument, "a/cv.pdf", "Resume.pdf"); err != nil {
		t.Fatalf("stage resume: %v", err)
	}
	if _, err := session.StageFile(wizard.FieldDocument, "b/cv.pdf", "Degree.pdf"); err != nil {
		t.Fatalf("stage degree: %v", err)
	}
	if _, err := session.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	stored, err := f.repo.Get(ctx, "prov-1")
	if err != nil {
		t.Fatalf("stored user: %v", err)
	}
	var urls []string
	for _, doc := range stored.Documents {
		urls = append(urls, doc.URL)
	}
	want := []string{
		f.url + "/files/prov-1/document/Resume.pdf",
		f.url + "/files/prov-1/document/Degree.pdf",
	}
	if diff := cmp.Diff(want, urls); diff != "" {
		t.Fatalf("document urls mismatch (-want +got):\n%s", diff)
	}
	for name, body := range map[string]string{"Resume.pdf": "%PDF-1.4 resume", "Degree.pdf": "%PDF-1.4 diploma"} {
		got, err := os.ReadFile(filepath.Join(f.root, "prov-1", "document", name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != body {
			t.Fatalf("%s = %q, want %q", name, got, body)
		}
	}
}
