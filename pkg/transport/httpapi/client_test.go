package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-userwizard/pkg/entity"
	"github.com/goliatone/go-userwizard/pkg/media"
	"github.com/goliatone/go-userwizard/pkg/transport"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(srv.URL+"/api", opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty base url")
	}
	if _, err := New("/api"); err == nil {
		t.Fatalf("expected error for relative base url")
	}
}

func TestEntityRoutes(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/all", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()
		_ = json.NewEncoder(w).Encode([]entity.User{{ID: "1", Username: "Alice"}})
	})
	mux.HandleFunc("/api/user/add", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()
		var u entity.User
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		u.ID = "new"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(u)
	})
	mux.HandleFunc("/api/user/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()
		id := strings.TrimPrefix(r.URL.Path, "/api/user/")
		if id == "missing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"user not found"}`))
			return
		}
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPut:
			var u entity.User
			_ = json.NewDecoder(r.Body).Decode(&u)
			u.ID = id
			_ = json.NewEncoder(w).Encode(u)
		default:
			_ = json.NewEncoder(w).Encode(entity.User{ID: id, Username: "Bob"})
		}
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	users, err := client.List(ctx)
	if err != nil || len(users) != 1 || users[0].Username != "Alice" {
		t.Fatalf("list: %v %+v", err, users)
	}
	created, err := client.Create(ctx, entity.User{Username: "Carol"})
	if err != nil || created.ID != "new" || created.Username != "Carol" {
		t.Fatalf("create: %v %+v", err, created)
	}
	got, err := client.Get(ctx, "42")
	if err != nil || got.ID != "42" {
		t.Fatalf("get: %v %+v", err, got)
	}
	updated, err := client.Update(ctx, "42", entity.User{Username: "Dave"})
	if err != nil || updated.ID != "42" || updated.Username != "Dave" {
		t.Fatalf("update: %v %+v", err, updated)
	}
	if err := client.Delete(ctx, "42"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err = client.Get(ctx, "missing")
	if !errors.Is(err, transport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var terr *transport.Error
	if !errors.As(err, &terr) || terr.StatusCode != http.StatusNotFound || terr.Err.Error() != "user not found" {
		t.Fatalf("unexpected transport error: %#v", err)
	}

	want := []string{
		"GET /api/user/all",
		"POST /api/user/add",
		"GET /api/user/42",
		"PUT /api/user/42",
		"DELETE /api/user/42",
		"GET /api/user/missing",
	}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Fatalf("routes mismatch (-want +got):\n%s", diff)
	}
}

func TestServerErrorIsTransportError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	_, err := client.List(context.Background())
	var terr *transport.Error
	if !errors.As(err, &terr) || terr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 transport error, got %v", err)
	}
	if errors.Is(err, transport.ErrNotFound) {
		t.Fatalf("500 must not match ErrNotFound")
	}
}

func TestUploadStreamsMultipart(t *testing.T) {
	content := strings.Repeat("x", 100_000)
	var gotLength int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/file-upload/upload/true" {
			http.Error(w, "bad path "+r.URL.Path, http.StatusNotFound)
			return
		}
		gotLength = r.ContentLength
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != content || header.Filename != "me.png" || header.Header.Get("Content-Type") != "image/png" {
			http.Error(w, "bad file", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode("https://storage.example.com/" + r.FormValue("folderName") + "/me.png")
	}))

	var calls []int64
	url, err := client.Upload(context.Background(), media.File{
		Name:        "me.png",
		Size:        int64(len(content)),
		ContentType: "image/png",
		Body:        io.NopCloser(strings.NewReader(content)),
	}, "42/photo", true, func(sent, total int64) {
		if total != int64(len(content)) {
			t.Errorf("unexpected total %d", total)
		}
		calls = append(calls, sent)
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "https://storage.example.com/42/photo/me.png" {
		t.Fatalf("unexpected url %q", url)
	}
	if len(calls) == 0 || calls[len(calls)-1] != int64(len(content)) {
		t.Fatalf("progress did not reach the full size: %v", calls)
	}
	for i := 1; i < len(calls); i++ {
		if calls[i] < calls[i-1] {
			t.Fatalf("progress went backwards: %v", calls)
		}
	}
	if gotLength <= int64(len(content)) {
		t.Fatalf("expected exact content length larger than the file, got %d", gotLength)
	}
}

// slowReader yields one chunk per read after a pause.
type slowReader struct {
	chunks []string
	pause  time.Duration
}

func (r *slowReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	time.Sleep(r.pause)
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func TestTimeoutBoundsEntityCallsNotUploads(t *testing.T) {
	const timeout = 50 * time.Millisecond
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/file-upload/") {
			file, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			defer file.Close()
			data, _ := io.ReadAll(file)
			_ = json.NewEncoder(w).Encode("https://storage.example.com/" + string(data))
			return
		}
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
		_ = json.NewEncoder(w).Encode([]entity.User{})
	}), WithTimeout(timeout))

	chunks := []string{"sl", "ow", "-u", "pl", "oa", "d"}
	url, err := client.Upload(context.Background(), media.File{
		Name: "big.pdf",
		Size: int64(len(strings.Join(chunks, ""))),
		Body: io.NopCloser(&slowReader{chunks: chunks, pause: 2 * timeout / 5}),
	}, "42/document", false, nil)
	if err != nil {
		t.Fatalf("upload longer than the timeout failed: %v", err)
	}
	if url != "https://storage.example.com/slow-upload" {
		t.Fatalf("unexpected url %q", url)
	}

	_, err = client.List(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected entity call to time out, got %v", err)
	}
}

func TestUploadFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		http.Error(w, "storage down", http.StatusBadGateway)
	}))
	_, err := client.Upload(context.Background(), media.File{
		Name: "cv.pdf",
		Size: 3,
		Body: io.NopCloser(strings.NewReader("pdf")),
	}, "42/document", false, nil)
	var terr *transport.Error
	if !errors.As(err, &terr) || terr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 transport error, got %v", err)
	}
}

func TestParseLocation(t *testing.T) {
	cases := map[string]string{
		"https://s/x":           "https://s/x",
		"  https://s/y\n":       "https://s/y",
		`"https://s/z"`:         "https://s/z",
		`{"url":"https://s/w"}`: "https://s/w",
	}
	for in, want := range cases {
		got, err := parseLocation([]byte(in))
		if err != nil || got != want {
			t.Fatalf("parseLocation(%q) = %q, %v", in, got, err)
		}
	}
	for _, bad := range []string{"", "{}", `"unterminated`} {
		if _, err := parseLocation([]byte(bad)); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
