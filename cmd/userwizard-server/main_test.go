package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/goliatone/go-userwizard/internal/config"
)

func TestBuildLocalBackendServesFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{DB: filepath.Join(dir, "users.db"), IDMinLength: 6},
		Storage: config.StorageConfig{
			Backend: config.BackendLocal,
			Local:   config.LocalStorage{Root: filepath.Join(dir, "uploads"), PublicURL: "http://localhost/files"},
		},
	}

	srv, err := build(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "uploads", "hello.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/hello.txt", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "hi" {
		t.Fatalf("GET /files/hello.txt = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user/all", nil))
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("GET /user/all = %d %q", rec.Code, rec.Body.String())
	}
}

func TestNewBackendRejectsUnknown(t *testing.T) {
	_, err := newBackend(context.Background(), config.StorageConfig{Backend: "ftp"})
	if err == nil || !strings.Contains(err.Error(), "ftp") {
		t.Fatalf("expected unknown backend error, got %v", err)
	}
}

func TestNewBackendRequiresMinioEndpoint(t *testing.T) {
	_, err := newBackend(context.Background(), config.StorageConfig{Backend: config.BackendMinio})
	if err == nil {
		t.Fatal("expected error without endpoint")
	}
}

func TestRunHelp(t *testing.T) {
	var stderr bytes.Buffer
	if err := run(context.Background(), []string{"--help"}, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stderr.String(), "--storage-backend") {
		t.Fatalf("usage missing server flags:\n%s", stderr.String())
	}
}
