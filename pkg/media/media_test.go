package media

import (
	"context"
	"errors"
	"io"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-userwizard/pkg/entity"
)

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"my file.pdf":  "my-file-pdf",
		"résumé 2.doc": "r-sum--2-doc",
		"plain":        "plain",
		"":             "",
	}
	for in, want := range cases {
		if got := SanitizeName(in); got != want {
			t.Fatalf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClassifier(t *testing.T) {
	c := NewClassifier("https://drive.google.com/file/", "storage.example.com", " ")

	cases := []struct {
		ref  string
		want bool
	}{
		{"https://drive.google.com/file/d/abc", true},
		{"https://drive.google.com/other", false},
		{"https://storage.example.com/u/1/photo.png", true},
		{"https://cdn.storage.example.com/x", true},
		{"https://evil.com/storage.example.com", false},
		{"/tmp/photo.png", false},
		{"", false},
	}
	for _, tt := range cases {
		if got := c.IsPersisted(tt.ref); got != tt.want {
			t.Fatalf("IsPersisted(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}

	if (Classifier{}).IsPersisted("https://storage.example.com/x") {
		t.Fatalf("empty classifier must not classify")
	}
}

func TestClassifierStage(t *testing.T) {
	c := NewClassifier("storage.example.com")

	persisted := c.Stage("photo", "https://storage.example.com/42/photo.png", "me.png", "2024-06-15")
	if persisted.State != StatePersisted {
		t.Fatalf("expected persisted state")
	}
	want := entity.Document{Name: "me-png", URL: "https://storage.example.com/42/photo.png", UploadedAt: "2024-06-15"}
	if persisted.Document != want {
		t.Fatalf("document mismatch: %+v", persisted.Document)
	}

	local := c.Stage("document", "/tmp/cv.pdf", "cv.pdf", "2024-06-15")
	if local.State != StateLocal || local.Ref() != "/tmp/cv.pdf" || local.Name != "cv-pdf" {
		t.Fatalf("unexpected local entry: %+v", local)
	}
}

func TestNewPersistedDefaultsName(t *testing.T) {
	s := NewPersisted("photo", entity.Document{URL: "https://x/y"})
	if s.Name != "photo" || s.Document.Name != "photo" {
		t.Fatalf("expected field name fallback, got %+v", s)
	}
}

func TestFSResolver(t *testing.T) {
	r := FSResolver{FS: fstest.MapFS{"docs/cv.pdf": {Data: []byte("%PDF-1.4")}}}

	file, err := r.Open(context.Background(), "docs/cv.pdf")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Body.Close()
	data, _ := io.ReadAll(file.Body)
	if string(data) != "%PDF-1.4" || file.Size != 8 || file.Name != "cv.pdf" || file.ContentType != "application/pdf" {
		t.Fatalf("unexpected file: %+v %q", file, data)
	}

	if _, err := r.Open(context.Background(), ""); !errors.Is(err, ErrEmptyReference) {
		t.Fatalf("expected ErrEmptyReference, got %v", err)
	}
	if _, err := r.Open(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestCategoryOf(t *testing.T) {
	cases := map[string]Category{
		"cv.PDF":   CategoryFile,
		"me.jpeg":  CategoryImage,
		"cv-docx":  CategoryFile,
		"song.mp3": CategoryOther,
	}
	for name, want := range cases {
		if got := CategoryOf(name); got != want {
			t.Fatalf("CategoryOf(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestStagedUploadName(t *testing.T) {
	cases := []struct {
		ref, name string
		want      string
	}{
		{"docs/cv.pdf", "cv.pdf", "cv.pdf"},
		{"a/cv.pdf", "Resume.pdf", "Resume.pdf"},
		{"b/cv.pdf", "Degree", "Degree.pdf"},
		{"scan.PNG", "scan.png", "scan.png"},
		{`C:\docs\id.docx`, "passport", "passport.docx"},
		{"notes", "notes", "notes"},
		{"odd.tar gz", "odd", "odd"},
	}
	for _, tt := range cases {
		if got := NewLocal("document", tt.ref, tt.name).UploadName(); got != tt.want {
			t.Fatalf("UploadName(%q, %q) = %q, want %q", tt.ref, tt.name, got, tt.want)
		}
	}
	persisted := NewPersisted("photo", entity.Document{Name: "me-png", URL: "https://cdn/me.png"})
	if got := persisted.UploadName(); got != "me-png" {
		t.Fatalf("persisted UploadName = %q", got)
	}
}
