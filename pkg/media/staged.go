package media

import (
	"path"
	"strings"
	"unicode"

	"github.com/goliatone/go-userwizard/pkg/entity"
)

// State tags how a staged entry will be resolved on submit.
type State int

const (
	// StateLocal entries are uploaded on submit.
	StateLocal State = iota
	// StatePersisted entries already carry a storage URL and skip upload.
	StatePersisted
)

func (s State) String() string {
	switch s {
	case StatePersisted:
		return "persisted"
	default:
		return "local"
	}
}

// Staged is a file held in memory until submission.
type Staged struct {
	Name  string
	Field string
	State State
	// Local is the reference resolved into file content on upload. An empty
	// reference means no file was provided.
	Local string
	// Document is set for persisted entries.
	Document entity.Document
}

// Ref returns the underlying reference: the local path or the storage URL.
func (s Staged) Ref() string {
	if s.State == StatePersisted {
		return s.Document.URL
	}
	return s.Local
}

// UploadName is the object name a local entry is stored under: the display
// name carrying the reference's extension. A display name that already ends
// in the sanitised extension ("cv-pdf") has that suffix turned back into it.
func (s Staged) UploadName() string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(s.Local, "\\", "/")))
	if s.State != StateLocal || len(ext) < 2 || SanitizeName(ext[1:]) != ext[1:] {
		return s.Name
	}
	suffix := "-" + ext[1:]
	if n := len(s.Name) - len(suffix); n > 0 && strings.EqualFold(s.Name[n:], suffix) {
		return s.Name[:n] + ext
	}
	return s.Name + ext
}

// NewLocal stages a reference that still needs uploading.
func NewLocal(field, ref, name string) Staged {
	return Staged{
		Name:  SanitizeName(name),
		Field: field,
		State: StateLocal,
		Local: ref,
	}
}

// NewPersisted stages an already-uploaded document.
func NewPersisted(field string, doc entity.Document) Staged {
	name := doc.Name
	if name == "" {
		name = field
	}
	doc.Name = name
	return Staged{
		Name:     name,
		Field:    field,
		State:    StatePersisted,
		Document: doc,
	}
}

// SanitizeName replaces every rune that is not an ASCII letter or digit with
// a hyphen.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return '-'
	}, name)
}
