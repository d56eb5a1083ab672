package model

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store keeps the forms parsed from definition documents. It is safe for
// concurrent readers when treated as immutable after construction.
type Store struct {
	forms map[string]Form
}

type documentFile struct {
	Forms map[string]Form `json:"forms" yaml:"forms"`
}

// LoadFS walks the provided filesystem and parses JSON/YAML form definition
// files. When fsys is nil or holds no definitions, the returned store is empty.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{forms: make(map[string]Form)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("model: read %s: %w", path, err)
		}

		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}

		for id, raw := range doc.Forms {
			id = strings.TrimSpace(id)
			if id == "" {
				return fmt.Errorf("model: file %s defines an empty form id", path)
			}
			if _, exists := store.forms[id]; exists {
				return fmt.Errorf("model: duplicate form %q (file %s)", id, path)
			}
			form, err := normaliseForm(raw, id, path)
			if err != nil {
				return err
			}
			store.forms[id] = form
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Form returns the definition registered under id.
func (s *Store) Form(id string) (Form, bool) {
	if s == nil {
		return Form{}, false
	}
	form, ok := s.forms[id]
	return form, ok
}

// IDs lists the loaded form identifiers in sorted order.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.forms))
	for id := range s.forms {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether the store holds any forms.
func (s *Store) Empty() bool {
	return s == nil || len(s.forms) == 0
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("model: file %s is empty", source)
	}
	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("model: parse %s: %w", source, err)
	}
	return doc, nil
}

func normaliseForm(raw Form, id, source string) (Form, error) {
	form := raw
	form.ID = id
	if len(raw.Sections) == 0 {
		return Form{}, fmt.Errorf("model: form %q (file %s) has no sections", id, source)
	}
	if raw.MaxFilesPerField < 0 {
		return Form{}, fmt.Errorf("model: form %q (file %s) has a negative maxFilesPerField", id, source)
	}

	form.Sections = make([]Section, len(raw.Sections))
	keys := make(map[string]struct{}, len(raw.Sections))
	for i, section := range raw.Sections {
		section.Key = strings.TrimSpace(section.Key)
		if section.Key == "" {
			return Form{}, fmt.Errorf("model: form %q (file %s) section %d has an empty key", id, source, i)
		}
		if _, dup := keys[section.Key]; dup {
			return Form{}, fmt.Errorf("model: form %q (file %s) defines duplicate section %q", id, source, section.Key)
		}
		keys[section.Key] = struct{}{}

		fields := make([]FieldSpec, len(section.Fields))
		names := make(map[string]struct{}, len(section.Fields))
		for j, field := range section.Fields {
			field.Name = strings.TrimSpace(field.Name)
			if field.Name == "" {
				return Form{}, fmt.Errorf("model: form %q section %q field %d has an empty name", id, section.Key, j)
			}
			if _, dup := names[field.Name]; dup {
				return Form{}, fmt.Errorf("model: form %q section %q defines duplicate field %q", id, section.Key, field.Name)
			}
			names[field.Name] = struct{}{}
			if field.Kind == "" {
				field.Kind = KindText
			}
			if !field.Kind.Valid() {
				return Form{}, fmt.Errorf("model: form %q field %q has unknown kind %q", id, field.Name, field.Kind)
			}
			if field.Kind.HasOptions() && len(field.Options) == 0 {
				return Form{}, fmt.Errorf("model: form %q field %q requires options", id, field.Name)
			}
			if field.Kind == KindFile && section.Repeatable {
				return Form{}, fmt.Errorf("model: form %q field %q: file fields are not supported in repeatable sections", id, field.Name)
			}
			field.Options = append([]Option(nil), field.Options...)
			fields[j] = field
		}
		section.Fields = fields
		form.Sections[i] = section
	}
	return form, nil
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
