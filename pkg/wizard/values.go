package wizard

import (
	"fmt"
	"strconv"
	"strings"
)

// Values holds form input keyed by dotted paths. Repeatable sections are
// stored as []any of map[string]any entries, so "addresses.1.city" addresses
// the city of the second address.
type Values struct {
	data map[string]any
}

func newValues(seed map[string]any) *Values {
	return &Values{data: cloneMap(seed)}
}

// Get resolves a dotted path.
func (v *Values) Get(path string) (any, bool) {
	if v == nil || path == "" {
		return nil, false
	}
	var current any = v.data
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// String returns the value at path formatted as text, or "" when unset.
func (v *Values) String(path string) string {
	value, ok := v.Get(path)
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// Set writes value at path. Top-level keys are created on demand; entries of
// repeatable sequences must already exist.
func (v *Values) Set(path string, value any) error {
	segments := strings.Split(path, ".")
	if path == "" {
		return fmt.Errorf("wizard: empty value path")
	}
	var current any = v.data
	for i, segment := range segments {
		last := i == len(segments)-1
		switch node := current.(type) {
		case map[string]any:
			if last {
				node[segment] = value
				return nil
			}
			next, ok := node[segment]
			if !ok {
				return fmt.Errorf("wizard: no value container at %q", strings.Join(segments[:i+1], "."))
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return fmt.Errorf("%w: %q", ErrEntryOutOfRange, strings.Join(segments[:i+1], "."))
			}
			if last {
				node[idx] = value
				return nil
			}
			current = node[idx]
		default:
			return fmt.Errorf("wizard: cannot descend into %q", strings.Join(segments[:i], "."))
		}
	}
	return nil
}

// Delete removes a top-level key.
func (v *Values) Delete(key string) {
	delete(v.data, key)
}

// Entries returns the repeatable sequence stored under key.
func (v *Values) Entries(key string) []any {
	entries, _ := v.data[key].([]any)
	return entries
}

func (v *Values) appendEntry(key string) int {
	entries := append(v.Entries(key), map[string]any{})
	v.data[key] = entries
	return len(entries) - 1
}

func (v *Values) removeEntry(key string, idx int) {
	entries := v.Entries(key)
	out := make([]any, 0, len(entries)-1)
	out = append(out, entries[:idx]...)
	out = append(out, entries[idx+1:]...)
	v.data[key] = out
}

// Map returns a deep copy of the stored values.
func (v *Values) Map() map[string]any {
	if v == nil {
		return map[string]any{}
	}
	return cloneMap(v.data)
}

func cloneMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, value := range src {
		out[k] = deepCopy(value)
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneMap(typed)
	case []any:
		clone := make([]any, len(typed))
		for i, item := range typed {
			clone[i] = deepCopy(item)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}
