package model

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-userwizard/pkg/entity"
)

// ValidationError reports a native constraint violation on a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors groups messages by dotted field path.
type ValidationErrors map[string][]string

// Add appends a message for path.
func (v ValidationErrors) Add(path, message string) {
	v[path] = append(v[path], message)
}

// Fields returns the failing paths in sorted order.
func (v ValidationErrors) Fields() []string {
	out := make([]string, 0, len(v))
	for path := range v {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, path := range v.Fields() {
		parts = append(parts, fmt.Sprintf("%s: %s", path, strings.Join(v[path], "; ")))
	}
	return "model: validation failed: " + strings.Join(parts, ", ")
}

// ErrRequired is the message used for missing required values.
var ErrRequired = errors.New("required")

// Validate checks value against the field's constraints. Derived and disabled
// fields are never validated. File fields expect the slice of staged display
// names and only enforce Required; accept patterns are checked at staging time
// with Accepts.
func (f FieldSpec) Validate(value any, now time.Time) error {
	if !f.Editable() {
		return nil
	}

	switch f.Kind {
	case KindText, KindTextarea:
		s := stringValue(value)
		if strings.TrimSpace(s) == "" {
			return f.requiredErr()
		}
		if f.MaxLength > 0 && len([]rune(s)) > f.MaxLength {
			return f.fail("must be at most %d characters", f.MaxLength)
		}
	case KindDate:
		s := stringValue(value)
		if strings.TrimSpace(s) == "" {
			return f.requiredErr()
		}
		date, err := entity.ParseDate(s)
		if err != nil {
			return f.fail("must be a date (YYYY-MM-DD)")
		}
		if lower, ok, err := ResolveDateBound(f.Min, now); err != nil {
			return err
		} else if ok && date.Before(lower) {
			return f.fail("must be on or after %s", lower.Format(entity.DateLayout))
		}
		if upper, ok, err := ResolveDateBound(f.Max, now); err != nil {
			return err
		} else if ok && date.After(upper) {
			return f.fail("must be on or before %s", upper.Format(entity.DateLayout))
		}
	case KindNumber:
		raw, present := numberText(value)
		if !present {
			return f.requiredErr()
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f.fail("must be a number")
		}
		if f.MaxLength > 0 && len(strings.TrimLeft(raw, "-")) > f.MaxLength {
			return f.fail("must be at most %d digits", f.MaxLength)
		}
		if f.Min != "" {
			if lower, err := strconv.ParseFloat(f.Min, 64); err == nil && n < lower {
				return f.fail("must be at least %s", f.Min)
			}
		}
		if f.Max != "" {
			if upper, err := strconv.ParseFloat(f.Max, 64); err == nil && n > upper {
				return f.fail("must be at most %s", f.Max)
			}
		}
	case KindSelect:
		s := stringValue(value)
		if s == "" {
			return f.requiredErr()
		}
		if !f.hasOption(s) {
			return f.fail("%q is not an allowed option", s)
		}
	case KindMultiSelect:
		values := StringSlice(value)
		if len(values) == 0 {
			return f.requiredErr()
		}
		for _, s := range values {
			if !f.hasOption(s) {
				return f.fail("%q is not an allowed option", s)
			}
		}
	case KindFile:
		if len(StringSlice(value)) == 0 {
			return f.requiredErr()
		}
	default:
		return f.fail("unsupported kind %q", f.Kind)
	}
	return nil
}

// Accepts reports whether a file name satisfies the accept pattern. Patterns
// follow the HTML accept attribute: comma separated extensions (".pdf") or
// MIME types with optional wildcards ("image/*").
func (f FieldSpec) Accepts(name string) bool {
	accept := strings.TrimSpace(f.Accept)
	if accept == "" || accept == "*/*" {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	mimeType := mime.TypeByExtension(ext)
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	for _, token := range strings.Split(accept, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		switch {
		case token == "":
			continue
		case strings.HasPrefix(token, "."):
			if ext == token {
				return true
			}
		case strings.HasSuffix(token, "/*"):
			if mimeType != "" && strings.HasPrefix(mimeType, strings.TrimSuffix(token, "*")) {
				return true
			}
		default:
			if mimeType == token {
				return true
			}
		}
	}
	return false
}

// ResolveDateBound interprets a date bound. Empty bounds report ok=false.
// Relative bounds use the "<n>y" form, e.g. "-18y".
func ResolveDateBound(raw string, now time.Time) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, nil
	}
	if strings.EqualFold(raw, "today") {
		return truncateDay(now), true, nil
	}
	if strings.HasSuffix(raw, "y") {
		years, err := strconv.Atoi(strings.TrimSuffix(raw, "y"))
		if err != nil {
			return time.Time{}, false, fmt.Errorf("model: invalid relative date bound %q", raw)
		}
		return truncateDay(now).AddDate(years, 0, 0), true, nil
	}
	t, err := entity.ParseDate(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("model: invalid date bound %q: %w", raw, err)
	}
	return t, true, nil
}

// StringSlice coerces select and file values into a string slice.
func StringSlice(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

func (f FieldSpec) hasOption(value string) bool {
	if len(f.Options) == 0 {
		return true
	}
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

func (f FieldSpec) requiredErr() error {
	if !f.Required {
		return nil
	}
	return &ValidationError{Field: f.Name, Message: ErrRequired.Error()}
}

func (f FieldSpec) fail(format string, args ...any) error {
	return &ValidationError{Field: f.Name, Message: fmt.Sprintf(format, args...)}
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func numberText(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		trimmed := strings.TrimSpace(v)
		return trimmed, trimmed != ""
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return fmt.Sprint(v), true
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
