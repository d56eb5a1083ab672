// Package validation checks assembled user payloads against the API's
// OpenAPI description before they are sent to the backend.
package validation

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-userwizard/pkg/entity"
)

//go:embed openapi/userapi.yaml
var embedded embed.FS

// EmbeddedDocument is the path of the bundled API description.
const EmbeddedDocument = "openapi/userapi.yaml"

// UserSchema is the component schema users are validated against.
const UserSchema = "User"

// Issue is a single schema violation.
type Issue struct {
	Path    string
	Message string
}

// Issues is returned by ValidateUser when the payload does not conform.
type Issues []Issue

func (i Issues) Error() string {
	parts := make([]string, 0, len(i))
	for _, issue := range i {
		if issue.Path == "" {
			parts = append(parts, issue.Message)
			continue
		}
		parts = append(parts, issue.Path+": "+issue.Message)
	}
	return "validation: payload rejected: " + strings.Join(parts, "; ")
}

// Validator holds a loaded API description.
type Validator struct {
	doc    *openapi3.T
	schema *openapi3.Schema
}

type loadOptions struct {
	fs         fs.FS
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures Load.
type Option func(*loadOptions)

// WithFileSystem sets the fs.FS used by SourceKindFS sources.
func WithFileSystem(fsys fs.FS) Option {
	return func(o *loadOptions) { o.fs = fsys }
}

// WithHTTPClient enables SourceKindURL sources.
func WithHTTPClient(client *http.Client) Option {
	return func(o *loadOptions) { o.httpClient = client }
}

// WithRequestTimeout bounds remote fetches.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *loadOptions) { o.timeout = d }
}

// Default loads the embedded API description.
func Default(ctx context.Context) (*Validator, error) {
	return Load(ctx, SourceFromFS(EmbeddedDocument), WithFileSystem(embedded))
}

// Load reads the document at src and resolves the User schema.
func Load(ctx context.Context, src Source, opts ...Option) (*Validator, error) {
	cfg := loadOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	data, err := read(ctx, src, cfg)
	if err != nil {
		return nil, err
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("validation: load document: %w", err)
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("validation: validate document: %w", err)
	}

	if doc.Components == nil {
		return nil, errors.New("validation: document has no components")
	}
	ref, ok := doc.Components.Schemas[UserSchema]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("validation: schema %q not found", UserSchema)
	}
	return &Validator{doc: doc, schema: ref.Value}, nil
}

// Operations lists the operation ids declared by the document, sorted.
func (v *Validator) Operations() []string {
	var ids []string
	if v == nil || v.doc.Paths == nil {
		return ids
	}
	for _, item := range v.doc.Paths.Map() {
		for _, op := range item.Operations() {
			if op.OperationID != "" {
				ids = append(ids, op.OperationID)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// ValidateUser checks user against the User schema. A nil Validator accepts
// everything.
func (v *Validator) ValidateUser(ctx context.Context, user entity.User) error {
	if v == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("validation: encode user: %w", err)
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("validation: decode user: %w", err)
	}

	err = v.schema.VisitJSON(value, openapi3.MultiErrors())
	if err == nil {
		return nil
	}
	return toIssues(err)
}

func toIssues(err error) Issues {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		var out Issues
		for _, item := range multi {
			out = append(out, toIssues(item)...)
		}
		return out
	}
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		return Issues{{
			Path:    strings.Join(schemaErr.JSONPointer(), "."),
			Message: schemaErr.Reason,
		}}
	}
	return Issues{{Message: err.Error()}}
}

func read(ctx context.Context, src Source, cfg loadOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch src.Kind {
	case SourceKindFile:
		data, err := os.ReadFile(src.Location)
		if err != nil {
			return nil, fmt.Errorf("validation: read %s: %w", src.Location, err)
		}
		return data, nil
	case SourceKindFS:
		if cfg.fs == nil {
			return nil, errors.New("validation: filesystem is not configured")
		}
		data, err := fs.ReadFile(cfg.fs, src.Location)
		if err != nil {
			return nil, fmt.Errorf("validation: read %s: %w", src.Location, err)
		}
		return data, nil
	case SourceKindURL:
		return fetch(ctx, cfg, src.Location)
	default:
		return nil, fmt.Errorf("validation: unsupported source kind %q", src.Kind)
	}
}

func fetch(ctx context.Context, cfg loadOptions, location string) ([]byte, error) {
	client := cfg.httpClient
	if client == nil {
		client = &http.Client{}
	}
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("validation: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validation: fetch %s: %w", location, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("validation: fetch %s: status %d", location, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
