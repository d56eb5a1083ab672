package wizard

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-userwizard/pkg/entity"
	"github.com/goliatone/go-userwizard/pkg/media"
	"github.com/goliatone/go-userwizard/pkg/model"
	"github.com/goliatone/go-userwizard/pkg/progress"
	"github.com/goliatone/go-userwizard/pkg/transport"
)

// Mode selects between creating a new user and editing an existing one.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// Session is the form orchestrator for one create or edit flow.
type Session struct {
	form       model.Form
	entities   transport.Entities
	uploader   transport.Uploader
	registry   *progress.Registry
	resolver   media.Resolver
	classifier media.Classifier
	validator  PayloadValidator
	notifier   Notifier
	navigator  Navigator
	now        func() time.Time
	newID      func() (string, error)
	logger     *zap.Logger

	mu          sync.Mutex
	initialized bool
	mode        Mode
	id          string
	step        int
	values      *Values
	staged      []media.Staged
	dirty       bool
	pending     bool
	errors      model.ValidationErrors
}

// New creates a session for form. Call Initialize before editing.
func New(form model.Form, entities transport.Entities, uploader transport.Uploader, opts ...Option) (*Session, error) {
	if form.Steps() == 0 {
		return nil, errors.New("wizard: form has no sections")
	}
	if entities == nil {
		return nil, errors.New("wizard: entity transport is required")
	}
	if uploader == nil {
		return nil, errors.New("wizard: upload transport is required")
	}
	s := &Session{
		form:      form,
		entities:  entities,
		uploader:  uploader,
		registry:  progress.NewRegistry(),
		resolver:  media.OSResolver{},
		notifier:  discard{},
		navigator: discard{},
		now:       time.Now,
		newID:     newUUID,
		logger:    zap.NewNop(),
		values:    newValues(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Initialize resets the session. Edit mode fetches the user by id; a failed
// fetch is returned unchanged in the chain and leaves the session
// un-hydrated. Create mode assigns a provisional id used as the upload
// folder.
func (s *Session) Initialize(ctx context.Context, mode Mode, id string) error {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return ErrSubmitPending
	}
	s.reset(mode)
	s.mu.Unlock()

	switch mode {
	case ModeEdit:
		if strings.TrimSpace(id) == "" {
			return ErrMissingID
		}
		user, err := s.entities.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("wizard: load user %s: %w", id, err)
		}
		values := userValues(user)
		seedRepeatables(s.form, values)
		staged := stagedFromUser(user)

		s.mu.Lock()
		s.id = id
		s.values = newValues(values)
		s.staged = staged
		s.initialized = true
		s.mu.Unlock()
	default:
		if id == "" {
			generated, err := s.newID()
			if err != nil {
				return fmt.Errorf("wizard: generate id: %w", err)
			}
			id = generated
		}
		values := map[string]any{}
		seedRepeatables(s.form, values)

		s.mu.Lock()
		s.id = id
		s.values = newValues(values)
		s.initialized = true
		s.mu.Unlock()
	}
	s.logger.Debug("session initialized", zap.Stringer("mode", mode), zap.String("id", id))
	return nil
}

func (s *Session) reset(mode Mode) {
	s.initialized = false
	s.mode = mode
	s.id = ""
	s.step = 0
	s.values = newValues(nil)
	s.staged = nil
	s.dirty = false
	s.errors = nil
}

// stagedFromUser rebuilds staged entries for documents the user already has.
// Names are made unique so each entry keeps its own progress key.
func stagedFromUser(user entity.User) []media.Staged {
	var out []media.Staged
	seen := map[string]int{}
	add := func(field string, doc entity.Document) {
		entry := media.NewPersisted(field, doc)
		if n := seen[entry.Name]; n > 0 {
			entry.Name = entry.Name + "-" + strconv.Itoa(n+1)
		}
		seen[entry.Name]++
		out = append(out, entry)
	}
	for _, doc := range user.Documents {
		add(FieldDocument, doc)
	}
	if user.Photo != nil && user.Photo.URL != "" {
		add(FieldPhoto, *user.Photo)
	}
	return out
}

// Form returns the form definition the session drives.
func (s *Session) Form() model.Form { return s.form }

// Registry returns the upload progress registry.
func (s *Session) Registry() *progress.Registry { return s.registry }

// Mode returns the active mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// ID returns the entity id, provisional in create mode.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Step returns the zero-based current step.
func (s *Session) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Steps returns the number of steps.
func (s *Session) Steps() int { return s.form.Steps() }

// Section returns the section displayed at the current step.
func (s *Session) Section() model.Section {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.Sections[s.step]
}

// IsLastStep reports whether Advance will submit.
func (s *Session) IsLastStep() bool {
	return s.Step() == s.form.Steps()-1
}

// Value resolves a dotted value path.
func (s *Session) Value(path string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values.Get(path)
	return deepCopy(v), ok
}

// Values returns a copy of all form values.
func (s *Session) Values() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.Map()
}

// Entries returns the number of entries in a repeatable section.
func (s *Session) Entries(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values.Entries(key))
}

// Staged returns a copy of the staged files in staging order.
func (s *Session) Staged() []media.Staged {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]media.Staged(nil), s.staged...)
}

// Dirty reports whether the user changed anything since initialization.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// ShouldConfirmLeave reports whether navigating away would discard input.
func (s *Session) ShouldConfirmLeave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty && !s.pending
}

// Pending reports whether a submission is running.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Errors returns the inline validation errors of the last Advance.
func (s *Session) Errors() model.ValidationErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := model.ValidationErrors{}
	for k, v := range s.errors {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// UpdateField merges value into the form at path and marks the session
// dirty. Setting the date of birth recomputes the derived age; an empty or
// unparseable date clears it.
func (s *Session) UpdateField(path string, value any) error {
	field, section, ok := s.form.Lookup(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, path)
	}
	switch {
	case field.Kind == model.KindFile:
		return fmt.Errorf("%w: %s", ErrFileField, path)
	case field.Derived:
		return fmt.Errorf("%w: %s", ErrDerivedField, path)
	}

	switch field.Kind {
	case model.KindTextarea:
		if text, ok := value.(string); ok {
			value = sanitizeText(text)
		}
	case model.KindMultiSelect:
		value = append([]string(nil), model.StringSlice(value)...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	if err := s.values.Set(path, value); err != nil {
		return err
	}
	s.dirty = true
	delete(s.errors, path)

	if field.Name == FieldDOB && !section.Repeatable {
		s.recomputeAge(value)
	}
	return nil
}

func (s *Session) recomputeAge(dob any) {
	raw, _ := dob.(string)
	age, err := entity.AgeFromString(strings.TrimSpace(raw), s.now())
	if err != nil {
		s.values.Delete(FieldAge)
		return
	}
	_ = s.values.Set(FieldAge, age)
}

// AddRepeatableEntry appends an empty entry to a repeatable section and
// returns its index.
func (s *Session) AddRepeatableEntry(key string) (int, error) {
	section, ok := s.form.Section(key)
	if !ok || !section.Repeatable {
		return 0, fmt.Errorf("%w: %s", ErrNotRepeatable, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return 0, ErrNotInitialized
	}
	idx := s.values.appendEntry(key)
	s.dirty = true
	return idx, nil
}

// RemoveRepeatableEntry removes entry idx. The first entry is never removed.
func (s *Session) RemoveRepeatableEntry(key string, idx int) error {
	section, ok := s.form.Section(key)
	if !ok || !section.Repeatable {
		return fmt.Errorf("%w: %s", ErrNotRepeatable, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	if idx == 0 {
		return nil
	}
	if idx < 0 || idx >= len(s.values.Entries(key)) {
		return fmt.Errorf("%w: %s.%d", ErrEntryOutOfRange, key, idx)
	}
	s.values.removeEntry(key, idx)
	s.dirty = true
	s.errors = nil
	return nil
}

// StageFile records a file chosen for field. The display name falls back to
// the reference's base name and is sanitised. Single-file fields replace
// their previous entry; multi-file fields reject staging beyond the form's
// file limit.
func (s *Session) StageFile(field, ref, name string) (media.Staged, error) {
	spec, ok := s.fileField(field)
	if !ok {
		return media.Staged{}, fmt.Errorf("%w: %s", ErrNotFileField, field)
	}
	if strings.TrimSpace(name) == "" {
		name = filepath.Base(ref)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return media.Staged{}, ErrNotInitialized
	}

	entry := s.classifier.Stage(field, ref, name, entity.Today(s.now()))
	if entry.State == media.StateLocal && ref != "" && !spec.Accepts(name) {
		return media.Staged{}, fmt.Errorf("%w: %s does not match %q", ErrFileNotAccepted, name, spec.Accept)
	}

	kept := s.staged
	if !spec.Multiple {
		kept = make([]media.Staged, 0, len(s.staged))
		for _, existing := range s.staged {
			if existing.Field != field {
				kept = append(kept, existing)
			}
		}
	} else if countField(s.staged, field) >= s.form.FileLimit() {
		return media.Staged{}, fmt.Errorf("%w: %s", ErrStagingFull, field)
	}
	for _, existing := range kept {
		if existing.Name == entry.Name || sameObject(existing, entry) {
			return media.Staged{}, fmt.Errorf("%w: %s", ErrDuplicateFile, entry.Name)
		}
	}

	s.staged = append(kept, entry)
	s.dirty = true
	delete(s.errors, field)
	return entry, nil
}

// sameObject reports whether two local entries would upload to the same
// object in one field's folder.
func sameObject(a, b media.Staged) bool {
	return a.State == media.StateLocal && b.State == media.StateLocal &&
		a.Local != "" && b.Local != "" &&
		a.Field == b.Field && a.UploadName() == b.UploadName()
}

// Capacity reports how many more files field accepts. Single-file fields
// always report one because staging replaces. Zero hides the upload control.
func (s *Session) Capacity(field string) int {
	spec, ok := s.fileField(field)
	if !ok {
		return 0
	}
	if !spec.Multiple {
		return 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := s.form.FileLimit() - countField(s.staged, field)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemoveStagedFile drops the staged entry with the given display name.
func (s *Session) RemoveStagedFile(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, entry := range s.staged {
		if entry.Name == name {
			s.staged = append(s.staged[:i:i], s.staged[i+1:]...)
			s.dirty = true
			return true
		}
	}
	return false
}

func (s *Session) fileField(name string) (model.FieldSpec, bool) {
	spec, section, ok := s.form.Lookup(name)
	if !ok || section.Repeatable || spec.Kind != model.KindFile {
		return model.FieldSpec{}, false
	}
	return spec, true
}

func countField(staged []media.Staged, field string) int {
	n := 0
	for _, entry := range staged {
		if entry.Field == field {
			n++
		}
	}
	return n
}

// Advance validates the current step and moves to the next one. On the last
// step it submits instead. Validation failures are returned as
// model.ValidationErrors and keep the step unchanged.
func (s *Session) Advance(ctx context.Context) error {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	if s.pending {
		s.mu.Unlock()
		return ErrSubmitPending
	}
	if errs := s.validateStep(s.step); len(errs) > 0 {
		s.errors = errs
		s.mu.Unlock()
		return errs
	}
	s.errors = nil
	if s.step < s.form.Steps()-1 {
		s.step++
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	_, err := s.Submit(ctx)
	return err
}

// Retreat moves back one step. It is a no-op on the first step.
func (s *Session) Retreat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step > 0 {
		s.step--
	}
}

func (s *Session) validateStep(step int) model.ValidationErrors {
	section := s.form.Sections[step]
	now := s.now()
	errs := model.ValidationErrors{}

	check := func(path string, field model.FieldSpec, value any) {
		if err := field.Validate(value, now); err != nil {
			var verr *model.ValidationError
			if errors.As(err, &verr) {
				errs.Add(path, verr.Message)
				return
			}
			errs.Add(path, err.Error())
		}
	}

	if section.Repeatable {
		for i := range s.values.Entries(section.Key) {
			for _, field := range section.Fields {
				path := fmt.Sprintf("%s.%d.%s", section.Key, i, field.Name)
				value, _ := s.values.Get(path)
				check(path, field, value)
			}
		}
		return errs
	}

	for _, field := range section.Fields {
		if field.Kind == model.KindFile {
			var names []string
			for _, entry := range s.staged {
				if entry.Field == field.Name {
					names = append(names, entry.Name)
				}
			}
			check(field.Name, field, names)
			continue
		}
		value, _ := s.values.Get(field.Name)
		check(field.Name, field, value)
	}
	return errs
}
