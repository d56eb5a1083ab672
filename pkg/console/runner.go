// Package console drives the user wizard from a terminal: one prompt per
// field, a step menu for navigation and repeatable entries, and live upload
// progress while submitting.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/goliatone/go-userwizard/pkg/media"
	"github.com/goliatone/go-userwizard/pkg/model"
	"github.com/goliatone/go-userwizard/pkg/progress"
	"github.com/goliatone/go-userwizard/pkg/progress/tui"
	"github.com/goliatone/go-userwizard/pkg/wizard"
)

var (
	stepStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Runner renders wizard sessions and user listings on a terminal. It also
// serves as the wizard's Notifier and Navigator.
type Runner struct {
	driver   PromptDriver
	out      io.Writer
	progress progress.Renderer
	theme    Theme
	now      func() time.Time

	mu       sync.Mutex
	route    wizard.Route
	lastView string
}

var (
	_ wizard.Notifier  = (*Runner)(nil)
	_ wizard.Navigator = (*Runner)(nil)
)

// New constructs a runner with defaults (survey driver, stdout, tui bars).
func New(opts ...Option) *Runner {
	r := &Runner{
		driver:   NewSurveyDriver(),
		out:      os.Stdout,
		progress: tui.New(),
		theme:    DefaultTheme(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Notify prints a notification.
func (r *Runner) Notify(n wizard.Notification) {
	style, prefix := successStyle, r.theme.SuccessPrefix
	if n.Status == wizard.StatusFailure {
		style, prefix = failureStyle, r.theme.ErrorPrefix
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, style.Render(prefix+n.Message))
}

// Navigate records the route the wizard asked for.
func (r *Runner) Navigate(route wizard.Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.route = route
}

// Route returns the last navigation target.
func (r *Runner) Route() wizard.Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.route
}

type action int

const (
	actionNext action = iota
	actionBack
	actionEdit
	actionAddEntry
	actionRemoveEntry
	actionRemoveFile
	actionCancel
)

type outcome int

const (
	outcomeAdvanced outcome = iota
	outcomeSubmitted
	outcomeInvalid
	outcomeFailed
)

// RunForm walks an initialised session until it is submitted or cancelled.
// Leaving a dirty form asks for confirmation and returns ErrCancelled.
func (r *Runner) RunForm(ctx context.Context, session *wizard.Session) error {
	prompted := -1
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		step := session.Step()
		section := session.Section()
		if step != prompted {
			r.say(ctx, stepStyle.Render(fmt.Sprintf("Step %d of %d: %s", step+1, session.Steps(), section.Title)))
			if err := r.promptSection(ctx, session, section); err != nil {
				return err
			}
			prompted = step
		}

		act, err := r.chooseAction(ctx, session, section)
		if err != nil {
			return err
		}
		switch act {
		case actionNext:
			result, err := r.advance(ctx, session)
			if err != nil {
				return err
			}
			switch result {
			case outcomeSubmitted:
				return nil
			case outcomeInvalid:
				prompted = -1
			}
		case actionBack:
			session.Retreat()
		case actionEdit:
			prompted = -1
		case actionAddEntry:
			idx, err := session.AddRepeatableEntry(section.Key)
			if err != nil {
				return err
			}
			if err := r.promptEntry(ctx, session, section, idx); err != nil {
				return err
			}
		case actionRemoveEntry:
			if err := r.removeEntry(ctx, session, section); err != nil {
				return err
			}
		case actionRemoveFile:
			if err := r.removeFile(ctx, session, section); err != nil {
				return err
			}
		case actionCancel:
			leave := true
			if session.ShouldConfirmLeave() {
				leave, err = r.driver.Confirm(ctx, ConfirmConfig{Message: "Discard unsaved changes?"})
				if err != nil {
					return err
				}
			}
			if leave {
				return ErrCancelled
			}
		}
	}
}

func (r *Runner) chooseAction(ctx context.Context, session *wizard.Session, section model.Section) (action, error) {
	var (
		labels  []string
		actions []action
	)
	add := func(label string, act action) {
		labels = append(labels, label)
		actions = append(actions, act)
	}
	if session.IsLastStep() {
		add("Submit", actionNext)
	} else {
		add("Next", actionNext)
	}
	if session.Step() > 0 {
		add("Previous", actionBack)
	}
	add("Edit this step", actionEdit)
	if section.Repeatable {
		add("Add entry", actionAddEntry)
		if session.Entries(section.Key) > 1 {
			add("Remove entry", actionRemoveEntry)
		}
	}
	if len(stagedIn(session, section)) > 0 {
		add("Remove a file", actionRemoveFile)
	}
	add("Cancel", actionCancel)

	for {
		idx, err := r.driver.Select(ctx, SelectConfig{Message: "What next?", Options: labels})
		if err != nil {
			return 0, err
		}
		if idx >= 0 && idx < len(actions) {
			return actions[idx], nil
		}
		r.fail(ctx, "Invalid selection")
	}
}

func (r *Runner) advance(ctx context.Context, session *wizard.Session) (outcome, error) {
	submitting := session.IsLastStep()
	stop := func() {}
	if submitting {
		r.mu.Lock()
		r.lastView = ""
		r.mu.Unlock()
		display := progress.NewDisplay(session.Registry())
		stop = display.Watch(func(view progress.View) { r.drawProgress(ctx, view) })
	}
	err := session.Advance(ctx)
	stop()

	var verrs model.ValidationErrors
	switch {
	case err == nil && submitting:
		return outcomeSubmitted, nil
	case err == nil:
		return outcomeAdvanced, nil
	case errors.As(err, &verrs):
		for _, path := range verrs.Fields() {
			for _, msg := range verrs[path] {
				r.fail(ctx, fmt.Sprintf("%s: %s", path, msg))
			}
		}
		return outcomeInvalid, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeFailed, err
	default:
		// The session already notified the user and kept its state.
		return outcomeFailed, nil
	}
}

// drawProgress prints a view whenever a row's percentage changes.
func (r *Runner) drawProgress(ctx context.Context, view progress.View) {
	if !view.Visible {
		return
	}
	var key strings.Builder
	for _, row := range view.Rows {
		fmt.Fprintf(&key, "%s=%d;", row.Identifier, row.Percentage)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if key.String() == r.lastView {
		return
	}
	out, err := r.progress.Render(ctx, view)
	if err != nil || len(out) == 0 {
		return
	}
	r.lastView = key.String()
	r.out.Write(out)
	if out[len(out)-1] != '\n' {
		io.WriteString(r.out, "\n")
	}
}

func (r *Runner) promptSection(ctx context.Context, session *wizard.Session, section model.Section) error {
	if section.Repeatable {
		for idx := 0; idx < session.Entries(section.Key); idx++ {
			if err := r.promptEntry(ctx, session, section, idx); err != nil {
				return err
			}
		}
		return nil
	}
	for _, field := range section.Fields {
		if err := r.promptField(ctx, session, field, field.Name); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) promptEntry(ctx context.Context, session *wizard.Session, section model.Section, idx int) error {
	r.say(ctx, fmt.Sprintf("%s #%d", section.Title, idx+1))
	for _, field := range section.Fields {
		path := fmt.Sprintf("%s.%d.%s", section.Key, idx, field.Name)
		if err := r.promptField(ctx, session, field, path); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) promptField(ctx context.Context, session *wizard.Session, field model.FieldSpec, path string) error {
	if field.Derived {
		if v, ok := session.Value(path); ok {
			r.say(ctx, fmt.Sprintf("%s: %v", field.DisplayLabel(), v))
		}
		return nil
	}
	if field.Disabled {
		return nil
	}

	switch field.Kind {
	case model.KindFile:
		return r.promptFiles(ctx, session, field)
	case model.KindSelect:
		return r.promptSelect(ctx, session, field, path)
	case model.KindMultiSelect:
		return r.promptMultiSelect(ctx, session, field, path)
	case model.KindTextarea:
		current, _ := session.Value(path)
		text, err := r.driver.TextArea(ctx, TextAreaConfig{
			Message: field.DisplayLabel(),
			Default: stringOf(current),
			Help:    field.Placeholder,
		})
		if err != nil {
			return err
		}
		return session.UpdateField(path, text)
	case model.KindNumber:
		return r.promptNumber(ctx, session, field, path)
	default:
		current, _ := session.Value(path)
		text, err := r.driver.Input(ctx, InputConfig{
			Message:   field.DisplayLabel(),
			Default:   stringOf(current),
			Help:      inputHelp(field),
			Validator: r.validator(field),
		})
		if err != nil {
			return err
		}
		return session.UpdateField(path, strings.TrimSpace(text))
	}
}

func (r *Runner) promptNumber(ctx context.Context, session *wizard.Session, field model.FieldSpec, path string) error {
	current, _ := session.Value(path)
	for {
		text, err := r.driver.Input(ctx, InputConfig{
			Message:   field.DisplayLabel(),
			Default:   stringOf(current),
			Help:      field.Placeholder,
			Validator: r.validator(field),
		})
		if err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return session.UpdateField(path, "")
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			r.fail(ctx, fmt.Sprintf("Invalid %s: must be a whole number", field.DisplayLabel()))
			continue
		}
		return session.UpdateField(path, n)
	}
}

func (r *Runner) promptSelect(ctx context.Context, session *wizard.Session, field model.FieldSpec, path string) error {
	labels := optionLabels(field)
	current, _ := session.Value(path)
	for {
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      field.DisplayLabel(),
			Options:      labels,
			DefaultIndex: optionIndex(field, stringOf(current)),
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(field.Options) {
			r.fail(ctx, fmt.Sprintf("Invalid %s selection", field.DisplayLabel()))
			continue
		}
		return session.UpdateField(path, field.Options[idx].Value)
	}
}

func (r *Runner) promptMultiSelect(ctx context.Context, session *wizard.Session, field model.FieldSpec, path string) error {
	current, _ := session.Value(path)
	var defaults []int
	for _, value := range model.StringSlice(current) {
		if idx := optionIndex(field, value); idx >= 0 {
			defaults = append(defaults, idx)
		}
	}
	indices, err := r.driver.MultiSelect(ctx, SelectConfig{
		Message:  field.DisplayLabel(),
		Options:  optionLabels(field),
		Defaults: defaults,
		PageSize: 10,
	})
	if err != nil {
		return err
	}
	values := make([]string, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(field.Options) {
			values = append(values, field.Options[idx].Value)
		}
	}
	return session.UpdateField(path, values)
}

// promptFiles asks for file paths until the field is full or the user
// enters nothing.
func (r *Runner) promptFiles(ctx context.Context, session *wizard.Session, field model.FieldSpec) error {
	if names := stagedNames(session, field.Name); len(names) > 0 {
		r.say(ctx, fmt.Sprintf("%s: %s", field.DisplayLabel(), strings.Join(names, ", ")))
	}
	for {
		remaining := session.Capacity(field.Name)
		if remaining == 0 {
			r.say(ctx, fmt.Sprintf("%s: file limit reached", field.DisplayLabel()))
			return nil
		}
		message := field.DisplayLabel() + " (file path, empty to skip)"
		if field.Multiple {
			message = fmt.Sprintf("%s (file path, empty to finish, %d left)", field.DisplayLabel(), remaining)
		}
		ref, err := r.driver.Input(ctx, InputConfig{Message: message, Help: acceptHelp(field)})
		if err != nil {
			return err
		}
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return nil
		}
		staged, err := session.StageFile(field.Name, ref, "")
		if err != nil {
			r.fail(ctx, err.Error())
			continue
		}
		r.say(ctx, fmt.Sprintf("Added %s", staged.Name))
		if !field.Multiple {
			return nil
		}
	}
}

func (r *Runner) removeEntry(ctx context.Context, session *wizard.Session, section model.Section) error {
	n := session.Entries(section.Key)
	if n < 2 {
		return nil
	}
	labels := make([]string, 0, n-1)
	for idx := 1; idx < n; idx++ {
		labels = append(labels, fmt.Sprintf("%s #%d", section.Title, idx+1))
	}
	choice, err := r.driver.Select(ctx, SelectConfig{Message: "Remove which entry?", Options: labels})
	if err != nil {
		return err
	}
	if choice < 0 || choice >= len(labels) {
		return nil
	}
	return session.RemoveRepeatableEntry(section.Key, choice+1)
}

func (r *Runner) removeFile(ctx context.Context, session *wizard.Session, section model.Section) error {
	staged := stagedIn(session, section)
	if len(staged) == 0 {
		return nil
	}
	labels := make([]string, len(staged))
	for i, entry := range staged {
		labels[i] = entry.Name
	}
	choice, err := r.driver.Select(ctx, SelectConfig{Message: "Remove which file?", Options: labels})
	if err != nil {
		return err
	}
	if choice >= 0 && choice < len(staged) {
		session.RemoveStagedFile(staged[choice].Name)
	}
	return nil
}

func (r *Runner) validator(field model.FieldSpec) func(string) error {
	return func(value string) error {
		return field.Validate(value, r.now())
	}
}

func (r *Runner) say(ctx context.Context, msg string) {
	_ = r.driver.Info(ctx, r.theme.InfoPrefix+msg)
}

func (r *Runner) fail(ctx context.Context, msg string) {
	_ = r.driver.Info(ctx, r.theme.ErrorPrefix+msg)
}

func stagedIn(session *wizard.Session, section model.Section) []media.Staged {
	if section.Repeatable {
		return nil
	}
	var out []media.Staged
	for _, entry := range session.Staged() {
		if field, ok := section.Field(entry.Field); ok && field.Kind == model.KindFile {
			out = append(out, entry)
		}
	}
	return out
}

func stagedNames(session *wizard.Session, field string) []string {
	var out []string
	for _, entry := range session.Staged() {
		if entry.Field == field {
			out = append(out, entry.Name)
		}
	}
	return out
}

func optionLabels(field model.FieldSpec) []string {
	out := make([]string, len(field.Options))
	for i, opt := range field.Options {
		out[i] = opt.Label
	}
	return out
}

func optionIndex(field model.FieldSpec, value string) int {
	for i, opt := range field.Options {
		if opt.Value == value {
			return i
		}
	}
	return -1
}

func inputHelp(field model.FieldSpec) string {
	if field.Kind == model.KindDate {
		return "YYYY-MM-DD"
	}
	return field.Placeholder
}

func acceptHelp(field model.FieldSpec) string {
	if field.Accept == "" {
		return ""
	}
	return "Accepted: " + field.Accept
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
