package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// InputConfig describes a single-line prompt. Validator runs on every answer
// and re-asks while it fails.
type InputConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

// ConfirmConfig describes a yes/no question.
type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// SelectConfig describes a choice among Options. Select answers with an
// index; MultiSelect with the chosen indices, preselecting Defaults.
type SelectConfig struct {
	Message      string
	Options      []string
	DefaultIndex int
	Defaults     []int
	Help         string
	PageSize     int
}

// TextAreaConfig describes a multi-line prompt.
type TextAreaConfig struct {
	Message string
	Default string
	Help    string
}

// PromptDriver is the terminal surface the runner talks to. Tests replace it
// with scripted answers.
type PromptDriver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
	Select(ctx context.Context, cfg SelectConfig) (int, error)
	MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error)
	TextArea(ctx context.Context, cfg TextAreaConfig) (string, error)
	Info(ctx context.Context, msg string) error
}

// DriverOption configures the survey driver.
type DriverOption func(*surveyDriver)

// WithStdio binds prompts to the given terminal streams instead of the
// process's own.
func WithStdio(in terminal.FileReader, out terminal.FileWriter, errOut io.Writer) DriverOption {
	return func(d *surveyDriver) {
		d.stdio = []survey.AskOpt{survey.WithStdio(in, out, errOut)}
		d.out = out
	}
}

type surveyDriver struct {
	out   io.Writer
	stdio []survey.AskOpt
}

// NewSurveyDriver returns the interactive driver backed by survey.
func NewSurveyDriver(opts ...DriverOption) PromptDriver {
	d := &surveyDriver{out: os.Stdout}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// ask runs one survey prompt. Survey blocks on the terminal without a
// context, so cancellation is only observed before the prompt opens.
func (d *surveyDriver) ask(ctx context.Context, prompt survey.Prompt, answer any, opts ...survey.AskOpt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := survey.AskOne(prompt, answer, append(opts, d.stdio...)...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, terminal.InterruptErr):
		return ErrAborted
	default:
		return fmt.Errorf("console: prompt %q: %w", promptMessage(prompt), err)
	}
}

func (d *surveyDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	var opts []survey.AskOpt
	if validate := cfg.Validator; validate != nil {
		opts = append(opts, survey.WithValidator(func(ans any) error {
			return validate(fmt.Sprint(ans))
		}))
	}
	var answer string
	err := d.ask(ctx, &survey.Input{Message: cfg.Message, Default: cfg.Default, Help: cfg.Help}, &answer, opts...)
	return answer, err
}

func (d *surveyDriver) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	var answer bool
	err := d.ask(ctx, &survey.Confirm{Message: cfg.Message, Default: cfg.Default, Help: cfg.Help}, &answer)
	return answer, err
}

// Select asks survey for the option index directly.
func (d *surveyDriver) Select(ctx context.Context, cfg SelectConfig) (int, error) {
	prompt := &survey.Select{
		Message:  cfg.Message,
		Options:  cfg.Options,
		Help:     cfg.Help,
		PageSize: cfg.PageSize,
	}
	if inRange(cfg.DefaultIndex, len(cfg.Options)) {
		prompt.Default = cfg.DefaultIndex
	}
	answer := -1
	if err := d.ask(ctx, prompt, &answer); err != nil {
		return -1, err
	}
	return answer, nil
}

func (d *surveyDriver) MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error) {
	prompt := &survey.MultiSelect{
		Message:  cfg.Message,
		Options:  cfg.Options,
		Help:     cfg.Help,
		PageSize: cfg.PageSize,
	}
	var defaults []int
	for _, idx := range cfg.Defaults {
		if inRange(idx, len(cfg.Options)) {
			defaults = append(defaults, idx)
		}
	}
	if len(defaults) > 0 {
		prompt.Default = defaults
	}
	var answer []int
	if err := d.ask(ctx, prompt, &answer); err != nil {
		return nil, err
	}
	return answer, nil
}

func (d *surveyDriver) TextArea(ctx context.Context, cfg TextAreaConfig) (string, error) {
	var answer string
	err := d.ask(ctx, &survey.Multiline{Message: cfg.Message, Default: cfg.Default, Help: cfg.Help}, &answer)
	return answer, err
}

func (d *surveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

func promptMessage(p survey.Prompt) string {
	switch t := p.(type) {
	case *survey.Input:
		return t.Message
	case *survey.Confirm:
		return t.Message
	case *survey.Select:
		return t.Message
	case *survey.MultiSelect:
		return t.Message
	case *survey.Multiline:
		return t.Message
	default:
		return ""
	}
}

func inRange(idx, n int) bool {
	return idx >= 0 && idx < n
}
