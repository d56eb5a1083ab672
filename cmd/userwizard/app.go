package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-userwizard/internal/config"
	"github.com/goliatone/go-userwizard/pkg/console"
	"github.com/goliatone/go-userwizard/pkg/media"
	"github.com/goliatone/go-userwizard/pkg/model"
	"github.com/goliatone/go-userwizard/pkg/transport"
	"github.com/goliatone/go-userwizard/pkg/validation"
	"github.com/goliatone/go-userwizard/pkg/wizard"
)

const schemaOff = "off"

type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	entities transport.Entities
	uploader transport.Uploader
	runner   *console.Runner
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	command, rest := args[0], args[1:]
	switch command {
	case "list":
		return a.list(ctx, strings.Join(rest, " "))
	case "create":
		if len(rest) != 0 {
			return fmt.Errorf("create takes no arguments")
		}
		return a.form(ctx, wizard.ModeCreate, "")
	case "edit":
		if len(rest) != 1 {
			return fmt.Errorf("usage: edit <id>")
		}
		return a.form(ctx, wizard.ModeEdit, rest[0])
	case "delete":
		if len(rest) != 1 {
			return fmt.Errorf("usage: delete <id>")
		}
		return a.delete(ctx, rest[0])
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) list(ctx context.Context, query string) error {
	list, err := wizard.NewList(a.entities, a.runner, a.logger.Named("list"))
	if err != nil {
		return err
	}
	users, err := list.Load(ctx, query)
	if err != nil {
		return err
	}
	a.runner.ShowUsers(users)
	return nil
}

func (a *app) delete(ctx context.Context, id string) error {
	ok, err := a.runner.ConfirmDelete(ctx)
	if err != nil || !ok {
		return ignoreAbort(err)
	}
	list, err := wizard.NewList(a.entities, a.runner, a.logger.Named("list"))
	if err != nil {
		return err
	}
	return list.Delete(ctx, id)
}

func (a *app) form(ctx context.Context, mode wizard.Mode, id string) error {
	form, err := loadForm(a.cfg)
	if err != nil {
		return err
	}
	opts := []wizard.Option{
		wizard.WithResolver(media.OSResolver{}),
		wizard.WithStorageDomains(a.cfg.PersistedDomains()...),
		wizard.WithNotifier(a.runner),
		wizard.WithNavigator(a.runner),
		wizard.WithLogger(a.logger.Named("wizard")),
	}
	validator, err := loadValidator(ctx, a.cfg)
	if err != nil {
		return err
	}
	if validator != nil {
		opts = append(opts, wizard.WithValidator(validator))
	}

	session, err := wizard.New(form, a.entities, a.uploader, opts...)
	if err != nil {
		return err
	}
	if err := session.Initialize(ctx, mode, id); err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			return fmt.Errorf("user %s not found", id)
		}
		return err
	}

	err = a.runner.RunForm(ctx, session)
	if errors.Is(err, console.ErrCancelled) {
		return nil
	}
	if err != nil {
		return ignoreAbort(err)
	}
	if a.runner.Route() == wizard.RouteList {
		return a.list(ctx, "")
	}
	return nil
}

// loadForm returns the bundled user form or the one found in the configured
// definitions directory, capped at the configured file limit.
func loadForm(cfg *config.Config) (model.Form, error) {
	form := model.UserForm()
	if dir := cfg.Form.Definitions; dir != "" {
		store, err := model.LoadFS(os.DirFS(dir))
		if err != nil {
			return model.Form{}, err
		}
		var ok bool
		if form, ok = store.Form(model.UserFormID); !ok {
			return model.Form{}, fmt.Errorf("no %q form in %s", model.UserFormID, dir)
		}
	}
	form.MaxFilesPerField = cfg.Form.MaxFiles
	return form, nil
}

func loadValidator(ctx context.Context, cfg *config.Config) (*validation.Validator, error) {
	switch schema := strings.TrimSpace(cfg.API.Schema); schema {
	case schemaOff:
		return nil, nil
	case "":
		return validation.Default(ctx)
	default:
		src, err := validation.ParseSource(schema)
		if err != nil {
			return nil, err
		}
		return validation.Load(ctx, src, validation.WithRequestTimeout(cfg.API.Timeout))
	}
}

func ignoreAbort(err error) error {
	if errors.Is(err, console.ErrAborted) {
		return nil
	}
	return err
}
