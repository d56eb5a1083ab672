// userwizard is the terminal front end of the user management wizard.
//
// Usage:
//
//	userwizard [flags] list [query]
//	userwizard [flags] create
//	userwizard [flags] edit <id>
//	userwizard [flags] delete <id>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/pflag"

	"github.com/goliatone/go-userwizard/internal/config"
	"github.com/goliatone/go-userwizard/internal/logging"
	"github.com/goliatone/go-userwizard/pkg/console"
	"github.com/goliatone/go-userwizard/pkg/progress"
	_ "github.com/goliatone/go-userwizard/pkg/progress/html"
	"github.com/goliatone/go-userwizard/pkg/progress/tui"
	"github.com/goliatone/go-userwizard/pkg/transport/httpapi"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], environment{stdout: os.Stdout, stderr: os.Stderr})
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// environment carries the process streams and, in tests, a scripted driver.
type environment struct {
	stdout io.Writer
	stderr io.Writer
	driver console.PromptDriver
}

func run(ctx context.Context, args []string, env environment) error {
	flags := pflag.NewFlagSet("userwizard", pflag.ContinueOnError)
	flags.SetOutput(env.stderr)
	config.RegisterFlags(flags)
	flags.String("progress", "", "upload progress renderer: "+strings.Join(progress.Renderers.Names(), ", ")+" (default "+tui.Name+")")
	flags.BoolP("help", "h", false, "show help")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(env.stderr, flags)
			return nil
		}
		return err
	}
	if help, _ := flags.GetBool("help"); help {
		printHelp(env.stderr, flags)
		return nil
	}
	rest := flags.Args()
	if len(rest) == 0 {
		printHelp(env.stderr, flags)
		return errors.New("missing command")
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client, err := httpapi.New(cfg.API.BaseURL,
		httpapi.WithTimeout(cfg.API.Timeout),
		httpapi.WithLogger(logger.Named("api")),
	)
	if err != nil {
		return err
	}

	rendererName, _ := flags.GetString("progress")
	renderer, err := progress.Renderers.Lookup(rendererName)
	if err != nil {
		return err
	}
	opts := []console.Option{
		console.WithOutput(env.stdout),
		console.WithProgressRenderer(renderer),
	}
	if env.driver != nil {
		opts = append(opts, console.WithPromptDriver(env.driver))
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		entities: client,
		uploader: client,
		runner:   console.New(opts...),
	}
	return a.dispatch(ctx, rest)
}

func printHelp(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintf(w, `userwizard manages users through a step-by-step form.

Usage:
  userwizard [flags] list [query]   list users, optionally filtered
  userwizard [flags] create         create a user
  userwizard [flags] edit <id>      edit an existing user
  userwizard [flags] delete <id>    delete a user

Flags:
%s`, flags.FlagUsages())
}
