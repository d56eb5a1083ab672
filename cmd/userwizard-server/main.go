// userwizard-server runs the reference REST backend for the user wizard.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/goliatone/go-userwizard/internal/config"
	"github.com/goliatone/go-userwizard/internal/logging"
	"github.com/goliatone/go-userwizard/internal/server"
	"github.com/goliatone/go-userwizard/pkg/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	flags := pflag.NewFlagSet("userwizard-server", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	config.RegisterFlags(flags)
	config.RegisterServerFlags(flags)
	flags.BoolP("help", "h", false, "show help")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if help, _ := flags.GetBool("help"); help {
		fmt.Fprintf(stderr, "Usage: userwizard-server [flags]\n\n%s", flags.FlagUsages())
		return nil
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

	srv, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return srv.Start(ctx, cfg.Server.Addr)
}

// build opens the database and storage backend named by cfg.
func build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*server.Server, error) {
	db, err := server.OpenSQLite(cfg.Server.DB)
	if err != nil {
		return nil, err
	}
	repo, err := server.NewRepository(db, cfg.Server.IDMinLength)
	if err != nil {
		return nil, err
	}
	store, err := newBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	logger.Info("storage ready",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("public_url", store.BaseURL()),
	)

	opts := []server.Option{server.WithLogger(logger.Named("http"))}
	if cfg.Storage.Backend == config.BackendLocal {
		opts = append(opts, server.WithStatic("/files", cfg.Storage.Local.Root))
	}
	return server.New(repo, store, opts...)
}

func newBackend(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendMinio:
		return storage.NewMinio(ctx, storage.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
			PublicURL: cfg.Minio.PublicURL,
		})
	case config.BackendS3:
		return storage.NewS3(ctx, storage.S3Config{
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PublicURL: cfg.S3.PublicURL,
		})
	case config.BackendLocal:
		return storage.NewLocal(cfg.Local.Root, cfg.Local.PublicURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
