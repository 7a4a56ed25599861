// Package server initializes and runs the directory server: it opens the
// database, wires the services and the HTTP API, and handles graceful
// shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dpetukhov/rosterhub/internal/logging"
	"github.com/dpetukhov/rosterhub/internal/server/accounts"
	"github.com/dpetukhov/rosterhub/internal/server/api"
	"github.com/dpetukhov/rosterhub/internal/server/blob"
	"github.com/dpetukhov/rosterhub/internal/server/config"
	"github.com/dpetukhov/rosterhub/internal/server/directory"
	"github.com/dpetukhov/rosterhub/internal/server/repositories/repomanager"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	handler http.Handler
}

func NewApp(cfg *config.Config) (*App, error) {
	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	rm, err := repomanager.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	accountService := accounts.NewService(rm.Credentials(), rm.RefreshTokens(), cfg)
	directoryService := directory.NewService(rm.Profiles())
	blobService := blob.NewService(cfg)

	handler := api.NewHandler(accountService, directoryService, blobService, cfg.SecretKey, logger)

	return &App{
		config:  cfg,
		logger:  logger,
		handler: api.NewRouter(handler),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.handler,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		app.logger.Info(context.Background(), "Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
