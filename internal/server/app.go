// Package server wires configuration, storage, services and the HTTP and
// gRPC transports into a runnable application.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/belikesnab/peach/internal/logging"
	"github.com/belikesnab/peach/internal/server/auth"
	"github.com/belikesnab/peach/internal/server/config"
	"github.com/belikesnab/peach/internal/server/repositories/repomanager"
	"github.com/belikesnab/peach/internal/server/services"

	gs "github.com/belikesnab/peach/internal/server/grpc"
	hs "github.com/belikesnab/peach/internal/server/http"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repos       repomanager.RepositoryManager
	tokens      *auth.TokenService
	authService *services.AuthService
}

// NewApp opens the configured store, applies migrations and builds the
// services. Logs go to w.
func NewApp(ctx context.Context, c *config.Config, w io.Writer) (*App, error) {
	logger := logging.New(w, c.LogLevel, c.LogFormat)

	repos, err := repomanager.New(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, err
	}

	tokens, err := auth.NewTokenService([]byte(c.SecretKey), c.TokenLifetime, auth.WithIssuer(c.TokenIssuer))
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("token service init error: %w", err)
	}

	svc := services.NewAuthService(
		repos.Accounts(),
		auth.NewBcryptHasher(c.BcryptCost),
		tokens,
		logger,
		services.WithLockoutThreshold(c.LockoutThreshold),
		services.WithAdminUsers(c.AdminUsers...),
	)

	return &App{config: c, logger: logger, repos: repos, tokens: tokens, authService: svc}, nil
}

// Run serves every configured transport until ctx is cancelled, a signal
// arrives or one of the servers fails. The store is closed on return.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	defer func() {
		if err := app.repos.Close(); err != nil {
			app.logger.Error(context.Background(), "store close failed", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreBackend)

	g, ctx := errgroup.WithContext(ctx)

	if app.config.HTTPAddr != "" {
		s := hs.NewHTTPServer(app.config.HTTPAddr, app.logger, app.authService, app.tokens,
			hs.WithLoginRateLimit(app.config.LoginRateLimit))
		g.Go(func() error { return s.Run(ctx) })
	}

	if app.config.GRPCAddr != "" {
		s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.authService, app.tokens)
		g.Go(func() error { return s.Run(ctx) })
	}

	err := g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}

// Main loads the configuration from the process arguments and runs the app.
func Main() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx := context.Background()
	app, err := NewApp(ctx, cfg, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx); err != nil {
		app.logger.Error(ctx, "app failed", "error", err)
		return 1
	}
	return 0
}
