// Package http exposes the authentication API as JSON over HTTP using a chi
// router.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/belikesnab/peach/internal/common"
	"github.com/belikesnab/peach/internal/logging"
	"github.com/belikesnab/peach/internal/server/auth"
	"github.com/belikesnab/peach/internal/server/models"
	"github.com/belikesnab/peach/internal/server/services"
)

const (
	requestTimeout  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*models.Account, error)
	Authenticate(ctx context.Context, username, password string) (*services.LoginResult, error)
	CurrentUser(ctx context.Context, username string) (*models.Profile, error)
	Unlock(ctx context.Context, username string) (*models.Account, error)
}

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type HTTPServer struct {
	address        string
	auth           AuthService
	tokens         TokenVerifier
	logger         logging.Logger
	loginRateLimit int
}

type Option func(*HTTPServer)

// WithLoginRateLimit sets the per-IP requests per minute allowed on the
// login and register routes. Zero disables the limit.
func WithLoginRateLimit(n int) Option {
	return func(s *HTTPServer) { s.loginRateLimit = n }
}

func NewHTTPServer(address string, l logging.Logger, svc AuthService, tokens TokenVerifier, opts ...Option) *HTTPServer {
	s := &HTTPServer{
		address:        address,
		auth:           svc,
		tokens:         tokens,
		logger:         l.With("module", "http_server"),
		loginRateLimit: 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router with the full middleware chain.
func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(s.secureHeaders())

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.loginRateLimit > 0 {
				r.Use(s.rateLimit())
			}
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
		})
		r.With(s.requireBearer).Get("/me", s.handleMe)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(s.requireBearer, requireRole(common.AdminRole))
		r.Post("/accounts/{username}/unlock", s.handleUnlock)
	})

	return r
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *HTTPServer) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "http shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
