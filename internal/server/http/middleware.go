package http

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/belikesnab/peach/internal/common"
	"github.com/belikesnab/peach/internal/server/auth"
	"github.com/belikesnab/peach/internal/shared"
)

type ctxKey string

const (
	usernameKey ctxKey = "username"
	rolesKey    ctxKey = "roles"
)

func usernameFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(usernameKey).(string)
	return u, ok && u != ""
}

func rolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(rolesKey).([]string)
	return roles
}

func (s *HTTPServer) secureHeaders() func(http.Handler) http.Handler {
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'",
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sm.Process(w, r); err != nil {
				s.logger.Warn(r.Context(), "secure headers blocked request", "error", err)
				writeError(w, http.StatusBadRequest, "Request blocked")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimit throttles credential endpoints per client IP.
func (s *HTTPServer) rateLimit() func(http.Handler) http.Handler {
	return httprate.Limit(s.loginRateLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "Too many requests, try again later")
		}),
	)
}

func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// requireBearer verifies the Authorization header and stores the token
// subject and roles in the request context.
func (s *HTTPServer) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.ParseBearer(r.Header.Get(common.AuthorizationHeaderName))
		if !ok {
			writeError(w, http.StatusUnauthorized, shared.MsgUnauthorized)
			return
		}

		claims, err := s.tokens.Verify(token)
		if err != nil {
			s.logger.Debug(r.Context(), "token rejected", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusUnauthorized, shared.MsgUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), usernameKey, claims.Subject)
		ctx = context.WithValue(ctx, rolesKey, claims.Roles)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole must run after requireBearer.
func requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(rolesFromContext(r.Context()), role) {
				writeError(w, http.StatusForbidden, shared.MsgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
