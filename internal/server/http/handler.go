package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/belikesnab/peach/internal/common"
	"github.com/belikesnab/peach/internal/shared"
)

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req shared.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.validate(w, &req) {
		return
	}

	if _, err := s.auth.Register(r.Context(), req.Username, req.Email, req.Password); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shared.MessageResponse{Message: shared.MsgRegistered})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req shared.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.validate(w, &req) {
		return
	}

	res, err := s.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, shared.LoginResponse{
		Token:    res.Token,
		Type:     res.TokenType,
		ID:       res.Account.ID,
		Username: res.Account.Username,
		Email:    res.Account.Email,
		Roles:    res.Account.Roles.Slice(),
	})
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, shared.MsgUnauthorized)
		return
	}

	profile, err := s.auth.CurrentUser(r.Context(), username)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *HTTPServer) handleUnlock(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "username")

	acc, err := s.auth.Unlock(r.Context(), target)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	admin, _ := usernameFromContext(r.Context())
	s.logger.Info(r.Context(), "account unlocked by admin", "admin", admin, "username", target)
	writeJSON(w, http.StatusOK, acc.Profile())
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, shared.PingResponse{Status: "ok"})
}

func (s *HTTPServer) validate(w http.ResponseWriter, v any) bool {
	err := shared.Validate(v)
	if err == nil {
		return true
	}

	var fields shared.FieldErrors
	if errors.As(err, &fields) {
		writeValidation(w, fields)
	} else {
		writeError(w, http.StatusBadRequest, err.Error())
	}
	return false
}

// respondError maps service errors to HTTP statuses. Anything unrecognised
// is logged and answered with a generic 500.
func (s *HTTPServer) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, shared.MsgInvalidCredentials)
	case errors.Is(err, common.ErrAccountLocked):
		writeError(w, http.StatusLocked, shared.MsgAccountLocked)
	case errors.Is(err, common.ErrDuplicateUsername):
		writeError(w, http.StatusBadRequest, shared.MsgUsernameTaken)
	case errors.Is(err, common.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, shared.MsgEmailInUse)
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, shared.MsgUserNotFound)
	case errors.Is(err, common.ErrForbidden):
		writeError(w, http.StatusForbidden, shared.MsgForbidden)
	case errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, shared.MsgUnauthorized)
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, shared.MsgValidation)
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, shared.MsgInternal)
	}
}
