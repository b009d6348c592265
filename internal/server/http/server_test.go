package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/belikesnab/peach/internal/common"
	"github.com/belikesnab/peach/internal/logging"
	"github.com/belikesnab/peach/internal/server/auth"
	"github.com/belikesnab/peach/internal/server/models"
	"github.com/belikesnab/peach/internal/server/repositories/accounts"
	"github.com/belikesnab/peach/internal/server/services"
	"github.com/belikesnab/peach/internal/shared"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fixture struct {
	handler http.Handler
	tokens  *auth.TokenService
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	svc := services.NewAuthService(
		accounts.NewMemoryRepository(),
		auth.NewBcryptHasher(bcrypt.MinCost),
		tokens,
		logging.Nop(),
		services.WithAdminUsers("root"),
	)
	s := NewHTTPServer("127.0.0.1:0", logging.Nop(), svc, tokens, opts...)
	return &fixture{handler: s.Handler(), tokens: tokens}
}

func (f *fixture) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func (f *fixture) register(t *testing.T, username string) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/auth/register",
		`{"username":"`+username+`","email":"`+username+`@example.com","password":"pw12345"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func (f *fixture) login(t *testing.T, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, http.MethodPost, "/api/auth/login",
		`{"username":"`+username+`","password":"`+password+`"}`, "")
}

func (f *fixture) token(t *testing.T, username string) string {
	t.Helper()
	w := f.login(t, username, "pw12345")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[shared.LoginResponse](t, w).Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"pw12345"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, shared.MsgRegistered, decode[shared.MessageResponse](t, w).Message)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	tests := []struct {
		name    string
		body    string
		message string
		fields  []string
	}{
		{
			name:    "duplicate username",
			body:    `{"username":"alice","email":"other@example.com","password":"pw12345"}`,
			message: shared.MsgUsernameTaken,
		},
		{
			name:    "duplicate email",
			body:    `{"username":"bob","email":"alice@example.com","password":"pw12345"}`,
			message: shared.MsgEmailInUse,
		},
		{
			name:   "validation",
			body:   `{"username":"al","email":"nope","password":"123"}`,
			fields: []string{"email", "password", "username"},
		},
		{
			name:   "password over 72 bytes",
			body:   `{"username":"bob","email":"bob@example.com","password":"` + strings.Repeat("€", 40) + `"}`,
			fields: []string{"password"},
		},
		{name: "malformed", body: `{"username":`},
		{name: "unknown field", body: `{"username":"bob","admin":true}`},
		{name: "empty body", body: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/auth/register", tt.body, "")
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			resp := decode[shared.ErrorResponse](t, w)
			if tt.message != "" {
				assert.Equal(t, tt.message, resp.Message)
			}
			for _, field := range tt.fields {
				assert.Contains(t, resp.Fields, field)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")

	w := f.login(t, "alice", "pw12345")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[shared.LoginResponse](t, w)
	assert.Equal(t, "Bearer", resp.Type)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, "alice@example.com", resp.Email)
	assert.Equal(t, []string{"USER"}, resp.Roles)
	assert.NotEmpty(t, resp.ID)

	claims, err := f.tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)

	for _, creds := range [][2]string{{"alice", "wrong-pw"}, {"nobody", "pw12345"}} {
		w := f.login(t, creds[0], creds[1])
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, shared.MsgInvalidCredentials, decode[shared.ErrorResponse](t, w).Message)
	}

	w = f.do(t, http.MethodPost, "/api/auth/login", `{"username":"alice"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_LocksAfterThreshold(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")

	for i := 0; i < services.DefaultLockoutThreshold; i++ {
		w := f.login(t, "alice", "wrong-pw")
		require.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i+1)
	}

	w := f.login(t, "alice", "pw12345")
	assert.Equal(t, http.StatusLocked, w.Code)
	assert.Equal(t, shared.MsgAccountLocked, decode[shared.ErrorResponse](t, w).Message)
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")
	token := f.token(t, "alice")

	w := f.do(t, http.MethodGet, "/api/auth/me", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[models.Profile](t, w)
	assert.Equal(t, "alice", profile.Username)
	assert.True(t, profile.AccountNonLocked)
	assert.NotNil(t, profile.LastLogin)
	assert.NotContains(t, w.Body.String(), "password")

	w = f.do(t, http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/auth/me", "", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	ghost, err := f.tokens.IssueForSubject("ghost")
	require.NoError(t, err)
	w = f.do(t, http.MethodGet, "/api/auth/me", "", ghost)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, shared.MsgUserNotFound, decode[shared.ErrorResponse](t, w).Message)
}

func TestUnlock(t *testing.T) {
	f := newFixture(t)
	f.register(t, "root")
	f.register(t, "alice")
	adminToken := f.token(t, "root")
	userToken := f.token(t, "alice")

	for i := 0; i < services.DefaultLockoutThreshold; i++ {
		f.login(t, "alice", "wrong-pw")
	}
	require.Equal(t, http.StatusLocked, f.login(t, "alice", "pw12345").Code)

	w := f.do(t, http.MethodPost, "/api/admin/accounts/alice/unlock", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/admin/accounts/alice/unlock", "", userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, shared.MsgForbidden, decode[shared.ErrorResponse](t, w).Message)

	w = f.do(t, http.MethodPost, "/api/admin/accounts/nobody/unlock", "", adminToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/admin/accounts/alice/unlock", "", adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[models.Profile](t, w).AccountNonLocked)

	assert.Equal(t, http.StatusOK, f.login(t, "alice", "pw12345").Code)
}

func TestHealthAndSecureHeaders(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[shared.PingResponse](t, w).Status)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, WithLoginRateLimit(2))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, f.login(t, "nobody", "pw12345").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, f.login(t, "nobody", "pw12345").Code)

	// the profile route is not throttled
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/auth/me", "", "").Code)
}

type brokenAuth struct{}

var errBroken = errors.New("connection refused by 10.0.0.7")

func (brokenAuth) Register(context.Context, string, string, string) (*models.Account, error) {
	return nil, errBroken
}

func (brokenAuth) Authenticate(context.Context, string, string) (*services.LoginResult, error) {
	return nil, errBroken
}

func (brokenAuth) CurrentUser(context.Context, string) (*models.Profile, error) {
	return nil, errBroken
}

func (brokenAuth) Unlock(context.Context, string) (*models.Account, error) {
	return nil, errBroken
}

func TestInternalErrorsAreHidden(t *testing.T) {
	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	h := NewHTTPServer("", logging.Nop(), brokenAuth{}, tokens).Handler()

	body := bytes.NewBufferString(`{"username":"alice","password":"pw12345"}`)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", body))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, shared.MsgInternal, decode[shared.ErrorResponse](t, w).Message)
	assert.NotContains(t, w.Body.String(), "10.0.0.7")
}

type rejectingAuth struct{ brokenAuth }

func (rejectingAuth) Register(context.Context, string, string, string) (*models.Account, error) {
	return nil, fmt.Errorf("register: %w", common.ErrValidation)
}

func TestRegister_ServiceValidationIsBadRequest(t *testing.T) {
	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	h := NewHTTPServer("", logging.Nop(), rejectingAuth{}, tokens).Handler()

	body := bytes.NewBufferString(`{"username":"alice","email":"alice@example.com","password":"pw12345"}`)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/register", body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, shared.MsgValidation, decode[shared.ErrorResponse](t, w).Message)
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	s := NewHTTPServer("", logging.Nop(), brokenAuth{}, tokens)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + lis.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	s := NewHTTPServer("127.0.0.1:99999", logging.Nop(), brokenAuth{}, tokens)
	require.Error(t, s.Run(context.Background()))
}
