package shared

import "github.com/belikesnab/peach/internal/server/models"

const TokenTypeBearer = "Bearer"

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	Token    string   `json:"token"`
	Type     string   `json:"type"`
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type MeRequest struct{}

// ProfileResponse is the public view of the authenticated account.
type ProfileResponse = models.Profile

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx HTTP response. Fields is set
// only for validation failures.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}
