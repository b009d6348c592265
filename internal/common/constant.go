package common

const (
	// AuthorizationHeaderName is the HTTP header and gRPC metadata key that
	// carries the bearer token on protected calls.
	AuthorizationHeaderName = "authorization"

	// BearerScheme prefixes the token inside the authorization value.
	BearerScheme = "Bearer"

	// DefaultRole is granted to every newly registered account.
	DefaultRole = "USER"

	// AdminRole is required for administrative operations such as unlocking.
	AdminRole = "ADMIN"
)
