// Package common defines the sentinel errors and shared constants used across
// the peach server, its transports and the CLI client. Callers should match
// these values with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Credential verification errors. An unknown username and a wrong password
	// both surface as ErrInvalidCredentials so the caller cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account is locked due to too many failed login attempts")

	// Registration conflicts.
	ErrDuplicateUsername = errors.New("username is already taken")
	ErrDuplicateEmail    = errors.New("email is already in use")

	// Token errors. Every rejected token wraps ErrInvalidToken; expired tokens
	// additionally wrap ErrTokenExpired.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Boundary errors.
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation error")

	// ErrorInternal is returned for failures the caller cannot act upon.
	ErrorInternal = errors.New("internal error")
)
