// Package config loads runtime configuration for the peach CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c / -config or PEACH_CLI_CONFIG.
//  3. PEACH_* environment variables.
//  4. Global command-line flags given before the command name.
//
// Supported flags
//
//	-a string     address:port of the gRPC endpoint
//	-s string     signing secret, used only by the mint command
//	-t duration   lifetime of minted tokens ("1h" or milliseconds)
//	-issuer       issuer claim of minted tokens
//	-timeout      per-call deadline for RPCs
//	-session      SQLite file holding the token of the last login ("" disables)
//
// The secret, lifetime and issuer variables are shared with the server
// (PEACH_JWT_SECRET, PEACH_JWT_EXPIRATION_MS, PEACH_JWT_ISSUER), so a token
// minted locally verifies against a server started from the same
// environment.
package config
