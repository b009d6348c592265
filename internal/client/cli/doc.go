// Package cli implements the peach command-line client.
//
// One-shot commands (register, login, me, logout, ping, mint, secret) run
// against the gRPC endpoint from the configuration and exit; "shell" starts a
// small read-eval-print loop. The token obtained by login is kept in memory
// and, unless disabled, in a local session database so that a later "me"
// finds it. Passwords are read from the terminal without echo and wiped after
// use. When stdin is not a terminal they are read as a line instead, so the
// client can be scripted.
package cli
