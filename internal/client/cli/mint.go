package cli

import (
	"fmt"

	"github.com/belikesnab/peach/internal/server/auth"
	"github.com/belikesnab/peach/internal/shared"
)

// Mint signs a token for username with the configured secret without
// contacting the server. The token carries the subject only, no roles.
func (a *App) Mint(args []string) error {
	if len(args) != 1 || args[0] == "" {
		return fmt.Errorf("%w: mint <username>", ErrUsage)
	}

	tokens, err := auth.NewTokenService([]byte(a.config.SecretKey), a.config.TokenLifetime,
		auth.WithIssuer(a.config.TokenIssuer))
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}

	token, err := tokens.IssueForSubject(args[0])
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}

	fmt.Fprintln(a.out, token)
	return nil
}

// Secret prints a random hex secret suitable for PEACH_JWT_SECRET.
func (a *App) Secret(args []string) error {
	fs := commandFlags("secret")
	n := fs.Int("n", 32, "number of random bytes")
	if err := parseCommand(fs, args); err != nil {
		return err
	}
	if *n < 32 {
		return fmt.Errorf("%w: secret: -n must be at least 32", ErrUsage)
	}

	s, err := shared.RandomSecret(*n)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, s)
	return nil
}
