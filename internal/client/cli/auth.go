package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/belikesnab/peach/internal/shared"
)

func commandFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseCommand(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
	}
	return nil
}

// prompt returns value, or asks for it when value is empty.
func (a *App) prompt(value, question string) (string, error) {
	if value = strings.TrimSpace(value); value != "" {
		return value, nil
	}
	return getSimpleText(a.reader, question, a.out)
}

// Register creates an account. Missing username and email are prompted for;
// the password is always read interactively and wiped afterwards.
func (a *App) Register(ctx context.Context, args []string) error {
	fs := commandFlags("register")
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	if err := parseCommand(fs, args); err != nil {
		return err
	}

	user, err := a.prompt(*username, "Enter username")
	if err != nil {
		return err
	}
	mail, err := a.prompt(*email, "Enter email")
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer shared.Wipe(password)

	msg, err := a.api.Register(ctx, user, mail, string(password))
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, msg)
	return nil
}

// Login authenticates and prints the bearer token on the last line so it
// can be captured by scripts.
func (a *App) Login(ctx context.Context, args []string) error {
	fs := commandFlags("login")
	username := fs.String("u", "", "username")
	if err := parseCommand(fs, args); err != nil {
		return err
	}

	user, err := a.prompt(*username, "Enter username")
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer shared.Wipe(password)

	resp, err := a.api.Login(ctx, user, string(password))
	if err != nil {
		return err
	}

	a.saveToken(ctx, resp.Token)

	fmt.Fprintf(a.out, "Logged in as %s (roles: %s)\n", resp.Username, strings.Join(resp.Roles, ", "))
	fmt.Fprintln(a.out, resp.Token)
	return nil
}

// Me prints the profile behind -token, or behind the token of the last
// login, kept in memory or in the session database.
func (a *App) Me(ctx context.Context, args []string) error {
	fs := commandFlags("me")
	token := fs.String("token", "", "bearer token")
	if err := parseCommand(fs, args); err != nil {
		return err
	}
	if *token != "" {
		a.api.SetToken(*token)
	}
	if a.api.Token() == "" {
		saved, err := a.loadToken(ctx)
		if err != nil {
			return err
		}
		a.api.SetToken(saved)
	}
	if a.api.Token() == "" {
		return fmt.Errorf("%w: me: no token, log in first or pass -token", ErrUsage)
	}

	profile, err := a.api.Me(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(profile)
}

// Logout forgets the token in memory and in the session database.
func (a *App) Logout(ctx context.Context) error {
	a.api.SetToken("")
	a.saveToken(ctx, "")
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	if err := a.api.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "OK")
	return nil
}
