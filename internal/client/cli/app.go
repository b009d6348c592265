package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/belikesnab/peach/internal/client/client"
	"github.com/belikesnab/peach/internal/client/config"
	"github.com/belikesnab/peach/internal/client/session"
)

// ErrUsage is returned for unknown commands and bad command arguments.
var ErrUsage = errors.New("usage error")

const usage = `Usage: peach-cli [global flags] <command> [flags] [args]

Commands:
  register [-u username] [-e email]   create an account
  login [-u username]                  authenticate and print a bearer token
  me [-token token]                    show the profile of the token's owner
  logout                               forget the saved token
  ping                                 check that the server answers
  mint <username>                      sign a token locally with the configured secret
  secret [-n bytes]                    print a random signing secret
  shell                                interactive session
  help                                 show this text

Global flags:
  -a addr  -c file  -s secret  -t lifetime  -issuer name  -timeout duration  -session file
`

// TokenStore persists tokens between invocations.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type App struct {
	config  *config.Config
	api     client.Client
	session TokenStore
	reader  *bufio.Reader
	out     io.Writer
}

// NewApp creates the gRPC client for c.ServerEndpointAddr. Nothing is dialed
// until the first RPC.
func NewApp(c *config.Config, in io.Reader, out io.Writer) (*App, error) {
	api, err := client.NewGRPCClient(c.ServerEndpointAddr, c.CallTimeout)
	if err != nil {
		return nil, fmt.Errorf("client init error: %w", err)
	}
	return newApp(c, api, in, out), nil
}

func newApp(c *config.Config, api client.Client, in io.Reader, out io.Writer) *App {
	return &App{config: c, api: api, reader: bufio.NewReader(in), out: out}
}

func (a *App) Close() error {
	if a.session != nil {
		_ = a.session.Close()
	}
	return a.api.Close()
}

// store opens the session database on first use. It returns nil when
// persistence is disabled.
func (a *App) store(ctx context.Context) (TokenStore, error) {
	if a.session != nil || a.config.SessionFile == "" {
		return a.session, nil
	}
	s, err := session.Open(ctx, a.config.SessionFile)
	if err != nil {
		return nil, err
	}
	a.session = s
	return s, nil
}

func (a *App) saveToken(ctx context.Context, token string) {
	st, err := a.store(ctx)
	if err == nil && st != nil {
		key := session.TokenKey(a.config.ServerEndpointAddr)
		if token == "" {
			err = st.Delete(ctx, key)
		} else {
			err = st.Set(ctx, key, token)
		}
	}
	if err != nil {
		fmt.Fprintln(a.out, "warning: session not saved:", err)
	}
}

func (a *App) loadToken(ctx context.Context) (string, error) {
	st, err := a.store(ctx)
	if err != nil || st == nil {
		return "", err
	}
	return st.Get(ctx, session.TokenKey(a.config.ServerEndpointAddr))
}

// Run executes one command. args starts with the command name.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return a.Register(ctx, rest)
	case "login":
		return a.Login(ctx, rest)
	case "me":
		return a.Me(ctx, rest)
	case "logout":
		return a.Logout(ctx)
	case "ping":
		return a.Ping(ctx)
	case "mint":
		return a.Mint(rest)
	case "secret":
		return a.Secret(rest)
	case "shell":
		a.Shell(ctx)
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprintf(a.out, "Unknown command: %s\n\n%s", cmd, usage)
		return ErrUsage
	}
}

// Main is the entry point of cmd/cli. It returns the process exit code.
func Main(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, rest, err := config.Load(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	app, err := NewApp(cfg, stdin, stdout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, rest); err != nil {
		if errors.Is(err, ErrUsage) {
			return 2
		}
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}
