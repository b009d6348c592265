package config

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/belikesnab/peach/internal/flagx"
	"github.com/belikesnab/peach/internal/timex"
)

var knownFlags = []string{"-a", "-g", "-b", "-d", "-r", "-s", "-t", "-l", "-log-level", "-log-format", "-admin-users"}

// parseFlags overlays command-line flags onto config.
//
// Supported flags:
//
//	-a string      HTTP bind address (e.g. ":8080")
//	-g string      gRPC bind address (e.g. ":50051")
//	-b string      store backend: memory, postgres or redis
//	-d string      PostgreSQL DSN
//	-r string      redis address
//	-s string      token signing secret
//	-t duration    token lifetime; bare integers are milliseconds
//	-l int         lockout threshold
//	-log-level     debug, info, warn or error
//	-log-format    json or text
//	-admin-users   comma-separated usernames granted ADMIN on registration
//
// Unknown arguments are filtered out first so that -c/-config and flags owned
// by other components do not cause a parse error.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("peach", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	lifetime := timex.Duration{Duration: config.TokenLifetime}

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC address")
	fs.StringVar(&config.StoreBackend, "b", config.StoreBackend, "store backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token signing secret")
	fs.Var(&lifetime, "t", "token lifetime (ms or Go duration)")
	fs.IntVar(&config.LockoutThreshold, "l", config.LockoutThreshold, "lockout threshold")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format")

	fs.Func("admin-users", "comma-separated admin usernames", func(v string) error {
		config.AdminUsers = splitList(v)
		return nil
	})

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return fmt.Errorf("config: flags: %w", err)
	}

	config.TokenLifetime = lifetime.Duration
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
