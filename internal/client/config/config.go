package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/belikesnab/peach/internal/flagx"
	"github.com/belikesnab/peach/internal/timex"
)

const (
	ConfigFileEnv = "PEACH_CLI_CONFIG"
	envPrefix     = "PEACH"
)

// Config holds runtime settings for the CLI.
type Config struct {
	ServerEndpointAddr string
	SecretKey          string
	TokenLifetime      time.Duration
	TokenIssuer        string
	CallTimeout        time.Duration
	SessionFile        string
}

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.SecretKey = ""
	c.TokenLifetime = 24 * time.Hour
	c.TokenIssuer = "peach"
	c.CallTimeout = 10 * time.Second
	c.SessionFile = defaultSessionFile()
}

// defaultSessionFile is <user config dir>/peach/session.db, or "" (no
// session persistence) when the directory is unknown.
func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "peach", "session.db")
}

// Load builds a Config from args and the environment. Parsing stops at the
// first non-flag argument; the command and its arguments are returned as
// rest.
func Load(args []string) (cfg *Config, rest []string, err error) {
	cfg = &Config{}
	cfg.LoadDefaults()

	if path := flagx.ConfigPath(globalArgs(args), ConfigFileEnv); path != "" {
		if err := parseJSON(cfg, path); err != nil {
			return nil, nil, err
		}
	}
	if err := parseEnv(cfg); err != nil {
		return nil, nil, err
	}
	rest, err = parseFlags(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}

// globalArgs returns the leading flag section of args.
func globalArgs(args []string) []string {
	fs := newFlagSet(&Config{})
	if err := fs.Parse(args); err != nil {
		return args
	}
	return args[:len(args)-fs.NArg()]
}

type jsonConfig struct {
	ServerEndpointAddr *string         `json:"server_endpoint_addr"`
	SecretKey          *string         `json:"secret_key"`
	TokenLifetime      *timex.Duration `json:"token_lifetime"`
	TokenIssuer        *string         `json:"token_issuer"`
	CallTimeout        *timex.Duration `json:"call_timeout"`
	SessionFile        *string         `json:"session_file"`
}

func parseJSON(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(b, &jc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if jc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *jc.ServerEndpointAddr
	}
	if jc.SecretKey != nil {
		cfg.SecretKey = *jc.SecretKey
	}
	if jc.TokenLifetime != nil {
		cfg.TokenLifetime = jc.TokenLifetime.Duration
	}
	if jc.TokenIssuer != nil {
		cfg.TokenIssuer = *jc.TokenIssuer
	}
	if jc.CallTimeout != nil {
		cfg.CallTimeout = jc.CallTimeout.Duration
	}
	if jc.SessionFile != nil {
		cfg.SessionFile = *jc.SessionFile
	}
	return nil
}

type envConfig struct {
	ServerEndpointAddr string         `envconfig:"SERVER_ADDR"`
	SecretKey          string         `envconfig:"JWT_SECRET"`
	TokenLifetime      timex.Duration `envconfig:"JWT_EXPIRATION_MS"`
	TokenIssuer        string         `envconfig:"JWT_ISSUER"`
	SessionFile        string         `envconfig:"CLI_SESSION"`
}

func parseEnv(cfg *Config) error {
	e := envConfig{
		ServerEndpointAddr: cfg.ServerEndpointAddr,
		SecretKey:          cfg.SecretKey,
		TokenLifetime:      timex.Duration{Duration: cfg.TokenLifetime},
		TokenIssuer:        cfg.TokenIssuer,
		SessionFile:        cfg.SessionFile,
	}
	if err := envconfig.Process(envPrefix, &e); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}

	cfg.ServerEndpointAddr = e.ServerEndpointAddr
	cfg.SecretKey = e.SecretKey
	cfg.TokenLifetime = e.TokenLifetime.Duration
	cfg.TokenIssuer = e.TokenIssuer
	cfg.SessionFile = e.SessionFile
	return nil
}

func newFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("peach-cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var ignored string
	fs.StringVar(&ignored, "c", "", "path to JSON config file")
	fs.StringVar(&ignored, "config", "", "path to JSON config file")

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port of the gRPC server")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "token signing secret (mint only)")
	fs.StringVar(&cfg.TokenIssuer, "issuer", cfg.TokenIssuer, "issuer of minted tokens")
	fs.Func("t", "lifetime of minted tokens", func(v string) error {
		d, err := timex.Parse(v)
		if err != nil {
			return err
		}
		cfg.TokenLifetime = d.Duration
		return nil
	})
	fs.DurationVar(&cfg.CallTimeout, "timeout", cfg.CallTimeout, "deadline of a single RPC")
	fs.StringVar(&cfg.SessionFile, "session", cfg.SessionFile, "session database; empty keeps tokens in memory only")
	return fs
}

func parseFlags(cfg *Config, args []string) ([]string, error) {
	fs := newFlagSet(cfg)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: flags: %w", err)
	}
	return fs.Args(), nil
}
