package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/belikesnab/peach/internal/timex"
)

// envConfig mirrors Config for envconfig. It is pre-filled from the current
// Config so that unset variables leave values untouched.
type envConfig struct {
	HTTPAddr         string         `envconfig:"HTTP_ADDR"`
	GRPCAddr         string         `envconfig:"GRPC_ADDR"`
	StoreBackend     string         `envconfig:"STORE_BACKEND"`
	DatabaseDSN      string         `envconfig:"DATABASE_DSN"`
	RedisAddr        string         `envconfig:"REDIS_ADDR"`
	SecretKey        string         `envconfig:"JWT_SECRET"`
	TokenLifetime    timex.Duration `envconfig:"JWT_EXPIRATION_MS"`
	TokenIssuer      string         `envconfig:"JWT_ISSUER"`
	LockoutThreshold int            `envconfig:"LOCKOUT_THRESHOLD"`
	BcryptCost       int            `envconfig:"BCRYPT_COST"`
	LoginRateLimit   int            `envconfig:"LOGIN_RATE_LIMIT"`
	LogLevel         string         `envconfig:"LOG_LEVEL"`
	LogFormat        string         `envconfig:"LOG_FORMAT"`
	AdminUsers       []string       `envconfig:"ADMIN_USERS"`
}

func parseEnv(cfg *Config) error {
	e := envConfig{
		HTTPAddr:         cfg.HTTPAddr,
		GRPCAddr:         cfg.GRPCAddr,
		StoreBackend:     cfg.StoreBackend,
		DatabaseDSN:      cfg.DatabaseDSN,
		RedisAddr:        cfg.RedisAddr,
		SecretKey:        cfg.SecretKey,
		TokenLifetime:    timex.Duration{Duration: cfg.TokenLifetime},
		TokenIssuer:      cfg.TokenIssuer,
		LockoutThreshold: cfg.LockoutThreshold,
		BcryptCost:       cfg.BcryptCost,
		LoginRateLimit:   cfg.LoginRateLimit,
		LogLevel:         cfg.LogLevel,
		LogFormat:        cfg.LogFormat,
		AdminUsers:       cfg.AdminUsers,
	}

	if err := envconfig.Process(envPrefix, &e); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}

	cfg.HTTPAddr = e.HTTPAddr
	cfg.GRPCAddr = e.GRPCAddr
	cfg.StoreBackend = e.StoreBackend
	cfg.DatabaseDSN = e.DatabaseDSN
	cfg.RedisAddr = e.RedisAddr
	cfg.SecretKey = e.SecretKey
	cfg.TokenLifetime = e.TokenLifetime.Duration
	cfg.TokenIssuer = e.TokenIssuer
	cfg.LockoutThreshold = e.LockoutThreshold
	cfg.BcryptCost = e.BcryptCost
	cfg.LoginRateLimit = e.LoginRateLimit
	cfg.LogLevel = e.LogLevel
	cfg.LogFormat = e.LogFormat
	cfg.AdminUsers = e.AdminUsers
	return nil
}
