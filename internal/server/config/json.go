package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/belikesnab/peach/internal/timex"
)

// JSONConfig is the on-disk shape of the config file. Absent keys keep the
// value that was already in Config.
type JSONConfig struct {
	HTTPAddr         *string         `json:"http_addr"`
	GRPCAddr         *string         `json:"grpc_addr"`
	StoreBackend     *string         `json:"store_backend"`
	DatabaseDSN      *string         `json:"database_dsn"`
	RedisAddr        *string         `json:"redis_addr"`
	SecretKey        *string         `json:"secret_key"`
	TokenLifetime    *timex.Duration `json:"token_lifetime"`
	TokenIssuer      *string         `json:"token_issuer"`
	LockoutThreshold *int            `json:"lockout_threshold"`
	BcryptCost       *int            `json:"bcrypt_cost"`
	LoginRateLimit   *int            `json:"login_rate_limit"`
	LogLevel         *string         `json:"log_level"`
	LogFormat        *string         `json:"log_format"`
	AdminUsers       []string        `json:"admin_users"`
}

func parseJSON(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var c JSONConfig
	if err := json.Unmarshal(b, &c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setString(&cfg.HTTPAddr, c.HTTPAddr)
	setString(&cfg.GRPCAddr, c.GRPCAddr)
	setString(&cfg.StoreBackend, c.StoreBackend)
	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	setString(&cfg.RedisAddr, c.RedisAddr)
	setString(&cfg.SecretKey, c.SecretKey)
	setString(&cfg.TokenIssuer, c.TokenIssuer)
	setString(&cfg.LogLevel, c.LogLevel)
	setString(&cfg.LogFormat, c.LogFormat)
	setInt(&cfg.LockoutThreshold, c.LockoutThreshold)
	setInt(&cfg.BcryptCost, c.BcryptCost)
	setInt(&cfg.LoginRateLimit, c.LoginRateLimit)
	if c.AdminUsers != nil {
		cfg.AdminUsers = c.AdminUsers
	}
	if c.TokenLifetime != nil {
		cfg.TokenLifetime = c.TokenLifetime.Duration
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
