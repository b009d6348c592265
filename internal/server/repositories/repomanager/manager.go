// Package repomanager owns the connection behind the account store and vends
// the repository bound to it.
package repomanager

import (
	"context"
	"fmt"

	"github.com/belikesnab/peach/internal/server/config"
	"github.com/belikesnab/peach/internal/server/repositories/accounts"
)

type RepositoryManager interface {
	Accounts() accounts.Repository
	RunMigrations(ctx context.Context) error
	Close() error
}

// New connects to the backend selected by cfg.StoreBackend.
func New(ctx context.Context, cfg *config.Config) (RepositoryManager, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		m, err := OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.BackendRedis:
		m, err := OpenRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.BackendMemory, "":
		return NewMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
