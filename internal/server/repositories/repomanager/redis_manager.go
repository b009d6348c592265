package repomanager

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/belikesnab/peach/internal/server/repositories/accounts"
)

type RedisRepositoryManager struct {
	client   *redis.Client
	accounts *accounts.RedisRepository
}

// OpenRedis connects to addr, which is either host:port or a redis:// URL.
func OpenRedis(ctx context.Context, addr string) (*RedisRepositoryManager, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping error: %w", err)
	}
	return &RedisRepositoryManager{client: client, accounts: accounts.NewRedisRepository(client)}, nil
}

func (m *RedisRepositoryManager) Accounts() accounts.Repository {
	return m.accounts
}

// RunMigrations is a no-op: the redis layout needs no schema.
func (m *RedisRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *RedisRepositoryManager) Close() error {
	return m.client.Close()
}
