package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/belikesnab/peach/internal/common"
	"github.com/belikesnab/peach/internal/server/models"
)

const (
	defaultKeyPrefix  = "peach:"
	defaultMaxRetries = 100
)

// ErrTooManyRetries is returned when an optimistic transaction keeps losing
// the race for the same account.
var ErrTooManyRetries = errors.New("accounts: too many concurrent modifications")

// RedisRepository stores each account as a hash keyed by username, plus an
// email -> username index key. Writes are WATCH/MULTI transactions retried on
// conflict.
type RedisRepository struct {
	client     redis.UniversalClient
	prefix     string
	maxRetries int
	now        func() time.Time
}

type RedisOption func(*RedisRepository)

func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisRepository) { r.prefix = prefix }
}

func WithMaxRetries(n int) RedisOption {
	return func(r *RedisRepository) { r.maxRetries = n }
}

func NewRedisRepository(client redis.UniversalClient, opts ...RedisOption) *RedisRepository {
	r := &RedisRepository{
		client:     client,
		prefix:     defaultKeyPrefix,
		maxRetries: defaultMaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisRepository) accountKey(username string) string {
	return r.prefix + "account:" + username
}

func (r *RedisRepository) emailKey(email string) string {
	return r.prefix + "account-email:" + email
}

func (r *RedisRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.load(ctx, r.client, username)
}

func (r *RedisRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	username, err := r.client.Get(ctx, r.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}
	return r.load(ctx, r.client, username)
}

func (r *RedisRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, r.accountKey(username))
}

func (r *RedisRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, r.emailKey(email))
}

func (r *RedisRepository) exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}

// Save decides between insert and overwrite once, from account.ID. Each
// WATCH attempt starts from a fresh copy so a retried insert is still an
// insert and reports the duplicate that beat it.
func (r *RedisRepository) Save(ctx context.Context, account *models.Account) (*models.Account, error) {
	insert := account.ID == ""
	userKey := r.accountKey(account.Username)
	newEmailKey := r.emailKey(account.Email)

	var saved *models.Account
	err := r.watch(ctx, func(tx *redis.Tx) error {
		acc := account.Clone()
		now := r.now().UTC()
		var oldEmailKey string

		if insert {
			taken, err := tx.Exists(ctx, userKey).Result()
			if err != nil {
				return fmt.Errorf("redis error: %w", err)
			}
			if taken > 0 {
				return common.ErrDuplicateUsername
			}
			if err := r.checkEmailFree(ctx, tx, newEmailKey, ""); err != nil {
				return err
			}
			acc.ID = uuid.NewString()
			acc.CreatedAt = now
		} else {
			stored, err := r.load(ctx, tx, acc.Username)
			if err != nil {
				return err
			}
			if stored.ID != acc.ID {
				return common.ErrNotFound
			}
			if stored.Email != acc.Email {
				if err := r.checkEmailFree(ctx, tx, newEmailKey, acc.Username); err != nil {
					return err
				}
				oldEmailKey = r.emailKey(stored.Email)
			}
			acc.CreatedAt = stored.CreatedAt
		}
		acc.UpdatedAt = now

		_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, userKey, encodeAccount(acc))
			p.Set(ctx, newEmailKey, acc.Username, 0)
			if oldEmailKey != "" {
				p.Del(ctx, oldEmailKey)
			}
			return nil
		})
		if err != nil {
			return err
		}
		saved = acc
		return nil
	}, userKey, newEmailKey)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *RedisRepository) checkEmailFree(ctx context.Context, tx *redis.Tx, key, owner string) error {
	holder, err := tx.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil
	case err != nil:
		return fmt.Errorf("redis error: %w", err)
	case holder != owner:
		return common.ErrDuplicateEmail
	}
	return nil
}

func (r *RedisRepository) Update(ctx context.Context, username string, fn UpdateFunc) (*models.Account, error) {
	var updated *models.Account
	userKey := r.accountKey(username)

	err := r.watch(ctx, func(tx *redis.Tx) error {
		stored, err := r.load(ctx, tx, username)
		if err != nil {
			return err
		}

		acc := stored.Clone()
		if err := fn(acc); err != nil {
			return err
		}
		if err := checkIdentity(stored, acc); err != nil {
			return err
		}
		acc.UpdatedAt = r.now().UTC()

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, userKey, encodeAccount(acc))
			return nil
		})
		if err != nil {
			return err
		}
		updated = acc
		return nil
	}, userKey)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// watch runs fn under WATCH on keys, retrying while EXEC reports that a
// watched key changed underneath it.
func (r *RedisRepository) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < r.maxRetries; i++ {
		err := r.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrTooManyRetries
}

// hashReader is satisfied by both the client and a *redis.Tx.
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func (r *RedisRepository) load(ctx context.Context, c hashReader, username string) (*models.Account, error) {
	fields, err := c.HGetAll(ctx, r.accountKey(username)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, common.ErrNotFound
	}
	acc, err := decodeAccount(fields)
	if err != nil {
		return nil, fmt.Errorf("decode account %q: %w", username, err)
	}
	return acc, nil
}

func encodeAccount(acc *models.Account) map[string]any {
	roles, _ := json.Marshal(acc.Roles.Slice())
	lastLogin := ""
	if acc.LastLogin != nil {
		lastLogin = acc.LastLogin.UTC().Format(time.RFC3339Nano)
	}
	return map[string]any{
		"id":                    acc.ID,
		"username":              acc.Username,
		"email":                 acc.Email,
		"password_hash":         string(acc.PasswordHash),
		"roles":                 string(roles),
		"enabled":               strconv.FormatBool(acc.Enabled),
		"failed_login_attempts": strconv.Itoa(acc.Lockout.FailedAttempts()),
		"account_locked":        strconv.FormatBool(acc.Lockout.Locked()),
		"last_login":            lastLogin,
		"created_at":            acc.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":            acc.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeAccount(f map[string]string) (*models.Account, error) {
	acc := &models.Account{
		ID:           f["id"],
		Username:     f["username"],
		Email:        f["email"],
		PasswordHash: []byte(f["password_hash"]),
	}

	var roles []string
	if err := json.Unmarshal([]byte(f["roles"]), &roles); err != nil {
		return nil, fmt.Errorf("roles: %w", err)
	}
	acc.Roles = models.NewRoles(roles...)

	var err error
	if acc.Enabled, err = strconv.ParseBool(f["enabled"]); err != nil {
		return nil, fmt.Errorf("enabled: %w", err)
	}
	failed, err := strconv.Atoi(f["failed_login_attempts"])
	if err != nil {
		return nil, fmt.Errorf("failed_login_attempts: %w", err)
	}
	locked, err := strconv.ParseBool(f["account_locked"])
	if err != nil {
		return nil, fmt.Errorf("account_locked: %w", err)
	}
	acc.Lockout = models.LockoutFromColumns(failed, locked)

	if v := f["last_login"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("last_login: %w", err)
		}
		acc.LastLogin = &t
	}
	if acc.CreatedAt, err = time.Parse(time.RFC3339Nano, f["created_at"]); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if acc.UpdatedAt, err = time.Parse(time.RFC3339Nano, f["updated_at"]); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	return acc, nil
}
