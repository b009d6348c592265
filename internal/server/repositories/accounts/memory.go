package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/belikesnab/peach/internal/common"
	"github.com/belikesnab/peach/internal/server/models"
)

// MemoryRepository keeps accounts in process memory. Records are copied on
// the way in and out.
type MemoryRepository struct {
	mu         sync.Mutex
	byUsername map[string]*models.Account
	byEmail    map[string]string
	now        func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byUsername: make(map[string]*models.Account),
		byEmail:    make(map[string]string),
		now:        time.Now,
	}
}

func (r *MemoryRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.byUsername[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	return acc.Clone(), nil
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	username, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	return r.byUsername[username].Clone(), nil
}

func (r *MemoryRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.byUsername[username]
	return ok, nil
}

func (r *MemoryRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *MemoryRepository) Save(ctx context.Context, account *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc := account.Clone()
	now := r.now().UTC()

	if acc.ID == "" {
		if _, ok := r.byUsername[acc.Username]; ok {
			return nil, common.ErrDuplicateUsername
		}
		if _, ok := r.byEmail[acc.Email]; ok {
			return nil, common.ErrDuplicateEmail
		}
		acc.ID = uuid.NewString()
		acc.CreatedAt = now
		acc.UpdatedAt = now
		r.byUsername[acc.Username] = acc
		r.byEmail[acc.Email] = acc.Username
		return acc.Clone(), nil
	}

	stored, ok := r.byUsername[acc.Username]
	if !ok || stored.ID != acc.ID {
		return nil, common.ErrNotFound
	}
	if acc.Email != stored.Email {
		if _, taken := r.byEmail[acc.Email]; taken {
			return nil, common.ErrDuplicateEmail
		}
		delete(r.byEmail, stored.Email)
		r.byEmail[acc.Email] = acc.Username
	}
	acc.CreatedAt = stored.CreatedAt
	acc.UpdatedAt = now
	r.byUsername[acc.Username] = acc
	return acc.Clone(), nil
}

func (r *MemoryRepository) Update(ctx context.Context, username string, fn UpdateFunc) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byUsername[username]
	if !ok {
		return nil, common.ErrNotFound
	}

	acc := stored.Clone()
	if err := fn(acc); err != nil {
		return nil, err
	}
	if err := checkIdentity(stored, acc); err != nil {
		return nil, err
	}

	acc.UpdatedAt = r.now().UTC()
	r.byUsername[username] = acc
	return acc.Clone(), nil
}
