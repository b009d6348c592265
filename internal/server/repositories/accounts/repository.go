// Package accounts stores Account Records. Every backend provides the same
// contract, including the atomic read-modify-write used by the login flow.
package accounts

import (
	"context"
	"errors"

	"github.com/belikesnab/peach/internal/server/models"
)

// ErrIdentityChanged is returned by Update when the mutation touches the
// record's id, username or email.
var ErrIdentityChanged = errors.New("accounts: update must not change id, username or email")

// UpdateFunc mutates a loaded record. Returning an error aborts the update
// without writing anything.
type UpdateFunc func(account *models.Account) error

type Repository interface {
	// FindByUsername and FindByEmail return common.ErrNotFound when absent.
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Save inserts an account with an empty ID, assigning ID and CreatedAt,
	// or overwrites the stored account with the same ID and username.
	// Uniqueness violations surface as common.ErrDuplicateUsername or
	// common.ErrDuplicateEmail.
	Save(ctx context.Context, account *models.Account) (*models.Account, error)

	// Update loads the account by username, applies fn and writes the result
	// as one atomic step with respect to other Update calls on the same
	// account.
	Update(ctx context.Context, username string, fn UpdateFunc) (*models.Account, error)
}

func checkIdentity(before, after *models.Account) error {
	if before.ID != after.ID || before.Username != after.Username || before.Email != after.Email {
		return ErrIdentityChanged
	}
	return nil
}
