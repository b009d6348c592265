package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/belikesnab/peach/internal/common"
	"github.com/belikesnab/peach/internal/dbx"
	"github.com/belikesnab/peach/internal/server/models"
)

const (
	usernameConstraint = "accounts_username_key"
	emailConstraint    = "accounts_email_key"
)

const accountColumns = `id, username, email, password_hash, roles, enabled,
		 failed_login_attempts, account_locked, last_login, created_at, updated_at`

// PostgresRepository stores accounts in the accounts table. Update runs in a
// transaction holding a row lock on the account.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// roleArray scans a text[] column. pgx encodes []string arguments natively.
type roleArray []string

func (a *roleArray) Scan(src any) error {
	var roles []string
	if err := pgtype.NewMap().SQLScanner(&roles).Scan(src); err != nil {
		return fmt.Errorf("scan roles: %w", err)
	}
	*a = roles
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		acc       models.Account
		roles     roleArray
		failed    int
		locked    bool
		lastLogin sql.NullTime
	)

	err := row.Scan(&acc.ID, &acc.Username, &acc.Email, &acc.PasswordHash, &roles, &acc.Enabled,
		&failed, &locked, &lastLogin, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	acc.Roles = models.NewRoles(roles...)
	acc.Lockout = models.LockoutFromColumns(failed, locked)
	if lastLogin.Valid {
		t := lastLogin.Time
		acc.LastLogin = &t
	}
	return &acc, nil
}

func findOne(ctx context.Context, db dbx.DBTX, query string, arg any) (*models.Account, error) {
	acc, err := scanAccount(db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return acc, nil
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + `
		 FROM accounts
		 WHERE username = $1`

	return findOne(ctx, r.db, query, username)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + `
		 FROM accounts
		 WHERE email = $1`

	return findOne(ctx, r.db, query, email)
}

func (r *PostgresRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1)`, username)
}

func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, email)
}

func (r *PostgresRepository) Save(ctx context.Context, account *models.Account) (*models.Account, error) {
	acc := account.Clone()

	if acc.ID == "" {
		query :=
			`INSERT INTO accounts (username, email, password_hash, roles, enabled,
		 failed_login_attempts, account_locked, last_login)
		 VALUES ($1, $2, $3, $4::text[], $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`

		err := r.db.QueryRowContext(ctx, query,
			acc.Username, acc.Email, acc.PasswordHash, acc.Roles.Slice(), acc.Enabled,
			acc.Lockout.FailedAttempts(), acc.Lockout.Locked(), acc.LastLogin,
		).Scan(&acc.ID, &acc.CreatedAt, &acc.UpdatedAt)
		if err != nil {
			return nil, mapWriteError(err)
		}
		return acc, nil
	}

	if err := write(ctx, r.db, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (r *PostgresRepository) Update(ctx context.Context, username string, fn UpdateFunc) (*models.Account, error) {
	var updated *models.Account

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `SELECT ` + accountColumns + `
		 FROM accounts
		 WHERE username = $1
		 FOR UPDATE`

		stored, err := findOne(ctx, tx, query, username)
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
		if err := write(ctx, tx, acc); err != nil {
			return err
		}
		updated = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// write overwrites every mutable column of the row identified by acc.ID.
func write(ctx context.Context, db dbx.DBTX, acc *models.Account) error {
	query :=
		`UPDATE accounts
		 SET email = $3, password_hash = $4, roles = $5::text[], enabled = $6,
		     failed_login_attempts = $7, account_locked = $8, last_login = $9, updated_at = now()
		 WHERE id = $1 AND username = $2
		 RETURNING created_at, updated_at`

	var createdAt, updatedAt time.Time
	err := db.QueryRowContext(ctx, query,
		acc.ID, acc.Username, acc.Email, acc.PasswordHash, acc.Roles.Slice(), acc.Enabled,
		acc.Lockout.FailedAttempts(), acc.Lockout.Locked(), acc.LastLogin,
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return mapWriteError(err)
	}

	acc.CreatedAt = createdAt
	acc.UpdatedAt = updatedAt
	return nil
}

func mapWriteError(err error) error {
	if constraint, ok := dbx.UniqueViolation(err); ok {
		switch constraint {
		case usernameConstraint:
			return common.ErrDuplicateUsername
		case emailConstraint:
			return common.ErrDuplicateEmail
		}
	}
	return fmt.Errorf("db error: %w", err)
}
