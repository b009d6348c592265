package accounts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/belikesnab/peach/internal/common"
	"github.com/belikesnab/peach/internal/server/models"
)

func newAccount(username, email string) *models.Account {
	return &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: []byte("$2a$04$hash"),
		Roles:        models.NewRoles(common.DefaultRole),
		Enabled:      true,
	}
}

// testRepositoryContract runs the behaviour every backend must share.
func testRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("save assigns id and timestamps", func(t *testing.T) {
		repo := newRepo(t)

		saved, err := repo.Save(ctx, newAccount("alice", "alice@example.com"))
		require.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
		assert.False(t, saved.CreatedAt.IsZero())

		got, err := repo.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, saved.ID, got.ID)
		assert.Equal(t, "alice@example.com", got.Email)
		assert.Equal(t, []string{"USER"}, got.Roles.Slice())
		assert.Equal(t, models.Unlocked, got.Lockout.State())
		assert.True(t, got.Enabled)

		byEmail, err := repo.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, saved.ID, byEmail.ID)
	})

	t.Run("duplicates", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Save(ctx, newAccount("alice", "alice@example.com"))
		require.NoError(t, err)

		_, err = repo.Save(ctx, newAccount("alice", "other@example.com"))
		assert.ErrorIs(t, err, common.ErrDuplicateUsername)

		_, err = repo.Save(ctx, newAccount("bob", "alice@example.com"))
		assert.ErrorIs(t, err, common.ErrDuplicateEmail)

		ok, err := repo.ExistsByUsername(ctx, "bob")
		require.NoError(t, err)
		assert.False(t, ok, "failed insert must not leave a record behind")
	})

	t.Run("concurrent inserts report duplicates", func(t *testing.T) {
		repo := newRepo(t)
		const rounds, workers = 10, 8

		race := func(t *testing.T, account func(round, worker int) *models.Account, wantErr error) {
			for round := 0; round < rounds; round++ {
				var wg sync.WaitGroup
				errs := make(chan error, workers)
				for w := 0; w < workers; w++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, err := repo.Save(ctx, account(round, w))
						errs <- err
					}()
				}
				wg.Wait()
				close(errs)

				var saved int
				for err := range errs {
					if err == nil {
						saved++
						continue
					}
					require.ErrorIs(t, err, wantErr)
				}
				assert.Equal(t, 1, saved, "round %d", round)
			}
		}

		t.Run("same username", func(t *testing.T) {
			race(t, func(round, worker int) *models.Account {
				return newAccount(fmt.Sprintf("user%d", round), fmt.Sprintf("user%d.%d@example.com", round, worker))
			}, common.ErrDuplicateUsername)
		})
		t.Run("same email", func(t *testing.T) {
			race(t, func(round, worker int) *models.Account {
				return newAccount(fmt.Sprintf("mail%d.%d", round, worker), fmt.Sprintf("shared%d@example.com", round))
			}, common.ErrDuplicateEmail)
		})
	})

	t.Run("exists and not found", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Save(ctx, newAccount("carol", "carol@example.com"))
		require.NoError(t, err)

		ok, err := repo.ExistsByUsername(ctx, "carol")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.ExistsByEmail(ctx, "carol@example.com")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.ExistsByEmail(ctx, "ghost@example.com")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = repo.FindByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, common.ErrNotFound)
		_, err = repo.FindByEmail(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("save existing moves email index", func(t *testing.T) {
		repo := newRepo(t)
		saved, err := repo.Save(ctx, newAccount("dave", "dave@example.com"))
		require.NoError(t, err)

		saved.Email = "dave@new.example.com"
		saved.Roles = models.NewRoles("USER", "ADMIN")
		_, err = repo.Save(ctx, saved)
		require.NoError(t, err)

		got, err := repo.FindByEmail(ctx, "dave@new.example.com")
		require.NoError(t, err)
		assert.Equal(t, []string{"ADMIN", "USER"}, got.Roles.Slice())

		_, err = repo.FindByEmail(ctx, "dave@example.com")
		assert.ErrorIs(t, err, common.ErrNotFound)

		stranger := newAccount("dave", "x@example.com")
		stranger.ID = "not-the-stored-id"
		_, err = repo.Save(ctx, stranger)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Save(ctx, newAccount("erin", "erin@example.com"))
		require.NoError(t, err)

		got, err := repo.FindByUsername(ctx, "erin")
		require.NoError(t, err)
		got.Roles["ADMIN"] = struct{}{}
		got.Lockout = got.Lockout.Fail(1)

		again, err := repo.FindByUsername(ctx, "erin")
		require.NoError(t, err)
		assert.False(t, again.Roles.Has("ADMIN"))
		assert.False(t, again.Lockout.Locked())
	})

	t.Run("update persists mutation", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Save(ctx, newAccount("frank", "frank@example.com"))
		require.NoError(t, err)

		updated, err := repo.Update(ctx, "frank", func(a *models.Account) error {
			a.Lockout = a.Lockout.Fail(2).Fail(2)
			return nil
		})
		require.NoError(t, err)
		assert.True(t, updated.Lockout.Locked())

		got, err := repo.FindByUsername(ctx, "frank")
		require.NoError(t, err)
		assert.True(t, got.Lockout.Locked())
		assert.Equal(t, 2, got.Lockout.FailedAttempts())
	})

	t.Run("update aborted by fn writes nothing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Save(ctx, newAccount("gina", "gina@example.com"))
		require.NoError(t, err)

		stop := errors.New("stop")
		_, err = repo.Update(ctx, "gina", func(a *models.Account) error {
			a.Lockout = a.Lockout.Fail(5)
			return stop
		})
		assert.ErrorIs(t, err, stop)

		got, err := repo.FindByUsername(ctx, "gina")
		require.NoError(t, err)
		assert.Equal(t, 0, got.Lockout.FailedAttempts())
	})

	t.Run("update missing and identity guards", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Update(ctx, "ghost", func(a *models.Account) error { return nil })
		assert.ErrorIs(t, err, common.ErrNotFound)

		_, err = repo.Save(ctx, newAccount("hank", "hank@example.com"))
		require.NoError(t, err)
		_, err = repo.Update(ctx, "hank", func(a *models.Account) error {
			a.Username = "henry"
			return nil
		})
		assert.ErrorIs(t, err, ErrIdentityChanged)
	})

	t.Run("concurrent updates lose no increments", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Save(ctx, newAccount("ivy", "ivy@example.com"))
		require.NoError(t, err)

		const workers = 20
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Update(ctx, "ivy", func(a *models.Account) error {
					a.Lockout = a.Lockout.Fail(1000)
					return nil
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := repo.FindByUsername(ctx, "ivy")
		require.NoError(t, err)
		assert.Equal(t, workers, got.Lockout.FailedAttempts())
	})
}
