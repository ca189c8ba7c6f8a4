package auth

import (
	"context"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-user-auth-api/internal/types"
)

var accountRowColumns = []string{
	"id", "username", "email", "role", "password_hash", "is_active", "is_verified",
	"failed_login_attempts", "locked_until", "email_verification_token",
	"password_reset_token", "password_reset_expires_at",
	"last_login_at", "password_changed_at", "email_verified_at", "created_at", "updated_at",
}

func accountRow(acc *types.Account) *pgxmock.Rows {
	return pgxmock.NewRows(accountRowColumns).AddRow(
		acc.ID, acc.Username, acc.Email, acc.Role, acc.PasswordHash,
		acc.IsActive, acc.IsVerified,
		acc.FailedLoginAttempts, acc.LockedUntil, acc.EmailVerificationToken,
		acc.PasswordResetToken, acc.PasswordResetExpiresAt,
		acc.LastLoginAt, acc.PasswordChangedAt, acc.EmailVerifiedAt,
		acc.CreatedAt, acc.UpdatedAt,
	)
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresAuthRepo) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool, NewPostgresAuthRepo(mockPool, slog.Default())
}

func TestGetAccountByUsername(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		acc := testAccount()

		mockPool.ExpectQuery("SELECT (.+) FROM users WHERE username = \\$1").
			WithArgs("testuser").
			WillReturnRows(accountRow(acc))

		// The identifier is normalized before it reaches SQL.
		got, err := repo.GetAccountByUsername(ctx, "  TestUser ")
		assert.NoError(t, err)
		assert.Equal(t, acc.ID, got.ID)
		assert.Equal(t, acc.Username, got.Username)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectQuery("SELECT (.+) FROM users WHERE username = \\$1").
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetAccountByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		acc := testAccount()
		acc.PasswordHash = "$2a$10$hash"

		mockPool.ExpectQuery("INSERT INTO users").
			WithArgs("testuser", "test@example.com", "user", "$2a$10$hash", true, false).
			WillReturnRows(accountRow(acc))

		created, err := repo.CreateAccount(ctx, &types.Account{
			Username:     "TestUser",
			Email:        "Test@Example.com",
			Role:         "user",
			PasswordHash: "$2a$10$hash",
			IsActive:     true,
			IsVerified:   false,
		})
		assert.NoError(t, err)
		assert.Equal(t, acc.ID, created.ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DuplicateMapsToConflict", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectQuery("INSERT INTO users").
			WithArgs("testuser", "test@example.com", "user", "hash", true, false).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

		_, err := repo.CreateAccount(ctx, &types.Account{
			Username:     "testuser",
			Email:        "test@example.com",
			Role:         "user",
			PasswordHash: "hash",
			IsActive:     true,
		})
		assert.ErrorIs(t, err, types.ErrConflict)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestRecordLoginFailure(t *testing.T) {
	ctx := context.Background()
	id := "8b9f1a36-4f53-4b0e-9d0f-0a1c2d3e4f5a"
	lockUntil := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	t.Run("BelowThreshold", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectQuery(regexp.QuoteMeta("failed_login_attempts = failed_login_attempts + 1")).
			WithArgs(id, 5, lockUntil).
			WillReturnRows(pgxmock.NewRows([]string{"failed_login_attempts", "locked_until"}).
				AddRow(2, (*time.Time)(nil)))

		attempts, lockedUntil, err := repo.RecordLoginFailure(ctx, id, 5, lockUntil)
		assert.NoError(t, err)
		assert.Equal(t, 2, attempts)
		assert.Nil(t, lockedUntil)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("ThresholdSetsLock", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectQuery(regexp.QuoteMeta("failed_login_attempts = failed_login_attempts + 1")).
			WithArgs(id, 5, lockUntil).
			WillReturnRows(pgxmock.NewRows([]string{"failed_login_attempts", "locked_until"}).
				AddRow(5, &lockUntil))

		attempts, lockedUntil, err := repo.RecordLoginFailure(ctx, id, 5, lockUntil)
		assert.NoError(t, err)
		assert.Equal(t, 5, attempts)
		if assert.NotNil(t, lockedUntil) {
			assert.Equal(t, lockUntil, *lockedUntil)
		}
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectQuery(regexp.QuoteMeta("failed_login_attempts = failed_login_attempts + 1")).
			WithArgs(id, 5, lockUntil).
			WillReturnError(pgx.ErrNoRows)

		_, _, err := repo.RecordLoginFailure(ctx, id, 5, lockUntil)
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestRecordLoginSuccess(t *testing.T) {
	ctx := context.Background()
	id := "8b9f1a36-4f53-4b0e-9d0f-0a1c2d3e4f5a"
	loginAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("ResetsCounterAndLock", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectExec(regexp.QuoteMeta("failed_login_attempts = 0")).
			WithArgs(id, loginAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.RecordLoginSuccess(ctx, id, loginAt))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectExec(regexp.QuoteMeta("failed_login_attempts = 0")).
			WithArgs(id, loginAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.RecordLoginSuccess(ctx, id, loginAt), types.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestClearExpiredLockIsGuarded(t *testing.T) {
	ctx := context.Background()
	id := "8b9f1a36-4f53-4b0e-9d0f-0a1c2d3e4f5a"
	now := time.Date(2025, 6, 1, 12, 31, 0, 0, time.UTC)

	mockPool, repo := newMockRepo(t)

	// The predicate keeps a concurrent fresh lock from being wiped; zero
	// affected rows is not an error here.
	mockPool.ExpectExec(regexp.QuoteMeta("locked_until IS NOT NULL AND locked_until <= $2")).
		WithArgs(id, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, repo.ClearExpiredLock(ctx, id, now))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestResetPasswordClearsTokenAndLockout(t *testing.T) {
	ctx := context.Background()
	id := "8b9f1a36-4f53-4b0e-9d0f-0a1c2d3e4f5a"
	changedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mockPool, repo := newMockRepo(t)

	mockPool.ExpectExec(regexp.QuoteMeta("password_reset_token = NULL")).
		WithArgs(id, "new-hash", changedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.ResetPassword(ctx, id, "new-hash", changedAt))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestMarkEmailVerified(t *testing.T) {
	ctx := context.Background()
	id := "8b9f1a36-4f53-4b0e-9d0f-0a1c2d3e4f5a"
	verifiedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("TokenMatches", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectExec(regexp.QuoteMeta("email_verification_token = $2")).
			WithArgs(id, "the-token", verifiedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.MarkEmailVerified(ctx, id, "the-token", verifiedAt))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("TokenChangedUnderneath", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectExec(regexp.QuoteMeta("email_verification_token = $2")).
			WithArgs(id, "stale-token", verifiedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.MarkEmailVerified(ctx, id, "stale-token", verifiedAt), types.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestUsernameExists(t *testing.T) {
	ctx := context.Background()
	mockPool, repo := newMockRepo(t)

	mockPool.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)")).
		WithArgs("testuser").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.UsernameExists(ctx, "TestUser")
	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
