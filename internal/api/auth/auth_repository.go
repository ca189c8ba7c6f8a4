package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-user-auth-api/app/observability/metrics"
	"github.com/FACorreiaa/go-user-auth-api/internal/types"
)

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo defines the contract for credential-record persistence.
// Lookups return types.ErrNotFound when no row matches; writes that violate
// a uniqueness constraint return types.ErrConflict.
type AuthRepo interface {
	GetAccountByID(ctx context.Context, id string) (*types.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*types.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*types.Account, error)
	// GetAccountByResetToken locates an account by the stored reset-token
	// value, never by a user-supplied id.
	GetAccountByResetToken(ctx context.Context, token string) (*types.Account, error)
	GetAccountByVerificationToken(ctx context.Context, token string) (*types.Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	CreateAccount(ctx context.Context, acc *types.Account) (*types.Account, error)

	// RecordLoginFailure increments the failed-attempt counter and sets the
	// lock timestamp when the counter crosses threshold, as one atomic
	// statement. It returns the post-increment counter and lock expiry.
	RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, *time.Time, error)
	// RecordLoginSuccess resets the counter, clears the lock and stamps the
	// login instant.
	RecordLoginSuccess(ctx context.Context, id string, loginAt time.Time) error
	// ClearExpiredLock persists the lazy-expiry transition back to
	// Unlocked(0). The guard on locked_until keeps it from racing a newer lock.
	ClearExpiredLock(ctx context.Context, id string, now time.Time) error

	SetPassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	// ResetPassword sets the new hash and clears the reset-token pair and
	// any lockout state in a single statement.
	ResetPassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error

	SetVerificationToken(ctx context.Context, id, token string) error
	// MarkEmailVerified flips is_verified and clears the matched token only,
	// so a concurrently issued newer token is left untouched.
	MarkEmailVerified(ctx context.Context, id, matchedToken string, verifiedAt time.Time) error
}

const accountColumns = `id, username, email, role, password_hash, is_active, is_verified,
       failed_login_attempts, locked_until, email_verification_token,
       password_reset_token, password_reset_expires_at,
       last_login_at, password_changed_at, email_verified_at, created_at, updated_at`

// PGXPool is the subset of pgxpool.Pool the repository needs. pgxmock
// implements the same subset, so tests can run against an expectation pool.
type PGXPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ PGXPool = (*pgxpool.Pool)(nil)

type PostgresAuthRepo struct {
	logger  *slog.Logger
	pgpool  PGXPool
	metrics *metrics.AppMetrics
}

func NewPostgresAuthRepo(pgpool PGXPool, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

// WithMetrics attaches query instrumentation. The recording helpers are
// nil-safe, so a repo without metrics works unchanged.
func (r *PostgresAuthRepo) WithMetrics(m *metrics.AppMetrics) *PostgresAuthRepo {
	r.metrics = m
	return r
}

// exec wraps pool.Exec with duration and error instrumentation.
func (r *PostgresAuthRepo) exec(ctx context.Context, op, query string, args ...any) (pgconn.CommandTag, error) {
	start := time.Now()
	tag, err := r.pgpool.Exec(ctx, query, args...)
	r.metrics.ObserveDBQuery(ctx, op, time.Since(start), err)
	return tag, err
}

func scanAccount(row pgx.Row) (*types.Account, error) {
	var acc types.Account
	err := row.Scan(
		&acc.ID, &acc.Username, &acc.Email, &acc.Role, &acc.PasswordHash,
		&acc.IsActive, &acc.IsVerified,
		&acc.FailedLoginAttempts, &acc.LockedUntil, &acc.EmailVerificationToken,
		&acc.PasswordResetToken, &acc.PasswordResetExpiresAt,
		&acc.LastLoginAt, &acc.PasswordChangedAt, &acc.EmailVerifiedAt,
		&acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("database error scanning account: %w", err)
	}
	return &acc, nil
}

func (r *PostgresAuthRepo) getAccountBy(ctx context.Context, spanName, where string, arg any) (*types.Account, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, spanName, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM users WHERE %s", accountColumns, where)
	start := time.Now()
	acc, err := scanAccount(r.pgpool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			r.metrics.ObserveDBQuery(ctx, spanName, time.Since(start), nil)
		} else {
			r.metrics.ObserveDBQuery(ctx, spanName, time.Since(start), err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "account lookup failed")
		}
		return nil, err
	}
	r.metrics.ObserveDBQuery(ctx, spanName, time.Since(start), nil)
	return acc, nil
}

func (r *PostgresAuthRepo) GetAccountByID(ctx context.Context, id string) (*types.Account, error) {
	return r.getAccountBy(ctx, "GetAccountByID", "id = $1", id)
}

func (r *PostgresAuthRepo) GetAccountByUsername(ctx context.Context, username string) (*types.Account, error) {
	return r.getAccountBy(ctx, "GetAccountByUsername", "username = $1", types.NormalizeIdentifier(username))
}

func (r *PostgresAuthRepo) GetAccountByEmail(ctx context.Context, email string) (*types.Account, error) {
	return r.getAccountBy(ctx, "GetAccountByEmail", "email = $1", types.NormalizeIdentifier(email))
}

func (r *PostgresAuthRepo) GetAccountByResetToken(ctx context.Context, token string) (*types.Account, error) {
	return r.getAccountBy(ctx, "GetAccountByResetToken", "password_reset_token = $1", token)
}

func (r *PostgresAuthRepo) GetAccountByVerificationToken(ctx context.Context, token string) (*types.Account, error) {
	return r.getAccountBy(ctx, "GetAccountByVerificationToken", "email_verification_token = $1", token)
}

func (r *PostgresAuthRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pgpool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)",
		types.NormalizeIdentifier(username)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("database error checking username: %w", err)
	}
	return exists, nil
}

func (r *PostgresAuthRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pgpool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)",
		types.NormalizeIdentifier(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("database error checking email: %w", err)
	}
	return exists, nil
}

func (r *PostgresAuthRepo) CreateAccount(ctx context.Context, acc *types.Account) (*types.Account, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "CreateAccount", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "CreateAccount"))

	query := fmt.Sprintf(`
        INSERT INTO users (username, email, role, password_hash, is_active, is_verified)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING %s`, accountColumns)

	start := time.Now()
	created, err := scanAccount(r.pgpool.QueryRow(ctx, query,
		types.NormalizeIdentifier(acc.Username),
		types.NormalizeIdentifier(acc.Email),
		acc.Role, acc.PasswordHash, acc.IsActive, acc.IsVerified,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique violation
			// A duplicate is a client outcome, not a query failure.
			r.metrics.ObserveDBQuery(ctx, "CreateAccount", time.Since(start), nil)
			l.WarnContext(ctx, "Attempted to create account with duplicate username or email",
				slog.String("constraint", pgErr.ConstraintName))
			span.RecordError(err)
			span.SetStatus(codes.Error, "duplicate account")
			return nil, fmt.Errorf("account already exists: %w", types.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to insert account", slog.Any("error", err))
		r.metrics.ObserveDBQuery(ctx, "CreateAccount", time.Since(start), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, fmt.Errorf("database error creating account: %w", err)
	}
	r.metrics.ObserveDBQuery(ctx, "CreateAccount", time.Since(start), nil)
	return created, nil
}

func (r *PostgresAuthRepo) RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "RecordLoginFailure", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	// Single atomic statement: two concurrent failures can never both read
	// the same counter value and under-count a lockout.
	var attempts int
	var lockedUntil *time.Time
	start := time.Now()
	err := r.pgpool.QueryRow(ctx, `
        UPDATE users
        SET failed_login_attempts = failed_login_attempts + 1,
            locked_until = CASE WHEN failed_login_attempts + 1 >= $2 THEN $3 ELSE locked_until END,
            updated_at = now()
        WHERE id = $1
        RETURNING failed_login_attempts, locked_until`,
		id, threshold, lockUntil).Scan(&attempts, &lockedUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.metrics.ObserveDBQuery(ctx, "RecordLoginFailure", time.Since(start), nil)
			return 0, nil, types.ErrNotFound
		}
		r.metrics.ObserveDBQuery(ctx, "RecordLoginFailure", time.Since(start), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed-attempt update failed")
		return 0, nil, fmt.Errorf("database error recording login failure: %w", err)
	}
	r.metrics.ObserveDBQuery(ctx, "RecordLoginFailure", time.Since(start), nil)
	return attempts, lockedUntil, nil
}

func (r *PostgresAuthRepo) RecordLoginSuccess(ctx context.Context, id string, loginAt time.Time) error {
	tag, err := r.exec(ctx, "RecordLoginSuccess", `
        UPDATE users
        SET failed_login_attempts = 0,
            locked_until = NULL,
            last_login_at = $2,
            updated_at = now()
        WHERE id = $1`,
		id, loginAt)
	if err != nil {
		return fmt.Errorf("database error recording login success: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) ClearExpiredLock(ctx context.Context, id string, now time.Time) error {
	_, err := r.exec(ctx, "ClearExpiredLock", `
        UPDATE users
        SET failed_login_attempts = 0,
            locked_until = NULL,
            updated_at = now()
        WHERE id = $1 AND locked_until IS NOT NULL AND locked_until <= $2`,
		id, now)
	if err != nil {
		return fmt.Errorf("database error clearing expired lock: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) SetPassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	tag, err := r.exec(ctx, "SetPassword", `
        UPDATE users
        SET password_hash = $2,
            password_changed_at = $3,
            updated_at = now()
        WHERE id = $1`,
		id, passwordHash, changedAt)
	if err != nil {
		return fmt.Errorf("database error updating password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	tag, err := r.exec(ctx, "SetResetToken", `
        UPDATE users
        SET password_reset_token = $2,
            password_reset_expires_at = $3,
            updated_at = now()
        WHERE id = $1`,
		id, token, expiresAt)
	if err != nil {
		return fmt.Errorf("database error storing reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) ClearResetToken(ctx context.Context, id string) error {
	_, err := r.exec(ctx, "ClearResetToken", `
        UPDATE users
        SET password_reset_token = NULL,
            password_reset_expires_at = NULL,
            updated_at = now()
        WHERE id = $1`,
		id)
	if err != nil {
		return fmt.Errorf("database error clearing reset token: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) ResetPassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "ResetPassword", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	tag, err := r.exec(ctx, "ResetPassword", `
        UPDATE users
        SET password_hash = $2,
            password_changed_at = $3,
            password_reset_token = NULL,
            password_reset_expires_at = NULL,
            failed_login_attempts = 0,
            locked_until = NULL,
            updated_at = now()
        WHERE id = $1`,
		id, passwordHash, changedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password reset failed")
		return fmt.Errorf("database error resetting password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) SetVerificationToken(ctx context.Context, id, token string) error {
	tag, err := r.exec(ctx, "SetVerificationToken", `
        UPDATE users
        SET email_verification_token = $2,
            updated_at = now()
        WHERE id = $1`,
		id, token)
	if err != nil {
		return fmt.Errorf("database error storing verification token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) MarkEmailVerified(ctx context.Context, id, matchedToken string, verifiedAt time.Time) error {
	// The token predicate guarantees a newer, still-pending token is never
	// cleared by a stale verification request.
	tag, err := r.exec(ctx, "MarkEmailVerified", `
        UPDATE users
        SET is_verified = TRUE,
            email_verified_at = $3,
            email_verification_token = NULL,
            updated_at = now()
        WHERE id = $1 AND email_verification_token = $2`,
		id, matchedToken, verifiedAt)
	if err != nil {
		return fmt.Errorf("database error verifying email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}
