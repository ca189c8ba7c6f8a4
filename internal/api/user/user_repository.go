package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-user-auth-api/internal/types"
)

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo defines the contract for account profile persistence.
type UserRepo interface {
	// GetUserByID retrieves a user's profile by their unique ID.
	// Returns types.ErrNotFound if the user doesn't exist.
	GetUserByID(ctx context.Context, userID string) (*UserProfile, error)

	// UpdateProfile updates mutable fields on a user's profile.
	// Returns types.ErrNotFound if the user doesn't exist or is inactive,
	// types.ErrConflict when a unique constraint is violated.
	UpdateProfile(ctx context.Context, userID string, params UpdateProfileParams) error

	// DeactivateUser marks a user as inactive (soft delete).
	DeactivateUser(ctx context.Context, userID string) error

	// ReactivateUser marks a user as active again.
	ReactivateUser(ctx context.Context, userID string) error

	// UnlockUser clears the lockout state and failure counter.
	UnlockUser(ctx context.Context, userID string) error
}

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresUserRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, userID string) (*UserProfile, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "GetUserByID"), slog.String("userID", userID))

	var p UserProfile
	err := r.pgpool.QueryRow(ctx, `
        SELECT id, username, email, role, is_active, is_verified,
               failed_login_attempts, locked_until, last_login_at,
               email_verified_at, created_at, updated_at
        FROM users
        WHERE id = $1`,
		userID).Scan(
		&p.ID, &p.Username, &p.Email, &p.Role, &p.IsActive, &p.IsVerified,
		&p.FailedLoginAttempts, &p.LockedUntil, &p.LastLoginAt,
		&p.EmailVerifiedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, types.ErrNotFound
		}
		l.ErrorContext(ctx, "Failed to query user profile", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching user profile: %w", err)
	}

	return &p, nil
}

func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, userID string, params UpdateProfileParams) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "UpdateProfile"), slog.String("userID", userID))

	var setClauses []string
	var args []interface{}
	argID := 1

	if params.Username != nil {
		setClauses = append(setClauses, fmt.Sprintf("username = $%d", argID))
		args = append(args, *params.Username)
		argID++
		span.SetAttributes(attribute.Bool("update.username", true))
	}
	if params.Email != nil {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", argID))
		args = append(args, *params.Email)
		argID++
		span.SetAttributes(attribute.Bool("update.email", true))
	}

	if len(setClauses) == 0 {
		l.WarnContext(ctx, "UpdateProfile called with no fields to update")
		span.SetStatus(codes.Ok, "No update fields provided")
		return nil
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argID))
	args = append(args, time.Now())
	argID++

	args = append(args, userID)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d AND is_active = TRUE",
		strings.Join(setClauses, ", "), argID)

	tag, err := r.pgpool.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			l.WarnContext(ctx, "Profile update hit unique constraint", slog.String("constraint", pgErr.ConstraintName))
			span.SetStatus(codes.Error, "Unique constraint violation")
			return types.ErrConflict
		}
		l.ErrorContext(ctx, "Failed to execute update profile query", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error updating profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "User not found or inactive")
		return types.ErrNotFound
	}

	span.SetStatus(codes.Ok, "Profile updated")
	return nil
}

func (r *PostgresUserRepo) DeactivateUser(ctx context.Context, userID string) error {
	return r.setActive(ctx, "DeactivateUser", userID, false)
}

func (r *PostgresUserRepo) ReactivateUser(ctx context.Context, userID string) error {
	return r.setActive(ctx, "ReactivateUser", userID, true)
}

func (r *PostgresUserRepo) setActive(ctx context.Context, method, userID string, active bool) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, method, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", method), slog.String("userID", userID))

	tag, err := r.pgpool.Exec(ctx,
		"UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1",
		userID, active)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update account active flag", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error updating account status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "User not found")
		return types.ErrNotFound
	}

	span.SetStatus(codes.Ok, "Account status updated")
	return nil
}

func (r *PostgresUserRepo) UnlockUser(ctx context.Context, userID string) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UnlockUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "UnlockUser"), slog.String("userID", userID))

	tag, err := r.pgpool.Exec(ctx, `
        UPDATE users
        SET failed_login_attempts = 0, locked_until = NULL, updated_at = now()
        WHERE id = $1`,
		userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to unlock account", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error unlocking account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "User not found")
		return types.ErrNotFound
	}

	l.InfoContext(ctx, "Account unlocked")
	span.SetStatus(codes.Ok, "Account unlocked")
	return nil
}
