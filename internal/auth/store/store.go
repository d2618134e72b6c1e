package store

import (
	"context"
	"errors"
	"time"

	"github.com/decorly/decorly/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. Sub-repositories keep concerns tidy and testable.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back on error and
	// committing on nil. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the credential-record repository. Every read excludes soft-deleted
// rows; the filter is written explicitly in each driver query rather than
// rewritten implicitly, so a new query path cannot silently forget it.
type Users interface {
	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Returns ErrAlreadyExists when the email is taken by a non-deleted row.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByID returns a non-deleted user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail returns a non-deleted user by lowercased email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// ListUsers returns all non-deleted users, newest first.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// RecordLoginFailure atomically increments the failed-login counter and,
	// when the counter reaches threshold, sets locked_until. A single UPDATE
	// so concurrent failed attempts cannot lose increments.
	RecordLoginFailure(ctx context.Context, userID string, threshold int, lockUntil time.Time) error

	// RecordLoginSuccess resets the counter, clears the lock and stamps
	// last_login in one atomic update.
	RecordLoginSuccess(ctx context.Context, userID string, at time.Time) error

	// UpdatePasswordHash sets the password hash and password_changed_at, and
	// clears lockout counters and any pending reset token.
	UpdatePasswordHash(ctx context.Context, userID, newHash string, changedAt time.Time) error

	// SetResetToken stores the reset-token fingerprint and its expiry.
	SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// ConsumeResetToken atomically redeems a reset token: in a single
	// compare-and-clear update it matches the fingerprint, checks the expiry
	// against now, writes the new password hash and clears the token fields.
	// Returns ErrNotFound when no row matches (unknown, expired, or already
	// redeemed) so callers cannot distinguish the cases.
	ConsumeResetToken(ctx context.Context, tokenHash, newHash string, now, changedAt time.Time) (domain.User, error)

	// SetActive flips the active flag (deactivate / reactivate).
	SetActive(ctx context.Context, userID string, active bool) error

	// SoftDeleteUser marks the row deleted; it disappears from all lookups.
	SoftDeleteUser(ctx context.Context, userID string) error

	// ClearExpiredResetTokens drops reset fingerprints whose expiry passed.
	// Housekeeping only; redemption checks the expiry itself.
	ClearExpiredResetTokens(ctx context.Context, now time.Time) error
}
