package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/decorly/decorly/internal/auth/domain"
	"github.com/decorly/decorly/internal/auth/store"
)

// userColumns is the canonical select list; scanUser must match it.
const userColumns = `id, name, email, phone, role, password_hash,
	failed_logins, locked_until, password_changed_at,
	reset_token_hash, reset_token_expires,
	active, deleted, last_login, created_at, updated_at`

type usersRepo struct {
	db dbtx
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, phone, role, password_hash, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.Phone, string(u.Role), u.PasswordHash,
		u.Active, u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	return mapUnique(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = ? AND deleted = 0`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = ? AND deleted = 0`, email)
	return scanUser(row)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE deleted = 0
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// RecordLoginFailure is a single UPDATE so concurrent failed attempts for the
// same record cannot lose increments. The lock engages exactly when the
// incremented counter reaches the threshold.
func (r *usersRepo) RecordLoginFailure(
	ctx context.Context,
	userID string,
	threshold int,
	lockUntil time.Time,
) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET failed_logins = failed_logins + 1,
		    locked_until = CASE WHEN failed_logins + 1 >= ? THEN ? ELSE locked_until END,
		    updated_at = ?
		WHERE id = ? AND deleted = 0`,
		threshold, lockUntil.UTC(), time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) RecordLoginSuccess(ctx context.Context, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET failed_logins = 0,
		    locked_until = NULL,
		    last_login = ?,
		    updated_at = ?
		WHERE id = ? AND deleted = 0`,
		at.UTC(), at.UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdatePasswordHash also clears lockout counters and any pending reset
// token: a password change settles every credential question at once.
func (r *usersRepo) UpdatePasswordHash(
	ctx context.Context,
	userID, newHash string,
	changedAt time.Time,
) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?,
		    password_changed_at = ?,
		    failed_logins = 0,
		    locked_until = NULL,
		    reset_token_hash = NULL,
		    reset_token_expires = NULL,
		    updated_at = ?
		WHERE id = ? AND deleted = 0`,
		newHash, changedAt.UTC(), time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetResetToken(
	ctx context.Context,
	userID, tokenHash string,
	expiresAt time.Time,
) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET reset_token_hash = ?,
		    reset_token_expires = ?,
		    updated_at = ?
		WHERE id = ? AND deleted = 0`,
		tokenHash, expiresAt.UTC(), time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ConsumeResetToken is a compare-and-clear: the UPDATE matches the stored
// fingerprint and a still-future expiry, writes the new hash and clears the
// token fields in one statement. Of two concurrent redemptions only one can
// match; the other sees zero rows and gets ErrNotFound.
func (r *usersRepo) ConsumeResetToken(
	ctx context.Context,
	tokenHash, newHash string,
	now, changedAt time.Time,
) (domain.User, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET password_hash = ?,
		    password_changed_at = ?,
		    failed_logins = 0,
		    locked_until = NULL,
		    reset_token_hash = NULL,
		    reset_token_expires = NULL,
		    updated_at = ?
		WHERE reset_token_hash = ?
		  AND reset_token_expires > ?
		  AND deleted = 0
		RETURNING id`,
		newHash, changedAt.UTC(), now.UTC(), tokenHash, now.UTC(),
	).Scan(&id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return r.GetUserByID(ctx, id)
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET active = ?, updated_at = ?
		WHERE id = ? AND deleted = 0`,
		active, time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SoftDeleteUser(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET deleted = 1, updated_at = ?
		WHERE id = ? AND deleted = 0`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET reset_token_hash = NULL,
		    reset_token_expires = NULL
		WHERE reset_token_expires IS NOT NULL
		  AND reset_token_expires <= ?`,
		now.UTC(),
	)
	return err
}

// requireRow maps "no rows updated" to ErrNotFound so callers can tell a
// missing (or soft-deleted) record apart from a silent no-op.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (domain.User, error) {
	var (
		u           domain.User
		role        string
		lockedUntil sql.NullTime
		changedAt   sql.NullTime
		resetHash   sql.NullString
		resetExp    sql.NullTime
		lastLogin   sql.NullTime
	)

	err := s.Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &role, &u.PasswordHash,
		&u.FailedLogins, &lockedUntil, &changedAt,
		&resetHash, &resetExp,
		&u.Active, &u.Deleted, &lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Role = domain.Role(role)
	if lockedUntil.Valid {
		t := lockedUntil.Time
		u.LockedUntil = &t
	}
	if changedAt.Valid {
		t := changedAt.Time
		u.PasswordChangedAt = &t
	}
	if resetHash.Valid {
		h := resetHash.String
		u.ResetTokenHash = &h
	}
	if resetExp.Valid {
		t := resetExp.Time
		u.ResetTokenExpires = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return u, nil
}
