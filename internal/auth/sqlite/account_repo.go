// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package sqlite implements the auth store gateway on an embedded SQLite
// database for single-node servers.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/identity"
)

const accountColumns = `id, name_key, display_name, password_hash, email,
	last_login, last_ip, registration_ip, failed_attempts,
	locked_until, created_at, updated_at`

// AccountRepository implements auth.AccountRepository using SQLite.
// Timestamps are stored as UTC unix milliseconds.
type AccountRepository struct {
	db *sql.DB
}

var _ auth.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates a new AccountRepository on a migrated db.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// IsAuthAvailable reports whether an account exists for key.
func (r *AccountRepository) IsAuthAvailable(ctx context.Context, key identity.Key) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE name_key = ?)`,
		key.String()).Scan(&exists)
	if err != nil {
		return false, oops.Code("ACCOUNT_LOOKUP_FAILED").
			With("operation", "check account exists").
			With("key", key.String()).
			Wrap(err)
	}
	return exists, nil
}

// GetAuth retrieves an account by identity key.
func (r *AccountRepository) GetAuth(ctx context.Context, key identity.Key) (*auth.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE name_key = ?`, key.String())

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("key", key.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account by key").
			With("key", key.String()).
			Wrap(err)
	}
	return account, nil
}

// GetAuthByEmail retrieves an account by email (case-insensitive).
func (r *AccountRepository) GetAuthByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ? COLLATE NOCASE`, email)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			With("email", email).
			Wrap(err)
	}
	return account, nil
}

// CountAuthsByEmail counts accounts bound to email.
func (r *AccountRepository) CountAuthsByEmail(ctx context.Context, email string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE email = ? COLLATE NOCASE`, email).Scan(&n)
	if err != nil {
		return 0, oops.Code("ACCOUNT_COUNT_FAILED").
			With("operation", "count accounts by email").
			With("email", email).
			Wrap(err)
	}
	return n, nil
}

// CountAuthsByIP counts accounts registered from ip.
func (r *AccountRepository) CountAuthsByIP(ctx context.Context, ip string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE registration_ip = ?`, ip).Scan(&n)
	if err != nil {
		return 0, oops.Code("ACCOUNT_COUNT_FAILED").
			With("operation", "count accounts by ip").
			With("ip", ip).
			Wrap(err)
	}
	return n, nil
}

// SaveAuth stores a new account.
func (r *AccountRepository) SaveAuth(ctx context.Context, account *auth.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID.String(),
		account.Key.String(),
		account.DisplayName,
		account.PasswordHash,
		nullString(account.Email),
		nullMillis(account.LastLogin),
		account.LastIP,
		account.RegistrationIP,
		account.FailedAttempts,
		nullMillis(account.LockedUntil),
		toMillis(account.CreatedAt),
		toMillis(account.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return oops.Code("ACCOUNT_DUPLICATE").
			With("key", account.Key.String()).
			Wrap(auth.ErrDuplicate)
	}
	if err != nil {
		return oops.Code("ACCOUNT_SAVE_FAILED").
			With("operation", "insert account").
			With("key", account.Key.String()).
			Wrap(err)
	}
	return nil
}

// UpdateEmail persists the email of account.
func (r *AccountRepository) UpdateEmail(ctx context.Context, account *auth.Account) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET email = ?, updated_at = ? WHERE name_key = ?`,
		nullString(account.Email), toMillis(time.Now()), account.Key.String())
	if isUniqueViolation(err) {
		return oops.Code("ACCOUNT_DUPLICATE").
			With("key", account.Key.String()).
			Wrap(auth.ErrDuplicate)
	}
	return checkUpdate(result, err, "update email", account.Key)
}

// UpdatePassword persists the password hash for key.
func (r *AccountRepository) UpdatePassword(ctx context.Context, key identity.Key, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE name_key = ?`,
		passwordHash, toMillis(time.Now()), key.String())
	return checkUpdate(result, err, "update password", key)
}

// UpdateSession persists login bookkeeping.
func (r *AccountRepository) UpdateSession(ctx context.Context, account *auth.Account) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET
			display_name = ?,
			last_login = ?,
			last_ip = ?,
			failed_attempts = ?,
			locked_until = ?,
			updated_at = ?
		WHERE name_key = ?`,
		account.DisplayName,
		nullMillis(account.LastLogin),
		account.LastIP,
		account.FailedAttempts,
		nullMillis(account.LockedUntil),
		toMillis(time.Now()),
		account.Key.String(),
	)
	return checkUpdate(result, err, "update session", account.Key)
}

// RemoveAuth deletes the account for key.
func (r *AccountRepository) RemoveAuth(ctx context.Context, key identity.Key) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE name_key = ?`, key.String())
	return checkUpdate(result, err, "delete account", key)
}

func checkUpdate(result sql.Result, err error, operation string, key identity.Key) error {
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", operation).
			With("key", key.String()).
			Wrap(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", operation).
			With("key", key.String()).
			Wrap(err)
	}
	if n == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("operation", operation).
			With("key", key.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// isUniqueViolation matches SQLite's constraint text; the driver does not
// export typed constraint errors.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*auth.Account, error) {
	var (
		idStr       string
		key         string
		email       sql.NullString
		lastLogin   sql.NullInt64
		lockedUntil sql.NullInt64
		createdAt   int64
		updatedAt   int64
		a           auth.Account
	)

	err := row.Scan(
		&idStr,
		&key,
		&a.DisplayName,
		&a.PasswordHash,
		&email,
		&lastLogin,
		&a.LastIP,
		&a.RegistrationIP,
		&a.FailedAttempts,
		&lockedUntil,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}

	a.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	a.Key = identity.Key(key)
	if email.Valid {
		a.Email = &email.String
	}
	if lastLogin.Valid {
		t := fromMillis(lastLogin.Int64)
		a.LastLogin = &t
	}
	if lockedUntil.Valid {
		t := fromMillis(lockedUntil.Int64)
		a.LockedUntil = &t
	}
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return &a, nil
}
