// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements the auth store gateway on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/identity"
)

// Querier is the subset of *pgxpool.Pool the repository uses.
// pgxmock.PgxPoolIface satisfies it for unit tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const accountColumns = `id, name_key, display_name, password_hash, email,
		       last_login, last_ip, registration_ip, failed_attempts,
		       locked_until, created_at, updated_at`

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool Querier
}

var _ auth.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool Querier) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// IsAuthAvailable reports whether an account exists for key.
func (r *AccountRepository) IsAuthAvailable(ctx context.Context, key identity.Key) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE name_key = $1)`,
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
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE name_key = $1
	`, key.String())

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
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
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE LOWER(email) = LOWER($1)
	`, email)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
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
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM accounts WHERE LOWER(email) = LOWER($1)`,
		email).Scan(&n)
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
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM accounts WHERE registration_ip = $1`,
		ip).Scan(&n)
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
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (
			id, name_key, display_name, password_hash, email,
			last_login, last_ip, registration_ip, failed_attempts,
			locked_until, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		account.ID.String(),
		account.Key.String(),
		account.DisplayName,
		account.PasswordHash,
		account.Email,
		account.LastLogin,
		account.LastIP,
		account.RegistrationIP,
		account.FailedAttempts,
		account.LockedUntil,
		account.CreatedAt,
		account.UpdatedAt,
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
	result, err := r.pool.Exec(ctx,
		`UPDATE accounts SET email = $2, updated_at = $3 WHERE name_key = $1`,
		account.Key.String(), account.Email, time.Now())
	if isUniqueViolation(err) {
		return oops.Code("ACCOUNT_DUPLICATE").
			With("key", account.Key.String()).
			Wrap(auth.ErrDuplicate)
	}
	return checkUpdate(result, err, "update email", account.Key)
}

// UpdatePassword persists the password hash for key.
func (r *AccountRepository) UpdatePassword(ctx context.Context, key identity.Key, passwordHash string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE name_key = $1`,
		key.String(), passwordHash, time.Now())
	return checkUpdate(result, err, "update password", key)
}

// UpdateSession persists login bookkeeping.
func (r *AccountRepository) UpdateSession(ctx context.Context, account *auth.Account) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET
			display_name = $2,
			last_login = $3,
			last_ip = $4,
			failed_attempts = $5,
			locked_until = $6,
			updated_at = $7
		WHERE name_key = $1
	`,
		account.Key.String(),
		account.DisplayName,
		account.LastLogin,
		account.LastIP,
		account.FailedAttempts,
		account.LockedUntil,
		time.Now(),
	)
	return checkUpdate(result, err, "update session", account.Key)
}

// RemoveAuth deletes the account for key.
func (r *AccountRepository) RemoveAuth(ctx context.Context, key identity.Key) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE name_key = $1`, key.String())
	return checkUpdate(result, err, "delete account", key)
}

func checkUpdate(result pgconn.CommandTag, err error, operation string, key identity.Key) error {
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", operation).
			With("key", key.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("operation", operation).
			With("key", key.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		idStr string
		key   string
		a     auth.Account
	)

	err := row.Scan(
		&idStr,
		&key,
		&a.DisplayName,
		&a.PasswordHash,
		&a.Email,
		&a.LastLogin,
		&a.LastIP,
		&a.RegistrationIP,
		&a.FailedAttempts,
		&a.LockedUntil,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	return &a, nil
}
