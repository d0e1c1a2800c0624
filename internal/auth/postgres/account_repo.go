// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

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

	"github.com/garrison-game/garrison/internal/auth"
	"github.com/garrison-game/garrison/internal/store"
)

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	db store.Querier
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db store.Querier) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, username, email, password_hash, recruitment_cycle,
	       rank_level, level, experience, money, created_at, last_active`

// Create stores a new account. A unique-constraint violation on username or
// email is mapped to auth.ErrDuplicateAccount; that mapping, not any
// pre-check, is what closes the check-then-insert race between concurrent
// registrations.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	_, err := store.QuerierFrom(ctx, r.db).Exec(ctx, `
		INSERT INTO accounts (
			id, username, email, password_hash, recruitment_cycle,
			rank_level, level, experience, money, created_at, last_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		account.ID.String(),
		account.Username,
		account.Email,
		account.PasswordHash,
		account.RecruitmentCycle,
		account.RankLevel,
		account.Level,
		account.Experience,
		account.Money,
		account.CreatedAt,
		account.LastActive,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("ACCOUNT_DUPLICATE").
				With("username", account.Username).
				With("constraint", pgErr.ConstraintName).
				Wrap(auth.ErrDuplicateAccount)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("username", account.Username).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := store.QuerierFrom(ctx, r.db).QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id.String())

	account, err := r.scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return account, nil
}

// GetByLogin retrieves an account whose username or email matches the
// identifier (case-insensitive).
func (r *AccountRepository) GetByLogin(ctx context.Context, identifier string) (*auth.Account, error) {
	row := store.QuerierFrom(ctx, r.db).QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)
	`, identifier)

	account, err := r.scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("identifier", identifier).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_LOGIN_FAILED").
			With("operation", "get account by login").
			Wrap(err)
	}
	return account, nil
}

// ExistsByUsername reports whether an account with the username exists.
func (r *AccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := store.QuerierFrom(ctx, r.db).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM accounts WHERE LOWER(username) = LOWER($1))
	`, username).Scan(&exists)
	if err != nil {
		return false, oops.Code("ACCOUNT_EXISTS_FAILED").
			With("operation", "exists by username").
			With("username", username).
			Wrap(err)
	}
	return exists, nil
}

// ExistsByLogin reports whether an account with the username or email exists.
func (r *AccountRepository) ExistsByLogin(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := store.QuerierFrom(ctx, r.db).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM accounts
			WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($2)
		)
	`, username, email).Scan(&exists)
	if err != nil {
		return false, oops.Code("ACCOUNT_EXISTS_FAILED").
			With("operation", "exists by login").
			With("username", username).
			Wrap(err)
	}
	return exists, nil
}

// TouchLastActive updates only the last_active timestamp.
func (r *AccountRepository) TouchLastActive(ctx context.Context, id ulid.ULID, at time.Time) error {
	result, err := store.QuerierFrom(ctx, r.db).Exec(ctx, `
		UPDATE accounts SET last_active = $2 WHERE id = $1
	`, id.String(), at)
	if err != nil {
		return oops.Code("ACCOUNT_TOUCH_FAILED").
			With("operation", "update last_active").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdatePasswordHash updates only the password hash for an account.
func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := store.QuerierFrom(ctx, r.db).Exec(ctx, `
		UPDATE accounts SET password_hash = $2 WHERE id = $1
	`, id.String(), passwordHash)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_PASSWORD_FAILED").
			With("operation", "update password hash").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *AccountRepository) scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		idStr            string
		username         string
		email            string
		passwordHash     string
		recruitmentCycle string
		rankLevel        int
		level            int
		experience       int64
		money            int64
		createdAt        time.Time
		lastActive       time.Time
	)

	err := row.Scan(
		&idStr,
		&username,
		&email,
		&passwordHash,
		&recruitmentCycle,
		&rankLevel,
		&level,
		&experience,
		&money,
		&createdAt,
		&lastActive,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("operation", "parse account id").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.Account{
		ID:               id,
		Username:         username,
		Email:            email,
		PasswordHash:     passwordHash,
		RecruitmentCycle: recruitmentCycle,
		RankLevel:        rankLevel,
		Level:            level,
		Experience:       experience,
		Money:            money,
		CreatedAt:        createdAt,
		LastActive:       lastActive,
	}, nil
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
