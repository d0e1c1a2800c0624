// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/garrison-game/garrison/internal/auth"
	"github.com/garrison-game/garrison/internal/store"
)

// RememberTokenRepository implements auth.RememberTokenRepository using
// PostgreSQL.
type RememberTokenRepository struct {
	db store.Querier
}

// NewRememberTokenRepository creates a new RememberTokenRepository.
func NewRememberTokenRepository(db store.Querier) *RememberTokenRepository {
	return &RememberTokenRepository{db: db}
}

// Create stores a new remember token.
func (r *RememberTokenRepository) Create(ctx context.Context, token *auth.RememberToken) error {
	_, err := store.QuerierFrom(ctx, r.db).Exec(ctx, `
		INSERT INTO remember_tokens (id, account_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		token.ID.String(),
		token.AccountID.String(),
		token.TokenHash,
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		return oops.Code("REMEMBER_CREATE_FAILED").
			With("operation", "insert remember token").
			With("account_id", token.AccountID.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a remember token by its token hash.
func (r *RememberTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.RememberToken, error) {
	row := store.QuerierFrom(ctx, r.db).QueryRow(ctx, `
		SELECT id, account_id, token_hash, expires_at, created_at
		FROM remember_tokens
		WHERE token_hash = $1
	`, tokenHash)

	token, err := r.scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("REMEMBER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("REMEMBER_GET_BY_TOKEN_FAILED").
			With("operation", "get remember token by hash").
			Wrap(err)
	}
	return token, nil
}

// Delete removes a remember token by ID.
func (r *RememberTokenRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := store.QuerierFrom(ctx, r.db).Exec(ctx, `
		DELETE FROM remember_tokens WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("REMEMBER_DELETE_FAILED").
			With("operation", "delete remember token").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("REMEMBER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByTokenHash removes a remember token by its token hash.
func (r *RememberTokenRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	result, err := store.QuerierFrom(ctx, r.db).Exec(ctx, `
		DELETE FROM remember_tokens WHERE token_hash = $1
	`, tokenHash)
	if err != nil {
		return oops.Code("REMEMBER_DELETE_FAILED").
			With("operation", "delete remember token by hash").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("REMEMBER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes all expired remember tokens and returns the
// count of deleted records.
func (r *RememberTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := store.QuerierFrom(ctx, r.db).Exec(ctx, `
		DELETE FROM remember_tokens WHERE expires_at < NOW()
	`)
	if err != nil {
		return 0, oops.Code("REMEMBER_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired remember tokens").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanToken scans a single row into a RememberToken.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *RememberTokenRepository) scanToken(row pgx.Row) (*auth.RememberToken, error) {
	var (
		idStr        string
		accountIDStr string
		tokenHash    string
		expiresAt    time.Time
		createdAt    time.Time
	)

	err := row.Scan(&idStr, &accountIDStr, &tokenHash, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("REMEMBER_SCAN_FAILED").
			With("operation", "scan remember token").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("REMEMBER_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	accountID, err := ulid.Parse(accountIDStr)
	if err != nil {
		return nil, oops.Code("REMEMBER_INVALID_ACCOUNT_ID").
			With("account_id", accountIDStr).
			Wrap(err)
	}

	return &auth.RememberToken{
		ID:        id,
		AccountID: accountID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}

// Compile-time interface check.
var _ auth.RememberTokenRepository = (*RememberTokenRepository)(nil)
