// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Remember token configuration.
const (
	RememberTokenBytes  = 32                  // 32 bytes = 64 hex chars
	RememberTokenExpiry = 30 * 24 * time.Hour // 30 day expiry
)

// RememberToken is a long-lived credential allowing re-authentication without
// a password. Only the SHA256 hash is stored; tokens are single-use and
// rotated on redemption.
type RememberToken struct {
	ID        ulid.ULID
	AccountID ulid.ULID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewRememberToken creates a validated RememberToken instance.
func NewRememberToken(accountID ulid.ULID, tokenHash string, expiresAt time.Time) (*RememberToken, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("REMEMBER_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("REMEMBER_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("REMEMBER_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &RememberToken{
		ID:        ulid.Make(),
		AccountID: accountID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// IsExpired returns true if the remember token has expired.
func (t *RememberToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// GenerateRememberToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
func GenerateRememberToken() (token, hash string, err error) {
	tokenBytes := make([]byte, RememberTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("REMEMBER_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = HashRememberToken(token)

	return token, hash, nil
}

// HashRememberToken computes the SHA256 hash of a remember token.
func HashRememberToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// RememberTokenRepository manages remember token persistence.
type RememberTokenRepository interface {
	// Create stores a new remember token.
	Create(ctx context.Context, token *RememberToken) error

	// GetByTokenHash retrieves a remember token by its token hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*RememberToken, error)

	// Delete removes a remember token.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByTokenHash removes a remember token by its token hash.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteExpired removes all expired remember tokens and returns the
	// count of deleted records.
	DeleteExpired(ctx context.Context) (int64, error)
}
