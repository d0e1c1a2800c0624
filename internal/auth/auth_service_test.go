// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/garrison-game/garrison/internal/auth"
	"github.com/garrison-game/garrison/internal/auth/mocks"
	"github.com/garrison-game/garrison/pkg/errutil"
)

func TestNewAuthService_NilDependencies(t *testing.T) {
	tests := []struct {
		name        string
		accounts    auth.AccountRepository
		sessions    auth.SessionRepository
		remember    auth.RememberTokenRepository
		hasher      auth.PasswordHasher
		expectError string
	}{
		{
			name:        "nil accounts repository",
			accounts:    nil,
			sessions:    mocks.NewMockSessionRepository(t),
			remember:    mocks.NewMockRememberTokenRepository(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			expectError: "accounts repository is required",
		},
		{
			name:        "nil sessions repository",
			accounts:    mocks.NewMockAccountRepository(t),
			sessions:    nil,
			remember:    mocks.NewMockRememberTokenRepository(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			expectError: "sessions repository is required",
		},
		{
			name:        "nil remember token repository",
			accounts:    mocks.NewMockAccountRepository(t),
			sessions:    mocks.NewMockSessionRepository(t),
			remember:    nil,
			hasher:      mocks.NewMockPasswordHasher(t),
			expectError: "remember token repository is required",
		},
		{
			name:        "nil password hasher",
			accounts:    mocks.NewMockAccountRepository(t),
			sessions:    mocks.NewMockSessionRepository(t),
			remember:    mocks.NewMockRememberTokenRepository(t),
			hasher:      nil,
			expectError: "password hasher is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewAuthService(tt.accounts, tt.sessions, tt.remember, tt.hasher)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestNewAuthServiceWithLogger_NilLogger(t *testing.T) {
	accounts := mocks.NewMockAccountRepository(t)
	sessions := mocks.NewMockSessionRepository(t)
	remember := mocks.NewMockRememberTokenRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)

	svc, err := auth.NewAuthServiceWithLogger(accounts, sessions, remember, hasher, nil)
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "logger")
}

func newTestService(t *testing.T) (*auth.Service, *mocks.MockAccountRepository, *mocks.MockSessionRepository, *mocks.MockRememberTokenRepository, *mocks.MockPasswordHasher) {
	t.Helper()
	accounts := mocks.NewMockAccountRepository(t)
	sessions := mocks.NewMockSessionRepository(t)
	remember := mocks.NewMockRememberTokenRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	svc, err := auth.NewAuthService(accounts, sessions, remember, hasher)
	require.NoError(t, err)
	return svc, accounts, sessions, remember, hasher
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("successful login creates session", func(t *testing.T) {
		svc, accounts, sessions, _, hasher := newTestService(t)

		accountID := ulid.Make()
		account := &auth.Account{
			ID:           accountID,
			Username:     "sergeant_miri",
			Email:        "miri@example.com",
			PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$salt$hash",
		}

		accounts.On("GetByLogin", ctx, "sergeant_miri").Return(account, nil)
		hasher.On("Verify", "Password123", account.PasswordHash).Return(true, nil)
		hasher.On("NeedsUpgrade", account.PasswordHash).Return(false)
		accounts.On("TouchLastActive", ctx, accountID, mock.AnythingOfType("time.Time")).Return(nil)
		sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(nil)

		session, token, got, err := svc.Login(ctx, "sergeant_miri", "Password123")
		require.NoError(t, err)
		assert.Equal(t, accountID, session.AccountID)
		assert.Len(t, token, 64) // 32 bytes hex-encoded
		assert.Equal(t, account, got)
		assert.WithinDuration(t, time.Now().Add(auth.SessionWindow), session.ExpiresAt, 2*time.Second)
	})

	t.Run("email works as login identifier", func(t *testing.T) {
		svc, accounts, sessions, _, hasher := newTestService(t)

		account := &auth.Account{
			ID:           ulid.Make(),
			Username:     "sergeant_miri",
			Email:        "miri@example.com",
			PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$salt$hash",
		}

		accounts.On("GetByLogin", ctx, "miri@example.com").Return(account, nil)
		hasher.On("Verify", "Password123", account.PasswordHash).Return(true, nil)
		hasher.On("NeedsUpgrade", account.PasswordHash).Return(false)
		accounts.On("TouchLastActive", ctx, account.ID, mock.AnythingOfType("time.Time")).Return(nil)
		sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(nil)

		_, _, got, err := svc.Login(ctx, "miri@example.com", "Password123")
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
	})

	t.Run("login fails for non-existent account with constant time", func(t *testing.T) {
		svc, accounts, _, _, hasher := newTestService(t)

		accounts.On("GetByLogin", ctx, "unknown").Return(nil, auth.ErrNotFound)
		// Verify is still called with dummy hash to prevent timing attacks
		hasher.On("Verify", "Password123", mock.AnythingOfType("string")).Return(false, nil)

		session, token, got, err := svc.Login(ctx, "unknown", "Password123")
		require.Error(t, err)
		assert.Nil(t, session)
		assert.Empty(t, token)
		assert.Nil(t, got)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("login fails for wrong password", func(t *testing.T) {
		svc, accounts, _, _, hasher := newTestService(t)

		account := &auth.Account{
			ID:           ulid.Make(),
			Username:     "sergeant_miri",
			PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$salt$hash",
		}

		accounts.On("GetByLogin", ctx, "sergeant_miri").Return(account, nil)
		hasher.On("Verify", "wrongpassword", account.PasswordHash).Return(false, nil)

		_, _, _, err := svc.Login(ctx, "sergeant_miri", "wrongpassword")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("unknown account and wrong password produce identical messages", func(t *testing.T) {
		svc, accounts, _, _, hasher := newTestService(t)

		account := &auth.Account{
			ID:           ulid.Make(),
			Username:     "sergeant_miri",
			PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$salt$hash",
		}

		accounts.On("GetByLogin", ctx, "unknown").Return(nil, auth.ErrNotFound)
		accounts.On("GetByLogin", ctx, "sergeant_miri").Return(account, nil)
		hasher.On("Verify", mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(false, nil)

		_, _, _, errUnknown := svc.Login(ctx, "unknown", "Password123")
		_, _, _, errWrong := svc.Login(ctx, "sergeant_miri", "Password123")
		require.Error(t, errUnknown)
		require.Error(t, errWrong)
		assert.Equal(t, errUnknown.Error(), errWrong.Error())
	})

	t.Run("legacy hash is upgraded on successful login", func(t *testing.T) {
		svc, accounts, sessions, _, hasher := newTestService(t)

		account := &auth.Account{
			ID:           ulid.Make(),
			Username:     "veteran",
			PasswordHash: "$2y$10$legacybcrypthash",
		}

		accounts.On("GetByLogin", ctx, "veteran").Return(account, nil)
		hasher.On("Verify", "Password123", "$2y$10$legacybcrypthash").Return(true, nil)
		hasher.On("NeedsUpgrade", "$2y$10$legacybcrypthash").Return(true)
		hasher.On("Hash", "Password123").Return("$argon2id$v=19$m=65536,t=1,p=4$new$hash", nil)
		accounts.On("UpdatePasswordHash", ctx, account.ID, "$argon2id$v=19$m=65536,t=1,p=4$new$hash").Return(nil)
		accounts.On("TouchLastActive", ctx, account.ID, mock.AnythingOfType("time.Time")).Return(nil)
		sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(nil)

		_, _, got, err := svc.Login(ctx, "veteran", "Password123")
		require.NoError(t, err)
		assert.Equal(t, "$argon2id$v=19$m=65536,t=1,p=4$new$hash", got.PasswordHash)
	})

	t.Run("login succeeds even when hash upgrade fails to persist", func(t *testing.T) {
		svc, accounts, sessions, _, hasher := newTestService(t)

		account := &auth.Account{
			ID:           ulid.Make(),
			Username:     "veteran",
			PasswordHash: "$2y$10$legacybcrypthash",
		}

		accounts.On("GetByLogin", ctx, "veteran").Return(account, nil)
		hasher.On("Verify", "Password123", "$2y$10$legacybcrypthash").Return(true, nil)
		hasher.On("NeedsUpgrade", "$2y$10$legacybcrypthash").Return(true)
		hasher.On("Hash", "Password123").Return("$argon2id$v=19$m=65536,t=1,p=4$new$hash", nil)
		accounts.On("UpdatePasswordHash", ctx, account.ID, mock.AnythingOfType("string")).
			Return(errors.New("connection reset"))
		accounts.On("TouchLastActive", ctx, account.ID, mock.AnythingOfType("time.Time")).Return(nil)
		sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(nil)

		_, token, _, err := svc.Login(ctx, "veteran", "Password123")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("login succeeds even when last_active update fails", func(t *testing.T) {
		svc, accounts, sessions, _, hasher := newTestService(t)

		account := &auth.Account{
			ID:           ulid.Make(),
			Username:     "sergeant_miri",
			PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$salt$hash",
		}

		accounts.On("GetByLogin", ctx, "sergeant_miri").Return(account, nil)
		hasher.On("Verify", "Password123", account.PasswordHash).Return(true, nil)
		hasher.On("NeedsUpgrade", account.PasswordHash).Return(false)
		accounts.On("TouchLastActive", ctx, account.ID, mock.AnythingOfType("time.Time")).
			Return(errors.New("connection reset"))
		sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(nil)

		_, token, _, err := svc.Login(ctx, "sergeant_miri", "Password123")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("valid session is returned", func(t *testing.T) {
		svc, _, sessions, _, _ := newTestService(t)

		token, tokenHash, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		session := &auth.Session{
			ID:        ulid.Make(),
			AccountID: ulid.Make(),
			TokenHash: tokenHash,
			IssuedAt:  time.Now(),
			ExpiresAt: time.Now().Add(auth.SessionWindow),
		}
		sessions.On("GetByTokenHash", ctx, tokenHash).Return(session, nil)

		got, err := svc.ValidateSession(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
	})

	t.Run("empty token is rejected", func(t *testing.T) {
		svc, _, _, _, _ := newTestService(t)

		_, err := svc.ValidateSession(ctx, "")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_TOKEN_EMPTY")
	})

	t.Run("unknown token is invalid", func(t *testing.T) {
		svc, _, sessions, _, _ := newTestService(t)

		sessions.On("GetByTokenHash", ctx, mock.AnythingOfType("string")).Return(nil, auth.ErrNotFound)

		_, err := svc.ValidateSession(ctx, "bogus-token")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID")
	})

	t.Run("expired session is rejected and cleaned up", func(t *testing.T) {
		svc, _, sessions, _, _ := newTestService(t)

		token, tokenHash, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		session := &auth.Session{
			ID:        ulid.Make(),
			AccountID: ulid.Make(),
			TokenHash: tokenHash,
			IssuedAt:  time.Now().Add(-2 * auth.SessionWindow),
			ExpiresAt: time.Now().Add(-auth.SessionWindow),
		}
		sessions.On("GetByTokenHash", ctx, tokenHash).Return(session, nil)
		sessions.On("Delete", ctx, session.ID).Return(nil)

		_, err = svc.ValidateSession(ctx, token)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_EXPIRED")
	})

	t.Run("validation does not renew the session", func(t *testing.T) {
		svc, _, sessions, _, _ := newTestService(t)

		token, tokenHash, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		expiresAt := time.Now().Add(time.Minute)
		session := &auth.Session{
			ID:        ulid.Make(),
			AccountID: ulid.Make(),
			TokenHash: tokenHash,
			IssuedAt:  time.Now().Add(-23 * time.Minute),
			ExpiresAt: expiresAt,
		}
		// No UpdateExpiry expectation: validating must not touch the window.
		sessions.On("GetByTokenHash", ctx, tokenHash).Return(session, nil)

		got, err := svc.ValidateSession(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, expiresAt, got.ExpiresAt)
	})
}

func TestAuthService_ExtendSession(t *testing.T) {
	ctx := context.Background()

	t.Run("extends a valid session by the full window", func(t *testing.T) {
		svc, _, sessions, _, _ := newTestService(t)

		token, tokenHash, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		session := &auth.Session{
			ID:        ulid.Make(),
			AccountID: ulid.Make(),
			TokenHash: tokenHash,
			IssuedAt:  time.Now().Add(-20 * time.Minute),
			ExpiresAt: time.Now().Add(4 * time.Minute),
		}
		sessions.On("GetByTokenHash", ctx, tokenHash).Return(session, nil)
		sessions.On("UpdateExpiry", ctx, session.ID, mock.AnythingOfType("time.Time")).Return(nil)

		got, err := svc.ExtendSession(ctx, token)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(auth.SessionWindow), got.ExpiresAt, 2*time.Second)
	})

	t.Run("expired session cannot be extended", func(t *testing.T) {
		svc, _, sessions, _, _ := newTestService(t)

		token, tokenHash, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		session := &auth.Session{
			ID:        ulid.Make(),
			AccountID: ulid.Make(),
			TokenHash: tokenHash,
			IssuedAt:  time.Now().Add(-2 * auth.SessionWindow),
			ExpiresAt: time.Now().Add(-time.Minute),
		}
		sessions.On("GetByTokenHash", ctx, tokenHash).Return(session, nil)
		sessions.On("Delete", ctx, session.ID).Return(nil)

		_, err = svc.ExtendSession(ctx, token)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_EXPIRED")
	})
}

func TestAuthService_RememberAndRedeem(t *testing.T) {
	ctx := context.Background()

	t.Run("remember issues a persisted token", func(t *testing.T) {
		svc, _, _, remember, _ := newTestService(t)

		accountID := ulid.Make()
		remember.On("Create", ctx, mock.AnythingOfType("*auth.RememberToken")).
			Run(func(args mock.Arguments) {
				record := args.Get(1).(*auth.RememberToken)
				assert.Equal(t, accountID, record.AccountID)
				assert.WithinDuration(t, time.Now().Add(auth.RememberTokenExpiry), record.ExpiresAt, 2*time.Second)
			}).
			Return(nil)

		token, err := svc.Remember(ctx, accountID)
		require.NoError(t, err)
		assert.Len(t, token, 64)
	})

	t.Run("redeem rotates the token and starts a session", func(t *testing.T) {
		svc, _, sessions, remember, _ := newTestService(t)

		accountID := ulid.Make()
		token, tokenHash, err := auth.GenerateRememberToken()
		require.NoError(t, err)

		record := &auth.RememberToken{
			ID:        ulid.Make(),
			AccountID: accountID,
			TokenHash: tokenHash,
			CreatedAt: time.Now().Add(-time.Hour),
			ExpiresAt: time.Now().Add(auth.RememberTokenExpiry),
		}
		remember.On("GetByTokenHash", ctx, tokenHash).Return(record, nil)
		remember.On("Delete", ctx, record.ID).Return(nil)
		remember.On("Create", ctx, mock.AnythingOfType("*auth.RememberToken")).Return(nil)
		sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(nil)

		session, sessionToken, newToken, err := svc.RedeemRemember(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, accountID, session.AccountID)
		assert.NotEmpty(t, sessionToken)
		assert.NotEmpty(t, newToken)
		assert.NotEqual(t, token, newToken)
	})

	t.Run("unknown token is rejected", func(t *testing.T) {
		svc, _, _, remember, _ := newTestService(t)

		remember.On("GetByTokenHash", ctx, mock.AnythingOfType("string")).Return(nil, auth.ErrNotFound)

		_, _, _, err := svc.RedeemRemember(ctx, "bogus")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "REMEMBER_TOKEN_INVALID")
	})

	t.Run("expired token is rejected and removed", func(t *testing.T) {
		svc, _, _, remember, _ := newTestService(t)

		token, tokenHash, err := auth.GenerateRememberToken()
		require.NoError(t, err)

		record := &auth.RememberToken{
			ID:        ulid.Make(),
			AccountID: ulid.Make(),
			TokenHash: tokenHash,
			CreatedAt: time.Now().Add(-31 * 24 * time.Hour),
			ExpiresAt: time.Now().Add(-24 * time.Hour),
		}
		remember.On("GetByTokenHash", ctx, tokenHash).Return(record, nil)
		remember.On("Delete", ctx, record.ID).Return(nil)

		_, _, _, err = svc.RedeemRemember(ctx, token)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "REMEMBER_TOKEN_EXPIRED")
	})

	t.Run("consume failure aborts redemption", func(t *testing.T) {
		svc, _, _, remember, _ := newTestService(t)

		token, tokenHash, err := auth.GenerateRememberToken()
		require.NoError(t, err)

		record := &auth.RememberToken{
			ID:        ulid.Make(),
			AccountID: ulid.Make(),
			TokenHash: tokenHash,
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(auth.RememberTokenExpiry),
		}
		remember.On("GetByTokenHash", ctx, tokenHash).Return(record, nil)
		remember.On("Delete", ctx, record.ID).Return(errors.New("deadlock detected"))

		_, _, _, err = svc.RedeemRemember(ctx, token)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "REMEMBER_REDEEM_FAILED")
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes session and remember token", func(t *testing.T) {
		svc, _, sessions, remember, _ := newTestService(t)

		sessions.On("DeleteByTokenHash", ctx, auth.HashSessionToken("session-token")).Return(nil)
		remember.On("DeleteByTokenHash", ctx, auth.HashRememberToken("remember-token")).Return(nil)

		svc.Logout(ctx, "session-token", "remember-token")
	})

	t.Run("is idempotent for already-cleared tokens", func(t *testing.T) {
		svc, _, sessions, remember, _ := newTestService(t)

		sessions.On("DeleteByTokenHash", ctx, mock.AnythingOfType("string")).Return(auth.ErrNotFound)
		remember.On("DeleteByTokenHash", ctx, mock.AnythingOfType("string")).Return(auth.ErrNotFound)

		svc.Logout(ctx, "session-token", "remember-token")
		svc.Logout(ctx, "session-token", "remember-token")
	})

	t.Run("skips lookups for empty tokens", func(t *testing.T) {
		svc, _, _, _, _ := newTestService(t)

		// No expectations registered: nothing may touch storage.
		svc.Logout(ctx, "", "")
	})

	t.Run("swallows storage failures", func(t *testing.T) {
		svc, _, sessions, remember, _ := newTestService(t)

		sessions.On("DeleteByTokenHash", ctx, mock.AnythingOfType("string")).Return(errors.New("timeout"))
		remember.On("DeleteByTokenHash", ctx, mock.AnythingOfType("string")).Return(errors.New("timeout"))

		svc.Logout(ctx, "session-token", "remember-token")
	})
}

func TestAuthService_PurgeExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("sweeps both stores", func(t *testing.T) {
		svc, _, sessions, remember, _ := newTestService(t)

		sessions.On("DeleteExpired", ctx).Return(int64(3), nil)
		remember.On("DeleteExpired", ctx).Return(int64(2), nil)

		require.NoError(t, svc.PurgeExpired(ctx))
	})

	t.Run("session sweep failure surfaces", func(t *testing.T) {
		svc, _, sessions, _, _ := newTestService(t)

		sessions.On("DeleteExpired", ctx).Return(int64(0), errors.New("connection reset"))

		err := svc.PurgeExpired(ctx)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_PURGE_FAILED")
	})

	t.Run("remember sweep failure surfaces", func(t *testing.T) {
		svc, _, sessions, remember, _ := newTestService(t)

		sessions.On("DeleteExpired", ctx).Return(int64(1), nil)
		remember.On("DeleteExpired", ctx).Return(int64(0), errors.New("connection reset"))

		err := svc.PurgeExpired(ctx)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "REMEMBER_PURGE_FAILED")
	})
}
