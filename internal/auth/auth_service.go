// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/garrison-game/garrison/pkg/errutil"
)

// Service provides authentication and session lifecycle operations.
type Service struct {
	accounts AccountRepository
	sessions SessionRepository
	remember RememberTokenRepository
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewAuthService creates a new Service.
func NewAuthService(accounts AccountRepository, sessions SessionRepository, remember RememberTokenRepository, hasher PasswordHasher) (*Service, error) {
	return NewAuthServiceWithLogger(accounts, sessions, remember, hasher, slog.Default())
}

// NewAuthServiceWithLogger creates a Service with an explicit logger.
func NewAuthServiceWithLogger(accounts AccountRepository, sessions SessionRepository, remember RememberTokenRepository, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if accounts == nil {
		return nil, oops.Errorf("accounts repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if remember == nil {
		return nil, oops.Errorf("remember token repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		accounts: accounts,
		sessions: sessions,
		remember: remember,
		hasher:   hasher,
		logger:   logger,
	}, nil
}

// dummyPasswordHash is used when an account doesn't exist to prevent timing
// attacks. We still run password verification to make response time
// consistent. This is NOT a real credential - it's a fake hash that will
// never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// invalidCredentialsMessage is the single message returned for both missing
// accounts and wrong passwords, so the response never reveals which half of
// the credential pair was incorrect.
const invalidCredentialsMessage = "invalid username or password"

// Authenticate verifies credentials. The identifier may be a username or an
// email address. Uses constant-time operations to prevent timing-based
// account enumeration.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*Account, error) {
	account, lookupErr := s.accounts.GetByLogin(ctx, identifier)

	// Determine which hash to verify against (real or dummy for timing attack prevention)
	var targetHash string
	var accountExists bool

	if lookupErr != nil {
		if errors.Is(lookupErr, ErrNotFound) {
			// Use dummy hash - still perform verification to maintain constant time
			targetHash = dummyPasswordHash
			accountExists = false
		} else {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get account by login").
				Wrap(lookupErr)
		}
	} else {
		targetHash = account.PasswordHash
		accountExists = true
	}

	// Always verify password (constant-time operation for timing attack prevention)
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		// For dummy hash verification errors, just treat as invalid
		if !accountExists {
			return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("%s", invalidCredentialsMessage)
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	// If account doesn't exist OR password invalid, return same error
	if !accountExists || !valid {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("%s", invalidCredentialsMessage)
	}

	// Check if password needs upgrade (e.g., from a legacy bcrypt hash).
	// The rewrite is best effort; the old hash keeps working until it lands.
	if s.hasher.NeedsUpgrade(account.PasswordHash) {
		if newHash, hashErr := s.hasher.Hash(password); hashErr == nil {
			account.PasswordHash = newHash
			if err := s.accounts.UpdatePasswordHash(ctx, account.ID, newHash); err != nil {
				errutil.LogError(s.logger, "failed to persist upgraded password hash", err)
			}
		}
	}

	// Record activity; login succeeds even if this update fails.
	if err := s.accounts.TouchLastActive(ctx, account.ID, time.Now()); err != nil {
		errutil.LogError(s.logger, "failed to update last_active", err)
	}

	return account, nil
}

// StartSession establishes a new session for an account with the standard
// validity window. Returns the session and the plaintext token for the
// client.
func (s *Service) StartSession(ctx context.Context, accountID ulid.ULID) (*Session, string, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	now := time.Now()
	session, err := NewSession(accountID, tokenHash, now, now.Add(SessionWindow))
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	return session, token, nil
}

// Login authenticates and establishes a session in one step.
func (s *Service) Login(ctx context.Context, identifier, password string) (*Session, string, *Account, error) {
	account, err := s.Authenticate(ctx, identifier, password)
	if err != nil {
		return nil, "", nil, err
	}
	session, token, err := s.StartSession(ctx, account.ID)
	if err != nil {
		return nil, "", nil, err
	}
	return session, token, account, nil
}

// Remember issues a long-lived remember token for an account and persists
// its hash with an expiry.
func (s *Service) Remember(ctx context.Context, accountID ulid.ULID) (string, error) {
	token, tokenHash, err := GenerateRememberToken()
	if err != nil {
		return "", oops.Code("REMEMBER_CREATE_FAILED").
			With("operation", "generate remember token").
			Wrap(err)
	}

	record, err := NewRememberToken(accountID, tokenHash, time.Now().Add(RememberTokenExpiry))
	if err != nil {
		return "", oops.Code("REMEMBER_CREATE_FAILED").
			With("operation", "create remember token").
			Wrap(err)
	}

	if err := s.remember.Create(ctx, record); err != nil {
		return "", oops.Code("REMEMBER_CREATE_FAILED").
			With("operation", "persist remember token").
			Wrap(err)
	}

	return token, nil
}

// RedeemRemember exchanges a valid remember token for a fresh session.
// Tokens are single-use: the presented token is deleted and a replacement is
// issued, so a stolen token stops working as soon as either party redeems it.
func (s *Service) RedeemRemember(ctx context.Context, token string) (*Session, string, string, error) {
	if token == "" {
		return nil, "", "", oops.Code("REMEMBER_TOKEN_INVALID").Errorf("remember token cannot be empty")
	}

	tokenHash := HashRememberToken(token)
	record, err := s.remember.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", "", oops.Code("REMEMBER_TOKEN_INVALID").Errorf("remember token not recognized")
		}
		return nil, "", "", oops.Code("REMEMBER_REDEEM_FAILED").
			With("operation", "get remember token").
			Wrap(err)
	}

	if record.IsExpired() {
		// Expired tokens are dead weight; removal failure is harmless.
		if err := s.remember.Delete(ctx, record.ID); err != nil {
			errutil.LogError(s.logger, "failed to delete expired remember token", err)
		}
		return nil, "", "", oops.Code("REMEMBER_TOKEN_EXPIRED").Errorf("remember token has expired")
	}

	// Rotate before issuing the session so the old token can never be
	// redeemed twice.
	if err := s.remember.Delete(ctx, record.ID); err != nil {
		return nil, "", "", oops.Code("REMEMBER_REDEEM_FAILED").
			With("operation", "consume remember token").
			Wrap(err)
	}

	newToken, err := s.Remember(ctx, record.AccountID)
	if err != nil {
		return nil, "", "", err
	}

	session, sessionToken, err := s.StartSession(ctx, record.AccountID)
	if err != nil {
		return nil, "", "", err
	}

	return session, sessionToken, newToken, nil
}

// ValidateSession validates a session token against the server-side session.
// The stored expiry is the sole source of truth: an expired session is
// rejected no matter what state the client believes it is in, and validation
// never renews the session implicitly.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_TOKEN_EMPTY").Errorf("session token cannot be empty")
	}

	tokenHash := HashSessionToken(token)
	session, err := s.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Errorf("invalid session token")
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpired() {
		// Cleanup of the dead row is best effort.
		if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, ErrNotFound) {
			errutil.LogError(s.logger, "failed to delete expired session", err)
		}
		return nil, oops.Code("SESSION_EXPIRED").Errorf("session has expired")
	}

	return session, nil
}

// ExtendSession renews a session's validity window from the current instant.
// This is the only operation that moves a session's expiry, and it only ever
// moves it forward.
func (s *Service) ExtendSession(ctx context.Context, token string) (*Session, error) {
	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	newExpiry := time.Now().Add(SessionWindow)
	if err := s.sessions.UpdateExpiry(ctx, session.ID, newExpiry); err != nil {
		return nil, oops.Code("SESSION_EXTEND_FAILED").
			With("operation", "update session expiry").
			With("session_id", session.ID.String()).
			Wrap(err)
	}

	session.ExpiresAt = newExpiry
	return session, nil
}

// Logout clears the session and remember token named by the given plaintext
// tokens. It is idempotent and never fails from the caller's perspective:
// missing rows are fine, and storage failures are logged rather than
// surfaced.
func (s *Service) Logout(ctx context.Context, sessionToken, rememberToken string) {
	if sessionToken != "" {
		err := s.sessions.DeleteByTokenHash(ctx, HashSessionToken(sessionToken))
		if err != nil && !errors.Is(err, ErrNotFound) {
			errutil.LogError(s.logger, "failed to delete session on logout", err)
		}
	}
	if rememberToken != "" {
		err := s.remember.DeleteByTokenHash(ctx, HashRememberToken(rememberToken))
		if err != nil && !errors.Is(err, ErrNotFound) {
			errutil.LogError(s.logger, "failed to delete remember token on logout", err)
		}
	}
}

// PurgeExpired removes expired sessions and remember tokens in bulk.
// Meant to run periodically; expired rows are also removed lazily when
// presented, so a failed sweep only delays reclamation.
func (s *Service) PurgeExpired(ctx context.Context) error {
	sessions, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return oops.Code("SESSION_PURGE_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}

	tokens, err := s.remember.DeleteExpired(ctx)
	if err != nil {
		return oops.Code("REMEMBER_PURGE_FAILED").
			With("operation", "delete expired remember tokens").
			Wrap(err)
	}

	if sessions > 0 || tokens > 0 {
		s.logger.Info("purged expired credentials",
			"sessions", sessions,
			"remember_tokens", tokens,
		)
	}
	return nil
}
