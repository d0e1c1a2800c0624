// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package auth

import (
	"context"
	"net/mail"
	"regexp"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// usernameRegex matches usernames containing only letters, numbers, and
// underscores.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Account represents a player's persistent authenticated identity.
type Account struct {
	ID               ulid.ULID
	Username         string
	Email            string
	PasswordHash     string
	RecruitmentCycle string
	RankLevel        int
	Level            int
	Experience       int64
	Money            int64
	CreatedAt        time.Time
	LastActive       time.Time
}

// NewAccount creates a validated Account with starting rank, level, and
// money. The password hash must already be produced by a PasswordHasher.
func NewAccount(username, email, passwordHash, recruitmentCycle string, startingMoney int64) (*Account, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if recruitmentCycle == "" {
		return nil, oops.Code("ACCOUNT_INVALID_CYCLE").Errorf("recruitment cycle cannot be empty")
	}

	now := time.Now()
	return &Account{
		ID:               ulid.Make(),
		Username:         username,
		Email:            email,
		PasswordHash:     passwordHash,
		RecruitmentCycle: recruitmentCycle,
		RankLevel:        1,
		Level:            1,
		Experience:       0,
		Money:            startingMoney,
		CreatedAt:        now,
		LastActive:       now,
	}, nil
}

// ValidateUsername validates a username against rules.
// Username requirements:
//   - Length: MinUsernameLength to MaxUsernameLength characters
//   - Can contain only letters (a-z, A-Z), numbers (0-9), and underscores (_)
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("ACCOUNT_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("ACCOUNT_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("ACCOUNT_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("ACCOUNT_INVALID_USERNAME").
			Errorf("username may contain only letters, numbers, and underscores")
	}
	return nil
}

// ValidateEmail validates that the address is RFC-shaped.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("ACCOUNT_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return oops.Code("ACCOUNT_INVALID_EMAIL").Errorf("email address is not valid")
	}
	return nil
}

// ValidatePassword validates password strength: minimum length plus at least
// one uppercase letter, one lowercase letter, and one digit.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("ACCOUNT_INVALID_PASSWORD").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return oops.Code("ACCOUNT_INVALID_PASSWORD").
			Errorf("password must contain an uppercase letter, a lowercase letter, and a digit")
	}
	return nil
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account. Returns ErrDuplicateAccount (wrapped) if
	// the username or email collides with an existing account.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByLogin retrieves an account by username or email (case-insensitive).
	GetByLogin(ctx context.Context, identifier string) (*Account, error)

	// ExistsByUsername reports whether an account with the username exists
	// (case-insensitive). Used by the availability pre-check only; the unique
	// constraint remains the authoritative guard.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByLogin reports whether an account with the username or email
	// exists (case-insensitive).
	ExistsByLogin(ctx context.Context, username, email string) (bool, error)

	// TouchLastActive updates only the last_active timestamp.
	TouchLastActive(ctx context.Context, id ulid.ULID, at time.Time) error

	// UpdatePasswordHash updates only the password hash. Used to persist
	// transparent hash upgrades after a successful login.
	UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error
}
