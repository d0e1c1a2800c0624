// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package game

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// NewRecruitAchievementID is the well-known ID of the achievement granted to
// every freshly registered account. Using a fixed ID keeps the grant
// idempotent: a duplicate insert fails the (account, achievement) unique
// constraint instead of creating a second grant.
var NewRecruitAchievementID = ulid.MustParse("01HZN4RECR00T0000000000000")

// AchievementGrant records that an account earned an achievement.
// At most one grant exists per (account, achievement) pair.
type AchievementGrant struct {
	AccountID     ulid.ULID
	AchievementID ulid.ULID
	EarnedAt      time.Time
}

// NewRecruitGrant creates the new-recruit achievement grant issued at
// registration.
func NewRecruitGrant(accountID ulid.ULID) (*AchievementGrant, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("ACHIEVEMENT_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	return &AchievementGrant{
		AccountID:     accountID,
		AchievementID: NewRecruitAchievementID,
		EarnedAt:      time.Now(),
	}, nil
}

// AchievementRepository manages achievement grant persistence.
type AchievementRepository interface {
	// Grant stores a new achievement grant.
	Grant(ctx context.Context, grant *AchievementGrant) error

	// ListByAccount returns all grants for an account, newest first.
	ListByAccount(ctx context.Context, accountID ulid.ULID) ([]*AchievementGrant, error)
}
