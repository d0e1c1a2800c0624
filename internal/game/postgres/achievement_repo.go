// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/garrison-game/garrison/internal/game"
	"github.com/garrison-game/garrison/internal/store"
)

// AchievementRepository implements game.AchievementRepository using
// PostgreSQL.
type AchievementRepository struct {
	db store.Querier
}

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(db store.Querier) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// Grant stores a new achievement grant. Granting the same achievement to
// the same account twice is a no-op.
func (r *AchievementRepository) Grant(ctx context.Context, grant *game.AchievementGrant) error {
	_, err := store.QuerierFrom(ctx, r.db).Exec(ctx, `
		INSERT INTO achievement_grants (account_id, achievement_id, earned_at)
		VALUES ($1, $2, $3)
	`,
		grant.AccountID.String(),
		grant.AchievementID.String(),
		grant.EarnedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil
		}
		return oops.Code("ACHIEVEMENT_GRANT_FAILED").
			With("operation", "insert achievement grant").
			With("account_id", grant.AccountID.String()).
			With("achievement_id", grant.AchievementID.String()).
			Wrap(err)
	}
	return nil
}

// ListByAccount returns all grants for an account, newest first.
func (r *AchievementRepository) ListByAccount(ctx context.Context, accountID ulid.ULID) ([]*game.AchievementGrant, error) {
	rows, err := store.QuerierFrom(ctx, r.db).Query(ctx, `
		SELECT account_id, achievement_id, earned_at
		FROM achievement_grants
		WHERE account_id = $1
		ORDER BY earned_at DESC
	`, accountID.String())
	if err != nil {
		return nil, oops.Code("ACHIEVEMENT_LIST_FAILED").
			With("operation", "list achievement grants").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var grants []*game.AchievementGrant
	for rows.Next() {
		var (
			accountIDStr     string
			achievementIDStr string
			earnedAt         time.Time
		)
		if err := rows.Scan(&accountIDStr, &achievementIDStr, &earnedAt); err != nil {
			return nil, oops.Code("ACHIEVEMENT_SCAN_FAILED").
				With("operation", "scan achievement grant").
				Wrap(err)
		}

		acctID, err := ulid.Parse(accountIDStr)
		if err != nil {
			return nil, oops.Code("ACHIEVEMENT_INVALID_ACCOUNT_ID").
				With("account_id", accountIDStr).
				Wrap(err)
		}
		achID, err := ulid.Parse(achievementIDStr)
		if err != nil {
			return nil, oops.Code("ACHIEVEMENT_INVALID_ID").
				With("achievement_id", achievementIDStr).
				Wrap(err)
		}

		grants = append(grants, &game.AchievementGrant{
			AccountID:     acctID,
			AchievementID: achID,
			EarnedAt:      earnedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACHIEVEMENT_LIST_FAILED").
			With("operation", "iterate achievement grants").
			Wrap(err)
	}
	return grants, nil
}

// Compile-time interface check.
var _ game.AchievementRepository = (*AchievementRepository)(nil)
