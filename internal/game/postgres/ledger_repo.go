// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/garrison-game/garrison/internal/game"
	"github.com/garrison-game/garrison/internal/store"
)

// LedgerRepository implements game.LedgerRepository using PostgreSQL.
type LedgerRepository struct {
	db store.Querier
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db store.Querier) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append stores a new ledger entry.
func (r *LedgerRepository) Append(ctx context.Context, entry *game.LedgerEntry) error {
	_, err := store.QuerierFrom(ctx, r.db).Exec(ctx, `
		INSERT INTO ledger_entries (id, account_id, kind, amount, balance_before, balance_after, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		entry.ID.String(),
		entry.AccountID.String(),
		string(entry.Kind),
		entry.Amount,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.Description,
		entry.CreatedAt,
	)
	if err != nil {
		return oops.Code("LEDGER_APPEND_FAILED").
			With("operation", "insert ledger entry").
			With("account_id", entry.AccountID.String()).
			Wrap(err)
	}
	return nil
}

// ListByAccount returns entries for an account, newest first. A limit of
// zero or less returns all entries.
func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID ulid.ULID, limit int) ([]*game.LedgerEntry, error) {
	query := `
		SELECT id, account_id, kind, amount, balance_before, balance_after, description, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
	`
	args := []any{accountID.String()}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := store.QuerierFrom(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, oops.Code("LEDGER_LIST_FAILED").
			With("operation", "list ledger entries").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var entries []*game.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("LEDGER_LIST_FAILED").
			With("operation", "iterate ledger entries").
			Wrap(err)
	}
	return entries, nil
}

func scanLedgerEntry(row pgx.Row) (*game.LedgerEntry, error) {
	var (
		idStr         string
		accountIDStr  string
		kind          string
		amount        int64
		balanceBefore int64
		balanceAfter  int64
		description   string
		createdAt     time.Time
	)

	err := row.Scan(&idStr, &accountIDStr, &kind, &amount, &balanceBefore, &balanceAfter, &description, &createdAt)
	if err != nil {
		return nil, oops.Code("LEDGER_SCAN_FAILED").
			With("operation", "scan ledger entry").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("LEDGER_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	accountID, err := ulid.Parse(accountIDStr)
	if err != nil {
		return nil, oops.Code("LEDGER_INVALID_ACCOUNT_ID").
			With("account_id", accountIDStr).
			Wrap(err)
	}

	return &game.LedgerEntry{
		ID:            id,
		AccountID:     accountID,
		Kind:          game.EntryKind(kind),
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		Description:   description,
		CreatedAt:     createdAt,
	}, nil
}

// Compile-time interface check.
var _ game.LedgerRepository = (*LedgerRepository)(nil)
