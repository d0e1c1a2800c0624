// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package game

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// EntryKind classifies a ledger entry.
type EntryKind string

// Ledger entry kinds.
const (
	EntryKindGrant   EntryKind = "grant"
	EntryKindIncome  EntryKind = "income"
	EntryKindExpense EntryKind = "expense"
)

// LedgerEntry is an immutable record of a balance-affecting event.
// Entries are append-only and never updated or deleted.
type LedgerEntry struct {
	ID            ulid.ULID
	AccountID     ulid.ULID
	Kind          EntryKind
	Amount        int64
	BalanceBefore int64
	BalanceAfter  int64
	Description   string
	CreatedAt     time.Time
}

// NewEnlistmentGrant creates the ledger entry recording the starting money
// grant at registration. Balance before is always zero and balance after
// equals the granted amount.
func NewEnlistmentGrant(accountID ulid.ULID, amount int64) (*LedgerEntry, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("LEDGER_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if amount <= 0 {
		return nil, oops.Code("LEDGER_INVALID_AMOUNT").
			With("amount", amount).
			Errorf("grant amount must be positive")
	}

	return &LedgerEntry{
		ID:            ulid.Make(),
		AccountID:     accountID,
		Kind:          EntryKindGrant,
		Amount:        amount,
		BalanceBefore: 0,
		BalanceAfter:  amount,
		Description:   "enlistment grant",
		CreatedAt:     time.Now(),
	}, nil
}

// LedgerRepository manages ledger persistence. The ledger is append-only.
type LedgerRepository interface {
	// Append stores a new ledger entry.
	Append(ctx context.Context, entry *LedgerEntry) error

	// ListByAccount returns entries for an account, newest first.
	ListByAccount(ctx context.Context, accountID ulid.ULID, limit int) ([]*LedgerEntry, error)
}
