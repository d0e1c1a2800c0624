// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package game

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// StartingMoney is the enlistment grant credited to every new account,
// in agorot (200000 agorot = 2000.00 shekels).
const StartingMoney int64 = 200000

// BankAccount is the 1:1 banking record for an account. Balance and savings
// are mutated by gameplay, which is outside this core; registration creates
// the record with zero balances.
type BankAccount struct {
	AccountID ulid.ULID
	Balance   int64
	Savings   int64
}

// NewBankAccount creates an empty bank account for the given account.
func NewBankAccount(accountID ulid.ULID) (*BankAccount, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("BANK_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	return &BankAccount{AccountID: accountID}, nil
}

// BankAccountRepository manages bank account persistence.
type BankAccountRepository interface {
	// Create stores a new bank account.
	Create(ctx context.Context, account *BankAccount) error

	// GetByAccount retrieves the bank account for an account.
	GetByAccount(ctx context.Context, accountID ulid.ULID) (*BankAccount, error)
}
