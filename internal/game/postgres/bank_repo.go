// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

// Package postgres implements the game repositories using PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/garrison-game/garrison/internal/auth"
	"github.com/garrison-game/garrison/internal/game"
	"github.com/garrison-game/garrison/internal/store"
)

// BankAccountRepository implements game.BankAccountRepository using
// PostgreSQL.
type BankAccountRepository struct {
	db store.Querier
}

// NewBankAccountRepository creates a new BankAccountRepository.
func NewBankAccountRepository(db store.Querier) *BankAccountRepository {
	return &BankAccountRepository{db: db}
}

// Create stores a new bank account.
func (r *BankAccountRepository) Create(ctx context.Context, account *game.BankAccount) error {
	_, err := store.QuerierFrom(ctx, r.db).Exec(ctx, `
		INSERT INTO bank_accounts (account_id, balance, savings)
		VALUES ($1, $2, $3)
	`,
		account.AccountID.String(),
		account.Balance,
		account.Savings,
	)
	if err != nil {
		return oops.Code("BANK_CREATE_FAILED").
			With("operation", "insert bank account").
			With("account_id", account.AccountID.String()).
			Wrap(err)
	}
	return nil
}

// GetByAccount retrieves the bank account for an account.
func (r *BankAccountRepository) GetByAccount(ctx context.Context, accountID ulid.ULID) (*game.BankAccount, error) {
	var (
		accountIDStr string
		balance      int64
		savings      int64
	)

	err := store.QuerierFrom(ctx, r.db).QueryRow(ctx, `
		SELECT account_id, balance, savings
		FROM bank_accounts
		WHERE account_id = $1
	`, accountID.String()).Scan(&accountIDStr, &balance, &savings)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("BANK_NOT_FOUND").
			With("account_id", accountID.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("BANK_GET_FAILED").
			With("operation", "get bank account").
			With("account_id", accountID.String()).
			Wrap(err)
	}

	id, err := ulid.Parse(accountIDStr)
	if err != nil {
		return nil, oops.Code("BANK_INVALID_ACCOUNT_ID").
			With("account_id", accountIDStr).
			Wrap(err)
	}

	return &game.BankAccount{
		AccountID: id,
		Balance:   balance,
		Savings:   savings,
	}, nil
}

// Compile-time interface check.
var _ game.BankAccountRepository = (*BankAccountRepository)(nil)
