// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/garrison-game/garrison/internal/game"
)

// RegistrationService validates registration input and atomically creates an
// account together with its dependent records: bank account, new-recruit
// achievement grant, and the enlistment ledger entry.
type RegistrationService struct {
	accounts     AccountRepository
	bank         game.BankAccountRepository
	achievements game.AchievementRepository
	ledger       game.LedgerRepository
	transactor   Transactor
	hasher       PasswordHasher
	logger       *slog.Logger
}

// NewRegistrationService creates a new RegistrationService.
func NewRegistrationService(
	accounts AccountRepository,
	bank game.BankAccountRepository,
	achievements game.AchievementRepository,
	ledger game.LedgerRepository,
	transactor Transactor,
	hasher PasswordHasher,
) (*RegistrationService, error) {
	return NewRegistrationServiceWithLogger(accounts, bank, achievements, ledger, transactor, hasher, slog.Default())
}

// NewRegistrationServiceWithLogger creates a RegistrationService with an
// explicit logger.
func NewRegistrationServiceWithLogger(
	accounts AccountRepository,
	bank game.BankAccountRepository,
	achievements game.AchievementRepository,
	ledger game.LedgerRepository,
	transactor Transactor,
	hasher PasswordHasher,
	logger *slog.Logger,
) (*RegistrationService, error) {
	if accounts == nil {
		return nil, oops.Errorf("accounts repository is required")
	}
	if bank == nil {
		return nil, oops.Errorf("bank repository is required")
	}
	if achievements == nil {
		return nil, oops.Errorf("achievements repository is required")
	}
	if ledger == nil {
		return nil, oops.Errorf("ledger repository is required")
	}
	if transactor == nil {
		return nil, oops.Errorf("transactor is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &RegistrationService{
		accounts:     accounts,
		bank:         bank,
		achievements: achievements,
		ledger:       ledger,
		transactor:   transactor,
		hasher:       hasher,
		logger:       logger,
	}, nil
}

// Register validates the input and creates the account with all dependent
// records in a single transaction. Either everything commits or nothing does;
// a partially created account is never observable.
//
// Register only creates the account. Establishing a session for it is the
// caller's explicit next step (Service.StartSession), so the chaining of
// registration into login is visible in the call site, not hidden here.
func (s *RegistrationService) Register(ctx context.Context, input RegistrationInput) (*Account, error) {
	if fieldErrs := input.Validate(); len(fieldErrs) > 0 {
		return nil, oops.Code("REGISTER_VALIDATION").
			With("field_errors", fieldErrs).
			Errorf("registration input is invalid")
	}

	// Fast-feedback pre-check. Subject to a check-then-insert race with a
	// concurrent registration; the unique constraint caught below remains
	// the authoritative guard.
	exists, err := s.accounts.ExistsByLogin(ctx, input.Username, input.Email)
	if err != nil {
		s.logger.Warn("duplicate pre-check failed, deferring to unique constraint",
			"username", input.Username, "error", err)
	} else if exists {
		return nil, oops.Code("REGISTER_DUPLICATE").
			With("username", input.Username).
			Wrap(ErrDuplicateAccount)
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(input.Username, input.Email, passwordHash, input.RecruitmentCycle, game.StartingMoney)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	bankAccount, err := game.NewBankAccount(account.ID)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "create bank account").
			Wrap(err)
	}

	grant, err := game.NewRecruitGrant(account.ID)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "create achievement grant").
			Wrap(err)
	}

	entry, err := game.NewEnlistmentGrant(account.ID, game.StartingMoney)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "create ledger entry").
			Wrap(err)
	}

	err = s.transactor.InTransaction(ctx, func(txCtx context.Context) error {
		if err := s.accounts.Create(txCtx, account); err != nil {
			return err
		}
		if err := s.bank.Create(txCtx, bankAccount); err != nil {
			return err
		}
		if err := s.achievements.Grant(txCtx, grant); err != nil {
			return err
		}
		return s.ledger.Append(txCtx, entry)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			// Lost the check-then-insert race against a concurrent
			// registration of the same username or email.
			return nil, oops.Code("REGISTER_DUPLICATE").
				With("username", input.Username).
				Wrap(ErrDuplicateAccount)
		}
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "registration transaction").
			With("username", input.Username).
			Wrap(err)
	}

	s.logger.Info("account registered",
		"account_id", account.ID.String(),
		"username", account.Username,
		"recruitment_cycle", account.RecruitmentCycle,
	)

	return account, nil
}
