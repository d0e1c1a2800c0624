// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

//go:build integration

package auth_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/garrison-game/garrison/internal/auth"
	"github.com/garrison-game/garrison/internal/game"
)

// failingLedger refuses every append, simulating a storage failure after the
// account insert has already happened inside the transaction.
type failingLedger struct{}

func (failingLedger) Append(_ context.Context, _ *game.LedgerEntry) error {
	return errors.New("ledger unavailable")
}

func (failingLedger) ListByAccount(_ context.Context, _ ulid.ULID, _ int) ([]*game.LedgerEntry, error) {
	return nil, errors.New("ledger unavailable")
}

var _ = Describe("Registration", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("successful registration", func() {
		It("creates the account with its bank account, achievement, and ledger entry", func() {
			username := uniqueUsername("recruit")

			account, err := env.Registration.Register(ctx, validInput(username))
			Expect(err).NotTo(HaveOccurred())
			Expect(account.Username).To(Equal(username))
			Expect(account.Money).To(Equal(game.StartingMoney))
			Expect(account.RankLevel).To(Equal(1))

			bank, err := env.Bank.GetByAccount(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(bank.Balance).To(BeZero())

			grants, err := env.Achievements.ListByAccount(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(grants).To(HaveLen(1))
			Expect(grants[0].AchievementID).To(Equal(game.NewRecruitAchievementID))

			entries, err := env.Ledger.ListByAccount(ctx, account.ID, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Kind).To(Equal(game.EntryKindGrant))
			Expect(entries[0].Amount).To(Equal(game.StartingMoney))
			Expect(entries[0].BalanceAfter).To(Equal(game.StartingMoney))
		})

		It("stores a password hash that verifies, not the password", func() {
			username := uniqueUsername("hashed")
			input := validInput(username)

			account, err := env.Registration.Register(ctx, input)
			Expect(err).NotTo(HaveOccurred())

			stored, err := env.Accounts.GetByLogin(ctx, username)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.PasswordHash).NotTo(ContainSubstring(input.Password))
			Expect(stored.ID).To(Equal(account.ID))

			hasher := auth.NewArgon2idHasher()
			ok, err := hasher.Verify(input.Password, stored.PasswordHash)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})
	})

	Describe("duplicate accounts", func() {
		It("rejects a second registration with the same username", func() {
			username := uniqueUsername("dupe")
			_, err := env.Registration.Register(ctx, validInput(username))
			Expect(err).NotTo(HaveOccurred())

			second := validInput(username)
			second.Email = username + "+other@garrison.test"
			_, err = env.Registration.Register(ctx, second)
			Expect(err).To(MatchError(auth.ErrDuplicateAccount))
		})

		It("treats usernames differing only in case as duplicates", func() {
			username := uniqueUsername("shout")
			_, err := env.Registration.Register(ctx, validInput(username))
			Expect(err).NotTo(HaveOccurred())

			second := validInput(strings.ToUpper(username))
			second.Email = username + "+upper@garrison.test"
			_, err = env.Registration.Register(ctx, second)
			Expect(err).To(MatchError(auth.ErrDuplicateAccount))
		})

		It("lets exactly one of two concurrent registrations win", func() {
			username := uniqueUsername("race")

			var wg sync.WaitGroup
			results := make([]error, 2)
			for i := range results {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					input := validInput(username)
					// Distinct emails so only the username collides.
					input.Email = fmt.Sprintf("%s+%d@garrison.test", username, i)
					_, results[i] = env.Registration.Register(ctx, input)
				}()
			}
			wg.Wait()

			var successes, duplicates int
			for _, err := range results {
				switch {
				case err == nil:
					successes++
				case errors.Is(err, auth.ErrDuplicateAccount):
					duplicates++
				default:
					Fail("unexpected registration error: " + err.Error())
				}
			}
			Expect(successes).To(Equal(1))
			Expect(duplicates).To(Equal(1))

			var count int
			err := env.pool.QueryRow(ctx,
				"SELECT COUNT(*) FROM accounts WHERE LOWER(username) = LOWER($1)", username).Scan(&count)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})
	})

	Describe("atomicity", func() {
		It("leaves no rows behind when a step inside the transaction fails", func() {
			registration, err := auth.NewRegistrationServiceWithLogger(
				env.Accounts, env.Bank, env.Achievements, failingLedger{},
				env.Transactor, auth.NewArgon2idHasher(), discardLogger())
			Expect(err).NotTo(HaveOccurred())

			username := uniqueUsername("halfway")
			_, err = registration.Register(ctx, validInput(username))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("registration"))

			exists, err := env.Accounts.ExistsByUsername(ctx, username)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse(), "account row must not survive the rollback")

			var orphans int
			err = env.pool.QueryRow(ctx, `
				SELECT (SELECT COUNT(*) FROM bank_accounts b
				        WHERE NOT EXISTS (SELECT 1 FROM accounts a WHERE a.id = b.account_id))
				     + (SELECT COUNT(*) FROM achievement_grants g
				        WHERE NOT EXISTS (SELECT 1 FROM accounts a WHERE a.id = g.account_id))
			`).Scan(&orphans)
			Expect(err).NotTo(HaveOccurred())
			Expect(orphans).To(BeZero(), "dependent rows must not survive the rollback")
		})

		It("commits all dependent rows together on success", func() {
			username := uniqueUsername("atomic")
			account, err := env.Registration.Register(ctx, validInput(username))
			Expect(err).NotTo(HaveOccurred())

			id := account.ID.String()
			Expect(countRows(ctx, env.pool, "bank_accounts", id)).To(Equal(1))
			Expect(countRows(ctx, env.pool, "achievement_grants", id)).To(Equal(1))
			Expect(countRows(ctx, env.pool, "ledger_entries", id)).To(Equal(1))
		})
	})
})
