// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/garrison-game/garrison/internal/store"
)

// setupPostgres starts a PostgreSQL container, connects a pool, and applies
// the schema.
func setupPostgres() (*pgxpool.Pool, func(), error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("garrison_test"),
		postgres.WithUsername("garrison"),
		postgres.WithPassword("garrison"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		return nil, nil, err
	}
	if err := migrator.Up(); err != nil {
		return nil, nil, err
	}
	_ = migrator.Close()

	pool, err := store.NewPool(ctx, connStr)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return pool, cleanup, nil
}

var _ = Describe("Schema", func() {
	var pool *pgxpool.Pool
	var cleanup func()

	BeforeEach(func() {
		var err error
		pool, cleanup, err = setupPostgres()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cleanup()
	})

	It("creates all account and session tables", func() {
		ctx := context.Background()
		tables := []string{
			"accounts", "sessions", "remember_tokens",
			"bank_accounts", "ledger_entries", "achievement_grants",
		}
		for _, table := range tables {
			var exists bool
			err := pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`,
				table).Scan(&exists)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue(), "table %s should exist", table)
		}
	})

	It("rejects usernames that differ only in case", func() {
		ctx := context.Background()
		_, err := pool.Exec(ctx, `
			INSERT INTO accounts (id, username, email, password_hash, recruitment_cycle)
			VALUES ('01HZTEST0000000000000001A0', 'Recruit_7', 'a@example.com', 'hash', '2026-08')`)
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx, `
			INSERT INTO accounts (id, username, email, password_hash, recruitment_cycle)
			VALUES ('01HZTEST0000000000000002A0', 'RECRUIT_7', 'b@example.com', 'hash', '2026-08')`)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("accounts_username_lower_idx"))
	})

	It("rejects duplicate session token hashes", func() {
		ctx := context.Background()
		_, err := pool.Exec(ctx, `
			INSERT INTO accounts (id, username, email, password_hash, recruitment_cycle)
			VALUES ('01HZTEST0000000000000003A0', 'sergeant', 's@example.com', 'hash', '2026-08')`)
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx, `
			INSERT INTO sessions (id, account_id, token_hash, issued_at, expires_at)
			VALUES ('01HZTEST0000000000000004A0', '01HZTEST0000000000000003A0', 'samehash', NOW(), NOW() + INTERVAL '24 minutes')`)
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx, `
			INSERT INTO sessions (id, account_id, token_hash, issued_at, expires_at)
			VALUES ('01HZTEST0000000000000005A0', '01HZTEST0000000000000003A0', 'samehash', NOW(), NOW() + INTERVAL '24 minutes')`)
		Expect(err).To(HaveOccurred())
	})

	It("cascades account deletion to dependent rows", func() {
		ctx := context.Background()
		_, err := pool.Exec(ctx, `
			INSERT INTO accounts (id, username, email, password_hash, recruitment_cycle)
			VALUES ('01HZTEST0000000000000006A0', 'corporal', 'c@example.com', 'hash', '2026-08')`)
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx, `
			INSERT INTO bank_accounts (account_id, balance, savings)
			VALUES ('01HZTEST0000000000000006A0', 0, 0)`)
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx, `DELETE FROM accounts WHERE id = '01HZTEST0000000000000006A0'`)
		Expect(err).NotTo(HaveOccurred())

		var count int
		err = pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM bank_accounts WHERE account_id = '01HZTEST0000000000000006A0'`).Scan(&count)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(BeZero())
	})
})
