// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/garrison-game/garrison/internal/auth"
	authpg "github.com/garrison-game/garrison/internal/auth/postgres"
	"github.com/garrison-game/garrison/internal/availability"
	"github.com/garrison-game/garrison/internal/game"
	gamepg "github.com/garrison-game/garrison/internal/game/postgres"
	"github.com/garrison-game/garrison/internal/logging"
	"github.com/garrison-game/garrison/internal/observability"
	"github.com/garrison-game/garrison/internal/store"
	"github.com/garrison-game/garrison/internal/web"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the game API server",
		Long: `Start the HTTP API server handling registration, login, logout,
username availability, and session status for the browser client.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadServeConfig(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	cmd.Flags().String("addr", defaultAPIAddr, "API listen address")
	cmd.Flags().String("metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", defaultLogFormat, "log format (json or text)")
	cmd.Flags().Bool("auto-migrate", false, "apply pending database migrations at startup")
	cmd.Flags().Bool("secure-cookies", false, "mark auth cookies Secure (enable behind TLS)")
	cmd.Flags().String("landing-url", defaultLandingURL, "redirect target for anonymous visitors")
	cmd.Flags().String("home-url", defaultHomeURL, "redirect target after login")

	return cmd
}

func runServe(ctx context.Context, cfg *serveConfig, cmd *cobra.Command) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("garrison", version, cfg.LogFormat)
	logger := slog.Default()

	logger.Info("starting garrison server",
		"addr", cfg.Addr,
		"log_format", cfg.LogFormat,
	)

	if cfg.AutoMigrate {
		if err := autoMigrate(cfg.databaseURL, logger); err != nil {
			return err
		}
	}

	pool, err := store.NewPool(ctx, cfg.databaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	logger.Info("connected to database")

	transactor := store.NewTransactor(pool)
	accounts := authpg.NewAccountRepository(pool)
	sessions := authpg.NewSessionRepository(pool)
	rememberTokens := authpg.NewRememberTokenRepository(pool)
	bankAccounts := gamepg.NewBankAccountRepository(pool)
	achievements := gamepg.NewAchievementRepository(pool)
	ledger := gamepg.NewLedgerRepository(pool)
	hasher := auth.NewArgon2idHasher()

	registration, err := auth.NewRegistrationServiceWithLogger(
		accounts, bankAccounts, achievements, ledger, transactor, hasher, logger)
	if err != nil {
		return oops.With("operation", "create registration service").Wrap(err)
	}

	authService, err := auth.NewAuthServiceWithLogger(
		accounts, sessions, rememberTokens, hasher, logger)
	if err != nil {
		return oops.With("operation", "create auth service").Wrap(err)
	}

	checker, err := availability.NewChecker(accounts)
	if err != nil {
		return oops.With("operation", "create availability checker").Wrap(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		metrics = obsServer.Metrics()

		obsErrChan, obsErr := obsServer.Start()
		if obsErr != nil {
			return oops.With("operation", "start observability server").Wrap(obsErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	} else {
		// Metrics still record, they are just not exported anywhere.
		obsServer = observability.NewServer("", nil)
		metrics = obsServer.Metrics()
	}

	apiServer, err := web.NewServer(web.Config{
		Addr:          cfg.Addr,
		SecureCookies: cfg.SecureCookies,
		LandingURL:    cfg.LandingURL,
		HomeURL:       cfg.HomeURL,
	}, web.Deps{
		Registration: registration,
		Auth:         authService,
		Accounts:     accounts,
		Availability: checker,
		Ranks:        game.DefaultRanks(),
		Metrics:      metrics,
		Logger:       logger,
	})
	if err != nil {
		return oops.With("operation", "create api server").Wrap(err)
	}

	apiErrChan, err := apiServer.Start()
	if err != nil {
		return oops.With("operation", "start api server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	go purgeExpiredLoop(ctx, authService, logger)

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Garrison server started")
	logger.Info("garrison server ready", "addr", apiServer.Addr())

	// Wait for shutdown signal or server failure
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	if cfg.MetricsAddr != "" {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// autoMigrate applies pending migrations before the server starts.
func autoMigrate(databaseURL string, logger *slog.Logger) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	pending, err := migrator.PendingMigrations()
	if err != nil {
		return oops.With("operation", "list pending migrations").Wrap(err)
	}
	if len(pending) == 0 {
		logger.Info("database schema up to date")
		return nil
	}

	logger.Info("applying pending migrations", "count", len(pending))
	if err := migrator.Up(); err != nil {
		return oops.With("operation", "apply migrations").Wrap(err)
	}
	logger.Info("migrations applied")
	return nil
}

// purgeInterval is how often expired sessions and remember tokens are
// swept from the store. Expired rows are also rejected on presentation,
// so the sweep only needs to keep the tables from growing.
const purgeInterval = 15 * time.Minute

// purgeExpiredLoop periodically removes expired sessions and remember
// tokens until the context is cancelled.
func purgeExpiredLoop(ctx context.Context, authService *auth.Service, logger *slog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := authService.PurgeExpired(ctx); err != nil {
				logger.Warn("expired credential purge failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// monitorServerErrors monitors a server's error channel and cancels the
// context on error so a failed server triggers a full graceful shutdown.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
