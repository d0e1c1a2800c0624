// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

// Package web serves the JSON API the browser client talks to: account
// registration, login, logout, username availability, and session status.
package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/garrison-game/garrison/internal/auth"
	"github.com/garrison-game/garrison/internal/game"
	"github.com/garrison-game/garrison/internal/observability"
)

// RegistrationService creates new accounts.
type RegistrationService interface {
	Register(ctx context.Context, input auth.RegistrationInput) (*auth.Account, error)
}

// AuthService authenticates accounts and manages their sessions.
type AuthService interface {
	Login(ctx context.Context, identifier, password string) (*auth.Session, string, *auth.Account, error)
	Remember(ctx context.Context, accountID ulid.ULID) (string, error)
	RedeemRemember(ctx context.Context, token string) (*auth.Session, string, string, error)
	ValidateSession(ctx context.Context, token string) (*auth.Session, error)
	ExtendSession(ctx context.Context, token string) (*auth.Session, error)
	Logout(ctx context.Context, sessionToken, rememberToken string)
}

// AccountSource looks up accounts for display payloads.
type AccountSource interface {
	GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error)
}

// AvailabilityChecker answers username availability queries.
type AvailabilityChecker interface {
	Check(ctx context.Context, username string) bool
	Invalidate(username string)
}

// Config holds the API server settings.
type Config struct {
	// Addr is the listen address in "host:port" form.
	Addr string
	// SecureCookies marks session cookies Secure. Enable whenever the
	// site is served over TLS.
	SecureCookies bool
	// LandingURL is where anonymous visitors are sent.
	LandingURL string
	// HomeURL is where authenticated players are sent.
	HomeURL string
}

// DefaultConfig returns the standard API server settings.
func DefaultConfig() Config {
	return Config{
		Addr:       ":8080",
		LandingURL: "/",
		HomeURL:    "/home",
	}
}

// Deps bundles the collaborators the API handlers need.
type Deps struct {
	Registration RegistrationService
	Auth         AuthService
	Accounts     AccountSource
	Availability AvailabilityChecker
	Ranks        game.RankSource
	Metrics      *observability.Metrics
	Logger       *slog.Logger
}

// Server serves the JSON API.
type Server struct {
	cfg        Config
	deps       Deps
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates an API server. All dependencies except the logger are
// required.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Registration == nil {
		return nil, oops.Errorf("registration service is required")
	}
	if deps.Auth == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if deps.Accounts == nil {
		return nil, oops.Errorf("account source is required")
	}
	if deps.Availability == nil {
		return nil, oops.Errorf("availability checker is required")
	}
	if deps.Ranks == nil {
		return nil, oops.Errorf("rank source is required")
	}
	if deps.Metrics == nil {
		return nil, oops.Errorf("metrics are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.LandingURL == "" {
		cfg.LandingURL = "/"
	}
	if cfg.HomeURL == "" {
		cfg.HomeURL = "/home"
	}
	return &Server{cfg: cfg, deps: deps}, nil
}

// Handler returns the API routes. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("POST /api/check-username", s.handleCheckUsername)
	mux.HandleFunc("POST /api/extend-session", s.handleExtendSession)
	mux.HandleFunc("GET /api/session-status", s.handleSessionStatus)
	return mux
}

// Start begins serving the API. It returns an error channel that receives
// any serve error and is closed on graceful shutdown.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.cfg.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.deps.Logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.deps.Logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.deps.Logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on, or "" if stopped.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
