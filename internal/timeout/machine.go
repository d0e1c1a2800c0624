// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

// Package timeout tracks the client-visible session lifecycle: a warning
// ahead of expiry, the expiry itself, and the transitions between them.
//
// The machine is advisory. The server-side session expiry is authoritative;
// this package only drives the UI countdown (warning banner, forced logout)
// so the client reacts at the right moments instead of polling.
package timeout

import (
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
)

// State is the client's view of the session lifecycle.
type State int

// Session lifecycle states.
const (
	// StateAnonymous means no session is being tracked.
	StateAnonymous State = iota
	// StateAuthenticated means a session is active and inside its window.
	StateAuthenticated
	// StateWarned means the warning threshold has passed but the session is
	// still valid.
	StateWarned
	// StateExpired means the window elapsed. The machine stays here until
	// Logout resets it; no timer can fire out of this state.
	StateExpired
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	case StateWarned:
		return "warned"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Config defines the timing of the session lifecycle.
type Config struct {
	Window   time.Duration // session validity window
	WarnLead time.Duration // how long before expiry the warning fires
}

// DefaultConfig returns the standard session timing: a 24 minute window with
// the warning 5 minutes before expiry.
func DefaultConfig() Config {
	return Config{
		Window:   24 * time.Minute,
		WarnLead: 5 * time.Minute,
	}
}

// Machine is the session timeout state machine. All methods are safe for
// concurrent use. Callbacks run on timer goroutines without the machine's
// lock held, so they may call back into the machine.
type Machine struct {
	cfg      Config
	onWarn   func(remaining time.Duration)
	onExpire func()
	logger   *slog.Logger

	mu          sync.Mutex
	state       State
	gen         uint64 // incremented on every reschedule/cancel; stale timers check it
	warnTimer   *time.Timer
	expireTimer *time.Timer
}

// NewMachine creates a Machine. onWarn and onExpire may be nil; a nil
// callback makes that transition silent.
func NewMachine(cfg Config, onWarn func(remaining time.Duration), onExpire func()) (*Machine, error) {
	return NewMachineWithLogger(cfg, onWarn, onExpire, slog.Default())
}

// NewMachineWithLogger creates a Machine with an explicit logger.
func NewMachineWithLogger(cfg Config, onWarn func(remaining time.Duration), onExpire func(), logger *slog.Logger) (*Machine, error) {
	if cfg.Window <= 0 {
		return nil, oops.Code("TIMEOUT_INVALID_CONFIG").
			With("window", cfg.Window).
			Errorf("window must be positive")
	}
	if cfg.WarnLead < 0 || cfg.WarnLead >= cfg.Window {
		return nil, oops.Code("TIMEOUT_INVALID_CONFIG").
			With("window", cfg.Window).
			With("warn_lead", cfg.WarnLead).
			Errorf("warn lead must be non-negative and shorter than the window")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Machine{
		cfg:      cfg,
		onWarn:   onWarn,
		onExpire: onExpire,
		logger:   logger,
		state:    StateAnonymous,
	}, nil
}

// Classify maps a session expiry to the lifecycle state it would be in at
// the given instant. It is the stateless counterpart of the Machine, for
// callers that report on a session without running timers.
func Classify(expiresAt, now time.Time, cfg Config) State {
	remaining := expiresAt.Sub(now)
	switch {
	case remaining <= 0:
		return StateExpired
	case remaining <= cfg.WarnLead:
		return StateWarned
	default:
		return StateAuthenticated
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start begins tracking a fresh session window. It is called after login and
// replaces any previous tracking.
func (m *Machine) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rescheduleLocked()
	m.state = StateAuthenticated
}

// Extend restarts the window from now, clearing a pending warning. It has no
// effect in Anonymous or Expired: an elapsed window can only be left through
// Logout, mirroring the server's refusal to extend an expired session.
func (m *Machine) Extend() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated && m.state != StateWarned {
		return
	}
	m.rescheduleLocked()
	m.state = StateAuthenticated
}

// Dismiss acknowledges the warning without extending the session. The timers
// keep running: the session will still expire on schedule.
func (m *Machine) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateWarned {
		return
	}
	m.state = StateAuthenticated
}

// Logout stops tracking and returns to Anonymous. It is idempotent and the
// only way out of Expired.
func (m *Machine) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
	m.state = StateAnonymous
}

// rescheduleLocked cancels any pending timers and schedules fresh warn and
// expire timers under a new generation. Must hold m.mu.
func (m *Machine) rescheduleLocked() {
	m.cancelLocked()
	gen := m.gen
	m.warnTimer = time.AfterFunc(m.cfg.Window-m.cfg.WarnLead, func() { m.fireWarn(gen) })
	m.expireTimer = time.AfterFunc(m.cfg.Window, func() { m.fireExpire(gen) })
}

// cancelLocked stops pending timers and bumps the generation so an
// already-fired timer waiting on the lock becomes a no-op. Must hold m.mu.
func (m *Machine) cancelLocked() {
	m.gen++
	if m.warnTimer != nil {
		m.warnTimer.Stop()
		m.warnTimer = nil
	}
	if m.expireTimer != nil {
		m.expireTimer.Stop()
		m.expireTimer = nil
	}
}

func (m *Machine) fireWarn(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateAuthenticated {
		m.mu.Unlock()
		return
	}
	m.state = StateWarned
	onWarn := m.onWarn
	remaining := m.cfg.WarnLead
	m.mu.Unlock()

	m.logger.Debug("session expiry warning", "remaining", remaining)
	if onWarn != nil {
		onWarn(remaining)
	}
}

func (m *Machine) fireExpire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || (m.state != StateAuthenticated && m.state != StateWarned) {
		m.mu.Unlock()
		return
	}
	m.cancelLocked()
	m.state = StateExpired
	onExpire := m.onExpire
	m.mu.Unlock()

	m.logger.Debug("session window elapsed")
	if onExpire != nil {
		onExpire()
	}
}
