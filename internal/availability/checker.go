// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

// Package availability answers "is this username still free?" for the
// registration form: a short-TTL cache over the account store plus a
// debouncer that collapses keystroke-speed checks into one lookup.
//
// Answers are hints for the form, not reservations. The unique constraint
// enforced at registration remains the authority on collisions.
package availability

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/garrison-game/garrison/pkg/errutil"
)

// CacheTTL is how long a cached availability answer stays fresh.
const CacheTTL = 30 * time.Second

// UsernameSource reports whether a username is taken. auth.AccountRepository
// satisfies it.
type UsernameSource interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

type cacheEntry struct {
	available bool
	expires   time.Time
}

// Checker caches username availability lookups. Entries expire after the TTL
// and are evicted lazily on access. Safe for concurrent use.
type Checker struct {
	src    UsernameSource
	ttl    time.Duration
	logger *slog.Logger
	clock  func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewChecker creates a Checker with the standard TTL.
func NewChecker(src UsernameSource) (*Checker, error) {
	return NewCheckerWithTTL(src, CacheTTL, slog.Default())
}

// NewCheckerWithTTL creates a Checker with an explicit TTL and logger.
func NewCheckerWithTTL(src UsernameSource, ttl time.Duration, logger *slog.Logger) (*Checker, error) {
	if src == nil {
		return nil, oops.Errorf("username source is required")
	}
	if ttl <= 0 {
		return nil, oops.Code("AVAILABILITY_INVALID_TTL").
			With("ttl", ttl).
			Errorf("ttl must be positive")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Checker{
		src:     src,
		ttl:     ttl,
		logger:  logger,
		clock:   time.Now,
		entries: make(map[string]cacheEntry),
	}, nil
}

// Check reports whether the username appears available. A fresh cached
// answer is returned without a lookup. Lookup failures fail open: the
// caller sees "available", the form proceeds, and registration's unique
// constraint has the final word.
func (c *Checker) Check(ctx context.Context, username string) bool {
	key := strings.ToLower(username)

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		if c.clock().Before(entry.expires) {
			c.mu.Unlock()
			return entry.available
		}
		delete(c.entries, key)
	}
	c.mu.Unlock()

	taken, err := c.src.ExistsByUsername(ctx, username)
	if err != nil {
		errutil.LogError(c.logger, "username availability lookup failed", err)
		return true
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{
		available: !taken,
		expires:   c.clock().Add(c.ttl),
	}
	c.mu.Unlock()

	return !taken
}

// Invalidate drops the cached answer for a username. Called after a
// successful registration so the name immediately reads as taken.
func (c *Checker) Invalidate(username string) {
	c.mu.Lock()
	delete(c.entries, strings.ToLower(username))
	c.mu.Unlock()
}

// Len returns the number of cached entries, stale included.
func (c *Checker) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
