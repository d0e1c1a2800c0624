// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package availability

import (
	"context"
	"sync"
	"time"
)

// DebounceDelay is the quiet period before a debounced check fires.
const DebounceDelay = 500 * time.Millisecond

// Debouncer collapses a burst of checks into a single callback. Each Check
// restarts the timer; only the latest request's callback fires. The callback
// receives a context that is canceled if a newer check or Cancel supersedes
// it, so a lookup already in flight stops mattering the moment the user
// types another character.
type Debouncer struct {
	delay time.Duration

	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc
}

// NewDebouncer creates a Debouncer. A non-positive delay uses DebounceDelay.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DebounceDelay
	}
	return &Debouncer{delay: delay}
}

// Check schedules fn to run with the given name after the quiet period.
// A subsequent Check or Cancel before then discards it entirely; one after
// fn has started cancels fn's context.
func (d *Debouncer) Check(name string, fn func(ctx context.Context, name string)) {
	d.mu.Lock()
	d.supersedeLocked()
	d.gen++
	gen := d.gen

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.mu.Unlock()
		fn(ctx, name)
	})
	d.mu.Unlock()
}

// Cancel discards any pending check and cancels an in-flight callback.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.supersedeLocked()
	d.gen++
	d.mu.Unlock()
}

// supersedeLocked stops the pending timer and cancels the current callback
// context. Callers hold d.mu.
func (d *Debouncer) supersedeLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
