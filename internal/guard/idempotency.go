package guard

import (
	"sync"
	"time"
)

type orderState int

const (
	orderInFlight orderState = iota + 1
	orderDone
)

type orderEntry struct {
	state orderState
	at    time.Time
}

// IdempotencyGuard rejects a second submission of the same wallet/order pair while
// the first is in flight or after it moved money. Completed keys are forgotten after
// retain; the ledger's unique index still rejects replays past that point.
type IdempotencyGuard struct {
	mu     sync.Mutex
	seen   map[string]orderEntry
	retain time.Duration
	now    Clock
}

// NewIdempotencyGuard creates an in-memory guard.
func NewIdempotencyGuard(retain time.Duration, now Clock) *IdempotencyGuard {
	return &IdempotencyGuard{
		seen:   make(map[string]orderEntry),
		retain: retain,
		now:    orNow(now),
	}
}

// OrderKey builds the guard key for an order against one wallet.
func OrderKey(entityKey, orderID string) string {
	return entityKey + "|" + orderID
}

// Acquire claims key. An empty key is always allowed and never tracked.
func (ig *IdempotencyGuard) Acquire(key string) Result {
	if key == "" {
		return allow()
	}

	ig.mu.Lock()
	defer ig.mu.Unlock()

	now := ig.now()
	if e, ok := ig.seen[key]; ok {
		if e.state == orderDone && ig.retain > 0 && now.Sub(e.at) > ig.retain {
			delete(ig.seen, key)
		} else {
			reason := "order already submitted"
			if e.state == orderInFlight {
				reason = "order in flight"
			}
			return Result{Allowed: false, Reason: reason, Guard: "idempotency"}
		}
	}

	ig.seen[key] = orderEntry{state: orderInFlight, at: now}
	return allow()
}

// Complete marks key as having moved money. It stays blocked until retain elapses.
func (ig *IdempotencyGuard) Complete(key string) {
	if key == "" {
		return
	}
	ig.mu.Lock()
	defer ig.mu.Unlock()
	ig.seen[key] = orderEntry{state: orderDone, at: ig.now()}
}

// Release forgets key so the caller may resubmit. Used when nothing moved.
func (ig *IdempotencyGuard) Release(key string) {
	ig.mu.Lock()
	defer ig.mu.Unlock()
	delete(ig.seen, key)
}

// Sweep drops completed keys older than retain and returns how many were removed.
func (ig *IdempotencyGuard) Sweep() int {
	if ig.retain <= 0 {
		return 0
	}
	ig.mu.Lock()
	defer ig.mu.Unlock()

	now := ig.now()
	removed := 0
	for k, e := range ig.seen {
		if e.state == orderDone && now.Sub(e.at) > ig.retain {
			delete(ig.seen, k)
			removed++
		}
	}
	return removed
}
