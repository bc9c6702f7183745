package guard

import (
	"fmt"
	"sync"
	"time"
)

const (
	MaxSignatureFailures = 5
	LockoutWindow        = 15 * time.Minute
)

// Lockout blocks a caller after too many failed signature checks inside a window.
type Lockout struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	max      int
	window   time.Duration
	now      Clock
}

// NewLockout creates a lockout with the given threshold and window.
func NewLockout(max int, window time.Duration, now Clock) *Lockout {
	return &Lockout{
		failures: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      orNow(now),
	}
}

// Check reports whether key is currently locked.
func (l *Lockout) Check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	valid := prune(l.failures[key], l.now().Add(-l.window))
	l.failures[key] = valid
	if len(valid) >= l.max {
		return Result{
			Allowed: false,
			Reason:  fmt.Sprintf("too many failed signatures, locked for %s", l.window),
			Guard:   "lockout",
		}
	}
	return allow()
}

// RecordFailure counts one failed attempt for key.
func (l *Lockout) RecordFailure(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[key] = append(l.failures[key], l.now())
}

// Reset clears key after a successful attempt.
func (l *Lockout) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, key)
}
