package surface

import (
	"sync"
	"time"
)

// CircuitState is the state of a Breaker.
type CircuitState int

const (
	// CircuitClosed means the engine is healthy, submissions proceed normally
	CircuitClosed CircuitState = iota
	// CircuitOpen means the engine keeps failing, submissions fail fast
	CircuitOpen
	// CircuitHalfOpen means the cooldown passed and submissions probe the engine again
	CircuitHalfOpen
)

// String returns a human-readable state name.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "Closed (Healthy)"
	case CircuitOpen:
		return "Open (Unhealthy)"
	case CircuitHalfOpen:
		return "Half-Open (Testing)"
	default:
		return "Unknown"
	}
}

// DefaultBreakerCooldown is how long an open circuit rejects submissions.
const DefaultBreakerCooldown = 30 * time.Second

// recoveryThreshold is the number of consecutive successes that close a
// half-open circuit.
const recoveryThreshold = 2

// Breaker trips after repeated engine failures so a dead host or a crashed
// browser does not cost every pending pair a full timeout. Frames that time
// out are not engine failures and are not counted.
type Breaker struct {
	mu            sync.RWMutex
	failures      int
	maxFailures   int
	cooldown      time.Duration
	lastFailure   time.Time
	consecutiveOK int
	now           func() time.Time
}

// NewBreaker opens after maxFailures failures and stays open for cooldown.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}
	return &Breaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// State returns the current circuit state.
func (b *Breaker) State() CircuitState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.failures < b.maxFailures {
		return CircuitClosed
	}
	if b.now().Sub(b.lastFailure) >= b.cooldown {
		return CircuitHalfOpen
	}
	return CircuitOpen
}

// Allow reports whether a submission may reach the engine.
func (b *Breaker) Allow() bool {
	return b.State() != CircuitOpen
}

// RecordFailure counts an engine failure and may open the circuit.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()
	b.consecutiveOK = 0
}

// RecordSuccess counts a frame that became ready. On a closed circuit it
// clears the failure count; enough of them in a row close a tripped one.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.maxFailures {
		b.failures = 0
		return
	}
	b.consecutiveOK++
	if b.failures >= b.maxFailures && b.consecutiveOK >= recoveryThreshold {
		b.failures = 0
		b.consecutiveOK = 0
	}
}

// FailureCount returns the current number of failures.
func (b *Breaker) FailureCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.failures
}
