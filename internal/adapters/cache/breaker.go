package cache

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("cache circuit open")

// State is the breaker state.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota

	// StateOpen rejects calls until the timeout elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures int

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// HalfOpenLimit is both the number of concurrent probes allowed and the
	// number of probe successes needed to close the breaker.
	HalfOpenLimit int
}

// Breaker keeps the quote cache from hammering a Redis that is down.
//
//   - Closed → Open after MaxFailures consecutive failures
//   - Open → HalfOpen once Timeout has passed
//   - HalfOpen → Closed after HalfOpenLimit successes
//   - HalfOpen → Open on any failure
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	probes      int
	lastFailure time.Time
	cfg         BreakerConfig

	onStateChange func(from, to State)
	now           func() time.Time
}

// NewBreaker creates a closed breaker. Limits below one are raised to one.
func NewBreaker(cfg BreakerConfig) *Breaker {
	cfg.MaxFailures = max(cfg.MaxFailures, 1)
	cfg.HalfOpenLimit = max(cfg.HalfOpenLimit, 1)

	return &Breaker{
		state: StateClosed,
		cfg:   cfg,
		now:   time.Now,
	}
}

// OnStateChange registers fn to be called (asynchronously) on every transition.
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.onStateChange = fn
}

// Do runs fn if the breaker allows it and records the outcome.
// isFailure decides which errors count against the breaker; a nil
// isFailure counts every non-nil error.
func (b *Breaker) Do(fn func() error, isFailure func(error) bool) error {
	if !b.Allow() {
		return ErrCircuitOpen
	}

	err := fn()
	if err != nil && (isFailure == nil || isFailure(err)) {
		b.RecordFailure()
	} else {
		b.RecordSuccess()
	}

	return err
}

// Allow reports whether a call may proceed. An open breaker whose timeout has
// passed moves to half-open and admits the caller as the first probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		if b.now().Sub(b.lastFailure) < b.cfg.Timeout {
			return false
		}

		b.transitionTo(StateHalfOpen)
		b.probes = 1

		return true

	case StateHalfOpen:
		if b.probes >= b.cfg.HalfOpenLimit {
			return false
		}

		b.probes++

		return true

	default:
		return false
	}
}

// RecordSuccess records a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0

	case StateHalfOpen:
		b.probes--
		b.successes++

		if b.successes >= b.cfg.HalfOpenLimit {
			b.transitionTo(StateClosed)
		}
	}
}

// RecordFailure records a failed call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = b.now()

	switch b.state {
	case StateClosed:
		b.failures++

		if b.failures >= b.cfg.MaxFailures {
			b.transitionTo(StateOpen)
		}

	case StateHalfOpen:
		b.probes--
		b.transitionTo(StateOpen)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// transitionTo must be called with mu held.
func (b *Breaker) transitionTo(next State) {
	if b.state == next {
		return
	}

	prev := b.state
	b.state = next
	b.failures = 0
	b.successes = 0

	if next != StateHalfOpen {
		b.probes = 0
	}

	if b.onStateChange != nil {
		go b.onStateChange(prev, next)
	}
}
