package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func newTestBreaker(maxFailures, halfOpenLimit int) (*Breaker, *time.Time) {
	now := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

	b := NewBreaker(BreakerConfig{
		MaxFailures:   maxFailures,
		Timeout:       100 * time.Millisecond,
		HalfOpenLimit: halfOpenLimit,
	})
	b.now = func() time.Time { return now }

	return b, &now
}

func TestBreaker_InitialState(t *testing.T) {
	b, _ := newTestBreaker(5, 3)

	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_ClampsLimits(t *testing.T) {
	b := NewBreaker(BreakerConfig{})

	assert.Equal(t, 1, b.cfg.MaxFailures)
	assert.Equal(t, 1, b.cfg.HalfOpenLimit)
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(3, 2)

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())

	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State(), "success resets the count")

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []bool
		expected State
	}{
		{name: "enough successes close", outcomes: []bool{true, true}, expected: StateClosed},
		{name: "one success stays half-open", outcomes: []bool{true}, expected: StateHalfOpen},
		{name: "failure reopens", outcomes: []bool{false}, expected: StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, now := newTestBreaker(1, 2)

			b.RecordFailure()
			require.Equal(t, StateOpen, b.State())

			*now = now.Add(150 * time.Millisecond)
			require.True(t, b.Allow())
			require.Equal(t, StateHalfOpen, b.State())

			for _, ok := range tt.outcomes {
				if ok {
					b.RecordSuccess()
				} else {
					b.RecordFailure()
				}
			}

			assert.Equal(t, tt.expected, b.State())
		})
	}
}

func TestBreaker_HalfOpenLimitsProbes(t *testing.T) {
	b, now := newTestBreaker(1, 2)

	b.RecordFailure()
	*now = now.Add(time.Second)

	assert.True(t, b.Allow())
	assert.True(t, b.Allow())
	assert.False(t, b.Allow())
}

func TestBreaker_Do(t *testing.T) {
	b, _ := newTestBreaker(2, 1)
	ignored := errors.New("miss")
	isFailure := func(err error) bool { return !errors.Is(err, ignored) }

	for range 5 {
		require.ErrorIs(t, b.Do(func() error { return ignored }, isFailure), ignored)
	}

	assert.Equal(t, StateClosed, b.State(), "ignored errors do not trip the breaker")

	require.ErrorIs(t, b.Do(func() error { return errBoom }, isFailure), errBoom)
	require.ErrorIs(t, b.Do(func() error { return errBoom }, nil), errBoom)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(func() error { called = true; return nil }, nil)

	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreaker_OnStateChange(t *testing.T) {
	var (
		mu          sync.Mutex
		transitions [][2]State
	)

	b, _ := newTestBreaker(1, 1)
	b.OnStateChange(func(from, to State) {
		mu.Lock()
		defer mu.Unlock()

		transitions = append(transitions, [2]State{from, to})
	})

	b.RecordFailure()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(transitions) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [2]State{StateClosed, StateOpen}, transitions[0])
}

func TestBreaker_Concurrent(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 100, Timeout: time.Second, HalfOpenLimit: 10})

	var (
		wg     sync.WaitGroup
		allows atomic.Int64
	)

	for range 1000 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if !b.Allow() {
				return
			}

			if allows.Add(1)%2 == 0 {
				b.RecordSuccess()
			} else {
				b.RecordFailure()
			}
		}()
	}

	wg.Wait()

	assert.Contains(t, []State{StateClosed, StateOpen, StateHalfOpen}, b.State())
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}
