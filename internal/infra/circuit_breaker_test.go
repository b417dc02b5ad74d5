package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRelayDown = errors.New("connection refused")

func failing() error    { return errRelayDown }
func succeeding() error { return nil }

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{TripAfter: 3, CloseAfter: 1, CoolOff: time.Minute})

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, b.Execute(failing), errRelayDown)
	}
	assert.True(t, b.Open())
	assert.ErrorIs(t, b.Execute(succeeding), ErrRelayUnavailable, "tripped breaker must not call send")
}

func TestBreakerClosesAfterProbeSuccesses(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{TripAfter: 1, CloseAfter: 2, CoolOff: time.Millisecond})

	require.ErrorIs(t, b.Execute(failing), errRelayDown)
	require.True(t, b.Open())

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, b.Execute(succeeding))
	require.NoError(t, b.Execute(succeeding))
	assert.False(t, b.Open())

	// Closed breaker tolerates isolated failures below the trip threshold.
	b2 := NewCircuitBreaker(BreakerConfig{TripAfter: 2, CloseAfter: 1, CoolOff: time.Minute})
	require.ErrorIs(t, b2.Execute(failing), errRelayDown)
	require.NoError(t, b2.Execute(succeeding))
	require.ErrorIs(t, b2.Execute(failing), errRelayDown)
	assert.False(t, b2.Open(), "non-consecutive failures must not trip")
}

func TestBreakerFailedProbeRearmsCoolOff(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{TripAfter: 1, CloseAfter: 1, CoolOff: time.Minute})

	require.ErrorIs(t, b.Execute(failing), errRelayDown)
	require.True(t, b.Open())

	// Force the probe window open, fail the probe, and the breaker re-arms.
	b.mu.Lock()
	b.retryAt = time.Now().Add(-time.Second)
	b.mu.Unlock()

	require.ErrorIs(t, b.Execute(failing), errRelayDown)
	assert.True(t, b.Open())
}
