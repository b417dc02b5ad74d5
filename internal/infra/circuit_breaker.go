package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrRelayUnavailable is returned while the breaker is refusing sends.
var ErrRelayUnavailable = errors.New("mail relay unavailable")

// BreakerConfig tunes the SMTP circuit breaker.
type BreakerConfig struct {
	// TripAfter is the run of consecutive failures that opens the breaker.
	TripAfter int
	// CloseAfter is the run of probe successes that closes it again.
	CloseAfter int
	// CoolOff is how long the breaker refuses sends before probing.
	CoolOff time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{TripAfter: 5, CloseAfter: 2, CoolOff: time.Minute}
}

// CircuitBreaker guards the outbound mail relay. After TripAfter consecutive
// delivery failures every send fast-fails for CoolOff; probes are then let
// through until CloseAfter of them succeed in a row, which closes the
// breaker. A failed probe re-arms the cool-off.
type CircuitBreaker struct {
	mu        sync.Mutex
	cfg       BreakerConfig
	failures  int
	successes int
	tripped   bool
	retryAt   time.Time
}

func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.TripAfter <= 0 {
		cfg.TripAfter = 5
	}
	if cfg.CloseAfter <= 0 {
		cfg.CloseAfter = 2
	}
	if cfg.CoolOff <= 0 {
		cfg.CoolOff = time.Minute
	}
	return &CircuitBreaker{cfg: cfg}
}

// Execute runs send through the breaker. While tripped and cooling off it
// returns ErrRelayUnavailable without calling send.
func (b *CircuitBreaker) Execute(send func() error) error {
	b.mu.Lock()
	if b.tripped && time.Now().Before(b.retryAt) {
		b.mu.Unlock()
		return ErrRelayUnavailable
	}
	b.mu.Unlock()

	err := send()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		b.successes = 0
		if b.tripped || b.failures >= b.cfg.TripAfter {
			if !b.tripped {
				log.Warn().Int("failures", b.failures).Msg("mail relay breaker tripped")
			}
			b.tripped = true
			b.retryAt = time.Now().Add(b.cfg.CoolOff)
		}
		return err
	}

	b.failures = 0
	if b.tripped {
		b.successes++
		if b.successes >= b.cfg.CloseAfter {
			b.tripped = false
			b.successes = 0
			log.Info().Msg("mail relay breaker closed")
		}
	}
	return nil
}

// Open reports whether the breaker is currently refusing sends.
func (b *CircuitBreaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripped && time.Now().Before(b.retryAt)
}
