// Package resilience guards calls to the optional backends (Redis, Kafka,
// Postgres) with a circuit breaker, exponential-backoff retry and a
// deadline wrapper. Failures surface as pkg/errors sentinels so the HTTP
// layer can map them without knowing which backend failed.
package resilience

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/page-search/pkg/errors"
)

// ErrCircuitOpen is returned without calling the backend while the breaker
// is open. It matches apperrors.ErrUnavailable.
var ErrCircuitOpen = fmt.Errorf("circuit breaker is open: %w", apperrors.ErrUnavailable)

// State represents the current phase of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

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

// CircuitBreakerConfig controls failure thresholds and recovery timing.
// OnStateChange, if set, is called with the breaker lock held on every
// transition and must not call back into the breaker.
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	OnStateChange       func(name string, from, to State)
}

// CircuitBreaker opens after FailureThreshold consecutive failures, rejects
// calls for ResetTimeout, then lets HalfOpenMaxRequests probes through. A
// successful probe closes it; a failed one reopens it.
//
// Every transition starts a new generation. Results of calls admitted in an
// earlier generation are ignored, so a slow call that began before a trip
// cannot close the breaker after it.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	failures   int
	probes     int
	openedAt   time.Time
}

// NewCircuitBreaker creates a closed breaker. Zero config fields default to
// 5 failures, 30s reset and 1 half-open probe.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
		now:    time.Now,
	}
}

// Execute runs fn if the breaker admits it and records the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	generation, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.record(generation, err == nil)
	return err
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// GetState returns the current state, moving an expired open breaker to
// half-open first.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expire()
	return cb.state
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
	cb.logger.Info("circuit manually reset")
}

func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expire()
	switch cb.state {
	case StateOpen:
		wait := cb.cfg.ResetTimeout - cb.now().Sub(cb.openedAt)
		return 0, fmt.Errorf("%w: %s (retry in %v)", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
	case StateHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenMaxRequests {
			return 0, fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, cb.name)
		}
		cb.probes++
	}
	return cb.generation, nil
}

func (cb *CircuitBreaker) record(generation uint64, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if generation != cb.generation {
		return
	}
	switch {
	case ok && cb.state == StateHalfOpen:
		cb.transition(StateClosed)
		cb.logger.Info("circuit closed after successful probe")
	case ok:
		cb.failures = 0
	case cb.state == StateHalfOpen:
		cb.transition(StateOpen)
		cb.logger.Warn("circuit reopened, probe failed")
	default:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			failures := cb.failures
			cb.transition(StateOpen)
			cb.logger.Warn("circuit opened",
				"consecutive_failures", failures,
				"reset_after", cb.cfg.ResetTimeout,
			)
		}
	}
}

// expire moves an open breaker whose reset timeout has elapsed to
// half-open. Callers hold mu.
func (cb *CircuitBreaker) expire() {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		cb.transition(StateHalfOpen)
	}
}

// transition starts a new generation in state to. Callers hold mu.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	cb.generation++
	cb.failures = 0
	cb.probes = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	if from != to && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}
