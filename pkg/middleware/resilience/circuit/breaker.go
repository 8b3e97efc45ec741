// Package circuit provides per-target circuit breaker functionality for
// resilient model and tool calls.
package circuit

import (
	"fmt"
	"sync"
	"time"
)

// State represents the current state of a circuit breaker.
type State int

// Circuit breaker states for managing failure patterns on a single target.
const (
	Closed   State = iota // Normal operation
	Open                  // Failing, reject requests until cooldown elapses
	HalfOpen              // Cooldown elapsed, one trial call permitted
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config defines configuration for circuit breaker behavior.
type Config struct {
	FailureThreshold int           `yaml:"failure_threshold"` // Consecutive failures before opening
	SuccessThreshold int           `yaml:"success_threshold"` // Successes to close from half-open
	Cooldown         time.Duration `yaml:"cooldown"`          // Open period before a trial call
}

// DefaultConfig provides reasonable defaults for circuit breaker behavior.
//
//nolint:gochecknoglobals // Sensible default config pattern
var DefaultConfig = Config{
	FailureThreshold: 5,
	SuccessThreshold: 1,
	Cooldown:         30 * time.Second,
}

// Error is returned when a call is rejected because the circuit is not closed.
type Error struct {
	Target string
	State  State
}

func (e *Error) Error() string {
	return fmt.Sprintf("circuit breaker for %s is %s", e.Target, e.State)
}

// Breaker defines the interface for circuit breaker implementations.
type Breaker interface {
	// Allow checks if a request should be allowed based on current state.
	// In HalfOpen, at most one in-flight trial call is admitted.
	Allow() bool

	// Record records the result (success/failure) of an allowed request.
	Record(success bool)

	// GetState returns the current circuit breaker state.
	GetState() State

	// Reset manually resets the circuit breaker to closed state.
	Reset()
}

// breaker implements Breaker. The lock is held only for counter and state
// updates, never across the guarded call itself.
type breaker struct {
	config          Config
	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	trialInFlight   bool
	lastFailureTime time.Time
}

// New creates a new circuit breaker with the given configuration.
func New(config Config) Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultConfig.FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = DefaultConfig.SuccessThreshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultConfig.Cooldown
	}
	return &breaker{
		config: config,
		state:  Closed,
	}
}

// Allow checks if a request should be allowed based on current state.
func (b *breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true

	case Open:
		if time.Since(b.lastFailureTime) >= b.config.Cooldown {
			b.state = HalfOpen
			b.successCount = 0
			b.trialInFlight = true
			return true
		}
		return false

	case HalfOpen:
		// Exactly one trial call at a time while probing recovery.
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true

	default:
		return false
	}
}

// Record records the success or failure of an allowed request.
func (b *breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialInFlight = false

	if success {
		b.onSuccess()
	} else {
		b.onFailure()
	}
}

// GetState returns the current circuit breaker state.
func (b *breaker) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset manually resets the circuit breaker to closed state.
func (b *breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = Closed
	b.failureCount = 0
	b.successCount = 0
	b.trialInFlight = false
}

func (b *breaker) onSuccess() {
	switch b.state {
	case Closed:
		b.failureCount = 0

	case HalfOpen:
		b.successCount++
		if b.successCount >= b.config.SuccessThreshold {
			b.state = Closed
			b.failureCount = 0
			b.successCount = 0
		}
	}
}

func (b *breaker) onFailure() {
	b.failureCount++
	b.lastFailureTime = time.Now()

	switch b.state {
	case Closed:
		if b.failureCount >= b.config.FailureThreshold {
			b.state = Open
		}

	case HalfOpen:
		// Any failure during the trial immediately reopens the circuit
		// and restarts the cooldown.
		b.state = Open
		b.successCount = 0
	}
}
