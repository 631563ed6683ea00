// Package control keeps the poll loop from hammering a failing upstream.
package control

import (
	"strings"
	"time"
)

// Error classes fed into the breaker.
const (
	ClassTelegramAPI = "telegram_api"
	ClassGroqAPI     = "groq_api"
	ClassUnknown     = "unknown"
)

type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// CircuitBreaker is a minimal per-error-class breaker. Threshold failures
// of the same class open it; after Cooldown a single probe is let through.
type CircuitBreaker struct {
	Threshold int
	Cooldown  time.Duration

	state       CircuitState
	failures    map[string]int
	openedAt    time.Time
	openedClass string
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		Threshold: threshold,
		Cooldown:  cooldown,
		state:     CircuitClosed,
		failures:  map[string]int{},
	}
}

func (c *CircuitBreaker) State() CircuitState {
	return c.state
}

// Allow returns whether new work is allowed at this instant.
func (c *CircuitBreaker) Allow(now time.Time) bool {
	if c.state != CircuitOpen {
		return true
	}
	if now.Sub(c.openedAt) >= c.Cooldown {
		c.state = CircuitHalfOpen
		return true
	}
	return false
}

// RecordSuccess updates state after a successful probe/operation.
func (c *CircuitBreaker) RecordSuccess() {
	c.state = CircuitClosed
	c.openedClass = ""
	c.failures = map[string]int{}
}

// RecordFailure updates state after an error in the given class.
func (c *CircuitBreaker) RecordFailure(errClass string, now time.Time) {
	if errClass == "" {
		errClass = ClassUnknown
	}
	if c.state == CircuitHalfOpen {
		c.state = CircuitOpen
		c.openedAt = now
		c.openedClass = errClass
		return
	}
	c.failures[errClass]++
	if c.failures[errClass] >= c.Threshold {
		c.state = CircuitOpen
		c.openedAt = now
		c.openedClass = errClass
	}
}

func (c *CircuitBreaker) OpenedClass() string {
	return c.openedClass
}

// Classify maps an error to a breaker class by the prefix conventions the
// clients use in their wrapped errors.
func Classify(err error) string {
	if err == nil {
		return ClassUnknown
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "telegram"):
		return ClassTelegramAPI
	case strings.Contains(msg, "groq"):
		return ClassGroqAPI
	default:
		return ClassUnknown
	}
}
