package llmclient

import (
	"sync"
	"time"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// breaker implements a simple circuit breaker over collaborator calls.
type breaker struct {
	mu               sync.Mutex
	state            breakerState
	failures         int
	successes        int
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	lastFailure      time.Time
}

func newBreaker(failureThreshold, successThreshold int, timeout time.Duration) *breaker {
	return &breaker{
		state:            breakerClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
	}
}

// Allow reports whether a request may proceed.
func (b *breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerOpen:
		if time.Since(b.lastFailure) > b.timeout {
			b.state = breakerHalfOpen
			b.successes = 0
			return true
		}
		return false
	default:
		return true
	}
}

func (b *breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerHalfOpen:
		b.successes++
		if b.successes >= b.successThreshold {
			b.state = breakerClosed
			b.failures = 0
		}
	case breakerClosed:
		b.failures = 0
	}
}

func (b *breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()

	switch b.state {
	case breakerClosed:
		if b.failures >= b.failureThreshold {
			b.state = breakerOpen
		}
	case breakerHalfOpen:
		b.state = breakerOpen
		b.successes = 0
	}
}
