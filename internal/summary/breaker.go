package summary

import (
	"log/slog"
	"sync"
	"time"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// breaker stops calling the primary provider after threshold consecutive
// failures. After cooldown a single probe is let through; its outcome
// closes or re-opens the breaker. It never repeats a call.
type breaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
	probing  bool
}

func newBreaker(threshold int, cooldown time.Duration, logger *slog.Logger) *breaker {
	return &breaker{threshold: threshold, cooldown: cooldown, now: time.Now, logger: logger}
}

// allow reports whether the primary may be called now.
func (b *breaker) allow() bool {
	if b == nil || b.threshold <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.setState(stateHalfOpen)
		b.probing = true
		return true
	case stateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

func (b *breaker) success() {
	if b == nil || b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probing = false
	if b.state != stateClosed {
		b.setState(stateClosed)
	}
}

func (b *breaker) failure() {
	if b == nil || b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.probing = false
	if b.state == stateHalfOpen || (b.state == stateClosed && b.failures >= b.threshold) {
		b.openedAt = b.now()
		b.setState(stateOpen)
	}
}

// release gives up a probe slot without recording an outcome.
func (b *breaker) release() {
	if b == nil || b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

func (b *breaker) setState(s breakerState) {
	if b.logger != nil {
		b.logger.Info("summary circuit breaker state changed",
			slog.String("from", b.state.String()),
			slog.String("to", s.String()),
			slog.Int("failures", b.failures),
		)
	}
	b.state = s
}
