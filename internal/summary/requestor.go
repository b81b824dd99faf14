package summary

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/notely/internal/apperr"
)

// DefaultTimeout bounds a single call to the primary provider.
const DefaultTimeout = 30 * time.Second

// Requestor runs the primary provider with an extractive fallback. Callers
// only ever see apperr.ErrTooShort or their own context error.
type Requestor struct {
	primary  Provider
	fallback Provider
	timeout  time.Duration
	breaker  *breaker
	logger   *slog.Logger
}

// RequestorOption configures a Requestor.
type RequestorOption func(*Requestor)

// WithTimeout sets the per-call timeout for the primary provider.
func WithTimeout(d time.Duration) RequestorOption {
	return func(r *Requestor) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithCircuitBreaker skips the primary for cooldown after threshold
// consecutive failures. A threshold of zero disables it.
func WithCircuitBreaker(threshold int, cooldown time.Duration) RequestorOption {
	return func(r *Requestor) {
		r.breaker = newBreaker(threshold, cooldown, r.logger)
	}
}

// NewRequestor creates a requestor. A nil primary means every summary is
// extractive.
func NewRequestor(primary Provider, logger *slog.Logger, opts ...RequestorOption) *Requestor {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Requestor{primary: primary, fallback: Extractive{}, timeout: DefaultTimeout, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Summarize produces a summary of text.
func (r *Requestor) Summarize(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinLength {
		return Result{}, apperr.ErrTooShort
	}

	if r.primary != nil && r.breaker.allow() {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		s, err := r.primary.Summarize(callCtx, text)
		cancel()
		if err == nil {
			r.breaker.success()
			return Result{Summary: s, Source: SourceAI}, nil
		}
		if ctx.Err() != nil {
			r.breaker.release()
			return Result{}, ctx.Err()
		}
		r.breaker.failure()
		r.logger.Warn("summary provider failed, using extractive fallback",
			slog.String("error", err.Error()),
		)
	}

	s, err := r.fallback.Summarize(ctx, text)
	if err != nil {
		return Result{}, err
	}
	return Result{Summary: s, Source: SourceExtractive}, nil
}
