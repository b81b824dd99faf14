package summary

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notely/internal/apperr"
)

const fiveSentences = "The meeting started late. Budget was discussed. Hiring is frozen. Marketing wants more. We adjourned at noon."

type stubProvider struct {
	calls   atomic.Int32
	summary string
	err     error
	block   bool
}

func (p *stubProvider) Summarize(ctx context.Context, _ string) (string, error) {
	p.calls.Add(1)
	if p.block {
		<-ctx.Done()
		return "", &apperr.UpstreamError{Err: ctx.Err()}
	}
	return p.summary, p.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestor_Primary(t *testing.T) {
	p := &stubProvider{summary: "Short and sweet."}
	r := NewRequestor(p, quietLogger())

	res, err := r.Summarize(context.Background(), fiveSentences)
	require.NoError(t, err)
	assert.Equal(t, Result{Summary: "Short and sweet.", Source: SourceAI}, res)
}

func TestRequestor_FallbackOnUpstreamErrors(t *testing.T) {
	for name, perr := range map[string]error{
		"upstream":    &apperr.UpstreamError{Status: 500, Err: errors.New("boom")},
		"no summary":  apperr.ErrNoSummaryExtracted,
		"other error": errors.New("unexpected"),
	} {
		t.Run(name, func(t *testing.T) {
			r := NewRequestor(&stubProvider{err: perr}, quietLogger())
			res, err := r.Summarize(context.Background(), fiveSentences)
			require.NoError(t, err)
			assert.Equal(t, SourceExtractive, res.Source)
			assert.Equal(t, "The meeting started late. Hiring is frozen. We adjourned at noon.", res.Summary)
		})
	}
}

func TestRequestor_NoPrimary(t *testing.T) {
	res, err := NewRequestor(nil, quietLogger()).Summarize(context.Background(), fiveSentences)
	require.NoError(t, err)
	assert.Equal(t, SourceExtractive, res.Source)
	assert.NotEmpty(t, res.Summary)
}

func TestRequestor_TooShortSkipsPrimary(t *testing.T) {
	p := &stubProvider{summary: "never"}
	_, err := NewRequestor(p, quietLogger()).Summarize(context.Background(), "  Hi  ")
	require.ErrorIs(t, err, apperr.ErrTooShort)
	assert.Zero(t, p.calls.Load())
}

func TestRequestor_TimeoutFallsBack(t *testing.T) {
	p := &stubProvider{block: true}
	r := NewRequestor(p, quietLogger(), WithTimeout(20*time.Millisecond))

	res, err := r.Summarize(context.Background(), fiveSentences)
	require.NoError(t, err)
	assert.Equal(t, SourceExtractive, res.Source)
}

func TestRequestor_CallerCancellation(t *testing.T) {
	p := &stubProvider{block: true}
	r := NewRequestor(p, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := r.Summarize(ctx, fiveSentences)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRequestor_CircuitBreaker(t *testing.T) {
	p := &stubProvider{err: &apperr.UpstreamError{Status: 503, Err: errors.New("down")}}
	r := NewRequestor(p, quietLogger(), WithCircuitBreaker(2, time.Minute))
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.breaker.now = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		res, err := r.Summarize(context.Background(), fiveSentences)
		require.NoError(t, err)
		assert.Equal(t, SourceExtractive, res.Source)
	}
	assert.EqualValues(t, 2, p.calls.Load(), "breaker should stop calling after two failures")

	now = now.Add(2 * time.Minute)
	p.err = nil
	p.summary = "Back online."
	res, err := r.Summarize(context.Background(), fiveSentences)
	require.NoError(t, err)
	assert.Equal(t, SourceAI, res.Source)
	assert.EqualValues(t, 3, p.calls.Load())
	assert.Equal(t, stateClosed, r.breaker.state)
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	b := newBreaker(1, time.Second, quietLogger())
	now := time.Unix(0, 0)
	b.now = func() time.Time { return now }

	require.True(t, b.allow())
	b.failure()
	assert.False(t, b.allow())

	now = now.Add(2 * time.Second)
	require.True(t, b.allow())
	assert.False(t, b.allow(), "only one probe at a time")
	b.failure()
	assert.Equal(t, stateOpen, b.state)
	assert.False(t, b.allow())
}

func TestRequestor_WithChatCompletion(t *testing.T) {
	srv := chatServer(t, 200, `{"choices":[{"message":{"content":"Via HTTP."}}]}`, nil)
	r := NewRequestor(NewChatCompletion(ChatConfig{Endpoint: srv.URL}, srv.Client()), quietLogger())

	res, err := r.Summarize(context.Background(), fiveSentences)
	require.NoError(t, err)
	assert.Equal(t, Result{Summary: "Via HTTP.", Source: SourceAI}, res)
}
