// Package summary turns note content into a short synopsis, using an
// external chat-completion service when one is configured and a local
// extractive summarizer otherwise.
package summary

import "context"

// Provider produces a summary of text. Implementations return
// *apperr.UpstreamError for transport or status failures and
// apperr.ErrNoSummaryExtracted when a response carried no usable text.
type Provider interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Source identifies which path produced a summary.
type Source string

const (
	SourceAI         Source = "ai"
	SourceExtractive Source = "extractive"
)

// Result is a produced summary and where it came from.
type Result struct {
	Summary string `json:"summary"`
	Source  Source `json:"source"`
}
