// Package apperr holds the error taxonomy shared by every layer.
package apperr

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrTooShort           = errors.New("text is too short to summarize")
	ErrUpstream           = errors.New("summarization upstream failed")
	ErrNoSummaryExtracted = errors.New("no summary in upstream response")
	ErrUnauthorized       = errors.New("unauthorized")
)

// ValidationError reports which note fields were rejected.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, k := range slices.Sorted(maps.Keys(e.Fields)) {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) true for any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UpstreamError wraps a failed call to the summarization capability.
// Status is zero for transport failures and timeouts.
type UpstreamError struct {
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", ErrUpstream, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrUpstream, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
