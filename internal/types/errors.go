package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common outcomes.
var (
	// ErrNoReviews is returned by inference when the model produced a
	// well-formed answer saying the page has no reviews. It is a valid
	// outcome, not a failure, and must not be retried.
	ErrNoReviews = errors.New("no reviews found on page")

	// ErrInteractionUnsupported is returned by renderers that cannot
	// interact with the page (e.g. the static HTTP renderer).
	ErrInteractionUnsupported = errors.New("renderer does not support page interaction")

	ErrSessionTimeout = errors.New("scrape session deadline exceeded")
	ErrInvalidURL     = errors.New("invalid URL")
)

// RenderError wraps failures of the page renderer: network failures,
// navigation timeouts, driver crashes. Fatal to the session.
type RenderError struct {
	URL    string
	Reason string
	Err    error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render error for %s (%s): %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("render error for %s: %s", e.URL, e.Reason)
}

func (e *RenderError) Unwrap() error { return e.Err }

// ModelError wraps failures of the language-model backend: timeouts, quota,
// malformed transport responses. Consumed only by the inference engine.
type ModelError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model error (%s, %s): %v", e.Provider, e.Reason, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// InferenceError means the model could not produce a usable extraction plan
// within the retry budget. Fatal to the session, surfaced to the caller.
type InferenceError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("selector inference failed for %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// ExtractionError is reserved for structurally impossible plans reaching the
// extractor: an internal invariant failure, never a per-record problem.
// Per-record faults degrade to nil fields instead.
type ExtractionError struct {
	Selector string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error (selector=%q): %v", e.Selector, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
