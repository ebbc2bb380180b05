package assistant

import (
	"errors"
)

// Sentinel errors for the orchestrator's public operations. Handlers map
// these to HTTP statuses; everything else is an internal failure.
var (
	// ErrValidation reports malformed caller input. Never retried.
	ErrValidation = errors.New("validation error")

	// ErrNotFound reports an unknown session for delete or continue.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState reports an operation that requires a run state the
	// thread is not in, e.g. submitting tool outputs with nothing pending.
	ErrInvalidState = errors.New("invalid state")
)
