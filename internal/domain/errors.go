package domain

import "errors"

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	// Credential errors
	ErrMsgAuthExpired = "access token expired"

	// Checkpoint errors
	ErrMsgCheckpointUnavailable = "checkpoint unavailable"

	// Sync errors
	ErrMsgRetryExhausted = "retry attempts exhausted"

	// Configuration errors
	ErrMsgConfigNotFound = "config file not found"
	ErrMsgConfigInvalid  = "invalid configuration"
)

// Common domain errors
// These errors should be used consistently across all layers of the
// application. Wrap with fmt.Errorf("%w: %s", domain.ErrXxx, details) for
// additional context.
var (
	// ErrAuthExpired signals the known auth-expired error code from a remote
	// API. Clients refresh their credential and retry before surfacing it.
	ErrAuthExpired = errors.New(ErrMsgAuthExpired)

	// ErrCheckpointUnavailable is the non-fatal sentinel returned when the
	// persisted watermark is missing or malformed. Callers apply their own
	// fallback window instead of failing the run.
	ErrCheckpointUnavailable = errors.New(ErrMsgCheckpointUnavailable)

	// ErrRetryExhausted wraps the last transient failure after the retry cap.
	ErrRetryExhausted = errors.New(ErrMsgRetryExhausted)

	// Configuration errors
	ErrConfigNotFound = errors.New(ErrMsgConfigNotFound)
	ErrConfigInvalid  = errors.New(ErrMsgConfigInvalid)
)
