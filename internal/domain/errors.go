package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrTenantInactive      = errors.New("tenant is inactive")
	ErrDuplicateTenantSlug = errors.New("tenant slug already exists")
	ErrUploadFailed        = errors.New("payload upload to storage failed")

	// ErrSequenceConflict signals that another writer appended an event for
	// the same document first. Callers re-read the projection and re-decide;
	// it is never surfaced to API clients.
	ErrSequenceConflict = errors.New("event sequence conflict")

	// ErrTerminalState signals an append attempt after a terminal event.
	ErrTerminalState = errors.New("document is in a terminal state")

	// ErrUnreadableDocument signals structurally unusable input bytes.
	ErrUnreadableDocument = errors.New("document is unreadable")

	// ErrValidatorContract signals that a validation rule mutated the parsed
	// document. Treated as a fatal internal invariant violation.
	ErrValidatorContract = errors.New("validator mutated parsed document")

	// ErrPayloadContract signals an extraction payload that does not match
	// the published event schema.
	ErrPayloadContract = errors.New("event payload violates contract schema")
)
