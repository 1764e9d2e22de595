package domain

import "errors"

// Validation-class errors: caused by user input (or a cross-user access
// attempt) and surfaced synchronously to the command layer.
var (
	ErrEmptyTitle      = errors.New("title is empty")
	ErrTitleTooLong    = errors.New("title too long")
	ErrPastDeadline    = errors.New("deadline is in the past")
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrUnknownKind     = errors.New("unknown reminder kind")
	ErrNotOwner        = errors.New("deadline belongs to another user")
)

// ErrDeadlineNotFound is distinct from ErrNotOwner: handlers may show the
// same text for both, but callers must be able to tell them apart.
var ErrDeadlineNotFound = errors.New("deadline not found")

// ErrNotification marks dispatch/ledger failures inside a scheduled tick.
var ErrNotification = errors.New("notification failed")
