package models

import "errors"

// Sentinel errors for domain-level error discrimination.
// Repositories and services wrap these so handlers can map to HTTP status
// codes and the notifier can decide between drop and redeliver.
var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrDuplicateEvent = errors.New("duplicate event")
	ErrMalformedEvent = errors.New("malformed event payload")
)
