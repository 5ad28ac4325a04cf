package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no record matches the filter. For owner-scoped
	// mutations it also covers "exists but owned by someone else".
	ErrNotFound = errors.New("record not found")
	// ErrNotOwner is only returned when Owned.RevealForbidden is enabled.
	ErrNotOwner = errors.New("record is owned by another identity")
	// ErrExists is returned when a unique key is already taken.
	ErrExists = errors.New("record already exists")
	// ErrStoreUnavailable wraps any failure talking to the document store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidPage is returned for page or limit below 1.
	ErrInvalidPage = errors.New("page and limit must be positive integers")
	// ErrLimitExceeded is returned when limit is above the configured maximum.
	ErrLimitExceeded = errors.New("limit exceeds maximum page size")
	// ErrMissingOwner is returned when an owner-scoped call has no identity.
	ErrMissingOwner = errors.New("owner identity is required")
	// ErrCanceled is returned when the caller went away before the store replied.
	ErrCanceled = errors.New("operation canceled")
)

// WrapError classifies a driver error. Cancellations become ErrCanceled, every
// other error is wrapped in ErrStoreUnavailable.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsCanceled(err) {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// IsCanceled reports whether err was caused by the caller's context ending.
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrCanceled) {
		return true
	}
	// The driver does not always wrap context errors.
	msg := err.Error()
	return strings.Contains(msg, "context canceled") || strings.Contains(msg, "context deadline exceeded")
}
