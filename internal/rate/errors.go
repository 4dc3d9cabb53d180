package rate

import "errors"

var (
	// ErrStoreUnavailable wraps failures of the counting store.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
	// ErrInvalidConfig is returned by New for a non-positive limit or window.
	ErrInvalidConfig = errors.New("rate limit config invalid")
)
