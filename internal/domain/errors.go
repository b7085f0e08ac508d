package domain

import "golang.org/x/xerrors"

var (
	// ErrNotTracked is returned when an operation references a pair that
	// was never tracked. User-visible, non-fatal.
	ErrNotTracked = xerrors.New("pair is not tracked")

	// ErrStoreUnavailable marks a transient store failure. Sweeps retry it
	// with backoff; interactive callers surface it as a temporary failure.
	ErrStoreUnavailable = xerrors.New("store unavailable")

	// ErrInvalidEvent marks a message event with a timestamp outside sane
	// bounds. Such events are dropped and logged, never recorded.
	ErrInvalidEvent = xerrors.New("invalid event timestamp")
)
