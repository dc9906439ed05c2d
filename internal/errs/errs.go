// Package errs holds the sentinel error values and the invariant-violation
// panic type shared by the chunk, slice and store-facing packages. It is
// kept separate from the root package so that internal/chunk and
// internal/slice can return the exact values the root package re-exports,
// without importing the root package themselves.
package errs

import "errors"

var (
	// ErrInvalidSize is returned when an access carries a zero size.
	ErrInvalidSize = errors.New("rvnmemhistwriter: access size must be > 0")

	// ErrAddressWrap is returned when address+size-1 overflows uint64.
	ErrAddressWrap = errors.New("rvnmemhistwriter: address + size wraps uint64")

	// ErrBackwardTransition is returned when a transition id goes backward
	// within a live builder.
	ErrBackwardTransition = errors.New("rvnmemhistwriter: transition id went backward")

	// ErrUnsupportedOperation is returned when an Execute access is pushed.
	ErrUnsupportedOperation = errors.New("rvnmemhistwriter: execute accesses are not supported")
)

// InvariantError marks a defect in the engine itself rather than a caller
// mistake: a merge of chunks whose tails aren't null, a missing
// access-to-chunk-id mapping at flush, an all-empty slice pair reaching
// flush, or a fresh builder refusing a valid insert. These are not meant to
// be recovered from by the caller; the writer's remedy is to stop using it.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "rvnmemhistwriter: invariant violation: " + e.Msg
}

// Invariant panics with an *InvariantError built from msg.
func Invariant(msg string) {
	panic(&InvariantError{Msg: msg})
}
