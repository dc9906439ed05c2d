package rvnmemhistwriter

import "github.com/tetrane/rvnmemhistwriter/internal/errs"

// Caller input errors: recoverable, raised at Push entry, never leave the
// writer partially mutated.
var (
	ErrInvalidSize          = errs.ErrInvalidSize
	ErrAddressWrap          = errs.ErrAddressWrap
	ErrBackwardTransition   = errs.ErrBackwardTransition
	ErrUnsupportedOperation = errs.ErrUnsupportedOperation
)

// InvariantError marks a defect in the engine itself, not a caller mistake:
// merging chunks whose tails already have a successor, a missing
// access-to-chunk-id entry at flush, flushing an all-empty slice pair, or a
// fresh builder refusing a valid insert. Callers should not try to recover
// from this; the remedy is to stop using the writer.
type InvariantError = errs.InvariantError
