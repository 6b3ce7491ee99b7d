package consensus

import "errors"

var (
	ErrUnknownMode             = errors.New("unknown consensus mode")
	ErrEmptyAddress            = errors.New("validator address is empty")
	ErrUnknownValidator        = errors.New("validator is not registered")
	ErrInactiveValidator       = errors.New("validator is not active")
	ErrInsufficientStake       = errors.New("stake is below the minimum")
	ErrBelowSelectionThreshold = errors.New("selection probability is below the threshold")
	ErrNoEligibleValidators    = errors.New("no validators are eligible for selection")
	ErrWrongHash               = errors.New("block hash does not match its contents")
	ErrInsufficientWork        = errors.New("block hash does not meet the difficulty")
	ErrMissingHash             = errors.New("block is missing a hash")
	ErrBadIndex                = errors.New("block index is negative")
	ErrTimestampFuture         = errors.New("block timestamp is too far in the future")
	ErrTimestampStale          = errors.New("block timestamp is too old")
)
