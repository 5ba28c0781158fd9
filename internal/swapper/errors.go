package swapper

import "errors"

var (
	// ErrUnauthorized is returned when a caller other than the
	// administrator (or the service's own pipeline) invokes a
	// privileged operation.
	ErrUnauthorized = errors.New("caller is not the administrator")

	// ErrPaused is returned by swap while the pause switch is on.
	ErrPaused = errors.New("swapping is paused")

	// ErrInsufficientBalance is returned when the tracked custody
	// balance cannot cover the requested amount.
	ErrInsufficientBalance = errors.New("insufficient custody balance")

	// ErrNegativeRate is returned when the oracle-implied conversion
	// rate comes out negative. A negative price is a fatal oracle
	// fault and is never clamped.
	ErrNegativeRate = errors.New("oracle returned a negative conversion rate")

	// ErrWithdrawalDelayed is returned when a withdrawal is attempted
	// before the configured delay since the last one has elapsed.
	ErrWithdrawalDelayed = errors.New("withdrawal delay has not elapsed")

	// ErrInvalidAmount is returned for nil, zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be a positive integer")
)
