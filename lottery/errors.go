package lottery

import "errors"

var (
	// ErrInvalidState indicates the operation is not valid in the
	// current round phase (opening an open round, closing a closed one).
	ErrInvalidState = errors.New("lottery: invalid round state")

	// ErrInvalidDeadline indicates the closing deadline is not strictly
	// in the future.
	ErrInvalidDeadline = errors.New("lottery: closing deadline must be in the future")

	// ErrBettingClosed indicates a bet was attempted outside an open
	// betting window.
	ErrBettingClosed = errors.New("lottery: betting is closed")

	// ErrBettingStillOpen indicates a close was attempted before the
	// deadline was reached.
	ErrBettingStillOpen = errors.New("lottery: betting window has not reached its deadline")

	// ErrInsufficientFunds indicates the caller's balance does not
	// cover the requested amount.
	ErrInsufficientFunds = errors.New("lottery: insufficient funds")

	// ErrInsufficientAllowance indicates the pool has not been granted
	// a large enough allowance to collect the stake.
	ErrInsufficientAllowance = errors.New("lottery: insufficient allowance")

	// ErrInvalidArgument indicates a malformed argument such as a
	// zero-count or oversized batch.
	ErrInvalidArgument = errors.New("lottery: invalid argument")

	// ErrNotAdministrator indicates a privileged operation was invoked
	// by a caller other than the pool administrator.
	ErrNotAdministrator = errors.New("lottery: caller is not the administrator")

	// ErrNoSnapshot indicates the store holds no persisted pool state.
	ErrNoSnapshot = errors.New("lottery: no snapshot found")
)
