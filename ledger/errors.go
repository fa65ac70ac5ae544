package ledger

import "errors"

var (
	// ErrInsufficientBalance indicates the holder does not hold enough
	// units for the requested move or burn.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrInsufficientAllowance indicates the holder→spender allowance
	// is below the requested transfer amount.
	ErrInsufficientAllowance = errors.New("ledger: insufficient allowance")

	// ErrZeroAmount indicates a zero-amount mint, burn or transfer.
	ErrZeroAmount = errors.New("ledger: amount must be greater than zero")

	// ErrSupplyOverflow indicates a mint would overflow the total supply.
	ErrSupplyOverflow = errors.New("ledger: total supply overflow")
)
