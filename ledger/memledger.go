package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// MemLedger is an in-memory Service implementation. It is the reference
// ledger for tests and single-process deployments.
type MemLedger struct {
	mu         sync.Mutex
	supply     Amount
	balances   map[Address]Amount
	allowances map[Address]map[Address]Amount
}

// Compile-time interface check.
var _ Service = (*MemLedger)(nil)

// NewMemLedger creates an empty in-memory ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{
		balances:   make(map[Address]Amount),
		allowances: make(map[Address]map[Address]Amount),
	}
}

// Mint creates amount new units and credits them to to.
func (l *MemLedger) Mint(_ context.Context, to Address, amount Amount) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.supply > math.MaxUint64-amount {
		return fmt.Errorf("%w: supply %d + %d", ErrSupplyOverflow, l.supply, amount)
	}
	l.supply += amount
	l.balances[to] += amount
	return nil
}

// BurnFrom destroys amount units held by holder.
func (l *MemLedger) BurnFrom(_ context.Context, holder Address, amount Amount) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[holder] < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, l.balances[holder], amount)
	}
	l.balances[holder] -= amount
	l.supply -= amount
	return nil
}

// Transfer moves amount units from from to to.
func (l *MemLedger) Transfer(_ context.Context, from, to Address, amount Amount) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(from, to, amount)
}

// TransferFrom moves amount units from holder to to on behalf of spender,
// spending the holder→spender allowance down by amount.
func (l *MemLedger) TransferFrom(_ context.Context, spender, holder, to Address, amount Amount) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	granted := l.allowances[holder][spender]
	if granted < amount {
		return fmt.Errorf("%w: granted %d, need %d", ErrInsufficientAllowance, granted, amount)
	}
	if err := l.move(holder, to, amount); err != nil {
		return err
	}
	l.allowances[holder][spender] = granted - amount
	return nil
}

// Approve sets the holder→spender allowance.
func (l *MemLedger) Approve(_ context.Context, holder, spender Address, amount Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.allowances[holder] == nil {
		l.allowances[holder] = make(map[Address]Amount)
	}
	l.allowances[holder][spender] = amount
	return nil
}

// BalanceOf returns holder's current balance.
func (l *MemLedger) BalanceOf(_ context.Context, holder Address) (Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[holder], nil
}

// Allowance returns the current holder→spender allowance.
func (l *MemLedger) Allowance(_ context.Context, holder, spender Address) (Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowances[holder][spender], nil
}

// TotalSupply returns the aggregate of all balances. The ledger
// maintains the invariant sum(balances) == TotalSupply across every
// mint, burn and transfer.
func (l *MemLedger) TotalSupply() Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supply
}

// move debits from and credits to. Caller must hold l.mu.
func (l *MemLedger) move(from, to Address, amount Amount) error {
	if l.balances[from] < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, l.balances[from], amount)
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}
