// Package ledger defines the fungible-credit accounting service consumed
// by the lottery pool, along with reference implementations.
//
// The pool core only depends on the Service interface; balances may live
// in process memory (MemLedger), on disk (BoltLedger), or behind a remote
// token system that satisfies the same contract.
package ledger

import (
	"context"
	"encoding/hex"
)

// AddressLen is the length of an account address in bytes.
const AddressLen = 20

// Address identifies an account on the ledger.
type Address [AddressLen]byte

// String returns the address as lowercase hex.
func (a Address) String() string { return hex.EncodeToString(a[:]) }

// Amount is a quantity of the fungible unit. Amounts are indivisible
// integer units; fractional accounting is out of scope.
type Amount = uint64

// Service is the fungible-ledger collaborator interface.
//
// Transfer semantics follow the usual fungible-token rules: moves fail
// on insufficient balance, and delegated moves (TransferFrom) also fail
// on insufficient allowance and spend the allowance down by the moved
// amount. All methods are atomic: a failed call leaves every balance
// and allowance unchanged.
type Service interface {
	// Mint creates amount new units and credits them to to.
	Mint(ctx context.Context, to Address, amount Amount) error

	// BurnFrom destroys amount units held by holder.
	// Fails if holder's balance is below amount.
	BurnFrom(ctx context.Context, holder Address, amount Amount) error

	// Transfer moves amount units from from to to.
	// Fails if from's balance is below amount.
	Transfer(ctx context.Context, from, to Address, amount Amount) error

	// TransferFrom moves amount units from holder to to on behalf of
	// spender. Fails if holder's balance or the holder→spender
	// allowance is below amount; on success the allowance is reduced
	// by amount.
	TransferFrom(ctx context.Context, spender, holder, to Address, amount Amount) error

	// Approve sets the holder→spender allowance to amount, replacing
	// any previous value.
	Approve(ctx context.Context, holder, spender Address, amount Amount) error

	// BalanceOf returns holder's current balance.
	BalanceOf(ctx context.Context, holder Address) (Amount, error)

	// Allowance returns the amount spender may currently move out of
	// holder's balance via TransferFrom.
	Allowance(ctx context.Context, holder, spender Address) (Amount, error)
}
