package lottery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lottokit/liblotto-go/ledger"
)

// PurchaseCredit exchanges paymentAmount of the base payment asset for
// credit at the pool's purchase ratio. The payment moves into pool
// custody and paymentAmount*PurchaseRatio credit is minted to caller.
// Requires a prior payment-ledger allowance for the pool custody
// account.
func (p *Pool) PurchaseCredit(ctx context.Context, caller ledger.Address, paymentAmount ledger.Amount) error {
	if paymentAmount == 0 {
		return fmt.Errorf("%w: payment amount must be greater than zero", ErrInvalidArgument)
	}
	if mulOverflows(paymentAmount, p.purchaseRatio) {
		return fmt.Errorf("%w: payment amount %d overflows at ratio %d", ErrInvalidArgument, paymentAmount, p.purchaseRatio)
	}

	if err := p.payments.TransferFrom(ctx, p.custody, caller, p.custody, paymentAmount); err != nil {
		return fmt.Errorf("lottery: collect payment: %w", err)
	}
	minted := paymentAmount * p.purchaseRatio
	if err := p.credits.Mint(ctx, caller, minted); err != nil {
		// Return the payment so a failed mint does not strand funds.
		if rbErr := p.payments.Transfer(ctx, p.custody, caller, paymentAmount); rbErr != nil {
			return fmt.Errorf("lottery: mint credit: %w (refund failed: %v)", err, rbErr)
		}
		return fmt.Errorf("lottery: mint credit: %w", err)
	}

	p.log.Info("credit purchased",
		zap.Stringer("buyer", caller),
		zap.Uint64("payment", paymentAmount),
		zap.Uint64("minted", minted))
	return nil
}

// RedeemCredit burns amount of caller's credit and pays out
// amount/PurchaseRatio of the base payment asset. Integer-division
// truncation is accepted: the rounding loss stays in the pool.
func (p *Pool) RedeemCredit(ctx context.Context, caller ledger.Address, amount ledger.Amount) error {
	if amount == 0 {
		return fmt.Errorf("%w: redeem amount must be greater than zero", ErrInvalidArgument)
	}
	balance, err := p.credits.BalanceOf(ctx, caller)
	if err != nil {
		return fmt.Errorf("lottery: query balance: %w", err)
	}
	if balance < amount {
		return fmt.Errorf("%w: balance %d, redeem %d", ErrInsufficientFunds, balance, amount)
	}

	if err := p.credits.BurnFrom(ctx, caller, amount); err != nil {
		return fmt.Errorf("lottery: burn credit: %w", err)
	}
	payout := amount / p.purchaseRatio
	if payout > 0 {
		if err := p.payments.Transfer(ctx, p.custody, caller, payout); err != nil {
			// Restore the burned credit so the operation stays whole.
			if rbErr := p.credits.Mint(ctx, caller, amount); rbErr != nil {
				return fmt.Errorf("lottery: pay out redemption: %w (restore failed: %v)", err, rbErr)
			}
			return fmt.Errorf("lottery: pay out redemption: %w", err)
		}
	}

	p.log.Info("credit redeemed",
		zap.Stringer("holder", caller),
		zap.Uint64("burned", amount),
		zap.Uint64("payout", payout))
	return nil
}

// WithdrawPrize pays amount of caller's prize balance out in credit.
// The per-address prize balance is the authoritative debited quantity;
// the shared prize-pool counter is a per-round accumulator and is never
// touched by withdrawals.
func (p *Pool) WithdrawPrize(ctx context.Context, caller ledger.Address, amount ledger.Amount) error {
	if amount == 0 {
		return fmt.Errorf("%w: withdrawal amount must be greater than zero", ErrInvalidArgument)
	}
	held := p.prizeBalances[caller]
	if held < amount {
		return fmt.Errorf("%w: prize balance %d, withdraw %d", ErrInsufficientFunds, held, amount)
	}

	p.setPrizeBalance(caller, held-amount)
	if err := p.credits.Transfer(ctx, p.custody, caller, amount); err != nil {
		p.setPrizeBalance(caller, held)
		return fmt.Errorf("lottery: pay out prize: %w", err)
	}

	p.log.Info("prize withdrawn",
		zap.Stringer("winner", caller),
		zap.Uint64("amount", amount),
		zap.Uint64("remaining", held-amount))
	return nil
}

// WithdrawOwnerFees pays amount of the collected fees to the
// administrator in the base payment asset. Fees accumulate in credit,
// so amount of fee credit is burned from pool custody and
// amount/PurchaseRatio payment units transferred out, the same
// truncating conversion as RedeemCredit. Administrator only.
func (p *Pool) WithdrawOwnerFees(ctx context.Context, caller ledger.Address, amount ledger.Amount) error {
	if caller != p.admin {
		return fmt.Errorf("%w: withdraw owner fees", ErrNotAdministrator)
	}
	if amount == 0 {
		return fmt.Errorf("%w: withdrawal amount must be greater than zero", ErrInvalidArgument)
	}
	if amount > p.ownerPool {
		return fmt.Errorf("%w: owner pool %d, withdraw %d", ErrInsufficientFunds, p.ownerPool, amount)
	}

	p.ownerPool -= amount
	if err := p.credits.BurnFrom(ctx, p.custody, amount); err != nil {
		p.ownerPool += amount
		return fmt.Errorf("lottery: burn fee credit: %w", err)
	}
	payout := amount / p.purchaseRatio
	if payout > 0 {
		if err := p.payments.Transfer(ctx, p.custody, caller, payout); err != nil {
			// Restore the burned credit so the operation stays whole.
			if rbErr := p.credits.Mint(ctx, p.custody, amount); rbErr != nil {
				p.ownerPool += amount
				return fmt.Errorf("lottery: pay out fees: %w (restore failed: %v)", err, rbErr)
			}
			p.ownerPool += amount
			return fmt.Errorf("lottery: pay out fees: %w", err)
		}
	}

	p.log.Info("owner fees withdrawn",
		zap.Uint64("amount", amount),
		zap.Uint64("payout", payout),
		zap.Uint64("remaining", p.ownerPool))
	return nil
}

// setPrizeBalance updates a prize balance, dropping zero entries so the
// map does not grow with settled winners.
func (p *Pool) setPrizeBalance(addr ledger.Address, amount ledger.Amount) {
	if amount == 0 {
		delete(p.prizeBalances, addr)
		return
	}
	p.prizeBalances[addr] = amount
}
