// Package lottery implements a single-asset betting pool: participants
// stake a fungible credit during an open betting window and one winner,
// drawn at window close, receives the accumulated prize pool.
//
// A Pool owns the round state machine, the pool accounting and the bet
// registry as one aggregate; every operation takes the caller's identity
// explicitly and either completes in full or leaves the aggregate
// unchanged. The execution model is serialized: a Pool must not be
// driven from multiple goroutines concurrently.
package lottery

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lottokit/liblotto-go/beacon"
	"github.com/lottokit/liblotto-go/ledger"
)

// MaxBatchBets is the maximum count accepted by PlaceManyBets. A batch
// performs work proportional to its count; the cap keeps a single call
// from consuming unbounded ledger and registry resources.
const MaxBatchBets = 1000

// PoolParams holds the fixed configuration of a Pool. PurchaseRatio,
// BetPrice and BetFee are set at construction and never change for the
// pool's lifetime.
type PoolParams struct {
	Administrator ledger.Address // may open rounds and withdraw fees
	Custody       ledger.Address // pool's own account on both ledgers
	PurchaseRatio ledger.Amount  // credit units minted per payment unit
	BetPrice      ledger.Amount  // stake per bet, credited to the prize pool
	BetFee        ledger.Amount  // fee per bet, credited to the owner pool

	Credits  ledger.Service // the credit token ledger
	Payments ledger.Service // the base payment asset ledger
	Source   beacon.Source  // unpredictability source for draws

	Logger *zap.Logger      // optional; nop logger when nil
	Now    func() time.Time // optional; time.Now when nil
}

// Pool is the betting-pool aggregate: round state machine, pool
// accounting and bet registry, reset together at close.
type Pool struct {
	admin   ledger.Address
	custody ledger.Address

	purchaseRatio ledger.Amount
	betPrice      ledger.Amount
	betFee        ledger.Amount

	credits  ledger.Service
	payments ledger.Service
	source   beacon.Source

	log *zap.Logger
	now func() time.Time

	roundID         string
	betsOpen        bool
	closingDeadline time.Time

	prizePool     ledger.Amount
	ownerPool     ledger.Amount
	prizeBalances map[ledger.Address]ledger.Amount
	registry      []ledger.Address
}

// NewPool creates a closed pool with empty accounting.
func NewPool(params PoolParams) (*Pool, error) {
	if params.Credits == nil {
		return nil, fmt.Errorf("%w: nil credit ledger", ErrInvalidArgument)
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("%w: nil payment ledger", ErrInvalidArgument)
	}
	if params.Source == nil {
		return nil, fmt.Errorf("%w: nil randomness source", ErrInvalidArgument)
	}
	if params.PurchaseRatio == 0 {
		return nil, fmt.Errorf("%w: purchase ratio must be greater than zero", ErrInvalidArgument)
	}
	if params.BetPrice == 0 {
		return nil, fmt.Errorf("%w: bet price must be greater than zero", ErrInvalidArgument)
	}
	if params.Administrator == params.Custody {
		return nil, fmt.Errorf("%w: administrator and custody accounts must differ", ErrInvalidArgument)
	}

	log := params.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	return &Pool{
		admin:         params.Administrator,
		custody:       params.Custody,
		purchaseRatio: params.PurchaseRatio,
		betPrice:      params.BetPrice,
		betFee:        params.BetFee,
		credits:       params.Credits,
		payments:      params.Payments,
		source:        params.Source,
		log:           log,
		now:           now,
		prizeBalances: make(map[ledger.Address]ledger.Amount),
	}, nil
}

// OpenBets opens a new betting round closing at closingDeadline.
// Administrator only: finalizing a round is public, starting one is not.
func (p *Pool) OpenBets(caller ledger.Address, closingDeadline time.Time) error {
	if caller != p.admin {
		return fmt.Errorf("%w: open bets", ErrNotAdministrator)
	}
	if p.betsOpen {
		return fmt.Errorf("%w: round already open", ErrInvalidState)
	}
	if !closingDeadline.After(p.now()) {
		return fmt.Errorf("%w: %s", ErrInvalidDeadline, closingDeadline.Format(time.RFC3339))
	}

	p.roundID = uuid.NewString()
	p.betsOpen = true
	p.closingDeadline = closingDeadline

	p.log.Info("round opened",
		zap.String("round_id", p.roundID),
		zap.Time("closing_deadline", closingDeadline))
	return nil
}

// CloseLottery finalizes the current round once its deadline has passed.
// Callable by anyone: round finalization must not depend on the
// administrator's availability. If any bets were placed, a winner is
// drawn and the prize pool moves to that winner's withdrawable balance;
// either way the registry is cleared and the round flips closed.
//
// A randomness-source failure leaves the round open so the close can be
// retried.
func (p *Pool) CloseLottery(ctx context.Context, caller ledger.Address) error {
	if !p.betsOpen {
		return fmt.Errorf("%w: round already closed", ErrInvalidState)
	}
	if p.now().Before(p.closingDeadline) {
		return fmt.Errorf("%w: deadline %s", ErrBettingStillOpen, p.closingDeadline.Format(time.RFC3339))
	}

	if len(p.registry) > 0 {
		if err := p.drawWinner(ctx); err != nil {
			return err
		}
	}

	p.registry = nil
	p.betsOpen = false

	p.log.Info("round closed",
		zap.String("round_id", p.roundID),
		zap.Stringer("caller", caller))
	return nil
}

// PlaceBet stakes one bet for bettor in the open round. BetFee is
// credited to the owner pool, BetPrice to the prize pool, and bettor is
// appended to the registry; the stake is then collected from bettor's
// credit balance. The funds-move is issued last, and a failed move
// unwinds the accounting so the bet is all-or-nothing.
func (p *Pool) PlaceBet(ctx context.Context, bettor ledger.Address) error {
	if err := p.checkBetWindow(); err != nil {
		return err
	}

	stake := p.betPrice + p.betFee
	balance, err := p.credits.BalanceOf(ctx, bettor)
	if err != nil {
		return fmt.Errorf("lottery: query balance: %w", err)
	}
	if balance < stake {
		return fmt.Errorf("%w: balance %d, stake %d", ErrInsufficientFunds, balance, stake)
	}
	granted, err := p.credits.Allowance(ctx, bettor, p.custody)
	if err != nil {
		return fmt.Errorf("lottery: query allowance: %w", err)
	}
	if granted < stake {
		return fmt.Errorf("%w: granted %d, stake %d", ErrInsufficientAllowance, granted, stake)
	}

	p.ownerPool += p.betFee
	p.prizePool += p.betPrice
	p.registry = append(p.registry, bettor)

	if err := p.credits.TransferFrom(ctx, p.custody, bettor, p.custody, stake); err != nil {
		p.ownerPool -= p.betFee
		p.prizePool -= p.betPrice
		p.registry = p.registry[:len(p.registry)-1]
		return fmt.Errorf("lottery: collect stake: %w", err)
	}

	p.log.Info("bet placed",
		zap.String("round_id", p.roundID),
		zap.Stringer("bettor", bettor),
		zap.Uint64("prize_pool", p.prizePool),
		zap.Int("registry_len", len(p.registry)))
	return nil
}

// PlaceManyBets places count bets for bettor, each with full validation.
// The whole batch is validated against bettor's balance and allowance
// before the first bet is placed, so a batch the funds cannot complete
// mutates nothing. A ledger failure mid-batch still aborts the whole
// call: bets already placed are unwound, the stake refunded and the
// pre-batch allowance restored, so there is no partial batch commit.
func (p *Pool) PlaceManyBets(ctx context.Context, bettor ledger.Address, count int) error {
	if count <= 0 {
		return fmt.Errorf("%w: bet count must be greater than zero", ErrInvalidArgument)
	}
	if count > MaxBatchBets {
		return fmt.Errorf("%w: bet count %d exceeds maximum %d", ErrInvalidArgument, count, MaxBatchBets)
	}

	stake := p.betPrice + p.betFee
	if mulOverflows(stake, ledger.Amount(count)) {
		return fmt.Errorf("%w: batch of %d overflows at stake %d", ErrInvalidArgument, count, stake)
	}
	total := stake * ledger.Amount(count)
	balance, err := p.credits.BalanceOf(ctx, bettor)
	if err != nil {
		return fmt.Errorf("lottery: query balance: %w", err)
	}
	if balance < total {
		return fmt.Errorf("%w: balance %d, batch stake %d", ErrInsufficientFunds, balance, total)
	}
	granted, err := p.credits.Allowance(ctx, bettor, p.custody)
	if err != nil {
		return fmt.Errorf("lottery: query allowance: %w", err)
	}
	if granted < total {
		return fmt.Errorf("%w: granted %d, batch stake %d", ErrInsufficientAllowance, granted, total)
	}

	for placed := 0; placed < count; placed++ {
		if err := p.PlaceBet(ctx, bettor); err != nil {
			if rbErr := p.unwindBets(ctx, bettor, placed, granted); rbErr != nil {
				return fmt.Errorf("lottery: batch aborted at bet %d of %d: %w (rollback failed: %v)",
					placed+1, count, err, rbErr)
			}
			return fmt.Errorf("lottery: batch aborted at bet %d of %d: %w", placed+1, count, err)
		}
	}
	return nil
}

// unwindBets reverses n bets placed for bettor in the current call,
// refunding the collected stake from pool custody and restoring the
// allowance the unwound transfers spent down to its pre-batch value.
func (p *Pool) unwindBets(ctx context.Context, bettor ledger.Address, n int, preBatchAllowance ledger.Amount) error {
	if n == 0 {
		return nil
	}
	p.ownerPool -= p.betFee * ledger.Amount(n)
	p.prizePool -= p.betPrice * ledger.Amount(n)
	p.registry = p.registry[:len(p.registry)-n]

	stake := (p.betPrice + p.betFee) * ledger.Amount(n)
	if err := p.credits.Transfer(ctx, p.custody, bettor, stake); err != nil {
		return fmt.Errorf("lottery: refund stake: %w", err)
	}
	if err := p.credits.Approve(ctx, bettor, p.custody, preBatchAllowance); err != nil {
		return fmt.Errorf("lottery: restore allowance: %w", err)
	}
	return nil
}

// checkBetWindow reports whether a bet may be placed right now: the
// round must be open and the current time strictly before the deadline.
func (p *Pool) checkBetWindow() error {
	if !p.betsOpen {
		return fmt.Errorf("%w: no open round", ErrBettingClosed)
	}
	if !p.now().Before(p.closingDeadline) {
		return fmt.Errorf("%w: deadline passed", ErrBettingClosed)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// BetsOpen reports whether a betting round is currently open.
func (p *Pool) BetsOpen() bool { return p.betsOpen }

// ClosingDeadline returns the current round's closing deadline.
// Meaningful only while BetsOpen is true.
func (p *Pool) ClosingDeadline() time.Time { return p.closingDeadline }

// RoundID returns the identifier of the current (or last) round.
func (p *Pool) RoundID() string { return p.roundID }

// PrizePool returns the stake accumulated in the open round.
func (p *Pool) PrizePool() ledger.Amount { return p.prizePool }

// OwnerPool returns the fees accumulated and not yet withdrawn.
func (p *Pool) OwnerPool() ledger.Amount { return p.ownerPool }

// PrizeBalance returns addr's withdrawable prize balance.
func (p *Pool) PrizeBalance(addr ledger.Address) ledger.Amount {
	return p.prizeBalances[addr]
}

// RegistryLen returns the number of bets placed since the round opened.
func (p *Pool) RegistryLen() int { return len(p.registry) }

// Registry returns a copy of the current bet registry in placement order.
func (p *Pool) Registry() []ledger.Address {
	out := make([]ledger.Address, len(p.registry))
	copy(out, p.registry)
	return out
}

// BetPrice returns the per-bet stake.
func (p *Pool) BetPrice() ledger.Amount { return p.betPrice }

// BetFee returns the per-bet fee.
func (p *Pool) BetFee() ledger.Amount { return p.betFee }

// PurchaseRatio returns the credit units minted per payment unit.
func (p *Pool) PurchaseRatio() ledger.Amount { return p.purchaseRatio }

// mulOverflows reports whether a*b overflows uint64. a and b are
// non-zero when called.
func mulOverflows(a, b ledger.Amount) bool {
	return a > math.MaxUint64/b
}
