package lottery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lottokit/liblotto-go/beacon"
	"github.com/lottokit/liblotto-go/ledger"
)

func makeAddr(seed byte) ledger.Address {
	var addr ledger.Address
	for i := range addr {
		addr[i] = seed
	}
	return addr
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time                     { return c.t }
func (c *fakeClock) Advance(d time.Duration)            { c.t = c.t.Add(d) }
func (c *fakeClock) Deadline(d time.Duration) time.Time { return c.t.Add(d) }

// sourceFunc adapts a function to beacon.Source.
type sourceFunc func(ctx context.Context, roundID string) (uint64, error)

func (f sourceFunc) Value(ctx context.Context, roundID string) (uint64, error) {
	return f(ctx, roundID)
}

// testPool bundles a pool with its ledgers and clock for assertions.
type testPool struct {
	*Pool
	clock    *fakeClock
	credits  *ledger.MemLedger
	payments *ledger.MemLedger
	admin    ledger.Address
	custody  ledger.Address
}

const (
	testRatio = 1000
	testPrice = 1000
	testFee   = 100
)

func newTestPool(t *testing.T, src beacon.Source) *testPool {
	t.Helper()

	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	credits := ledger.NewMemLedger()
	payments := ledger.NewMemLedger()
	admin := makeAddr(0x01)
	custody := makeAddr(0xFF)

	p, err := NewPool(PoolParams{
		Administrator: admin,
		Custody:       custody,
		PurchaseRatio: testRatio,
		BetPrice:      testPrice,
		BetFee:        testFee,
		Credits:       credits,
		Payments:      payments,
		Source:        src,
		Now:           clock.Now,
	})
	require.NoError(t, err)

	return &testPool{
		Pool:     p,
		clock:    clock,
		credits:  credits,
		payments: payments,
		admin:    admin,
		custody:  custody,
	}
}

// fund mints payment units to addr, purchases credit through the pool,
// and grants the pool a generous credit allowance for betting.
func (tp *testPool) fund(t *testing.T, addr ledger.Address, paymentUnits uint64) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, tp.payments.Mint(ctx, addr, paymentUnits))
	require.NoError(t, tp.payments.Approve(ctx, addr, tp.custody, paymentUnits))
	require.NoError(t, tp.PurchaseCredit(ctx, addr, paymentUnits))
	require.NoError(t, tp.credits.Approve(ctx, addr, tp.custody, paymentUnits*testRatio))
}

func (tp *testPool) creditBalance(t *testing.T, addr ledger.Address) uint64 {
	t.Helper()
	bal, err := tp.credits.BalanceOf(context.Background(), addr)
	require.NoError(t, err)
	return bal
}

func (tp *testPool) paymentBalance(t *testing.T, addr ledger.Address) uint64 {
	t.Helper()
	bal, err := tp.payments.BalanceOf(context.Background(), addr)
	require.NoError(t, err)
	return bal
}

func (tp *testPool) openRound(t *testing.T, window time.Duration) {
	t.Helper()
	require.NoError(t, tp.OpenBets(tp.admin, tp.clock.Deadline(window)))
}

// --- Construction tests ---

func TestNewPool_Validation(t *testing.T) {
	credits := ledger.NewMemLedger()
	payments := ledger.NewMemLedger()
	valid := PoolParams{
		Administrator: makeAddr(0x01),
		Custody:       makeAddr(0xFF),
		PurchaseRatio: 1000,
		BetPrice:      1000,
		BetFee:        100,
		Credits:       credits,
		Payments:      payments,
		Source:        beacon.Fixed(0),
	}

	tests := []struct {
		name   string
		modify func(*PoolParams)
	}{
		{"nil credits", func(p *PoolParams) { p.Credits = nil }},
		{"nil payments", func(p *PoolParams) { p.Payments = nil }},
		{"nil source", func(p *PoolParams) { p.Source = nil }},
		{"zero ratio", func(p *PoolParams) { p.PurchaseRatio = 0 }},
		{"zero price", func(p *PoolParams) { p.BetPrice = 0 }},
		{"admin equals custody", func(p *PoolParams) { p.Custody = p.Administrator }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := valid
			tt.modify(&params)
			_, err := NewPool(params)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	p, err := NewPool(valid)
	require.NoError(t, err)
	assert.False(t, p.BetsOpen())
	assert.Zero(t, p.PrizePool())
	assert.Zero(t, p.OwnerPool())
}

// --- Round state machine tests ---

func TestOpenBets(t *testing.T) {
	tp := newTestPool(t, beacon.Fixed(0))

	t.Run("not administrator", func(t *testing.T) {
		err := tp.OpenBets(makeAddr(0x42), tp.clock.Deadline(time.Hour))
		assert.ErrorIs(t, err, ErrNotAdministrator)
		assert.False(t, tp.BetsOpen())
	})

	t.Run("deadline in the past", func(t *testing.T) {
		err := tp.OpenBets(tp.admin, tp.clock.Deadline(-time.Minute))
		assert.ErrorIs(t, err, ErrInvalidDeadline)
	})

	t.Run("deadline equal to now", func(t *testing.T) {
		err := tp.OpenBets(tp.admin, tp.clock.Now())
		assert.ErrorIs(t, err, ErrInvalidDeadline)
	})

	t.Run("success", func(t *testing.T) {
		deadline := tp.clock.Deadline(time.Hour)
		require.NoError(t, tp.OpenBets(tp.admin, deadline))
		assert.True(t, tp.BetsOpen())
		assert.Equal(t, deadline, tp.ClosingDeadline())
		assert.NotEmpty(t, tp.RoundID())
	})

	t.Run("already open", func(t *testing.T) {
		err := tp.OpenBets(tp.admin, tp.clock.Deadline(time.Hour))
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestCloseLottery_Preconditions(t *testing.T) {
	ctx := context.Background()
	tp := newTestPool(t, beacon.Fixed(0))
	anyone := makeAddr(0x42)

	t.Run("already closed", func(t *testing.T) {
		err := tp.CloseLottery(ctx, anyone)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	tp.openRound(t, time.Hour)

	t.Run("before deadline", func(t *testing.T) {
		err := tp.CloseLottery(ctx, anyone)
		assert.ErrorIs(t, err, ErrBettingStillOpen)
		assert.True(t, tp.BetsOpen())
	})

	t.Run("anyone may close after deadline", func(t *testing.T) {
		tp.clock.Advance(time.Hour)
		require.NoError(t, tp.CloseLottery(ctx, anyone))
		assert.False(t, tp.BetsOpen())
	})
}

func TestCloseLottery_EmptyRegistry(t *testing.T) {
	ctx := context.Background()
	tp := newTestPool(t, beacon.Fixed(7))
	tp.openRound(t, time.Hour)
	tp.clock.Advance(2 * time.Hour)

	require.NoError(t, tp.CloseLottery(ctx, tp.admin))

	assert.False(t, tp.BetsOpen())
	assert.Zero(t, tp.PrizePool())
	assert.Zero(t, tp.OwnerPool())
	assert.Zero(t, tp.RegistryLen())
}

func TestCloseLottery_SourceFailureLeavesRoundOpen(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("beacon unreachable")
	calls := 0
	src := sourceFunc(func(context.Context, string) (uint64, error) {
		calls++
		if calls == 1 {
			return 0, boom
		}
		return 0, nil
	})

	tp := newTestPool(t, src)
	bettor := makeAddr(0x10)
	tp.fund(t, bettor, 2)
	tp.openRound(t, time.Hour)
	require.NoError(t, tp.PlaceBet(ctx, bettor))
	tp.clock.Advance(2 * time.Hour)

	err := tp.CloseLottery(ctx, tp.admin)
	require.ErrorIs(t, err, boom)
	assert.True(t, tp.BetsOpen(), "failed draw must leave the round open")
	assert.Equal(t, uint64(testPrice), tp.PrizePool())
	assert.Equal(t, 1, tp.RegistryLen())

	// Retry succeeds once the source recovers.
	require.NoError(t, tp.CloseLottery(ctx, tp.admin))
	assert.False(t, tp.BetsOpen())
	assert.Equal(t, uint64(testPrice), tp.PrizeBalance(bettor))
}

// --- Bet placement tests ---

func TestPlaceBet_WindowErrors(t *testing.T) {
	ctx := context.Background()
	tp := newTestPool(t, beacon.Fixed(0))
	bettor := makeAddr(0x10)
	tp.fund(t, bettor, 5)

	t.Run("no round ever opened", func(t *testing.T) {
		err := tp.PlaceBet(ctx, bettor)
		assert.ErrorIs(t, err, ErrBettingClosed)
	})

	tp.openRound(t, time.Hour)

	t.Run("after deadline", func(t *testing.T) {
		tp.clock.Advance(time.Hour) // exactly at deadline: no longer strictly before
		before := tp.creditBalance(t, bettor)

		err := tp.PlaceBet(ctx, bettor)
		assert.ErrorIs(t, err, ErrBettingClosed)

		assert.Equal(t, before, tp.creditBalance(t, bettor))
		assert.Zero(t, tp.PrizePool())
		assert.Zero(t, tp.OwnerPool())
		assert.Zero(t, tp.RegistryLen())
	})
}

func TestPlaceBet_FundsAndAllowance(t *testing.T) {
	ctx := context.Background()
	tp := newTestPool(t, beacon.Fixed(0))
	tp.openRound(t, time.Hour)

	t.Run("insufficient balance", func(t *testing.T) {
		poor := makeAddr(0x20)
		err := tp.PlaceBet(ctx, poor)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Zero(t, tp.RegistryLen())
	})

	t.Run("insufficient allowance", func(t *testing.T) {
		stingy := makeAddr(0x21)
		require.NoError(t, tp.payments.Mint(ctx, stingy, 2))
		require.NoError(t, tp.payments.Approve(ctx, stingy, tp.custody, 2))
		require.NoError(t, tp.PurchaseCredit(ctx, stingy, 2))
		// Allowance covers the price but not the fee.
		require.NoError(t, tp.credits.Approve(ctx, stingy, tp.custody, testPrice))

		err := tp.PlaceBet(ctx, stingy)
		assert.ErrorIs(t, err, ErrInsufficientAllowance)
		assert.Zero(t, tp.RegistryLen())
		assert.Zero(t, tp.PrizePool())
	})
}

func TestPlaceBet_Accounting(t *testing.T) {
	ctx := context.Background()
	tp := newTestPool(t, beacon.Fixed(0))
	bettor := makeAddr(0x10)
	tp.fund(t, bettor, 2) // 2000 credit covers one 1100 stake
	tp.openRound(t, time.Hour)

	require.NoError(t, tp.PlaceBet(ctx, bettor))

	assert.Equal(t, uint64(testPrice), tp.PrizePool())
	assert.Equal(t, uint64(testFee), tp.OwnerPool())
	assert.Equal(t, 1, tp.RegistryLen())
	assert.Equal(t, []ledger.Address{bettor}, tp.Registry())
	assert.Equal(t, uint64(2*testRatio-testPrice-testFee), tp.creditBalance(t, bettor))
	assert.Equal(t, uint64(testPrice+testFee), tp.creditBalance(t, tp.custody))
}

func TestPlaceBet_PrizePoolAfterNBets(t *testing.T) {
	ctx := context.Background()
	tp := newTestPool(t, beacon.Fixed(0))
	bettor := makeAddr(0x10)
	tp.fund(t, bettor, 10)
	tp.openRound(t, time.Hour)

	const n = 5
	for i := 0; i < n; i++ {
		require.NoError(t, tp.PlaceBet(ctx, bettor))
	}

	assert.Equal(t, uint64(n*testPrice), tp.PrizePool())
	assert.Equal(t, uint64(n*testFee), tp.OwnerPool())
	assert.Equal(t, n, tp.RegistryLen())
}

// --- Batch tests ---

func TestPlaceManyBets(t *testing.T) {
	ctx := context.Background()

	t.Run("zero count", func(t *testing.T) {
		tp := newTestPool(t, beacon.Fixed(0))
		err := tp.PlaceManyBets(ctx, makeAddr(0x10), 0)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("over batch cap", func(t *testing.T) {
		tp := newTestPool(t, beacon.Fixed(0))
		err := tp.PlaceManyBets(ctx, makeAddr(0x10), MaxBatchBets+1)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("three bets", func(t *testing.T) {
		tp := newTestPool(t, beacon.Fixed(0))
		bettor := makeAddr(0x10)
		tp.fund(t, bettor, 4) // 4000 credit covers exactly 3 bets of 1100, with change
		tp.openRound(t, time.Hour)

		require.NoError(t, tp.PlaceManyBets(ctx, bettor, 3))

		assert.Equal(t, 3, tp.RegistryLen())
		assert.Equal(t, uint64(3*testPrice), tp.PrizePool())
		assert.Equal(t, uint64(3*testFee), tp.OwnerPool())
	})

	t.Run("underfunded batch mutates nothing", func(t *testing.T) {
		tp := newTestPool(t, beacon.Fixed(0))
		bettor := makeAddr(0x10)
		tp.fund(t, bettor, 3) // 3000 credit: enough for 2 bets, not 3
		tp.openRound(t, time.Hour)

		// One pre-existing bet so the rollback must not disturb it.
		require.NoError(t, tp.PlaceBet(ctx, bettor))
		balBefore := tp.creditBalance(t, bettor)
		allowanceBefore, err := tp.credits.Allowance(ctx, bettor, tp.custody)
		require.NoError(t, err)
		registryBefore := tp.RegistryLen()
		prizeBefore := tp.PrizePool()
		ownerBefore := tp.OwnerPool()

		err = tp.PlaceManyBets(ctx, bettor, 3)
		require.ErrorIs(t, err, ErrInsufficientFunds)

		assert.Equal(t, registryBefore, tp.RegistryLen(), "no partial batch commit")
		assert.Equal(t, prizeBefore, tp.PrizePool())
		assert.Equal(t, ownerBefore, tp.OwnerPool())
		assert.Equal(t, balBefore, tp.creditBalance(t, bettor), "stake refunded")

		allowanceAfter, err := tp.credits.Allowance(ctx, bettor, tp.custody)
		require.NoError(t, err)
		assert.Equal(t, allowanceBefore, allowanceAfter, "no allowance consumed")
	})

	t.Run("allowance short of the whole batch", func(t *testing.T) {
		tp := newTestPool(t, beacon.Fixed(0))
		bettor := makeAddr(0x10)
		tp.fund(t, bettor, 4)
		tp.openRound(t, time.Hour)

		// Allowance covers two bets, not three.
		require.NoError(t, tp.credits.Approve(ctx, bettor, tp.custody, 2*(testPrice+testFee)))

		err := tp.PlaceManyBets(ctx, bettor, 3)
		require.ErrorIs(t, err, ErrInsufficientAllowance)

		assert.Zero(t, tp.RegistryLen())
		allowance, err := tp.credits.Allowance(ctx, bettor, tp.custody)
		require.NoError(t, err)
		assert.Equal(t, ledger.Amount(2*(testPrice+testFee)), allowance, "no allowance consumed")
	})
}

func TestPlaceManyBets_LedgerFailureRestoresAllowance(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("ledger offline")

	// The credit ledger completes the first stake collection of the
	// batch and then goes down.
	inner := ledger.NewMemLedger()
	transfers := 0
	credits := &ledger.MockService{
		MintFn:     inner.Mint,
		BurnFromFn: inner.BurnFrom,
		TransferFn: inner.Transfer,
		TransferFromFn: func(ctx context.Context, spender, holder, to ledger.Address, amount ledger.Amount) error {
			transfers++
			if transfers > 1 {
				return boom
			}
			return inner.TransferFrom(ctx, spender, holder, to, amount)
		},
		ApproveFn:   inner.Approve,
		BalanceOfFn: inner.BalanceOf,
		AllowanceFn: inner.Allowance,
	}
	payments := ledger.NewMemLedger()
	admin := makeAddr(0x01)
	custody := makeAddr(0xFF)
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	p, err := NewPool(PoolParams{
		Administrator: admin,
		Custody:       custody,
		PurchaseRatio: testRatio,
		BetPrice:      testPrice,
		BetFee:        testFee,
		Credits:       credits,
		Payments:      payments,
		Source:        beacon.Fixed(0),
		Now:           clock.Now,
	})
	require.NoError(t, err)

	bettor := makeAddr(0x10)
	require.NoError(t, inner.Mint(ctx, bettor, 4000))
	require.NoError(t, inner.Approve(ctx, bettor, custody, 4000))
	require.NoError(t, p.OpenBets(admin, clock.Deadline(time.Hour)))

	err = p.PlaceManyBets(ctx, bettor, 3)
	require.ErrorIs(t, err, boom)

	assert.Zero(t, p.RegistryLen(), "committed bets unwound")
	assert.Zero(t, p.PrizePool())
	assert.Zero(t, p.OwnerPool())

	bal, err := inner.BalanceOf(ctx, bettor)
	require.NoError(t, err)
	assert.Equal(t, ledger.Amount(4000), bal, "stake refunded")

	allowance, err := inner.Allowance(ctx, bettor, custody)
	require.NoError(t, err)
	assert.Equal(t, ledger.Amount(4000), allowance, "allowance restored to its pre-batch value")
}

// --- Draw tests ---

func TestDraw_WinnerSelection(t *testing.T) {
	tests := []struct {
		name      string
		value     uint64
		wantIndex int
	}{
		{"value zero", 0, 0},
		{"value below length", 2, 2},
		{"value wraps", 5, 2}, // 5 mod 3
		{"large value", 1<<63 + 1, int((uint64(1)<<63 + 1) % 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			tp := newTestPool(t, beacon.Fixed(tt.value))

			bettors := []ledger.Address{makeAddr(0x10), makeAddr(0x11), makeAddr(0x12)}
			for _, b := range bettors {
				tp.fund(t, b, 2)
			}
			tp.openRound(t, time.Hour)
			for _, b := range bettors {
				require.NoError(t, tp.PlaceBet(ctx, b))
			}

			prize := tp.PrizePool()
			tp.clock.Advance(2 * time.Hour)
			require.NoError(t, tp.CloseLottery(ctx, tp.admin))

			winner := bettors[tt.wantIndex]
			assert.Equal(t, prize, tp.PrizeBalance(winner))
			assert.Zero(t, tp.PrizePool())
			assert.Zero(t, tp.RegistryLen())

			// Exactly one prize balance increased.
			for _, b := range bettors {
				if b != winner {
					assert.Zero(t, tp.PrizeBalance(b))
				}
			}
		})
	}
}

func TestDraw_SingleBettorScenario(t *testing.T) {
	// purchaseRatio=1000, betPrice=1000, betFee=100: two payment units
	// buy 2000 credit, one bet charges 1100, close pays the sole bettor
	// the full 1000 prize.
	ctx := context.Background()
	tp := newTestPool(t, beacon.Fixed(12345))
	bettor := makeAddr(0x10)

	tp.fund(t, bettor, 2)
	assert.Equal(t, uint64(2000), tp.creditBalance(t, bettor))

	tp.openRound(t, time.Hour)
	require.NoError(t, tp.PlaceBet(ctx, bettor))
	assert.Equal(t, uint64(900), tp.creditBalance(t, bettor))
	assert.Equal(t, uint64(1000), tp.PrizePool())
	assert.Equal(t, uint64(100), tp.OwnerPool())
	assert.Equal(t, 1, tp.RegistryLen())

	tp.clock.Advance(2 * time.Hour)
	require.NoError(t, tp.CloseLottery(ctx, tp.admin))

	assert.Equal(t, uint64(1000), tp.PrizeBalance(bettor))
	assert.Zero(t, tp.PrizePool())
	assert.Zero(t, tp.RegistryLen())
}

func TestRounds_CycleIndefinitely(t *testing.T) {
	ctx := context.Background()
	tp := newTestPool(t, beacon.Fixed(0))
	bettor := makeAddr(0x10)
	tp.fund(t, bettor, 10)

	var lastRound string
	for i := 0; i < 3; i++ {
		tp.openRound(t, time.Hour)
		assert.NotEqual(t, lastRound, tp.RoundID(), "each round gets a fresh ID")
		lastRound = tp.RoundID()

		require.NoError(t, tp.PlaceBet(ctx, bettor))
		tp.clock.Advance(2 * time.Hour)
		require.NoError(t, tp.CloseLottery(ctx, tp.admin))
		assert.Zero(t, tp.PrizePool())
	}

	assert.Equal(t, uint64(3*testPrice), tp.PrizeBalance(bettor))
	assert.Equal(t, uint64(3*testFee), tp.OwnerPool())
}
