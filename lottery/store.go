package lottery

import (
	"fmt"
	"time"

	"github.com/lottokit/liblotto-go/ledger"
)

// Snapshot captures the durable state of a Pool: the round state
// machine, both pool balances, per-winner prize balances and the bet
// registry. Configuration (ratio, price, fee, identities) is not part
// of a snapshot; it is fixed at construction.
type Snapshot struct {
	RoundID         string
	BetsOpen        bool
	ClosingDeadline time.Time
	PrizePool       ledger.Amount
	OwnerPool       ledger.Amount
	PrizeBalances   map[ledger.Address]ledger.Amount
	Registry        []ledger.Address
}

// Store persists pool snapshots. Persistence is opt-in: core operations
// never require a store, the caller decides when to snapshot.
type Store interface {
	// SaveSnapshot persists s, replacing any previous snapshot.
	SaveSnapshot(s *Snapshot) error

	// LoadSnapshot returns the persisted snapshot, or ErrNoSnapshot if
	// none has been saved.
	LoadSnapshot() (*Snapshot, error)
}

// Snapshot returns a deep copy of the pool's durable state.
func (p *Pool) Snapshot() *Snapshot {
	balances := make(map[ledger.Address]ledger.Amount, len(p.prizeBalances))
	for addr, amount := range p.prizeBalances {
		balances[addr] = amount
	}
	registry := make([]ledger.Address, len(p.registry))
	copy(registry, p.registry)

	return &Snapshot{
		RoundID:         p.roundID,
		BetsOpen:        p.betsOpen,
		ClosingDeadline: p.closingDeadline,
		PrizePool:       p.prizePool,
		OwnerPool:       p.ownerPool,
		PrizeBalances:   balances,
		Registry:        registry,
	}
}

// Restore replaces the pool's durable state with s. The registry length
// must be consistent with the snapshot's open/closed phase.
func (p *Pool) Restore(s *Snapshot) error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidArgument)
	}
	if !s.BetsOpen && len(s.Registry) > 0 {
		return fmt.Errorf("%w: closed round with non-empty registry", ErrInvalidArgument)
	}

	p.roundID = s.RoundID
	p.betsOpen = s.BetsOpen
	p.closingDeadline = s.ClosingDeadline
	p.prizePool = s.PrizePool
	p.ownerPool = s.OwnerPool

	p.prizeBalances = make(map[ledger.Address]ledger.Amount, len(s.PrizeBalances))
	for addr, amount := range s.PrizeBalances {
		if amount == 0 {
			continue
		}
		p.prizeBalances[addr] = amount
	}

	p.registry = make([]ledger.Address, len(s.Registry))
	copy(p.registry, s.Registry)
	return nil
}
