package lottery

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// drawWinner selects the winning slot for the current round and routes
// the entire prize pool to that winner's withdrawable balance. Called
// only from CloseLottery with a non-empty registry.
//
// The winner is registry[value mod len(registry)] where value comes
// from the configured beacon source. The source obtains the value
// before any state is mutated, so a source failure leaves the round
// untouched.
func (p *Pool) drawWinner(ctx context.Context) error {
	value, err := p.source.Value(ctx, p.roundID)
	if err != nil {
		return fmt.Errorf("lottery: obtain draw value: %w", err)
	}

	winnerIndex := value % uint64(len(p.registry))
	winner := p.registry[winnerIndex]
	prize := p.prizePool

	p.prizeBalances[winner] += prize
	p.prizePool = 0
	p.registry = nil

	p.log.Info("winner drawn",
		zap.String("round_id", p.roundID),
		zap.Uint64("draw_value", value),
		zap.Uint64("winner_index", winnerIndex),
		zap.Stringer("winner", winner),
		zap.Uint64("prize", prize))
	return nil
}
