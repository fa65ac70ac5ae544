// Package beacon provides unpredictability sources for winner selection.
//
// Every Source in this package is WEAK: the value it produces is
// observable, and in some cases influenceable, shortly before it is
// consumed. That is an accepted limitation for low-stakes pools. None
// of these sources must ever be used where unpredictability against a
// motivated adversary is required.
package beacon

import "context"

// Source produces the unpredictability value consumed by a draw.
// roundID scopes the value to one round so that two pools drawing off
// the same external event do not share an index stream.
type Source interface {
	Value(ctx context.Context, roundID string) (uint64, error)
}

// Fixed is a deterministic Source returning a constant value.
// Intended for tests and simulations.
type Fixed uint64

// Value returns the fixed value regardless of round.
func (f Fixed) Value(context.Context, string) (uint64, error) {
	return uint64(f), nil
}
