package beacon

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"golang.org/x/crypto/hkdf"
)

// HeaderSize is the size of a serialized block header in bytes.
const HeaderSize = 80

// hkdfInfoPrefix is the constant prefix of the HKDF info string; the
// round ID is appended so each round derives an independent value from
// the same chain tip.
const hkdfInfoPrefix = "liblotto-draw:"

// HeaderFetcher returns the raw 80-byte header of the current chain tip.
type HeaderFetcher interface {
	BestHeader(ctx context.Context) ([]byte, error)
}

// HeaderFetcherFunc adapts a function to the HeaderFetcher interface.
type HeaderFetcherFunc func(ctx context.Context) ([]byte, error)

// BestHeader calls f.
func (f HeaderFetcherFunc) BestHeader(ctx context.Context) ([]byte, error) { return f(ctx) }

// BlockHashSource derives the unpredictability value from the hash of a
// recent block header. The block hash is public as soon as the block
// propagates, so the value is observable in advance within the window
// between block arrival and round close. See the package doc before
// using this for anything with adversarial stakes.
type BlockHashSource struct {
	Fetcher HeaderFetcher
}

// Value fetches the chain-tip header, computes its double-SHA256 hash,
// and folds the round ID in via HKDF-SHA256 before reducing to uint64.
func (s *BlockHashSource) Value(ctx context.Context, roundID string) (uint64, error) {
	if s.Fetcher == nil {
		return 0, ErrNilFetcher
	}
	header, err := s.Fetcher.BestHeader(ctx)
	if err != nil {
		return 0, fmt.Errorf("beacon: fetch header: %w", err)
	}
	if len(header) != HeaderSize {
		return 0, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidHeader, HeaderSize, len(header))
	}

	blockHash := chainhash.DoubleHashB(header)
	return deriveValue(blockHash, roundID)
}

// deriveValue expands a block hash into a round-scoped 64-bit value.
// HKDF keeps the derivation deterministic for a given (hash, roundID)
// pair, which lets a draw be audited after the fact.
func deriveValue(blockHash []byte, roundID string) (uint64, error) {
	r := hkdf.New(sha256.New, blockHash, nil, []byte(hkdfInfoPrefix+roundID))
	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, fmt.Errorf("beacon: derive value: %w", err)
	}
	return binary.BigEndian.Uint64(buf), nil
}
