package beacon

import "errors"

var (
	// ErrInvalidHeader indicates the fetched block header is not the
	// expected 80-byte wire format.
	ErrInvalidHeader = errors.New("beacon: invalid block header")

	// ErrNilFetcher indicates the source has no header fetcher configured.
	ErrNilFetcher = errors.New("beacon: nil header fetcher")

	// ErrRPCFailed indicates the chain RPC call failed or returned an error.
	ErrRPCFailed = errors.New("beacon: rpc call failed")
)
