package beacon

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
)

// RPCConfig holds the connection settings for a chain node.
type RPCConfig struct {
	URL      string
	User     string
	Password string
}

// RPCSource fetches the chain-tip header over JSON-RPC and derives the
// unpredictability value from it. It is a BlockHashSource wired to a
// live node: getbestblockhash followed by getblockheader in raw mode.
type RPCSource struct {
	client *RPCClient
	inner  BlockHashSource
}

// NewRPCSource creates a Source backed by the node at cfg.URL.
func NewRPCSource(cfg RPCConfig) *RPCSource {
	s := &RPCSource{client: NewRPCClient(cfg)}
	s.inner.Fetcher = s.client
	return s
}

// Value implements Source.
func (s *RPCSource) Value(ctx context.Context, roundID string) (uint64, error) {
	return s.inner.Value(ctx, roundID)
}

// RPCClient is a JSON-RPC 1.0 client for communicating with chain nodes.
// It handles request serialization, authentication, and response parsing.
type RPCClient struct {
	url    string
	user   string
	pass   string
	client *http.Client
	nextID atomic.Int64
}

// Compile-time interface check.
var _ HeaderFetcher = (*RPCClient)(nil)

// rpcRequest represents a JSON-RPC 1.0 request payload.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcResponse represents a JSON-RPC 1.0 response payload.
type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// rpcError represents an error returned by the JSON-RPC server.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewRPCClient creates a new JSON-RPC client with the given configuration.
// The client uses HTTP Basic Auth when User is non-empty.
func NewRPCClient(cfg RPCConfig) *RPCClient {
	return &RPCClient{
		url:  cfg.URL,
		user: cfg.User,
		pass: cfg.Password,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// Call invokes a JSON-RPC method on the node. If params is nil, an empty
// params array is sent; if result is nil the response result is discarded.
func (c *RPCClient) Call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "1.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("%w: marshal request: %w", ErrRPCFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrRPCFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRPCFailed, method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrRPCFailed, err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("%w: parse response (status %d): %w", ErrRPCFailed, resp.StatusCode, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%w: %s: %s (code %d)", ErrRPCFailed, method, rpcResp.Error.Message, rpcResp.Error.Code)
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("%w: parse result: %w", ErrRPCFailed, err)
		}
	}
	return nil
}

// BestHeader returns the raw 80-byte header of the current chain tip.
func (c *RPCClient) BestHeader(ctx context.Context) ([]byte, error) {
	var tipHex string
	if err := c.Call(ctx, "getbestblockhash", nil, &tipHex); err != nil {
		return nil, err
	}
	tipBytes, err := hex.DecodeString(tipHex)
	if err != nil {
		return nil, fmt.Errorf("%w: decode tip hash: %w", ErrRPCFailed, err)
	}
	if _, err := chainhash.NewHash(tipBytes); err != nil {
		return nil, fmt.Errorf("%w: tip hash: %w", ErrRPCFailed, err)
	}

	// Verbosity false returns the serialized header as hex.
	var headerHex string
	if err := c.Call(ctx, "getblockheader", []interface{}{tipHex, false}, &headerHex); err != nil {
		return nil, err
	}
	header, err := hex.DecodeString(headerHex)
	if err != nil {
		return nil, fmt.Errorf("%w: decode header: %w", ErrRPCFailed, err)
	}
	if len(header) != HeaderSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidHeader, HeaderSize, len(header))
	}
	return header, nil
}
