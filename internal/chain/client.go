package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// CallRequest is one contract read inside a batched multicall.
type CallRequest struct {
	To   common.Address
	Data []byte
}

// CallResult carries the raw return data for the request at the same index,
// or the per-call error when the individual call failed.
type CallResult struct {
	Output []byte
	Err    error
}

// ContractCaller executes a batch of contract reads in a single round-trip.
// The returned slice is positionally correlated with the request slice; a
// non-nil error means the whole batch failed and no result is usable.
type ContractCaller interface {
	BatchCall(ctx context.Context, reqs []CallRequest) ([]CallResult, error)
}

// Client wraps go-ethereum RPC and provides batched eth_call with retry.
type Client struct {
	rpcClient  *rpc.Client
	ethClient  *ethclient.Client
	maxRetries int
	backoff    time.Duration
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string, maxRetries int, backoff time.Duration) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient:  rpcClient,
		ethClient:  ethclient.NewClient(rpcClient),
		maxRetries: maxRetries,
		backoff:    backoff,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// BatchCall issues every request as eth_call in one JSON-RPC batch. The
// batch round-trip is retried with exponential backoff on transport errors;
// per-call errors are returned in place and never retried.
func (c *Client) BatchCall(ctx context.Context, reqs []CallRequest) ([]CallResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	elems := make([]rpc.BatchElem, len(reqs))
	for i, req := range reqs {
		arg := map[string]interface{}{
			"to":   req.To.Hex(),
			"data": hexutil.Encode(req.Data),
		}
		elems[i] = rpc.BatchElem{
			Method: "eth_call",
			Args:   []interface{}{arg, "latest"},
			Result: new(string),
		}
	}

	err := withRetry(ctx, c.maxRetries, c.backoff, func(ctx context.Context) error {
		return c.rpcClient.BatchCallContext(ctx, elems)
	})
	if err != nil {
		return nil, fmt.Errorf("batch call: %w", err)
	}

	results := make([]CallResult, len(reqs))
	for i, elem := range elems {
		if elem.Error != nil {
			results[i] = CallResult{Err: elem.Error}
			continue
		}
		raw, ok := elem.Result.(*string)
		if !ok || raw == nil {
			results[i] = CallResult{Err: fmt.Errorf("missing result for call %d", i)}
			continue
		}
		output, err := decodeCallOutput(*raw)
		if err != nil {
			results[i] = CallResult{Err: err}
			continue
		}
		results[i] = CallResult{Output: output}
	}
	return results, nil
}

func decodeCallOutput(raw string) ([]byte, error) {
	if raw == "" || raw == "0x" {
		return nil, nil
	}
	out, err := hexutil.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid call output: %w", err)
	}
	return out, nil
}
