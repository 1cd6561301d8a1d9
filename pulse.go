// Package pulse provides a transport-agnostic JSON-RPC 2.0 client core.
//
// Pulse — a heartbeat line to any JSON-RPC endpoint.
//
// Usage:
//
//	c := pulse.New(transport.NewHTTP("https://mainnet.infura.io/v3/KEY"))
//
//	result, err := c.Call(ctx, "eth_blockNumber")
//
//	block, err := pulse.Call[eth.Quantity](ctx, c.Transport(), "eth_blockNumber")
package pulse

import (
	"context"
	"fmt"

	"github.com/lthibault/log"

	"github.com/hedeqiang/pulse/rpc"
	"github.com/hedeqiang/pulse/transport"
)

// Client binds one transport and exposes the request/response pipeline:
// call construction, typed decoding, and batch interpretation.
type Client struct {
	transport transport.Transport
	log       log.Logger
}

// New creates a Client over the given transport.
func New(t transport.Transport, opts ...Option) *Client {
	c := &Client{
		transport: t,
		log:       log.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transport returns the underlying transport.
func (c *Client) Transport() transport.Transport {
	return c.transport
}

// Call invokes method with the given parameters and returns the raw result
// value. Each parameter is serialized via Serialize before the call is built.
func (c *Client) Call(ctx context.Context, method string, params ...any) (rpc.Value, error) {
	return NewCallFuture[rpc.Value](Execute(ctx, c.transport, method, serializeParams(params))).Await(ctx)
}

// BatchRequest describes one call within a batch.
type BatchRequest struct {
	Method string
	Params []any
}

// CallBatch sends every request in one round trip and returns one Result per
// request, in request order. Outputs are correlated to requests by id, so a
// remote party that reorders the output array is handled correctly; an
// output count mismatch fails the whole batch with ErrInvalidResponse, and a
// request with no matching output gets a per-element ErrInvalidResponse.
func (c *Client) CallBatch(ctx context.Context, reqs []BatchRequest) ([]Result, error) {
	bt, ok := c.transport.(transport.BatchTransport)
	if !ok {
		return nil, ErrBatchUnsupported
	}
	if len(reqs) == 0 {
		return []Result{}, nil
	}

	calls := make(rpc.BatchCall, len(reqs))
	for i, req := range reqs {
		_, call := c.transport.Prepare(req.Method, serializeParams(req.Params))
		mc, ok := call.(rpc.MethodCall)
		if !ok {
			return nil, fmt.Errorf("%w: transport prepared a non-method call", ErrUnreachable)
		}
		calls[i] = mc
	}

	res, ok := <-bt.SendBatch(ctx, calls)
	if !ok {
		return nil, ErrUnreachable
	}
	if res.Err != nil {
		return nil, res.Err
	}

	var outputs []rpc.Output
	if err := decodeOutputs(res.Value, &outputs); err != nil {
		return nil, err
	}
	if len(outputs) != len(calls) {
		return nil, fmt.Errorf("%w: batch of %d calls answered by %d outputs",
			ErrInvalidResponse, len(calls), len(outputs))
	}

	byID := make(map[uint64]rpc.Output, len(outputs))
	for _, out := range outputs {
		byID[out.ID] = out
	}

	results := make([]Result, len(calls))
	for i, call := range calls {
		out, ok := byID[call.ID]
		if !ok {
			c.log.With(log.F{"id": call.ID, "method": call.Method}).
				Warn("no output for batched call")
			results[i].Err = fmt.Errorf("%w: no output for id %d", ErrInvalidResponse, call.ID)
			continue
		}
		results[i].Value, results[i].Err = OutputValue(out)
	}
	return results, nil
}

// Close terminates the underlying transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

func decodeOutputs(v rpc.Value, outputs *[]rpc.Output) error {
	resp, err := ParseResponse(v)
	if err != nil {
		return err
	}
	if !resp.Batched() {
		return fmt.Errorf("%w: batch call answered by a single output", ErrInvalidResponse)
	}
	*outputs = resp.Batch
	return nil
}
