// Package eth provides typed Ethereum method wrappers over the JSON-RPC
// client core. Every method returns a decode future; call Await to obtain
// the typed result.
package eth

import (
	"context"

	"github.com/hedeqiang/pulse"
	"github.com/hedeqiang/pulse/rpc"
	"github.com/hedeqiang/pulse/transport"
)

// Eth exposes the eth_* (plus net_* and web3_*) namespace of an endpoint.
type Eth struct {
	transport transport.Transport
}

// New creates an Eth namespace over the given transport.
func New(t transport.Transport) *Eth {
	return &Eth{transport: t}
}

// BlockNumber returns the number of the most recent block.
func (e *Eth) BlockNumber(ctx context.Context) *pulse.CallFuture[Quantity] {
	return future[Quantity](ctx, e.transport, "eth_blockNumber")
}

// ChainID returns the chain id of the endpoint.
func (e *Eth) ChainID(ctx context.Context) *pulse.CallFuture[Quantity] {
	return future[Quantity](ctx, e.transport, "eth_chainId")
}

// GasPrice returns the current gas price in wei.
func (e *Eth) GasPrice(ctx context.Context) *pulse.CallFuture[BigQuantity] {
	return future[BigQuantity](ctx, e.transport, "eth_gasPrice")
}

// GetBalance returns the balance of the account at the given block.
func (e *Eth) GetBalance(ctx context.Context, addr Address, block BlockTag) *pulse.CallFuture[BigQuantity] {
	return future[BigQuantity](ctx, e.transport, "eth_getBalance", addr, block)
}

// GetTransactionCount returns the nonce of the account at the given block.
func (e *Eth) GetTransactionCount(ctx context.Context, addr Address, block BlockTag) *pulse.CallFuture[Quantity] {
	return future[Quantity](ctx, e.transport, "eth_getTransactionCount", addr, block)
}

// Call executes a read-only contract call at the given block.
func (e *Eth) Call(ctx context.Context, msg CallMsg, block BlockTag) *pulse.CallFuture[Bytes] {
	return future[Bytes](ctx, e.transport, "eth_call", msg, block)
}

// SendRawTransaction submits a signed transaction and returns its hash.
func (e *Eth) SendRawTransaction(ctx context.Context, tx Bytes) *pulse.CallFuture[Hash] {
	return future[Hash](ctx, e.transport, "eth_sendRawTransaction", tx)
}

// NetVersion returns the network id as a decimal string.
func (e *Eth) NetVersion(ctx context.Context) *pulse.CallFuture[string] {
	return future[string](ctx, e.transport, "net_version")
}

// ClientVersion returns the client version string of the endpoint.
func (e *Eth) ClientVersion(ctx context.Context) *pulse.CallFuture[string] {
	return future[string](ctx, e.transport, "web3_clientVersion")
}

// future serializes params, executes the call, and wraps the pending result
// in a typed decode future.
func future[T any](ctx context.Context, t transport.Transport, method string, params ...any) *pulse.CallFuture[T] {
	values := make([]rpc.Value, len(params))
	for i, p := range params {
		values[i] = pulse.Serialize(p)
	}
	return pulse.NewCallFuture[T](pulse.Execute(ctx, t, method, values))
}
