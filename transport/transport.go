// Package transport provides JSON-RPC transport layer abstractions.
//
// A transport moves call bytes to a remote party and hands back the raw
// result value; it never knows what type the caller will decode into.
package transport

import (
	"context"

	"github.com/hedeqiang/pulse/rpc"
)

// Result is the raw outcome of a pending operation: a wire value or a
// transport-level error, never both.
type Result struct {
	Value rpc.Value
	Err   error
}

// Pending is a one-shot asynchronous operation that eventually yields a
// Result. It delivers at most one value; the channel is closed after
// delivery. Ownership is exclusive: whoever holds the Pending awaits it.
type Pending <-chan Result

// NewPending returns an unresolved Pending and the function that resolves
// it. The resolve function must be called at most once.
func NewPending() (Pending, func(Result)) {
	ch := make(chan Result, 1)
	resolve := func(r Result) {
		ch <- r
		close(ch)
	}
	return ch, resolve
}

// Resolved returns an already-completed Pending carrying the given outcome.
func Resolved(v rpc.Value, err error) Pending {
	p, resolve := NewPending()
	resolve(Result{Value: v, Err: err})
	return p
}

// Transport sends JSON-RPC calls and returns pending raw results.
type Transport interface {
	// Prepare allocates a request id and builds the call for it. Ids are
	// unique across in-flight requests on this transport instance.
	Prepare(method string, params []rpc.Value) (uint64, rpc.Call)

	// Send transmits the call and returns the pending operation that will
	// yield its raw result value or a transport error.
	Send(ctx context.Context, id uint64, call rpc.Call) Pending

	// Close terminates the transport connection.
	Close() error
}

// BatchTransport is implemented by transports that can carry several calls
// in one round trip.
type BatchTransport interface {
	Transport

	// SendBatch transmits the batch and returns a pending operation yielding
	// the raw top-level array of outputs.
	SendBatch(ctx context.Context, calls rpc.BatchCall) Pending
}

// Notifier is implemented by transports that deliver server-initiated
// notifications (WebSocket only).
type Notifier interface {
	// Notifications returns the channel of incoming notifications. The
	// channel is closed when the transport shuts down.
	Notifications() <-chan rpc.Notification
}
