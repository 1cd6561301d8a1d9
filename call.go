package pulse

import (
	"context"

	"github.com/hedeqiang/pulse/rpc"
	"github.com/hedeqiang/pulse/transport"
)

// CallFuture wraps a pending raw-value operation and yields a value of type
// T once it completes. The future owns the pending operation it wraps and is
// single-use: the decode step runs exactly once, at resolution, and the
// outcome is cached for any later Await.
type CallFuture[T any] struct {
	pending  transport.Pending
	resolved bool
	value    T
	err      error
}

// NewCallFuture wraps a pending operation in a typed decode future.
func NewCallFuture[T any](p transport.Pending) *CallFuture[T] {
	return &CallFuture[T]{pending: p}
}

// Await blocks until the wrapped operation completes, then decodes the raw
// result into T. A transport-level failure resolves the future immediately,
// bypassing the decode step. Cancellation of ctx before completion returns
// ctx.Err() without consuming the pending operation; the future may be
// awaited again.
func (f *CallFuture[T]) Await(ctx context.Context) (T, error) {
	if f.resolved {
		return f.value, f.err
	}

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res, ok := <-f.pending:
		f.resolved = true
		if !ok {
			// The pending operation terminated without a result.
			f.err = ErrUnreachable
			return f.value, f.err
		}
		if res.Err != nil {
			f.err = res.Err
			return f.value, f.err
		}
		f.value, f.err = Decode[T](res.Value)
		return f.value, f.err
	}
}

// Execute prepares and sends a single call over t, returning the pending raw
// result. Parameters must already be serialized wire values.
func Execute(ctx context.Context, t transport.Transport, method string, params []rpc.Value) transport.Pending {
	id, call := t.Prepare(method, params)
	return t.Send(ctx, id, call)
}

// Call executes method over t and decodes the result into T. Each parameter
// is serialized via Serialize before the call is built.
func Call[T any](ctx context.Context, t transport.Transport, method string, params ...any) (T, error) {
	return NewCallFuture[T](Execute(ctx, t, method, serializeParams(params))).Await(ctx)
}

func serializeParams(params []any) []rpc.Value {
	values := make([]rpc.Value, len(params))
	for i, p := range params {
		values[i] = Serialize(p)
	}
	return values
}
