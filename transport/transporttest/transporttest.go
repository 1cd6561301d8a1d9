// Package transporttest provides an in-memory Transport double for testing
// code built on the JSON-RPC pipeline: responses are queued up front and
// issued requests can be asserted afterwards.
package transporttest

import (
	"context"
	"sync"
	"testing"

	"github.com/hedeqiang/pulse"
	"github.com/hedeqiang/pulse/rpc"
	"github.com/hedeqiang/pulse/transport"
)

// Request is one recorded Prepare invocation.
type Request struct {
	Method string
	Params []rpc.Value
}

// Transport is a mock transport with queued responses. It implements
// transport.Transport and transport.BatchTransport. The zero value is ready
// to use.
type Transport struct {
	mu        sync.Mutex
	asserted  int
	requests  []Request
	responses []rpc.Value
}

// New creates an empty mock transport.
func New() *Transport {
	return &Transport{}
}

// SetResponse replaces the response queue with the single given value.
func (t *Transport) SetResponse(v rpc.Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses = []rpc.Value{v}
}

// AddResponse appends a value to the response queue.
func (t *Transport) AddResponse(v rpc.Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses = append(t.responses, v)
}

// Prepare records the request and builds a call whose id is the request's
// ordinal position, starting at 1.
func (t *Transport) Prepare(method string, params []rpc.Value) (uint64, rpc.Call) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, Request{Method: method, Params: params})
	id := uint64(len(t.requests))
	return id, rpc.NewCall(id, method, params)
}

// Send pops the next queued response and returns it as an already-resolved
// pending operation. An empty queue resolves to ErrUnreachable: the test
// asked for a call it never arranged a response for.
func (t *Transport) Send(_ context.Context, _ uint64, _ rpc.Call) transport.Pending {
	return transport.Resolved(t.pop())
}

// SendBatch pops the next queued response, which must be the raw outputs
// array for the whole batch.
func (t *Transport) SendBatch(_ context.Context, _ rpc.BatchCall) transport.Pending {
	return transport.Resolved(t.pop())
}

// Close is a no-op.
func (t *Transport) Close() error {
	return nil
}

func (t *Transport) pop() (rpc.Value, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.responses) == 0 {
		return nil, pulse.ErrUnreachable
	}
	v := t.responses[0]
	t.responses = t.responses[1:]
	return v, nil
}

// AssertRequest checks the next unasserted request against the expected
// method and serialized parameter list.
func (t *Transport) AssertRequest(tb testing.TB, method string, params []string) {
	tb.Helper()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.asserted >= len(t.requests) {
		tb.Fatalf("expected request %q, but none was made", method)
	}
	req := t.requests[t.asserted]
	t.asserted++

	if req.Method != method {
		tb.Errorf("request method = %q, want %q", req.Method, method)
	}
	if len(req.Params) != len(params) {
		tb.Fatalf("request params = %d values, want %d", len(req.Params), len(params))
	}
	for i, p := range req.Params {
		if string(p) != params[i] {
			tb.Errorf("request param %d = %s, want %s", i, p, params[i])
		}
	}
}

// AssertNoMoreRequests checks that every recorded request has been asserted.
func (t *Transport) AssertNoMoreRequests(tb testing.TB) {
	tb.Helper()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.asserted != len(t.requests) {
		tb.Errorf("expected no more requests, got %d unasserted", len(t.requests)-t.asserted)
	}
}
