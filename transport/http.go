package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/hedeqiang/pulse/retry"
	"github.com/hedeqiang/pulse/rpc"
)

// HTTP implements Transport and BatchTransport over HTTP JSON-RPC.
type HTTP struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	retry   retry.Strategy
	breaker *retry.CircuitBreaker
	nextID  atomic.Uint64
}

// HTTPOption configures an HTTP transport.
type HTTPOption func(*HTTP)

// WithHTTPClient sets the underlying *http.Client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTP) {
		h.client = client
	}
}

// WithRateLimit caps outgoing requests at a client-side rate.
func WithRateLimit(limiter *rate.Limiter) HTTPOption {
	return func(h *HTTP) {
		h.limiter = limiter
	}
}

// WithRetry retries failed round trips according to the given strategy.
// Only transport-level failures are retried; RPC errors reported by the
// remote side are returned immediately.
func WithRetry(strategy retry.Strategy) HTTPOption {
	return func(h *HTTP) {
		h.retry = strategy
	}
}

// WithCircuitBreaker halts round trips once the endpoint accumulates too
// many consecutive failures, until its reset timeout elapses. Rejected
// requests fail immediately with a circuit-open error.
func WithCircuitBreaker(cb *retry.CircuitBreaker) HTTPOption {
	return func(h *HTTP) {
		h.breaker = cb
	}
}

// NewHTTP creates an HTTP transport targeting the given JSON-RPC endpoint.
func NewHTTP(url string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		url:    url,
		client: &http.Client{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Prepare allocates the next request id and builds the call.
func (h *HTTP) Prepare(method string, params []rpc.Value) (uint64, rpc.Call) {
	id := h.nextID.Add(1)
	return id, rpc.NewCall(id, method, params)
}

// Send posts the call and returns the pending raw result.
func (h *HTTP) Send(ctx context.Context, id uint64, call rpc.Call) Pending {
	p, resolve := NewPending()
	go func() {
		body, err := h.roundTrip(ctx, call)
		if err != nil {
			resolve(Result{Err: err})
			return
		}

		var out rpc.Output
		if err := json.Unmarshal(body, &out); err != nil {
			resolve(Result{Err: fmt.Errorf("transport/http: unmarshal response: %w", err)})
			return
		}
		if out.Err != nil {
			resolve(Result{Err: out.Err})
			return
		}
		resolve(Result{Value: out.Result})
	}()
	return p
}

// SendBatch posts the batch and returns the pending raw outputs array.
// Interpretation of the per-call outcomes is left to the caller.
func (h *HTTP) SendBatch(ctx context.Context, calls rpc.BatchCall) Pending {
	p, resolve := NewPending()
	go func() {
		body, err := h.roundTrip(ctx, calls)
		if err != nil {
			resolve(Result{Err: err})
			return
		}
		resolve(Result{Value: body})
	}()
	return p
}

// Close is a no-op for HTTP transport.
func (h *HTTP) Close() error {
	return nil
}

// roundTrip performs one POST exchange, retrying per the configured strategy.
func (h *HTTP) roundTrip(ctx context.Context, call rpc.Call) ([]byte, error) {
	payload, err := json.Marshal(call)
	if err != nil {
		return nil, fmt.Errorf("transport/http: marshal request: %w", err)
	}

	if h.retry == nil {
		return h.post(ctx, payload)
	}

	var body []byte
	err = retry.Do(ctx, h.retry, func(ctx context.Context) error {
		var err error
		body, err = h.post(ctx, payload)
		return err
	})
	return body, err
}

func (h *HTTP) post(ctx context.Context, payload []byte) ([]byte, error) {
	if h.breaker == nil {
		return h.doPost(ctx, payload)
	}

	// Rejected requests never reach the endpoint and are not recorded as
	// failures, so the reset timeout can elapse and let a probe through.
	if !h.breaker.Allow() {
		return nil, fmt.Errorf("transport/http: circuit open")
	}

	body, err := h.doPost(ctx, payload)
	if err != nil {
		h.breaker.RecordFailure()
	} else {
		h.breaker.RecordSuccess()
	}
	return body, err
}

func (h *HTTP) doPost(ctx context.Context, payload []byte) ([]byte, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("transport/http: rate limit: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("transport/http: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transport/http: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport/http: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		preview := string(body)
		if len(preview) > 256 {
			preview = preview[:256]
		}
		return nil, fmt.Errorf("transport/http: HTTP %d: %s", resp.StatusCode, preview)
	}

	return body, nil
}
