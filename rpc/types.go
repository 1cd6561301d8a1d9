// Package rpc defines the JSON-RPC 2.0 wire model: calls, responses,
// notifications, and error values.
package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is the protocol version tag carried by every outgoing call.
const Version = "2.0"

// Value is a type-erased JSON value as it appears on the wire.
// Values are treated as immutable once produced.
type Value = json.RawMessage

// Call is an outbound JSON-RPC payload: either a single MethodCall
// or a BatchCall.
type Call interface {
	isCall()
}

// MethodCall is a single JSON-RPC method invocation.
type MethodCall struct {
	JSONRPC string  `json:"jsonrpc"`
	ID      uint64  `json:"id"`
	Method  string  `json:"method"`
	Params  []Value `json:"params"`
}

func (MethodCall) isCall() {}

// BatchCall is several method calls sent in one round trip.
// It marshals as a top-level JSON array.
type BatchCall []MethodCall

func (BatchCall) isCall() {}

// NewCall builds a MethodCall with the protocol version fixed.
// The caller supplies the id; uniqueness across in-flight requests on a
// transport is the transport's concern, not enforced here.
// Construction cannot fail: malformed method names or params surface later
// as an RPC error from the remote side.
func NewCall(id uint64, method string, params []Value) MethodCall {
	if params == nil {
		params = []Value{}
	}
	return MethodCall{
		JSONRPC: Version,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// Notification is a one-way message with no id and no expected reply.
type Notification struct {
	JSONRPC string  `json:"jsonrpc,omitempty"`
	Method  string  `json:"method"`
	Params  []Value `json:"params"`
}

// UnmarshalJSON parses a notification, rejecting frames that carry an id
// (those are calls or outputs, not notifications). By-position params become
// one wire value each; by-name (object) params, as used by eth_subscription,
// are kept whole as a single wire value.
func (n *Notification) UnmarshalJSON(data []byte) error {
	var raw struct {
		JSONRPC string `json:"jsonrpc"`
		ID      *Value `json:"id"`
		Method  string `json:"method"`
		Params  Value  `json:"params"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ID != nil {
		return fmt.Errorf("rpc: notification carries an id")
	}
	if raw.Method == "" {
		return fmt.Errorf("rpc: notification missing method")
	}
	params, err := paramsFromRaw(raw.Params)
	if err != nil {
		return err
	}
	n.JSONRPC = raw.JSONRPC
	n.Method = raw.Method
	n.Params = params
	return nil
}

func paramsFromRaw(raw Value) ([]Value, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return nil, nil
	case trimmed[0] == '[':
		var params []Value
		if err := json.Unmarshal(trimmed, &params); err != nil {
			return nil, err
		}
		return params, nil
	default:
		return []Value{raw}, nil
	}
}

// Error is the structured error value reported by the remote side.
type Error struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
	Data    Value  `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error: code=%d message=%s", e.Code, e.Message)
}

// Output is the per-request outcome inside a response: exactly one of
// Result or Err is set.
type Output struct {
	// Result holds the success value. nil when the call failed.
	Result Value

	// Err holds the remote-reported failure. nil when the call succeeded.
	Err *Error

	// ID is the id of the call this output answers.
	ID uint64
}

// Success reports whether the output carries a result rather than an error.
func (o Output) Success() bool {
	return o.Err == nil
}

// UnmarshalJSON parses an output, rejecting objects that carry neither a
// result nor an error. A jsonrpc field is tolerated but not required.
func (o *Output) UnmarshalJSON(data []byte) error {
	var raw struct {
		JSONRPC string `json:"jsonrpc"`
		Result  Value  `json:"result"`
		Error   *Error `json:"error"`
		ID      uint64 `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Result == nil && raw.Error == nil {
		return fmt.Errorf("rpc: output carries neither result nor error")
	}
	o.Result = raw.Result
	o.Err = raw.Error
	o.ID = raw.ID
	return nil
}

// MarshalJSON renders the output in wire shape.
func (o Output) MarshalJSON() ([]byte, error) {
	if o.Err != nil {
		return json.Marshal(struct {
			Error *Error `json:"error"`
			ID    uint64 `json:"id"`
		}{o.Err, o.ID})
	}
	return json.Marshal(struct {
		Result Value  `json:"result"`
		ID     uint64 `json:"id"`
	}{o.Result, o.ID})
}

// Response is an inbound JSON-RPC payload answering a Call: a single
// Output or a batch of Outputs, mirroring the Call that produced it.
type Response struct {
	// Output is set for a single (non-batched) response.
	Output *Output

	// Batch is set when the response is a top-level array of outputs.
	Batch []Output
}

// Batched reports whether the response answers a batch call.
func (r Response) Batched() bool {
	return r.Batch != nil
}

// UnmarshalJSON sniffs the first non-space byte to distinguish a single
// output object from a batch array.
func (r *Response) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return fmt.Errorf("rpc: empty response")
	}
	if trimmed[0] == '[' {
		var batch []Output
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return err
		}
		if batch == nil {
			batch = []Output{}
		}
		r.Output = nil
		r.Batch = batch
		return nil
	}
	var out Output
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return err
	}
	r.Output = &out
	r.Batch = nil
	return nil
}
