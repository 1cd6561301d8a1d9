package pulse

import (
	"encoding/json"
	"fmt"

	"github.com/hedeqiang/pulse/rpc"
)

// Serialize converts a value into its wire representation.
// The supported type universe is structurally encodable, so an encoder
// failure is a programming fault and panics rather than propagating.
func Serialize(v any) rpc.Value {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("pulse: types never fail to serialize: %v", err))
	}
	return data
}

// ToString renders a value as wire text, typically a request body.
// Like Serialize, it panics on encoder failure.
func ToString(v any) string {
	return string(Serialize(v))
}

// Decode interprets a wire value as the target type T. It fails with an
// error wrapping ErrDecode when the value's shape does not match T.
func Decode[T any](v rpc.Value) (T, error) {
	var out T
	if err := json.Unmarshal(v, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return out, nil
}

// ParseResponse parses raw bytes into a Response. Malformed bytes or an
// unexpected shape yield an error wrapping ErrInvalidResponse.
func ParseResponse(data []byte) (rpc.Response, error) {
	var resp rpc.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return rpc.Response{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return resp, nil
}

// ParseNotification parses raw bytes into a Notification. Malformed bytes or
// an unexpected shape yield an error wrapping ErrInvalidResponse.
func ParseNotification(data []byte) (rpc.Notification, error) {
	var n rpc.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return rpc.Notification{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return n, nil
}

// OutputValue converts a single output into its result value. A failure
// output yields the remote error verbatim: code, message, and data are
// preserved without reinterpretation.
func OutputValue(out rpc.Output) (rpc.Value, error) {
	if out.Err != nil {
		return nil, out.Err
	}
	return out.Result, nil
}

// Result is the outcome of one call within a batch.
type Result struct {
	Value rpc.Value
	Err   error
}

// BatchResults converts a sequence of outputs into per-call results,
// preserving input order. Every element is reported independently: one
// failed call never suppresses the results of its siblings.
func BatchResults(outputs []rpc.Output) []Result {
	results := make([]Result, len(outputs))
	for i, out := range outputs {
		results[i].Value, results[i].Err = OutputValue(out)
	}
	return results
}
