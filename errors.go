package pulse

import "errors"

var (
	// ErrInvalidResponse is returned when response bytes are malformed or do
	// not match the expected wire shape. The wrapping error carries a
	// diagnostic description of the parse failure.
	ErrInvalidResponse = errors.New("pulse: invalid response")

	// ErrDecode is returned when a wire value cannot be interpreted as the
	// requested type.
	ErrDecode = errors.New("pulse: decode failed")

	// ErrUnreachable marks states the design asserts cannot occur, such as a
	// pending operation that terminated without producing a result.
	ErrUnreachable = errors.New("pulse: unreachable")

	// ErrBatchUnsupported is returned when the configured transport cannot
	// carry batched calls.
	ErrBatchUnsupported = errors.New("pulse: transport does not support batch calls")
)
