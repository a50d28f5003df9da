package codec

import "errors"

// Sentinel errors returned (wrapped with context via fmt.Errorf's %w) by
// Encode and Decode.
var (
	// ErrBadShape means the Shape itself is malformed, or a value passed to
	// Encode does not match the Shape it is being encoded against.
	ErrBadShape = errors.New("codec: bad shape")
	// ErrTruncatedPayload means the byte slice passed to Decode ended
	// before the Shape's fields were fully consumed.
	ErrTruncatedPayload = errors.New("codec: truncated payload")
	// ErrOverflow means an integer value does not fit the target type
	// code's range.
	ErrOverflow = errors.New("codec: integer overflow")
)
