package eventstream

import "errors"

// ErrNilCompletionEvent indicates a nil completion event was provided to a publisher.
var ErrNilCompletionEvent = errors.New("nil completion event")
