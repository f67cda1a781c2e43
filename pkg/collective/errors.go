package collective

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the core. Callers should use errors.Is against
// these, not string matching; CollectiveError wraps them with the operation
// and strategy that produced them.
var (
	// ErrBadFileDescriptor indicates the Handle is not valid or already closed.
	ErrBadFileDescriptor = errors.New("collective: bad file descriptor")

	// ErrConnectionReset indicates a transport failure during a collective.
	// Group state is now undefined; the only recovery is Close.
	ErrConnectionReset = errors.New("collective: connection reset")

	// ErrWouldBlock is returned by a non-blocking probe with no data ready.
	ErrWouldBlock = errors.New("collective: would block")

	// ErrInvalidArgument indicates bad sizing arithmetic or an otherwise
	// invalid argument. Operations unsupported by a strategy report
	// ErrInvalidOperation instead.
	ErrInvalidArgument = errors.New("collective: invalid argument")

	// ErrBufferTooSmall indicates a probed frame would not fit the caller's
	// buffer. The frame is not consumed; the caller may retry with a larger
	// buffer.
	ErrBufferTooSmall = errors.New("collective: buffer too small")

	// ErrBadAddress indicates a nil buffer pointer where one is not allowed.
	ErrBadAddress = errors.New("collective: bad address")

	// ErrInvalidOperation indicates an operation not native to this
	// strategy's pattern (e.g. Send on Broadcast).
	ErrInvalidOperation = errors.New("collective: invalid operation")
)

// CollectiveError wraps a sentinel error with the operation and strategy
// that produced it, preserving errors.Is/errors.As against the sentinel.
type CollectiveError struct {
	Strategy string // e.g. "broadcast", "scatter"
	Op       string // e.g. "sendrecv", "probe"
	Err      error
}

func (e *CollectiveError) Error() string {
	return fmt.Sprintf("collective: %s.%s: %v", e.Strategy, e.Op, e.Err)
}

func (e *CollectiveError) Unwrap() error {
	return e.Err
}

// wrapErr builds a CollectiveError for the given strategy/op pair. err must
// be non-nil.
func wrapErr(strategy, op string, err error) error {
	return &CollectiveError{Strategy: strategy, Op: op, Err: err}
}

// invalidOp returns the standard ErrInvalidOperation error for an op not
// native to strategy's pattern.
func invalidOp(strategy, op string) error {
	return wrapErr(strategy, op, fmt.Errorf("%w: use sendrecv/probe+receive as appropriate for %s", ErrInvalidOperation, strategy))
}
