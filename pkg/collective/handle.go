package collective

import "context"

// Handle is a point-to-point, framed, message-oriented channel to one peer.
// It is supplied by an external collaborator (the "manager" that resolves
// addresses and dials/accepts connections); collective never constructs,
// dials, or frees a Handle, only drives it.
//
// Framing discipline: every message sent through Send is delivered to the
// peer as exactly one frame; there is no intra-collective concatenation on
// the wire. A size-zero frame (or a graceful reset, which implementations
// should surface identically to a zero-size frame) is end-of-stream (EOS)
// and is terminal for the read side: once EOS is observed, every subsequent
// Probe/Receive on that Handle must also report EOS.
//
// Probed state: a successful Probe may cache "the next Receive must consume
// exactly N bytes" internally. Probing again before a Receive must be
// idempotent and return the same cached size. collective's Framing Helper
// keeps its own shadow of this state (see framing.go) so a Handle
// implementation is free to keep probe/receive state however it likes, or
// none at all, as long as the sequence Probe; Probe; Receive behaves as a
// single Probe; Receive would.
//
// Concurrency: a Handle must be safe for one in-flight Probe/Receive/Send at
// a time issued by its owning Collective; it need not support concurrent
// Send and Receive from independent goroutines unless the implementation
// documents that it does.
type Handle interface {
	// Probe checks for a pending message without consuming it. If blocking
	// is true, Probe waits until a frame header arrives, the peer closes
	// (EOS), or ctx is canceled. If blocking is false, Probe returns
	// ErrWouldBlock immediately when no frame is ready.
	//
	// Returns size > 0 and a nil error when a frame of that many bytes is
	// ready to be consumed by Receive; size == 0 and a nil error on EOS.
	Probe(ctx context.Context, blocking bool) (size int, err error)

	// Receive consumes the previously probed frame into buf[:n], n being the
	// frame size (Receive must have been preceded by a successful Probe on
	// this Handle; implementations may probe internally if that is more
	// convenient, but must still obey the framing contract). Returns the
	// number of bytes written into buf.
	Receive(ctx context.Context, buf []byte) (n int, err error)

	// Send frames and delivers buf as a single message. Returns len(buf) on
	// success.
	Send(ctx context.Context, buf []byte) (n int, err error)

	// Peek reports, without blocking, whether a frame looks ready to read.
	// It is a hint: a false result does not guarantee Probe(blocking=false)
	// will also report nothing ready, and vice versa is not guaranteed
	// either; callers use it only to avoid obviously-wasted blocking calls.
	Peek() bool

	// Close half-closes the write and/or read direction. Idempotent.
	Close(closeWrite, closeRead bool) error
}
