// Package memhandle provides an in-process implementation of
// collective.Handle, backed by a pair of condition-variable-guarded queues.
// It exists for tests and single-process demos: a Handle pair created with
// NewPair behaves like two ends of a length-framed socket without any
// actual I/O.
package memhandle

import (
	"container/list"
	"context"
	"sync"

	"github.com/mtcl-go/collectives/pkg/collective"
)

type frame struct {
	data []byte
}

// Handle is one end of an in-process point-to-point channel. The zero value
// is not usable; construct pairs with NewPair.
type Handle struct {
	mu   sync.Mutex
	cond *sync.Cond

	inbox *list.List // frames waiting to be probed/received on this end
	peer  *Handle    // the other end, written to by Send

	probed       bool
	probedFrame  frame
	eosDelivered bool
	writeClosed  bool
}

// NewPair returns two Handle ends wired to each other: sending on a
// delivers to b's inbox and vice versa.
func NewPair() (a, b *Handle) {
	a = &Handle{inbox: list.New()}
	b = &Handle{inbox: list.New()}
	a.cond = sync.NewCond(&a.mu)
	b.cond = sync.NewCond(&b.mu)
	a.peer = b
	b.peer = a
	return a, b
}

var _ collective.Handle = (*Handle)(nil)

// Probe waits (if blocking) for a frame to arrive, or reports ErrWouldBlock
// immediately if none is ready and blocking is false. It does not consume
// the frame.
func (h *Handle) Probe(ctx context.Context, blocking bool) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.eosDelivered {
		return 0, nil
	}

	if h.inbox.Len() == 0 {
		if !blocking {
			return 0, collective.ErrWouldBlock
		}
		if err := h.waitLocked(ctx); err != nil {
			return 0, err
		}
	}

	if h.eosDelivered {
		return 0, nil
	}

	fr := h.inbox.Front().Value.(frame)
	if len(fr.data) == 0 {
		h.inbox.Remove(h.inbox.Front())
		h.eosDelivered = true
		return 0, nil
	}

	h.probed = true
	h.probedFrame = fr
	return len(fr.data), nil
}

// waitLocked blocks on h.cond until a frame arrives or ctx is canceled.
// h.mu must be held.
func (h *Handle) waitLocked(ctx context.Context) error {
	if ctx.Done() == nil {
		for h.inbox.Len() == 0 && !h.eosDelivered {
			h.cond.Wait()
		}
		return nil
	}

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.cond.Broadcast()
			h.mu.Unlock()
		case <-stop:
		}
	}()
	defer close(stop)

	for h.inbox.Len() == 0 && !h.eosDelivered && ctx.Err() == nil {
		h.cond.Wait()
	}
	return ctx.Err()
}

// Receive consumes the frame previously observed by Probe.
func (h *Handle) Receive(ctx context.Context, buf []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.probed {
		return 0, collective.ErrInvalidArgument
	}

	fr := h.probedFrame
	h.probed = false
	h.probedFrame = frame{}
	h.inbox.Remove(h.inbox.Front())

	n := copy(buf, fr.data)
	return n, nil
}

// Send delivers buf to the peer's inbox as a single frame.
func (h *Handle) Send(ctx context.Context, buf []byte) (int, error) {
	h.mu.Lock()
	if h.writeClosed {
		h.mu.Unlock()
		return 0, collective.ErrBadFileDescriptor
	}
	h.mu.Unlock()

	cp := append([]byte(nil), buf...)

	h.peer.mu.Lock()
	h.peer.inbox.PushBack(frame{data: cp})
	h.peer.cond.Broadcast()
	h.peer.mu.Unlock()

	return len(buf), nil
}

// Peek reports whether a frame is already queued.
func (h *Handle) Peek() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inbox.Len() > 0 && !h.eosDelivered
}

// Close half-closes this end. closeWrite delivers an EOS frame (a
// zero-length frame, per the Handle contract) to the peer; it is
// idempotent. closeRead has no observable effect beyond documentation
// intent, since an in-process queue has no read-side resource to release.
func (h *Handle) Close(closeWrite, closeRead bool) error {
	if !closeWrite {
		return nil
	}

	h.mu.Lock()
	if h.writeClosed {
		h.mu.Unlock()
		return nil
	}
	h.writeClosed = true
	h.mu.Unlock()

	h.peer.mu.Lock()
	h.peer.inbox.PushBack(frame{})
	h.peer.cond.Broadcast()
	h.peer.mu.Unlock()

	return nil
}
