package collective

import (
	"context"
)

// Broadcast implements one-to-all data dissemination. Only SendRecv
// is valid; Probe/Send/Receive return ErrInvalidOperation.
type Broadcast struct {
	base
}

// NewBroadcast constructs a Broadcast strategy. For the root view,
// participants must hold exactly nparticipants-1 handles, one per non-root
// peer in peer-rank order; for a non-root view, exactly one handle (to the
// root).
func NewBroadcast(participants []Handle, nparticipants, rank int, root bool, uniqtag int) (*Broadcast, error) {
	b, err := newBase("broadcast", participants, nparticipants, rank, root, uniqtag)
	if err != nil {
		return nil, err
	}
	return &Broadcast{base: b}, nil
}

// SendRecv sends sendBuf[:sendSize] to every peer (root) or receives one
// framed message into recvBuf[:recvSize] (non-root). datasize is accepted
// for interface symmetry but unused: Broadcast does not partition its
// payload.
func (b *Broadcast) SendRecv(ctx context.Context, sendBuf []byte, sendSize int, recvBuf []byte, recvSize int, datasize int) (int, error) {
	if b.root {
		payload := sendBuf[:sendSize]
		for _, h := range b.participants {
			if _, err := h.Send(ctx, payload); err != nil {
				return 0, wrapErr("broadcast", "sendrecv", ErrConnectionReset)
			}
		}
		if recvBuf != nil {
			copy(recvBuf, payload)
		}
		return sendSize, nil
	}

	h := b.participants[0]
	n, err := receiveFromHandle(ctx, b.cache, h, recvBuf[:recvSize])
	if err != nil {
		return 0, wrapErr("broadcast", "sendrecv", err)
	}
	if n == 0 {
		_ = h.Close(true, false)
	}
	return n, nil
}

// Close write-closes every peer handle for the root view; a no-op for the
// non-root view, whose single handle drains to EOS naturally.
func (b *Broadcast) Close(closeWrite, closeRead bool) error {
	if b.root {
		for _, h := range b.participants {
			if err := h.Close(true, false); err != nil {
				return err
			}
		}
	}
	return nil
}
