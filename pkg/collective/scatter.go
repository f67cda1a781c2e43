package collective

import "context"

// Scatter implements partitioned distribution of a buffer. Only
// SendRecv is valid.
type Scatter struct {
	base
}

// NewScatter constructs a Scatter strategy; see NewBroadcast for the
// participants-list convention.
func NewScatter(participants []Handle, nparticipants, rank int, root bool, uniqtag int) (*Scatter, error) {
	b, err := newBase("scatter", participants, nparticipants, rank, root, uniqtag)
	if err != nil {
		return nil, err
	}
	return &Scatter{base: b}, nil
}

// SendRecv partitions sendBuf[:sendSize] into per-rank shares and
// distributes them (root), or receives this rank's share (non-root).
// recvBuf must be non-nil unconditionally, even when this rank's share is
// zero bytes.
func (s *Scatter) SendRecv(ctx context.Context, sendBuf []byte, sendSize int, recvBuf []byte, recvSize int, datasize int) (int, error) {
	if recvBuf == nil {
		return 0, wrapErr("scatter", "sendrecv", ErrBadAddress)
	}

	if s.root {
		if sendBuf == nil {
			return 0, wrapErr("scatter", "sendrecv", ErrBadAddress)
		}

		cs, err := newChunkSizes(sendSize, datasize, s.nparticipants)
		if err != nil {
			return 0, wrapErr("scatter", "sendrecv", err)
		}

		selfShare := cs.chunk(0)
		if recvSize < selfShare {
			return 0, wrapErr("scatter", "sendrecv", ErrInvalidArgument)
		}
		copy(recvBuf, sendBuf[:selfShare])

		offset := selfShare
		for i, h := range s.participants {
			peerRank := i + 1
			n := cs.chunk(peerRank)
			if _, err := h.Send(ctx, sendBuf[offset:offset+n]); err != nil {
				return 0, wrapErr("scatter", "sendrecv", ErrConnectionReset)
			}
			offset += n
		}

		return selfShare, nil
	}

	h := s.participants[0]
	n, err := receiveFromHandle(ctx, s.cache, h, recvBuf[:recvSize])
	if err != nil {
		return 0, wrapErr("scatter", "sendrecv", err)
	}
	return n, nil
}

// Close write-closes every peer handle for the root view; a no-op for the
// non-root view.
func (s *Scatter) Close(closeWrite, closeRead bool) error {
	if s.root {
		for _, h := range s.participants {
			if err := h.Close(true, false); err != nil {
				return err
			}
		}
	}
	return nil
}
