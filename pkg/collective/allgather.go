package collective

import "context"

// AllGather implements Gather followed by a Broadcast of the assembled
// result. Only SendRecv is valid.
type AllGather struct {
	base
}

// NewAllGather constructs an AllGather strategy; see NewBroadcast for the
// participants-list convention.
func NewAllGather(participants []Handle, nparticipants, rank int, root bool, uniqtag int) (*AllGather, error) {
	b, err := newBase("allgather", participants, nparticipants, rank, root, uniqtag)
	if err != nil {
		return nil, err
	}
	return &AllGather{base: b}, nil
}

func (a *AllGather) SendRecv(ctx context.Context, sendBuf []byte, sendSize int, recvBuf []byte, recvSize int, datasize int) (int, error) {
	if sendBuf == nil || recvBuf == nil {
		return 0, wrapErr("allgather", "sendrecv", ErrBadAddress)
	}

	cs, err := newChunkSizes(recvSize, datasize, a.nparticipants)
	if err != nil {
		return 0, wrapErr("allgather", "sendrecv", err)
	}

	if a.root {
		selfShare := cs.chunk(0)
		if sendSize < selfShare {
			return 0, wrapErr("allgather", "sendrecv", ErrInvalidArgument)
		}
		copy(recvBuf[:selfShare], sendBuf[:selfShare])

		for i, h := range a.participants {
			peerRank := i + 1
			c := cs.chunk(peerRank)
			if c == 0 {
				continue
			}
			displ := cs.displacement(peerRank)
			n, rerr := receiveFromHandle(ctx, a.cache, h, recvBuf[displ:displ+c])
			if rerr != nil {
				return 0, wrapErr("allgather", "sendrecv", rerr)
			}
			if n <= 0 {
				return n, nil
			}
		}

		for _, h := range a.participants {
			if _, err := h.Send(ctx, recvBuf[:recvSize]); err != nil {
				return 0, wrapErr("allgather", "sendrecv", ErrConnectionReset)
			}
		}

		return selfShare, nil
	}

	myShare := cs.chunk(a.rank)
	if sendSize < myShare {
		return 0, wrapErr("allgather", "sendrecv", ErrInvalidArgument)
	}

	h := a.participants[0]
	if myShare > 0 {
		if _, err := h.Send(ctx, sendBuf[:myShare]); err != nil {
			return 0, wrapErr("allgather", "sendrecv", ErrConnectionReset)
		}
	}

	n, rerr := receiveFromHandle(ctx, a.cache, h, recvBuf[:recvSize])
	if rerr != nil {
		return 0, wrapErr("allgather", "sendrecv", rerr)
	}
	if n == 0 {
		_ = h.Close(false, true)
	}

	return myShare, nil
}

// Close write-closes every owned handle on both sides.
func (a *AllGather) Close(closeWrite, closeRead bool) error {
	for _, h := range a.participants {
		if err := h.Close(true, false); err != nil {
			return err
		}
	}
	return nil
}
