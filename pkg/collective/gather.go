package collective

import "context"

// Gather implements the inverse of Scatter. Only SendRecv is valid.
// recvSize is the global buffer size and is meaningful on every rank, since
// it drives the shared chunk arithmetic, even though only the root
// dereferences recvBuf.
type Gather struct {
	base
}

// NewGather constructs a Gather strategy; see NewBroadcast for the
// participants-list convention.
func NewGather(participants []Handle, nparticipants, rank int, root bool, uniqtag int) (*Gather, error) {
	b, err := newBase("gather", participants, nparticipants, rank, root, uniqtag)
	if err != nil {
		return nil, err
	}
	return &Gather{base: b}, nil
}

func (g *Gather) SendRecv(ctx context.Context, sendBuf []byte, sendSize int, recvBuf []byte, recvSize int, datasize int) (int, error) {
	if sendBuf == nil {
		return 0, wrapErr("gather", "sendrecv", ErrBadAddress)
	}

	cs, err := newChunkSizes(recvSize, datasize, g.nparticipants)
	if err != nil {
		return 0, wrapErr("gather", "sendrecv", err)
	}

	if g.root {
		selfShare := cs.chunk(0)
		if sendSize < selfShare {
			return 0, wrapErr("gather", "sendrecv", ErrInvalidArgument)
		}
		if recvBuf == nil {
			return 0, wrapErr("gather", "sendrecv", ErrBadAddress)
		}

		copy(recvBuf[:selfShare], sendBuf[:selfShare])

		for i, h := range g.participants {
			peerRank := i + 1
			c := cs.chunk(peerRank)
			if c == 0 {
				continue
			}
			displ := cs.displacement(peerRank)
			n, rerr := receiveFromHandle(ctx, g.cache, h, recvBuf[displ:displ+c])
			if rerr != nil {
				return 0, wrapErr("gather", "sendrecv", rerr)
			}
			if n <= 0 {
				return n, nil
			}
		}

		return selfShare, nil
	}

	myShare := cs.chunk(g.rank)
	if sendSize < myShare {
		return 0, wrapErr("gather", "sendrecv", ErrInvalidArgument)
	}

	h := g.participants[0]
	if myShare > 0 {
		if _, err := h.Send(ctx, sendBuf[:myShare]); err != nil {
			return 0, wrapErr("gather", "sendrecv", ErrConnectionReset)
		}
	}
	return myShare, nil
}

// Close write-closes every owned handle on both sides, unlike Scatter's
// root-only close.
func (g *Gather) Close(closeWrite, closeRead bool) error {
	for _, h := range g.participants {
		if err := h.Close(true, false); err != nil {
			return err
		}
	}
	return nil
}
