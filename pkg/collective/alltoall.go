package collective

import "context"

// AllToAll implements full personalized exchange. Only SendRecv is
// valid. Every participant contributes sendSize bytes, partitioned into n
// chunks of chunk(i) bytes destined for rank i (the partitioning uses
// sendSize, not recvSize: every rank contributes the same amount). Every
// participant must supply recvSize >= chunk(rank)*n; a smaller recvSize is
// rejected with ErrInvalidArgument, and exactly chunk(rank)*n bytes are
// written.
type AllToAll struct {
	base
}

// NewAllToAll constructs an AllToAll strategy; see NewBroadcast for the
// participants-list convention. Unlike the other rooted collectives, every
// rank here performs the same amount of work except the root, which also
// routes; "root" still designates the rank that centralizes the exchange.
func NewAllToAll(participants []Handle, nparticipants, rank int, root bool, uniqtag int) (*AllToAll, error) {
	b, err := newBase("alltoall", participants, nparticipants, rank, root, uniqtag)
	if err != nil {
		return nil, err
	}
	return &AllToAll{base: b}, nil
}

func (a *AllToAll) SendRecv(ctx context.Context, sendBuf []byte, sendSize int, recvBuf []byte, recvSize int, datasize int) (int, error) {
	if sendBuf == nil || recvBuf == nil {
		return 0, wrapErr("alltoall", "sendrecv", ErrBadAddress)
	}

	cs, err := newChunkSizes(sendSize, datasize, a.nparticipants)
	if err != nil {
		return 0, wrapErr("alltoall", "sendrecv", err)
	}

	myTotal := cs.chunk(a.rank) * a.nparticipants
	if recvSize < myTotal {
		return 0, wrapErr("alltoall", "sendrecv", ErrInvalidArgument)
	}

	if !a.root {
		h := a.participants[0]
		if _, err := h.Send(ctx, sendBuf[:sendSize]); err != nil {
			return 0, wrapErr("alltoall", "sendrecv", ErrConnectionReset)
		}
		n, rerr := receiveFromHandle(ctx, a.cache, h, recvBuf[:myTotal])
		if rerr != nil {
			return 0, wrapErr("alltoall", "sendrecv", rerr)
		}
		if n == 0 {
			_ = h.Close(false, true)
		}
		return myTotal, nil
	}

	// Root: centralized routing.
	n := a.nparticipants
	staging := make([]byte, sendSize*(n-1))
	for i, h := range a.participants {
		slice := staging[i*sendSize : (i+1)*sendSize]
		rn, rerr := receiveFromHandle(ctx, a.cache, h, slice)
		if rerr != nil {
			return 0, wrapErr("alltoall", "sendrecv", rerr)
		}
		if rn <= 0 {
			return rn, nil
		}
	}

	displ := 0
	for destRank := 0; destRank < n; destRank++ {
		c := cs.chunk(destRank)

		var dest []byte
		if destRank == 0 {
			dest = recvBuf[:c*n]
		} else {
			dest = make([]byte, c*n)
		}

		if c > 0 {
			copy(dest[0:c], sendBuf[displ:displ+c])
			offset := c
			for j := 1; j < n; j++ {
				srcOffset := (j-1)*sendSize + displ
				copy(dest[offset:offset+c], staging[srcOffset:srcOffset+c])
				offset += c
			}
		}

		if destRank != 0 {
			peer := a.participants[destRank-1]
			if _, err := peer.Send(ctx, dest); err != nil {
				return 0, wrapErr("alltoall", "sendrecv", ErrConnectionReset)
			}
		}

		displ += c
	}

	return myTotal, nil
}

// Close write-closes every owned handle.
func (a *AllToAll) Close(closeWrite, closeRead bool) error {
	for _, h := range a.participants {
		if err := h.Close(true, false); err != nil {
			return err
		}
	}
	return nil
}
