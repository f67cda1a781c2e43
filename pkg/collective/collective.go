package collective

import (
	"context"
	"fmt"
)

// Collective is the contract shared by every strategy. Operations not
// native to a given pattern return ErrInvalidOperation; the zero-value
// embedding (base) implements that default-reject behavior so each strategy
// need only override what it actually supports.
type Collective interface {
	Probe(ctx context.Context, blocking bool) (size int, err error)
	Send(ctx context.Context, buf []byte) (n int, err error)
	Receive(ctx context.Context, buf []byte) (n int, err error)
	SendRecv(ctx context.Context, sendBuf []byte, sendSize int, recvBuf []byte, recvSize int, datasize int) (n int, err error)
	Peek() bool
	TeamRank() int
	TeamPartitionSize(buffcount int) int
	Close(closeWrite, closeRead bool) error
	Finalize(flag bool, name string) error
}

// base holds the fields and default (reject-everything) behavior common to
// every strategy. Strategies embed base and override the
// operations native to their pattern.
type base struct {
	name         string // strategy name, used in error messages
	participants []Handle
	nparticipants int
	rank         int
	root         bool
	uniqtag      int
	cache        *probeCache
}

func newBase(name string, participants []Handle, nparticipants, rank int, root bool, uniqtag int) (base, error) {
	if nparticipants < 1 {
		return base{}, fmt.Errorf("%w: nparticipants must be >= 1, got %d", ErrInvalidArgument, nparticipants)
	}
	if rank < 0 || rank >= nparticipants {
		return base{}, fmt.Errorf("%w: rank %d out of range [0,%d)", ErrInvalidArgument, rank, nparticipants)
	}
	if root {
		if len(participants) != nparticipants-1 {
			return base{}, fmt.Errorf("%w: root view requires nparticipants-1 handles, got %d for n=%d", ErrInvalidArgument, len(participants), nparticipants)
		}
	} else {
		if len(participants) != 1 {
			return base{}, fmt.Errorf("%w: non-root view requires exactly 1 handle, got %d", ErrInvalidArgument, len(participants))
		}
	}
	return base{
		name:          name,
		participants:  participants,
		nparticipants: nparticipants,
		rank:          rank,
		root:          root,
		uniqtag:       uniqtag,
		cache:         newProbeCache(),
	}, nil
}

func (b *base) Probe(ctx context.Context, blocking bool) (int, error) {
	return 0, invalidOp(b.name, "probe")
}

func (b *base) Send(ctx context.Context, buf []byte) (int, error) {
	return 0, invalidOp(b.name, "send")
}

func (b *base) Receive(ctx context.Context, buf []byte) (int, error) {
	return 0, invalidOp(b.name, "receive")
}

func (b *base) SendRecv(ctx context.Context, sendBuf []byte, sendSize int, recvBuf []byte, recvSize int, datasize int) (int, error) {
	return 0, invalidOp(b.name, "sendrecv")
}

// Peek reports whether any participant Handle has data ready, per the base
// CollectiveImpl::peek() behavior. No strategy overrides it, so FanOut's Peek
// also watches every participant, not only participants[0].
func (b *base) Peek() bool {
	for _, h := range b.participants {
		if h.Peek() {
			return true
		}
	}
	return false
}

func (b *base) TeamRank() int { return b.rank }

// TeamPartitionSize returns this rank's share of a buffcount-element buffer
// split evenly across nparticipants, with the first (buffcount mod n) ranks
// getting one extra element.
func (b *base) TeamPartitionSize(buffcount int) int {
	partition := buffcount / b.nparticipants
	r := buffcount % b.nparticipants
	if r != 0 && b.rank < r {
		partition++
	}
	return partition
}

func (b *base) Finalize(flag bool, name string) error { return nil }

func (b *base) Close(closeWrite, closeRead bool) error { return nil }
