package collective

import (
	"context"
	"errors"
)

// FanOut implements streaming one-to-many distribution. Send
// round-robins across every owned Handle; Probe and Receive always operate
// on participants[0].
type FanOut struct {
	base
	cursor int
}

// NewFanOut constructs a FanOut strategy; see NewBroadcast for the
// participants-list convention.
func NewFanOut(participants []Handle, nparticipants, rank int, root bool, uniqtag int) (*FanOut, error) {
	b, err := newBase("fanout", participants, nparticipants, rank, root, uniqtag)
	if err != nil {
		return nil, err
	}
	return &FanOut{base: b}, nil
}

// Probe checks participants[0] only. On EOS the Handle at index 0 (the one
// actually probed) is removed from the set and closed, rather than some
// other index, since nothing else here keeps the list ordered by anything
// but send rotation.
func (fo *FanOut) Probe(ctx context.Context, blocking bool) (int, error) {
	if len(fo.participants) == 0 {
		return 0, wrapErr("fanout", "probe", ErrConnectionReset)
	}

	h := fo.participants[0]
	size, err := h.Probe(ctx, blocking)
	if err != nil {
		if errors.Is(err, ErrWouldBlock) {
			return 0, ErrWouldBlock
		}
		return 0, wrapErr("fanout", "probe", err)
	}

	if size == 0 {
		_ = h.Close(true, true)
		fo.participants = removeAt(fo.participants, 0)
		if fo.cursor > 0 && fo.cursor >= len(fo.participants) && len(fo.participants) > 0 {
			fo.cursor = fo.cursor % len(fo.participants)
		}
		return 0, nil
	}

	fo.cache.set(h, cachedProbe{pending: true, size: size})
	return size, nil
}

// Receive reads from participants[0], the same Handle Probe operates on.
func (fo *FanOut) Receive(ctx context.Context, buf []byte) (int, error) {
	if len(fo.participants) == 0 {
		return 0, wrapErr("fanout", "receive", ErrConnectionReset)
	}
	n, err := receiveFromHandle(ctx, fo.cache, fo.participants[0], buf)
	if err != nil {
		return 0, wrapErr("fanout", "receive", err)
	}
	return n, nil
}

// Send picks the Handle at the current cursor, sends to it, and advances
// the cursor modulo the participant count unconditionally, even on a send
// failure: skipping the advance would let one dead peer starve every other
// rank's turn.
func (fo *FanOut) Send(ctx context.Context, buf []byte) (int, error) {
	if len(fo.participants) == 0 {
		return 0, wrapErr("fanout", "send", ErrConnectionReset)
	}

	h := fo.participants[fo.cursor%len(fo.participants)]
	fo.cursor = (fo.cursor + 1) % len(fo.participants)

	n, err := h.Send(ctx, buf)
	if err != nil {
		return 0, wrapErr("fanout", "send", ErrConnectionReset)
	}
	return n, nil
}

// Close write-closes every peer for the root view; a no-op for the
// non-root view.
func (fo *FanOut) Close(closeWrite, closeRead bool) error {
	if fo.root {
		for _, h := range fo.participants {
			if err := h.Close(true, false); err != nil {
				return err
			}
		}
	}
	return nil
}
