package collective

import (
	"context"
	"errors"
)

// FanIn implements streaming many-to-one multiplexing with any-source,
// round-robin probing and EOS draining. Valid operations are Probe,
// Receive, Send (used by a non-root to multicast to its own, usually
// single-element, handle list), and Close.
type FanIn struct {
	base
	cursor    int
	probedIdx int
}

// NewFanIn constructs a FanIn strategy; see NewBroadcast for the
// participants-list convention.
func NewFanIn(participants []Handle, nparticipants, rank int, root bool, uniqtag int) (*FanIn, error) {
	b, err := newBase("fanin", participants, nparticipants, rank, root, uniqtag)
	if err != nil {
		return nil, err
	}
	return &FanIn{base: b, probedIdx: -1}, nil
}

// Probe scans participants round-robin starting at the internal cursor.
// A Handle that reports EOS is removed from the set and closed; the scan
// continues looking for real data. Once the set is empty, Probe returns a
// synthetic group-level EOS (size 0, nil error) so the caller observes the
// fan-in has fully drained.
//
// In blocking mode Probe keeps scanning (wrapping the cursor) until a
// message is found or the set empties; in non-blocking mode it gives up
// after one full pass with no hit and returns ErrWouldBlock.
func (f *FanIn) Probe(ctx context.Context, blocking bool) (int, error) {
	for {
		if len(f.participants) == 0 {
			f.cursor = 0
			return 0, nil
		}

		scanned, n := 0, len(f.participants)
		for scanned < n {
			if err := ctx.Err(); err != nil {
				return 0, err
			}

			idx := f.cursor % len(f.participants)
			h := f.participants[idx]
			size, err := h.Probe(ctx, false)

			switch {
			case err == nil && size == 0:
				_ = h.Close(true, true)
				f.participants = removeAt(f.participants, idx)
				if len(f.participants) == 0 {
					f.cursor = 0
					return 0, nil
				}
				n = len(f.participants)
				scanned = 0
				continue

			case err == nil && size > 0:
				f.cache.set(h, cachedProbe{pending: true, size: size})
				f.probedIdx = idx
				f.cursor = (idx + 1) % len(f.participants)
				return size, nil

			case errors.Is(err, ErrWouldBlock):
				f.cursor = (idx + 1) % len(f.participants)
				scanned++

			default:
				return 0, wrapErr("fanin", "probe", err)
			}
		}

		if !blocking {
			return 0, ErrWouldBlock
		}
	}
}

// Receive must be preceded by a successful Probe; it reads from the Handle
// that Probe last found data on.
func (f *FanIn) Receive(ctx context.Context, buf []byte) (int, error) {
	if f.probedIdx < 0 || f.probedIdx >= len(f.participants) {
		return 0, wrapErr("fanin", "receive", ErrInvalidArgument)
	}

	h := f.participants[f.probedIdx]
	f.probedIdx = -1

	n, err := receiveFromHandle(ctx, f.cache, h, buf)
	if err != nil {
		return 0, wrapErr("fanin", "receive", err)
	}
	return n, nil
}

// Send fans a message out to every Handle this strategy owns (used by a
// non-root to multicast into the fan-in).
func (f *FanIn) Send(ctx context.Context, buf []byte) (int, error) {
	for _, h := range f.participants {
		if _, err := h.Send(ctx, buf); err != nil {
			return 0, wrapErr("fanin", "send", ErrConnectionReset)
		}
	}
	return len(buf), nil
}

// Close write-closes the single owned Handle for a non-root (sending EOS
// upstream); it is a no-op for the root, whose EOS arrives naturally as
// each source drains.
func (f *FanIn) Close(closeWrite, closeRead bool) error {
	if !f.root && len(f.participants) > 0 {
		return f.participants[0].Close(true, false)
	}
	return nil
}

func removeAt(hs []Handle, idx int) []Handle {
	out := make([]Handle, 0, len(hs)-1)
	out = append(out, hs[:idx]...)
	return append(out, hs[idx+1:]...)
}
