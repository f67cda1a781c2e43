package collective

import (
	"context"
	"errors"
	"sync"
)

// cachedProbe is the core-side shadow of a Handle's probed state:
// "pending=true" caches the payload size until the next Receive clears it.
type cachedProbe struct {
	pending bool
	size    int
}

// probeCache holds the Framing Helper's per-Handle probed state, so a
// Handle implementation never needs to expose one itself (see the Handle
// doc comment).
type probeCache struct {
	mu    sync.Mutex
	state map[Handle]cachedProbe
}

func newProbeCache() *probeCache {
	return &probeCache{state: make(map[Handle]cachedProbe)}
}

func (c *probeCache) get(h Handle) (cachedProbe, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.state[h]
	return s, ok
}

func (c *probeCache) set(h Handle, s cachedProbe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state[h] = s
}

func (c *probeCache) clear(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.state, h)
}

// probeHandle implements the Framing Helper's probe half. It returns
// the cached size if h was already probed; otherwise it calls h.Probe and
// normalizes the outcome:
//   - size > 0: cache (size, pending=true), return size.
//   - size == 0: EOS; half-close h for reading, return 0.
//   - ErrConnectionReset from the Handle: treated as graceful EOS.
//   - ErrWouldBlock under non-blocking mode: propagated unchanged.
//   - any other error: surfaced unchanged.
func probeHandle(ctx context.Context, cache *probeCache, h Handle, blocking bool) (int, error) {
	if cached, ok := cache.get(h); ok {
		return cached.size, nil
	}

	size, err := h.Probe(ctx, blocking)
	if err != nil {
		if errors.Is(err, ErrConnectionReset) {
			_ = h.Close(false, true)
			return 0, nil
		}
		if errors.Is(err, ErrWouldBlock) {
			return 0, ErrWouldBlock
		}
		return 0, err
	}

	if size == 0 {
		_ = h.Close(false, true)
		return 0, nil
	}

	cache.set(h, cachedProbe{pending: true, size: size})
	return size, nil
}

// receiveFromHandle implements the Framing Helper's receive half. If
// h has not been probed yet, it probes (blocking) first and propagates that
// result. If the probed size exceeds len(buf), it fails with
// ErrBufferTooSmall without consuming the frame. Otherwise it clears the
// probed state and receives exactly the probed size (capped to len(buf)).
func receiveFromHandle(ctx context.Context, cache *probeCache, h Handle, buf []byte) (int, error) {
	cached, ok := cache.get(h)
	if !ok {
		size, err := probeHandle(ctx, cache, h, true)
		if err != nil {
			return 0, err
		}
		if size == 0 {
			return 0, nil
		}
		cached, _ = cache.get(h)
	}

	if cached.size > len(buf) {
		return 0, ErrBufferTooSmall
	}

	cache.clear(h)

	n := cached.size
	if n > len(buf) {
		n = len(buf)
	}
	return h.Receive(ctx, buf[:n])
}
