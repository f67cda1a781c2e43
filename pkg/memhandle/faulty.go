package memhandle

import (
	"context"
	"sync"

	"github.com/mtcl-go/collectives/pkg/collective"
)

// Behavior describes the fault a FaultyHandle should inject. It is used to
// exercise a collective's error handling against an adversarial or
// simply broken peer without standing up real network failures.
type Behavior struct {
	// DropSends silently discards outgoing frames instead of delivering
	// them; the caller observes a successful Send.
	DropSends bool

	// FailSendsAfter makes Send fail with ErrConnectionReset once more
	// than this many sends have succeeded. Zero disables the limit.
	FailSendsAfter int

	// CorruptFirstByte flips every bit of the first byte of each frame
	// before delivery.
	CorruptFirstByte bool

	// TruncateSends delivers only the first half of each frame.
	TruncateSends bool

	// FailProbesAfter makes Probe fail with ErrConnectionReset once more
	// than this many probes have succeeded. Zero disables the limit.
	FailProbesAfter int
}

// FaultyHandle wraps a collective.Handle and injects the configured
// Behavior on the write side, the read side, or both.
type FaultyHandle struct {
	inner    collective.Handle
	behavior Behavior

	mu         sync.Mutex
	sendCount  int
	probeCount int
}

var _ collective.Handle = (*FaultyHandle)(nil)

// NewFaultyHandle wraps inner with the given fault-injection Behavior.
func NewFaultyHandle(inner collective.Handle, behavior Behavior) *FaultyHandle {
	return &FaultyHandle{inner: inner, behavior: behavior}
}

func (f *FaultyHandle) Probe(ctx context.Context, blocking bool) (int, error) {
	f.mu.Lock()
	f.probeCount++
	count := f.probeCount
	f.mu.Unlock()

	if f.behavior.FailProbesAfter > 0 && count > f.behavior.FailProbesAfter {
		return 0, collective.ErrConnectionReset
	}

	return f.inner.Probe(ctx, blocking)
}

func (f *FaultyHandle) Receive(ctx context.Context, buf []byte) (int, error) {
	return f.inner.Receive(ctx, buf)
}

func (f *FaultyHandle) Send(ctx context.Context, buf []byte) (int, error) {
	f.mu.Lock()
	f.sendCount++
	count := f.sendCount
	f.mu.Unlock()

	if f.behavior.FailSendsAfter > 0 && count > f.behavior.FailSendsAfter {
		return 0, collective.ErrConnectionReset
	}

	if f.behavior.DropSends {
		return len(buf), nil
	}

	payload := buf
	if f.behavior.CorruptFirstByte && len(payload) > 0 {
		corrupted := append([]byte(nil), payload...)
		corrupted[0] ^= 0xFF
		payload = corrupted
	}
	if f.behavior.TruncateSends && len(payload) > 0 {
		payload = payload[:len(payload)/2]
	}

	return f.inner.Send(ctx, payload)
}

func (f *FaultyHandle) Peek() bool { return f.inner.Peek() }

func (f *FaultyHandle) Close(closeWrite, closeRead bool) error {
	return f.inner.Close(closeWrite, closeRead)
}
