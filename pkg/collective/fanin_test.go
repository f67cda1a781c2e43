package collective_test

import (
	"context"
	"testing"
	"time"

	"github.com/mtcl-go/collectives/pkg/collective"
	"github.com/mtcl-go/collectives/pkg/memhandle"
	"github.com/stretchr/testify/require"
)

// TestFanInDrainsAllPeersThenReportsGroupEOS covers ranks 1 and 2 each
// sending "x" then closing; root drains both messages (in either order)
// and then observes synthetic group EOS.
func TestFanInDrainsAllPeersThenReportsGroupEOS(t *testing.T) {
	rootToP1, p1ToRoot := memhandle.NewPair()
	rootToP2, p2ToRoot := memhandle.NewPair()

	root, err := collective.NewFanIn([]collective.Handle{rootToP1, rootToP2}, 3, 0, true, 0)
	require.NoError(t, err)
	p1, err := collective.NewFanIn([]collective.Handle{p1ToRoot}, 3, 1, false, 0)
	require.NoError(t, err)
	p2, err := collective.NewFanIn([]collective.Handle{p2ToRoot}, 3, 2, false, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = p1.Send(ctx, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, p1.Close(true, false))

	_, err = p2.Send(ctx, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, p2.Close(true, false))

	received := 0
	for i := 0; i < 2; i++ {
		size, err := root.Probe(ctx, true)
		require.NoError(t, err)
		require.Equal(t, 1, size)

		buf := make([]byte, 1)
		n, err := root.Receive(ctx, buf)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, "x", string(buf))
		received++
	}
	require.Equal(t, 2, received)

	size, err := root.Probe(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 0, size)
}

func TestFanInNonBlockingProbeSkipsQuietHandles(t *testing.T) {
	rootToP1, p1ToRoot := memhandle.NewPair()
	rootToP2, p2ToRoot := memhandle.NewPair()

	root, err := collective.NewFanIn([]collective.Handle{rootToP1, rootToP2}, 3, 0, true, 0)
	require.NoError(t, err)
	p2, err := collective.NewFanIn([]collective.Handle{p2ToRoot}, 3, 2, false, 0)
	require.NoError(t, err)
	_ = p1ToRoot

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// Nobody has sent anything yet: non-blocking probe must not hang.
	_, err = root.Probe(ctx, false)
	require.ErrorIs(t, err, collective.ErrWouldBlock)

	_, err = p2.Send(ctx, []byte("y"))
	require.NoError(t, err)

	size, err := root.Probe(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, size)
}
