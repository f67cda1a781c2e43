package collective_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mtcl-go/collectives/pkg/collective"
	"github.com/mtcl-go/collectives/pkg/memhandle"
	"github.com/stretchr/testify/require"
)

// TestBroadcastReachesEveryPeer covers n=3, root=0 sending "hello"; ranks 1
// and 2 each receive it, and root's own recvbuf mirrors what it sent.
func TestBroadcastReachesEveryPeer(t *testing.T) {
	rootToP1, p1ToRoot := memhandle.NewPair()
	rootToP2, p2ToRoot := memhandle.NewPair()

	root, err := collective.NewBroadcast([]collective.Handle{rootToP1, rootToP2}, 3, 0, true, 0)
	require.NoError(t, err)
	p1, err := collective.NewBroadcast([]collective.Handle{p1ToRoot}, 3, 1, false, 0)
	require.NoError(t, err)
	p2, err := collective.NewBroadcast([]collective.Handle{p2ToRoot}, 3, 2, false, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var wg sync.WaitGroup
	results := make(chan error, 2)
	recvBufs := make([][]byte, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		buf := make([]byte, 5)
		_, err := p1.SendRecv(ctx, nil, 0, buf, 5, 1)
		recvBufs[0] = buf
		results <- err
	}()
	go func() {
		defer wg.Done()
		buf := make([]byte, 5)
		_, err := p2.SendRecv(ctx, nil, 0, buf, 5, 1)
		recvBufs[1] = buf
		results <- err
	}()

	rootRecv := make([]byte, 5)
	_, err = root.SendRecv(ctx, []byte("hello"), 5, rootRecv, 5, 1)
	require.NoError(t, err)
	require.Equal(t, "hello", string(rootRecv))

	wg.Wait()
	close(results)
	for err := range results {
		require.NoError(t, err)
	}
	require.Equal(t, "hello", string(recvBufs[0]))
	require.Equal(t, "hello", string(recvBufs[1]))
}

func TestBroadcastNonRootObservesEOSAfterRootCloses(t *testing.T) {
	rootToP1, p1ToRoot := memhandle.NewPair()

	root, err := collective.NewBroadcast([]collective.Handle{rootToP1}, 2, 0, true, 0)
	require.NoError(t, err)
	p1, err := collective.NewBroadcast([]collective.Handle{p1ToRoot}, 2, 1, false, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, root.Close(true, false))

	buf := make([]byte, 4)
	n, err := p1.SendRecv(ctx, nil, 0, buf, 4, 1)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
