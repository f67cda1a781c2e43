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

// TestScatterSplitsUnevenBuffer covers n=3, datasize=1,
// sendbuf="abcdefg" (7 bytes), shares {3,2,2}.
func TestScatterSplitsUnevenBuffer(t *testing.T) {
	rootToP1, p1ToRoot := memhandle.NewPair()
	rootToP2, p2ToRoot := memhandle.NewPair()

	root, err := collective.NewScatter([]collective.Handle{rootToP1, rootToP2}, 3, 0, true, 0)
	require.NoError(t, err)
	p1, err := collective.NewScatter([]collective.Handle{p1ToRoot}, 3, 1, false, 0)
	require.NoError(t, err)
	p2, err := collective.NewScatter([]collective.Handle{p2ToRoot}, 3, 2, false, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var wg sync.WaitGroup
	recvBufs := make([][]byte, 2)
	results := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		buf := make([]byte, 2)
		_, err := p1.SendRecv(ctx, nil, 0, buf, 2, 1)
		recvBufs[0] = buf
		results <- err
	}()
	go func() {
		defer wg.Done()
		buf := make([]byte, 2)
		_, err := p2.SendRecv(ctx, nil, 0, buf, 2, 1)
		recvBufs[1] = buf
		results <- err
	}()

	rootRecv := make([]byte, 3)
	n, err := root.SendRecv(ctx, []byte("abcdefg"), 7, rootRecv, 3, 1)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, "abc", string(rootRecv))

	wg.Wait()
	close(results)
	for err := range results {
		require.NoError(t, err)
	}
	require.Equal(t, "de", string(recvBufs[0]))
	require.Equal(t, "fg", string(recvBufs[1]))
}

// TestScatterBufferTooSmall covers root's recvsize smaller than its own
// chunk, which must fail with InvalidArgument before any bytes reach peers.
func TestScatterBufferTooSmall(t *testing.T) {
	rootToP1, _ := memhandle.NewPair()

	root, err := collective.NewScatter([]collective.Handle{rootToP1}, 2, 0, true, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	recvBuf := make([]byte, 1)
	_, err = root.SendRecv(ctx, []byte("abcd"), 4, recvBuf, 1, 1)
	require.ErrorIs(t, err, collective.ErrInvalidArgument)
}

func TestScatterRejectsNilRecvBuf(t *testing.T) {
	rootToP1, _ := memhandle.NewPair()
	root, err := collective.NewScatter([]collective.Handle{rootToP1}, 2, 0, true, 0)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = root.SendRecv(ctx, []byte("ab"), 2, nil, 0, 1)
	require.ErrorIs(t, err, collective.ErrBadAddress)
}
