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

// TestAllToAllExchangesPerDestinationChunks covers n=3, datasize=1, each
// rank's sendbuf holds one 2-byte chunk per destination rank
// (rank s's chunk for dest j is "sj"); after the exchange rank r's recvbuf
// is the concatenation of "0r","1r","2r".
func TestAllToAllExchangesPerDestinationChunks(t *testing.T) {
	rootToP1, p1ToRoot := memhandle.NewPair()
	rootToP2, p2ToRoot := memhandle.NewPair()

	root, err := collective.NewAllToAll([]collective.Handle{rootToP1, rootToP2}, 3, 0, true, 0)
	require.NoError(t, err)
	p1, err := collective.NewAllToAll([]collective.Handle{p1ToRoot}, 3, 1, false, 0)
	require.NoError(t, err)
	p2, err := collective.NewAllToAll([]collective.Handle{p2ToRoot}, 3, 2, false, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sendBufs := [][]byte{[]byte("000102"), []byte("101112"), []byte("202122")}
	want := []string{"001020", "011121", "021222"}

	var wg sync.WaitGroup
	recvBufs := make([][]byte, 2)
	results := make(chan error, 2)
	for i, p := range []*collective.AllToAll{p1, p2} {
		wg.Add(1)
		go func(p *collective.AllToAll, idx int) {
			defer wg.Done()
			buf := make([]byte, 6)
			_, err := p.SendRecv(ctx, sendBufs[idx+1], 6, buf, 6, 1)
			recvBufs[idx] = buf
			results <- err
		}(p, i)
	}

	rootRecv := make([]byte, 6)
	_, err = root.SendRecv(ctx, sendBufs[0], 6, rootRecv, 6, 1)
	require.NoError(t, err)

	wg.Wait()
	close(results)
	for err := range results {
		require.NoError(t, err)
	}

	require.Equal(t, want[0], string(rootRecv))
	require.Equal(t, want[1], string(recvBufs[0]))
	require.Equal(t, want[2], string(recvBufs[1]))
}

func TestAllToAllRejectsUndersizedRecvBuf(t *testing.T) {
	rootToP1, _ := memhandle.NewPair()
	root, err := collective.NewAllToAll([]collective.Handle{rootToP1}, 2, 0, true, 0)
	require.NoError(t, err)

	ctx := context.Background()
	recvBuf := make([]byte, 1)
	_, err = root.SendRecv(ctx, []byte("ab"), 2, recvBuf, 1, 1)
	require.ErrorIs(t, err, collective.ErrInvalidArgument)
}
