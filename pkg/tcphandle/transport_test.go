package tcphandle

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mtcl-go/collectives/internal/config"
	"github.com/stretchr/testify/require"
)

// freePorts grabs n loopback ports by briefly listening on ":0", so the
// generated cluster config points at addresses that are actually free.
func freePorts(t *testing.T, n int) []string {
	t.Helper()
	addrs := make([]string, n)
	for i := range addrs {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addrs[i] = ln.Addr().String()
		require.NoError(t, ln.Close())
	}
	return addrs
}

func TestDialEstablishesFullMeshAndExchangesFrames(t *testing.T) {
	names := []string{"p0", "p1", "p2"}
	addrs := freePorts(t, len(names))
	certDir := t.TempDir()
	// GenerateCertificates and the config loaders only accept paths under
	// the working directory.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(certDir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, GenerateCertificates(names, addrs, certDir))

	rootCAs, err := config.LoadCertPool(filepath.Join(certDir, "ca.crt"))
	require.NoError(t, err)

	type result struct {
		idx     int
		handles map[int]*Handle
		ln      net.Listener
		err     error
	}
	results := make(chan result, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(idx int, name string) {
			defer wg.Done()
			cert, err := config.LoadKeyPair(
				filepath.Join(certDir, name+".crt"),
				filepath.Join(certDir, name+".key"),
			)
			if err != nil {
				results <- result{idx: idx, err: err}
				return
			}
			handles, ln, err := Dial(Config{
				Self:        idx,
				Names:       names,
				Addresses:   addrs,
				Certificate: cert,
				RootCAs:     rootCAs,
			})
			results <- result{idx: idx, handles: handles, ln: ln, err: err}
		}(i, name)
	}
	wg.Wait()
	close(results)

	byIdx := make(map[int]result, len(names))
	for r := range results {
		require.NoError(t, r.err)
		byIdx[r.idx] = r
	}
	defer func() {
		for _, r := range byIdx {
			_ = r.ln.Close()
		}
	}()

	require.Len(t, byIdx[0].handles, 2)
	require.Len(t, byIdx[1].handles, 2)
	require.Len(t, byIdx[2].handles, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h01 := byIdx[0].handles[1]
	h10 := byIdx[1].handles[0]

	_, err = h01.Send(ctx, []byte("hello"))
	require.NoError(t, err)

	size, err := h10.Probe(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 5, size)

	buf := make([]byte, 5)
	n, err := h10.Receive(ctx, buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))
}

func TestHandleCloseWriteSendsEOS(t *testing.T) {
	names := []string{"p0", "p1"}
	addrs := freePorts(t, len(names))
	certDir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(certDir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, GenerateCertificates(names, addrs, certDir))

	rootCAs, err := config.LoadCertPool(filepath.Join(certDir, "ca.crt"))
	require.NoError(t, err)

	type result struct {
		handles map[int]*Handle
		ln      net.Listener
		err     error
	}
	results := make([]result, 2)
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(idx int, name string) {
			defer wg.Done()
			cert, err := config.LoadKeyPair(
				filepath.Join(certDir, name+".crt"),
				filepath.Join(certDir, name+".key"),
			)
			if err != nil {
				results[idx] = result{err: err}
				return
			}
			handles, ln, err := Dial(Config{
				Self:        idx,
				Names:       names,
				Addresses:   addrs,
				Certificate: cert,
				RootCAs:     rootCAs,
			})
			results[idx] = result{handles: handles, ln: ln, err: err}
		}(i, name)
	}
	wg.Wait()

	require.NoError(t, results[0].err)
	require.NoError(t, results[1].err)
	defer results[0].ln.Close()
	defer results[1].ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h01 := results[0].handles[1]
	h10 := results[1].handles[0]

	require.NoError(t, h01.Close(true, false))

	size, err := h10.Probe(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 0, size)
}
