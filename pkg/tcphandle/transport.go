// Package tcphandle implements collective.Handle over long-lived mTLS TCP
// connections, one per peer, with a 4-byte big-endian length prefix per
// frame (a 0-length frame is EOS, matching the Handle contract directly).
package tcphandle

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"time"

	"github.com/mtcl-go/collectives/pkg/collective"
	"golang.org/x/sync/errgroup"
)

// Config configures the mesh of mTLS connections dialed/accepted by Dial.
type Config struct {
	Self        int
	Names       []string
	Addresses   []string
	Certificate tls.Certificate
	RootCAs     *x509.CertPool
}

// Dial establishes mTLS connections with every other party named in
// cfg.Names/Addresses and returns one collective.Handle per peer index.
// Each party dials every higher-indexed peer and accepts from every
// lower-indexed one, so the handshake never deadlocks on simultaneous dials.
func Dial(cfg Config) (map[int]*Handle, net.Listener, error) {
	if cfg.RootCAs == nil {
		return nil, nil, errors.New("tcphandle: root CA pool required")
	}
	if cfg.Self < 0 || cfg.Self >= len(cfg.Names) {
		return nil, nil, fmt.Errorf("tcphandle: invalid self index %d", cfg.Self)
	}
	if len(cfg.Names) != len(cfg.Addresses) {
		return nil, nil, errors.New("tcphandle: names/addresses length mismatch")
	}
	if len(cfg.Names) < 2 {
		return nil, nil, errors.New("tcphandle: at least two parties required")
	}

	handles := make(map[int]*Handle)
	var mu sync.Mutex

	serverTLS := &tls.Config{
		Certificates: []tls.Certificate{cfg.Certificate},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    cfg.RootCAs,
		MinVersion:   tls.VersionTLS12,
	}

	ln, err := tls.Listen("tcp", cfg.Addresses[cfg.Self], serverTLS)
	if err != nil {
		return nil, nil, fmt.Errorf("tcphandle: listen: %w", err)
	}

	expectedPeers := len(cfg.Names) - 1
	var ready sync.WaitGroup
	ready.Add(expectedPeers)
	errCh := make(chan error, expectedPeers)
	done := make(chan struct{})

	register := func(idx int, conn net.Conn) error {
		mu.Lock()
		if _, exists := handles[idx]; exists {
			mu.Unlock()
			return fmt.Errorf("tcphandle: duplicate connection from peer %d", idx)
		}
		handles[idx] = newHandle(conn)
		mu.Unlock()
		ready.Done()
		return nil
	}

	go func() {
		// The number of inbound connections we actually accept is
		// cfg.Self (only lower-indexed peers dial us); this loop runs
		// until the listener is closed rather than a fixed count, since
		// ready.Wait() below is what decides when every peer (accepted or
		// dialed) has registered.
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-done:
					return
				default:
				}
				errCh <- fmt.Errorf("tcphandle: accept: %w", err)
				return
			}
			tlsConn, ok := conn.(*tls.Conn)
			if !ok {
				errCh <- closeWithErr(conn, errors.New("tcphandle: non-TLS connection accepted"))
				return
			}
			if err := tlsConn.Handshake(); err != nil {
				errCh <- closeWithErr(tlsConn, fmt.Errorf("tcphandle: handshake: %w", err))
				return
			}
			peerIdx, err := readPeerID(tlsConn)
			if err != nil {
				errCh <- closeWithErr(tlsConn, fmt.Errorf("tcphandle: read peer id: %w", err))
				return
			}
			if int(peerIdx) >= len(cfg.Names) {
				errCh <- closeWithErr(tlsConn, fmt.Errorf("tcphandle: unexpected peer id %d", peerIdx))
				return
			}
			if err := register(int(peerIdx), tlsConn); err != nil {
				errCh <- closeWithErr(tlsConn, err)
				return
			}
		}
	}()

	clientTLSBase := &tls.Config{
		Certificates: []tls.Certificate{cfg.Certificate},
		RootCAs:      cfg.RootCAs,
		MinVersion:   tls.VersionTLS12,
	}

	dialCtx, cancelDial := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelDial()

	var g errgroup.Group
	for peer := range cfg.Names {
		if peer <= cfg.Self {
			continue // lower-indexed peers dial us and we accept them; we only dial upward
		}
		peerIdx := peer
		g.Go(func() error {
			addr := cfg.Addresses[peerIdx]
			tlsCfg := clientTLSBase.Clone()
			tlsCfg.ServerName = cfg.Names[peerIdx]
			for {
				select {
				case <-dialCtx.Done():
					return fmt.Errorf("tcphandle: dial peer %d: %w", peerIdx, dialCtx.Err())
				default:
				}
				conn, err := tls.Dial("tcp", addr, tlsCfg)
				if err != nil {
					time.Sleep(200 * time.Millisecond)
					continue
				}
				if err := writePeerID(conn, uint32(cfg.Self)); err != nil {
					_ = conn.Close()
					time.Sleep(200 * time.Millisecond)
					continue
				}
				if err := register(peerIdx, conn); err != nil {
					return closeWithErr(conn, err)
				}
				return nil
			}
		})
	}

	go func() {
		if err := g.Wait(); err != nil {
			errCh <- err
		}
	}()

	go func() {
		ready.Wait()
		close(done)
	}()

	select {
	case <-done:
		return handles, ln, nil
	case err := <-errCh:
		cancelDial()
		_ = ln.Close()
		return nil, nil, err
	case <-time.After(10 * time.Second):
		cancelDial()
		_ = ln.Close()
		return nil, nil, errors.New("tcphandle: timeout waiting for peer connections")
	}
}

// inboundFrame is what the reader goroutine hands to Probe: either a frame
// (possibly zero-length, meaning EOS) or a terminal read error.
type inboundFrame struct {
	data []byte
	err  error
}

// Handle implements collective.Handle over one mTLS connection.
type Handle struct {
	conn   net.Conn
	recvCh chan inboundFrame

	mu          sync.Mutex
	probed      bool
	probedFrame []byte
	eos         bool

	writeMu     sync.Mutex
	writeClosed bool
}

var _ collective.Handle = (*Handle)(nil)

func newHandle(conn net.Conn) *Handle {
	h := &Handle{conn: conn, recvCh: make(chan inboundFrame, 1)}
	go h.readLoop()
	return h
}

func (h *Handle) readLoop() {
	for {
		data, err := readFrame(h.conn)
		if err != nil {
			h.recvCh <- inboundFrame{err: err}
			close(h.recvCh)
			return
		}
		h.recvCh <- inboundFrame{data: data}
		if len(data) == 0 {
			close(h.recvCh)
			return
		}
	}
}

func (h *Handle) Probe(ctx context.Context, blocking bool) (int, error) {
	h.mu.Lock()
	if h.probed {
		size := len(h.probedFrame)
		h.mu.Unlock()
		return size, nil
	}
	if h.eos {
		h.mu.Unlock()
		return 0, nil
	}
	h.mu.Unlock()

	if !blocking {
		select {
		case fr, ok := <-h.recvCh:
			return h.consumeInbound(fr, ok)
		default:
			return 0, collective.ErrWouldBlock
		}
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case fr, ok := <-h.recvCh:
		return h.consumeInbound(fr, ok)
	}
}

func (h *Handle) consumeInbound(fr inboundFrame, ok bool) (int, error) {
	if !ok {
		h.mu.Lock()
		h.eos = true
		h.mu.Unlock()
		return 0, nil
	}
	if fr.err != nil {
		if errors.Is(fr.err, io.EOF) {
			h.mu.Lock()
			h.eos = true
			h.mu.Unlock()
			return 0, nil
		}
		return 0, collective.ErrConnectionReset
	}
	if len(fr.data) == 0 {
		h.mu.Lock()
		h.eos = true
		h.mu.Unlock()
		return 0, nil
	}

	h.mu.Lock()
	h.probed = true
	h.probedFrame = fr.data
	h.mu.Unlock()
	return len(fr.data), nil
}

func (h *Handle) Receive(ctx context.Context, buf []byte) (int, error) {
	h.mu.Lock()
	if !h.probed {
		h.mu.Unlock()
		return 0, collective.ErrInvalidArgument
	}
	data := h.probedFrame
	h.probed = false
	h.probedFrame = nil
	h.mu.Unlock()

	return copy(buf, data), nil
}

func (h *Handle) Send(ctx context.Context, buf []byte) (int, error) {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	if h.writeClosed {
		return 0, collective.ErrBadFileDescriptor
	}
	if err := writeFrame(h.conn, buf); err != nil {
		return 0, collective.ErrConnectionReset
	}
	return len(buf), nil
}

func (h *Handle) Peek() bool {
	h.mu.Lock()
	probed := h.probed
	h.mu.Unlock()
	return probed || len(h.recvCh) > 0
}

// Close half-closes the connection. closeWrite sends a zero-length EOS
// frame; closeWrite && closeRead also tears down the underlying socket. A
// TCP connection has no portable independent read half-close once TLS is
// layered on top, so a closeRead-only request only stops this Handle from
// observing further frames locally.
func (h *Handle) Close(closeWrite, closeRead bool) error {
	var err error

	if closeWrite {
		h.writeMu.Lock()
		if !h.writeClosed {
			err = writeFrame(h.conn, nil)
			h.writeClosed = true
		}
		h.writeMu.Unlock()
	}

	if closeRead {
		h.mu.Lock()
		h.eos = true
		h.mu.Unlock()
	}

	if closeWrite && closeRead {
		if cerr := h.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	return err
}

func writeFrame(conn net.Conn, payload []byte) error {
	size := len(payload)
	if size > math.MaxUint32 {
		return fmt.Errorf("tcphandle: frame too large (%d bytes)", size)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(size))
	if _, err := conn.Write(lenBuf[:]); err != nil {
		return err
	}
	if size > 0 {
		if _, err := conn.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

func readFrame(conn net.Conn) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writePeerID(conn net.Conn, id uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], id)
	_, err := conn.Write(buf[:])
	return err
}

func readPeerID(conn net.Conn) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(conn, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func closeWithErr(c io.Closer, base error) error {
	if closeErr := c.Close(); closeErr != nil {
		return fmt.Errorf("%w; close error: %v", base, closeErr)
	}
	return base
}
