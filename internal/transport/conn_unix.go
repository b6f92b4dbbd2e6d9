// internal/transport/conn_unix.go
//go:build unix

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Accepted client socket: blocking whole-frame reads, non-blocking gathered sends.

package transport

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-chat/api"
)

// Conn is an accepted TCP socket addressed by its descriptor.
type Conn struct {
	fd     int
	remote string
	closed bool
}

var _ api.Conn = (*Conn)(nil)

// newConn configures fd for frame reads bounded by readTimeout.
func newConn(fd int, remote string, readTimeout time.Duration) (*Conn, error) {
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, false); err != nil {
		return nil, fmt.Errorf("set blocking fd=%d: %w", fd, err)
	}
	if readTimeout > 0 {
		tv := unix.NsecToTimeval(readTimeout.Nanoseconds())
		if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
			return nil, fmt.Errorf("SO_RCVTIMEO fd=%d: %w", fd, err)
		}
	}
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	return &Conn{fd: fd, remote: remote}, nil
}

// Read waits for len(p) bytes. An orderly shutdown yields io.EOF and a peer
// reset is treated the same way. A read that outlives the receive timeout
// returns whatever arrived together with api.ErrFrameTimeout.
func (c *Conn) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, _, err := unix.Recvfrom(c.fd, p, unix.MSG_WAITALL)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
			return max(n, 0), api.ErrFrameTimeout
		case err == unix.ECONNRESET:
			return 0, io.EOF
		case err != nil:
			return 0, fmt.Errorf("recv fd=%d: %w", c.fd, err)
		case n == 0:
			return 0, io.EOF
		}
		return n, nil
	}
}

// Send writes all buffers in one sendmsg without blocking. When the socket
// buffer takes only part of them the error wraps api.ErrShortSend: the peer's
// stream now ends mid-frame and the connection is no longer usable.
func (c *Conn) Send(bufs ...[]byte) error {
	total := 0
	for _, b := range bufs {
		total += len(b)
	}
	sent, err := unix.SendmsgBuffers(c.fd, bufs, nil, nil, sendFlags)
	if err != nil {
		return fmt.Errorf("SendmsgBuffers fd=%d: %w", c.fd, err)
	}
	if sent != total {
		return fmt.Errorf("send fd=%d: %d/%d bytes: %w", c.fd, sent, total, api.ErrShortSend)
	}
	return nil
}

// Close closes the socket. Repeated calls are no-ops.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return unix.Close(c.fd)
}

// FD returns the socket descriptor.
func (c *Conn) FD() int { return c.fd }

// RemoteAddr returns the peer address as ip:port.
func (c *Conn) RemoteAddr() string { return c.remote }
