// internal/transport/listener_unix.go
//go:build unix

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// IPv4 TCP acceptor on raw sockets.

package transport

import (
	"fmt"
	"net/netip"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-chat/api"
)

// Options configures Listen.
type Options struct {
	// Backlog is the listen(2) queue length.
	Backlog int
	// ReadTimeout bounds each frame read on accepted connections.
	ReadTimeout time.Duration
}

// Listener is a bound, listening IPv4 TCP socket.
type Listener struct {
	fd          int
	port        int
	readTimeout time.Duration
	closed      bool
}

var _ api.Listener = (*Listener)(nil)

// Listen binds host:port and starts listening. An empty host binds every
// interface; port 0 picks an ephemeral port, reported by Port.
func Listen(host string, port int, opts Options) (*Listener, error) {
	if port < 0 || port > 0xFFFF {
		return nil, fmt.Errorf("listen: port %d: %w", port, api.ErrInvalidArgument)
	}
	var addr [4]byte
	if host != "" {
		ip, err := netip.ParseAddr(host)
		if err != nil || !ip.Is4() {
			return nil, fmt.Errorf("listen: host %q: %w", host, api.ErrInvalidArgument)
		}
		addr = ip.As4()
	}
	backlog := opts.Backlog
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	unix.CloseOnExec(fd)
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port, Addr: addr}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", joinHostPort(addr, port), err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen: %w", err)
	}
	sa, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("getsockname: %w", err)
	}
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		port = in4.Port
	}
	return &Listener{fd: fd, port: port, readTimeout: opts.ReadTimeout}, nil
}

// Accept takes the next pending connection.
func (l *Listener) Accept() (api.Conn, error) {
	for {
		nfd, sa, err := unix.Accept(l.fd)
		if err == unix.EINTR || err == unix.ECONNABORTED {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("accept: %w", err)
		}
		remote := "unknown"
		if in4, ok := sa.(*unix.SockaddrInet4); ok {
			remote = joinHostPort(in4.Addr, in4.Port)
		}
		c, err := newConn(nfd, remote, l.readTimeout)
		if err != nil {
			unix.Close(nfd)
			return nil, err
		}
		return c, nil
	}
}

// Close stops listening. Repeated calls are no-ops.
func (l *Listener) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return unix.Close(l.fd)
}

// FD returns the listening descriptor.
func (l *Listener) FD() int { return l.fd }

// Port returns the bound port.
func (l *Listener) Port() int { return l.port }

func joinHostPort(addr [4]byte, port int) string {
	return netip.AddrFrom4(addr).String() + ":" + strconv.Itoa(port)
}
