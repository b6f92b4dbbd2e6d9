// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines the socket abstraction used by the readiness loop. Connections are
// addressed by their OS file descriptor so they can join a poller interest set.

package api

// Conn abstracts one accepted client socket.
type Conn interface {
	// Read fills p from the socket. An orderly peer shutdown yields (0, io.EOF).
	Read(p []byte) (n int, err error)

	// Send writes the buffers as one gathered, best-effort, non-blocking send.
	Send(bufs ...[]byte) error

	// Close shuts down the connection.
	Close() error

	// FD returns the underlying OS-level file descriptor.
	FD() int

	// RemoteAddr describes the peer for logging.
	RemoteAddr() string
}

// Listener abstracts the acceptor socket.
type Listener interface {
	// Accept returns the next pending connection.
	Accept() (Conn, error)

	// Close stops listening.
	Close() error

	// FD returns the listening socket descriptor.
	FD() int

	// Port reports the bound port.
	Port() int
}
