// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake client connection. Input written by the test is what the server reads;
// whatever the server sends is buffered for the test to inspect.

package fake

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/momentics/hioload-chat/api"
	"github.com/momentics/hioload-chat/protocol"
)

// Conn is an in-memory api.Conn.
type Conn struct {
	mu        sync.Mutex
	fd        int
	remote    string
	in        bytes.Buffer
	out       bytes.Buffer
	hungUp    bool
	closed    bool
	sendError error
	sendLimit int // bytes accepted per Send; zero means unlimited
	sends     int
}

var _ api.Conn = (*Conn)(nil)

// NewConn creates a fake connection on descriptor fd.
func NewConn(fd int) *Conn {
	return &Conn{fd: fd, remote: fmt.Sprintf("10.0.0.%d:4000", fd)}
}

// Read drains buffered input. With nothing buffered it reports io.EOF after a
// hang-up and api.ErrFrameTimeout otherwise, like a whole-frame socket read
// that never completes.
func (c *Conn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(p) == 0 {
		return 0, nil
	}
	if c.in.Len() == 0 {
		if c.hungUp {
			return 0, io.EOF
		}
		return 0, api.ErrFrameTimeout
	}
	return c.in.Read(p)
}

// Send records the gathered buffers as one write. Under SetShortSend only
// the leading bytes are kept and the error wraps api.ErrShortSend.
func (c *Conn) Send(bufs ...[]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends++
	if c.closed {
		return fmt.Errorf("fake conn fd=%d: send on closed conn", c.fd)
	}
	if c.sendError != nil {
		return c.sendError
	}
	left := c.sendLimit
	for _, b := range bufs {
		if c.sendLimit > 0 && len(b) > left {
			c.out.Write(b[:left])
			return fmt.Errorf("fake conn fd=%d: %w", c.fd, api.ErrShortSend)
		}
		c.out.Write(b)
		left -= len(b)
	}
	return nil
}

// Close marks the connection closed.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// FD returns the fake descriptor.
func (c *Conn) FD() int { return c.fd }

// RemoteAddr returns a synthetic peer address.
func (c *Conn) RemoteAddr() string { return c.remote }

// Readable reports whether a read would not time out.
func (c *Conn) Readable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && (c.in.Len() > 0 || c.hungUp)
}

// Closed reports whether the server closed the connection.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Sends counts Send calls, failed ones included.
func (c *Conn) Sends() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sends
}

// SetSendError makes every following Send fail with err.
func (c *Conn) SetSendError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendError = err
}

// SetShortSend makes every following Send accept at most n bytes, like a
// socket whose send buffer is nearly full. Zero restores full sends.
func (c *Conn) SetShortSend(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendLimit = n
}

// Feed appends raw bytes to the input stream.
func (c *Conn) Feed(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.in.Write(b)
}

// SendName feeds a name frame. Lengths outside 1..255 are truncated to a
// single byte prefix so malformed frames can be produced too.
func (c *Conn) SendName(name string) {
	c.Feed(append([]byte{byte(len(name))}, name...))
}

// SendText feeds a message frame carrying text.
func (c *Conn) SendText(text string) {
	c.SendFrame(len(text), []byte(text))
}

// SendFrame feeds a message frame whose declared length may disagree with
// the body actually supplied.
func (c *Conn) SendFrame(declared int, body []byte) {
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(declared))
	c.Feed(append(hdr[:], body...))
}

// HangUp simulates an orderly peer shutdown after buffered input.
func (c *Conn) HangUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hungUp = true
}

// ReadStatus consumes one status byte sent by the server.
func (c *Conn) ReadStatus() (protocol.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := c.out.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("fake conn fd=%d: no status byte: %w", c.fd, err)
	}
	return protocol.Status(b), nil
}

// ReadText consumes one message frame sent by the server.
func (c *Conn) ReadText() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	body, err := protocol.ReadMessageFrame(&c.out, protocol.MaxFramePayload)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Texts consumes every buffered message frame.
func (c *Conn) Texts() []string {
	var texts []string
	for {
		t, err := c.ReadText()
		if err != nil {
			return texts
		}
		texts = append(texts, t)
	}
}

// Pending returns the number of unread output bytes.
func (c *Conn) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Len()
}
