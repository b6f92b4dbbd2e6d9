// File: client/client.go
// Package client implements the chat wire protocol from the client side:
// admission, the name handshake and message frames in both directions.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-chat/api"
	"github.com/momentics/hioload-chat/protocol"
)

// Config holds client connection parameters.
type Config struct {
	DialTimeout      time.Duration // bound on TCP connect plus admission
	MaxMessageLength int           // longest outgoing message
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DialTimeout:      10 * time.Second,
		MaxMessageLength: protocol.MaxMessageLength,
	}
}

// Client is one chat connection. Send and Receive may be used from
// different goroutines.
type Client struct {
	cfg    Config
	conn   net.Conn
	r      *bufio.Reader
	wmu    sync.Mutex
	name   atomic.Value
	closed atomic.Bool
}

// Dial connects to addr (host:port) and waits for the admission byte.
// A full server yields api.ErrServerFull.
func Dial(ctx context.Context, addr string, cfg Config) (*Client, error) {
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(dl)
	}
	c, err := New(conn, cfg)
	if err != nil {
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Time{})
	return c, nil
}

// New wraps an established connection and consumes the admission byte.
// The connection is closed on failure.
func New(conn net.Conn, cfg Config) (*Client, error) {
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = protocol.MaxMessageLength
	}
	c := &Client{cfg: cfg, conn: conn, r: bufio.NewReader(conn)}
	c.name.Store("")

	b, err := c.r.ReadByte()
	if err != nil {
		conn.Close()
		if errors.Is(err, io.EOF) {
			return nil, api.ErrDisconnected
		}
		return nil, fmt.Errorf("admission: %w", err)
	}
	if st := protocol.Status(b); st != protocol.StatusYes {
		conn.Close()
		if st == protocol.StatusNo {
			return nil, api.ErrServerFull
		}
		return nil, st.Err()
	}
	return c, nil
}

// Register offers name to the server. Malformed names are refused locally
// with api.ErrNameInvalid; a server refusal maps to api.ErrNameInvalid or
// api.ErrNameTaken. Either way the caller may try another name.
func (c *Client) Register(name string) error {
	if !protocol.ValidName(name) {
		return fmt.Errorf("name %q: %w", name, api.ErrNameInvalid)
	}
	frame, err := protocol.EncodeNameFrame(name)
	if err != nil {
		return err
	}
	if err := c.write(frame); err != nil {
		return err
	}
	b, err := c.r.ReadByte()
	if err != nil {
		return c.readError(err)
	}
	if err := protocol.Status(b).Err(); err != nil {
		return fmt.Errorf("name %q: %w", name, err)
	}
	c.name.Store(name)
	return nil
}

// RegisterUntil keeps asking next for a name until one is accepted. next
// receives the previous refusal, nil on the first call. Errors other than a
// refused name end the loop, as does an error from next.
func (c *Client) RegisterUntil(next func(prev error) (string, error)) (string, error) {
	var prev error
	for {
		name, err := next(prev)
		if err != nil {
			return "", err
		}
		err = c.Register(name)
		switch {
		case err == nil:
			return name, nil
		case errors.Is(err, api.ErrNameInvalid), errors.Is(err, api.ErrNameTaken):
			prev = err
		default:
			return "", err
		}
	}
}

// Name returns the registered name, empty before registration.
func (c *Client) Name() string {
	return c.name.Load().(string)
}

// Send transmits one message. Text must be 1..MaxMessageLength bytes.
func (c *Client) Send(text string) error {
	if len(text) == 0 || len(text) > c.cfg.MaxMessageLength {
		return fmt.Errorf("send: length %d: %w", len(text), api.ErrInvalidArgument)
	}
	frame, err := protocol.EncodeMessageFrame([]byte(text))
	if err != nil {
		return err
	}
	return c.write(frame)
}

// Receive blocks for the next server message.
func (c *Client) Receive() (protocol.Message, error) {
	payload, err := protocol.ReadMessageFrame(c.r, protocol.MaxFramePayload)
	if err != nil {
		if c.closed.Load() {
			return protocol.Message{}, net.ErrClosed
		}
		return protocol.Message{}, err
	}
	return protocol.DecodeServerText(payload), nil
}

// Close shuts the connection; idempotent.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}

// RemoteAddr returns the server address.
func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *Client) write(b []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.conn.Write(b); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (c *Client) readError(err error) error {
	if errors.Is(err, io.EOF) {
		return api.ErrDisconnected
	}
	return fmt.Errorf("read: %w", err)
}
