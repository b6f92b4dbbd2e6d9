//go:build linux

package client_test

import (
	"context"
	"io"
	"log"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-chat/api"
	"github.com/momentics/hioload-chat/client"
	"github.com/momentics/hioload-chat/internal/transport"
	"github.com/momentics/hioload-chat/protocol"
	"github.com/momentics/hioload-chat/server"
)

// startServer runs a real server on a loopback ephemeral port.
func startServer(t *testing.T, tune func(*server.Config)) string {
	t.Helper()
	cfg := server.DefaultConfig()
	if tune != nil {
		tune(cfg)
	}
	ln, err := transport.Listen("127.0.0.1", 0, transport.Options{
		Backlog:     cfg.ListenBacklog,
		ReadTimeout: cfg.FrameReadTimeout,
	})
	require.NoError(t, err)
	srv, err := server.NewServer(ln, cfg, server.WithLogger(log.New(io.Discard, "", 0)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return "127.0.0.1:" + strconv.Itoa(srv.Port())
}

func dial(t *testing.T, addr string) *client.Client {
	t.Helper()
	c, err := client.Dial(context.Background(), addr, client.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// receive reads one message or fails the test after a timeout.
func receive(t *testing.T, c *client.Client) protocol.Message {
	t.Helper()
	type result struct {
		msg protocol.Message
		err error
	}
	ch := make(chan result, 1)
	go func() {
		m, err := c.Receive()
		ch <- result{m, err}
	}()
	select {
	case r := <-ch:
		require.NoError(t, r.err)
		return r.msg
	case <-time.After(5 * time.Second):
		t.Fatal("no message")
		return protocol.Message{}
	}
}

func TestLoopbackChat(t *testing.T) {
	addr := startServer(t, nil)

	alice := dial(t, addr)
	require.NoError(t, alice.Register("alice"))
	assert.Equal(t, protocol.Join("alice"), receive(t, alice))
	assert.Equal(t, protocol.Roster([]string{"alice"}), receive(t, alice))

	bob := dial(t, addr)
	assert.ErrorIs(t, bob.Register("alice"), api.ErrNameTaken)
	require.NoError(t, bob.Register("bob"))
	for _, c := range []*client.Client{alice, bob} {
		assert.Equal(t, protocol.Join("bob"), receive(t, c))
		assert.Equal(t, protocol.Roster([]string{"alice", "bob"}), receive(t, c))
	}

	require.NoError(t, alice.Send("hello"))
	assert.Equal(t, protocol.Plain("alice", "hello"), receive(t, bob))
	assert.Equal(t, protocol.Plain("alice", "hello"), receive(t, alice))

	require.NoError(t, alice.Send("@bob psst"))
	want := protocol.DecodeServerText([]byte("*     alice: psst"))
	assert.Equal(t, want, receive(t, bob))
	assert.Equal(t, want, receive(t, alice))

	require.NoError(t, bob.Close())
	assert.Equal(t, protocol.Leave("bob"), receive(t, alice))
	assert.Equal(t, protocol.Roster([]string{"alice"}), receive(t, alice))
}

func TestLoopbackRegistrationTimeout(t *testing.T) {
	addr := startServer(t, func(c *server.Config) { c.RegistrationTimeout = 100 * time.Millisecond })
	idle := dial(t, addr)

	errc := make(chan error, 1)
	go func() {
		_, err := idle.Receive()
		errc <- err
	}()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, api.ErrDisconnected)
	case <-time.After(5 * time.Second):
		t.Fatal("idle client was not evicted")
	}
}

func TestLoopbackCapacity(t *testing.T) {
	addr := startServer(t, func(c *server.Config) { c.MaxClients = 1 })
	dial(t, addr)

	_, err := client.Dial(context.Background(), addr, client.DefaultConfig())
	assert.ErrorIs(t, err, api.ErrServerFull)
}
