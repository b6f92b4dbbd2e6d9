package server_test

import (
	"bytes"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-chat/fake"
	"github.com/momentics/hioload-chat/protocol"
	"github.com/momentics/hioload-chat/server"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// harness drives a Server one loop pass at a time over the fake network.
type harness struct {
	t    *testing.T
	net  *fake.Net
	srv  *server.Server
	logs *bytes.Buffer
}

func newHarness(t *testing.T, tune ...func(*server.Config)) *harness {
	t.Helper()
	n := fake.NewNet(epoch)
	cfg := server.DefaultConfig()
	cfg.MaxClients = 4
	for _, f := range tune {
		f(cfg)
	}
	logs := &bytes.Buffer{}
	srv, err := server.NewServer(n.Listener(), cfg,
		server.WithPoller(n.Poller()),
		server.WithClock(n.Clock()),
		server.WithLogger(log.New(logs, "", 0)),
	)
	require.NoError(t, err)
	return &harness{t: t, net: n, srv: srv, logs: logs}
}

func (h *harness) step() {
	h.t.Helper()
	require.NoError(h.t, h.srv.Iterate())
}

// connect dials and runs the admission pass.
func (h *harness) connect() *fake.Conn {
	h.t.Helper()
	c := h.net.Listener().Dial()
	h.step()
	st, err := c.ReadStatus()
	require.NoError(h.t, err)
	require.Equal(h.t, protocol.StatusYes, st)
	return c
}

// nameAs sends a name frame and returns the status reply.
func (h *harness) nameAs(c *fake.Conn, name string) protocol.Status {
	h.t.Helper()
	c.SendName(name)
	h.step()
	st, err := c.ReadStatus()
	require.NoError(h.t, err)
	return st
}

// join connects and registers name, then discards the join notices so far
// delivered to every client.
func (h *harness) join(name string, others ...*fake.Conn) *fake.Conn {
	h.t.Helper()
	c := h.connect()
	require.Equal(h.t, protocol.StatusYes, h.nameAs(c, name))
	c.Texts()
	for _, o := range others {
		o.Texts()
	}
	return c
}

func (h *harness) session(name string) server.SessionInfo {
	h.t.Helper()
	for _, si := range h.srv.Sessions() {
		if si.Name == name {
			return si
		}
	}
	h.t.Fatalf("no session %q", name)
	return server.SessionInfo{}
}

func (h *harness) sessionFD(fd int) (server.SessionInfo, bool) {
	for _, si := range h.srv.Sessions() {
		if si.FD == fd {
			return si, true
		}
	}
	return server.SessionInfo{}, false
}
