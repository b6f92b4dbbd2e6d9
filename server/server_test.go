package server_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-chat/api"
	"github.com/momentics/hioload-chat/fake"
	"github.com/momentics/hioload-chat/protocol"
	"github.com/momentics/hioload-chat/server"
)

func TestJoinAnnouncesAndSendsRoster(t *testing.T) {
	h := newHarness(t)
	alice := h.connect()
	require.Equal(t, protocol.StatusYes, h.nameAs(alice, "alice"))
	assert.Equal(t, []string{"User alice has joined", "%alice\n"}, alice.Texts())

	bob := h.connect()
	require.Equal(t, protocol.StatusYes, h.nameAs(bob, "bob"))
	want := []string{"User bob has joined", "%alice\nbob\n"}
	assert.Equal(t, want, alice.Texts())
	assert.Equal(t, want, bob.Texts())
	assert.Equal(t, api.SessionActive, h.session("bob").Status)
	assert.Zero(t, h.session("bob").Deadline)
}

func TestPlainMessageIsPadded(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")
	bob := h.join("bob", alice)

	alice.SendText("hello")
	h.step()

	assert.Equal(t, []string{">      alice: hello"}, bob.Texts())
	assert.Equal(t, []string{">      alice: hello"}, alice.Texts())
	assert.Equal(t, uint64(1), h.srv.Stats().Relayed)
}

func TestMessageCutAtNewline(t *testing.T) {
	h := newHarness(t)
	alice := h.join("abcdefghij")

	alice.SendText("x\nsecond line")
	h.step()
	assert.Equal(t, []string{"> abcdefghij: x"}, alice.Texts())
}

func TestActionMessages(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")
	bob := h.join("bob", alice)

	for _, tc := range []struct{ in, want string }{
		{"/me waves", "*alice waves"},
		{`\me nods`, "*alice nods"},
		{"/me", "*alice"},
		{"/meh", ">      alice: /meh"},
	} {
		alice.SendText(tc.in)
		h.step()
		assert.Equal(t, []string{tc.want}, bob.Texts(), tc.in)
		alice.Texts()
	}
}

func TestPrivateMessageEchoesToSender(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")
	bob := h.join("bob", alice)
	carol := h.join("carol", alice, bob)

	alice.SendText("@bob hi there")
	h.step()

	assert.Equal(t, []string{"*     alice: hi there"}, bob.Texts())
	assert.Equal(t, []string{"*     alice: hi there"}, alice.Texts())
	assert.Zero(t, carol.Pending())
}

func TestPrivateMessageToSelfIsNotDuplicated(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")

	alice.SendText("@alice note")
	h.step()
	assert.Equal(t, []string{"*     alice: note"}, alice.Texts())
}

func TestPrivateMessageToMissingUserWarnsSender(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")
	bob := h.join("bob", alice)

	alice.SendText("@carol hi")
	h.step()

	assert.Equal(t, []string{"Warning: user carol doesn't exist..."}, alice.Texts())
	assert.Zero(t, bob.Pending())
}

func TestPrivateMessageNeverReachesUnregistered(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")
	pending := h.connect()
	require.Equal(t, protocol.StatusInvalid, h.nameAs(pending, "bad name"))

	alice.SendText("@bad hi")
	h.step()
	assert.Equal(t, []string{"Warning: user bad doesn't exist..."}, alice.Texts())
	assert.Zero(t, pending.Pending())
}

func TestPrivateDestinationTooLongEvicts(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")
	bob := h.join("bob", alice)

	alice.SendText("@abcdefghijk hi")
	h.step()

	assert.True(t, alice.Closed())
	assert.Equal(t, []string{"User alice has left"}, alice.Texts())
	assert.Equal(t, []string{"User alice has left", "%bob\n"}, bob.Texts())
	assert.Equal(t, uint64(1), h.srv.Stats().Evicted["violation"])
}

func TestNameTakenResetsDeadline(t *testing.T) {
	h := newHarness(t)
	bob := h.join("bob")
	alice := h.connect()

	h.net.Clock().Advance(30 * time.Second)
	assert.Equal(t, protocol.StatusTaken, h.nameAs(alice, "bob"))

	si, ok := h.sessionFD(alice.FD())
	require.True(t, ok)
	assert.Equal(t, api.SessionUnregistered, si.Status)
	assert.Equal(t, time.Minute, si.Deadline)
	assert.Equal(t, bob.FD(), h.session("bob").FD)
	assert.Len(t, h.srv.Sessions(), 2)

	// a free name still works afterwards
	assert.Equal(t, protocol.StatusYes, h.nameAs(alice, "alice"))
}

func TestInvalidNameKeepsDeadline(t *testing.T) {
	h := newHarness(t)
	c := h.connect()

	h.net.Clock().Advance(20 * time.Second)
	for _, bad := range []string{"no spaces", "dash-name", "abcdefghijk", "émile"} {
		assert.Equal(t, protocol.StatusInvalid, h.nameAs(c, bad), bad)
	}
	si, ok := h.sessionFD(c.FD())
	require.True(t, ok)
	assert.Equal(t, 40*time.Second, si.Deadline)
	assert.Equal(t, api.SessionUnregistered, si.Status)
	assert.Empty(t, si.Name)
}

func TestNamesStayUnique(t *testing.T) {
	h := newHarness(t)
	a := h.connect()
	b := h.connect()
	c := h.connect()

	assert.Equal(t, protocol.StatusYes, h.nameAs(a, "sam"))
	assert.Equal(t, protocol.StatusTaken, h.nameAs(b, "sam"))
	assert.Equal(t, protocol.StatusYes, h.nameAs(c, "Sam"))
	assert.Equal(t, protocol.StatusTaken, h.nameAs(b, "Sam"))

	a.HangUp()
	h.step()
	assert.Equal(t, protocol.StatusYes, h.nameAs(b, "sam"))

	seen := map[string]bool{}
	for _, si := range h.srv.Sessions() {
		if si.Status == api.SessionActive {
			assert.False(t, seen[si.Name], si.Name)
			seen[si.Name] = true
		}
	}
	assert.Len(t, seen, 2)
}

func TestDisconnectAnnouncesDeparture(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")
	bob := h.join("bob", alice)
	carol := h.join("carol", alice, bob)

	bob.HangUp()
	h.step()

	want := []string{"User bob has left", "%alice\ncarol\n"}
	assert.Equal(t, want, alice.Texts())
	assert.Equal(t, want, carol.Texts())
	assert.True(t, bob.Closed())
	assert.False(t, h.net.Poller().Watching(bob.FD()))
	assert.Equal(t, uint64(1), h.srv.Stats().Evicted["disconnect"])
}

func TestUnregisteredDisconnectIsSilent(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")
	c := h.connect()

	c.HangUp()
	h.step()
	assert.True(t, c.Closed())
	assert.Zero(t, alice.Pending())
	assert.Len(t, h.srv.Sessions(), 1)
}

func TestOversizedMessageEvictsWithoutRelay(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")
	bob := h.join("bob", alice)

	alice.SendFrame(1001, bytes.Repeat([]byte("x"), 1001))
	h.step()

	assert.True(t, alice.Closed())
	assert.Equal(t, []string{"User alice has left"}, alice.Texts())
	texts := bob.Texts()
	assert.Equal(t, []string{"User alice has left", "%bob\n"}, texts)
	assert.Zero(t, h.srv.Stats().Relayed)
}

func TestMessageLengthMismatchEvicts(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")
	bob := h.join("bob", alice)

	alice.SendFrame(10, []byte("short"))
	h.step()

	assert.True(t, alice.Closed())
	assert.Equal(t, []string{"User alice has left", "%bob\n"}, bob.Texts())
}

func TestZeroLengthFramesEvict(t *testing.T) {
	h := newHarness(t)
	c := h.connect()
	c.Feed([]byte{0})
	h.step()
	assert.True(t, c.Closed())

	alice := h.join("alice")
	alice.SendFrame(0, nil)
	h.step()
	assert.True(t, alice.Closed())
	assert.Equal(t, uint64(2), h.srv.Stats().Evicted["violation"])
}

func TestConfiguredMessageLimit(t *testing.T) {
	h := newHarness(t, func(c *server.Config) { c.MaxMessageLength = 8 })
	alice := h.join("alice")

	alice.SendText("12345678")
	h.step()
	assert.Equal(t, []string{">      alice: 12345678"}, alice.Texts())

	alice.SendText("123456789")
	h.step()
	assert.True(t, alice.Closed())
}

func TestRegistrationTimeoutFreesSlot(t *testing.T) {
	h := newHarness(t, func(c *server.Config) { c.MaxClients = 1 })
	c := h.connect()

	// nothing readable: the fake wait lets the full deadline elapse
	h.step()
	assert.Equal(t, []time.Duration{-1, time.Minute}, h.net.Poller().Waits())
	assert.True(t, c.Closed())
	assert.Empty(t, h.srv.Sessions())
	assert.Equal(t, uint64(1), h.srv.Stats().Evicted["timeout"])

	next := h.connect()
	assert.False(t, next.Closed())
}

func TestRegistrationTimeoutUsesNearestDeadline(t *testing.T) {
	h := newHarness(t)
	first := h.connect()
	h.net.Clock().Advance(45 * time.Second)
	second := h.connect()

	h.step()
	assert.Equal(t, 15*time.Second, h.net.Poller().LastWait())
	assert.True(t, first.Closed())
	assert.False(t, second.Closed())

	si, ok := h.sessionFD(second.FD())
	require.True(t, ok)
	assert.Equal(t, 45*time.Second, si.Deadline)
}

func TestActiveSessionsNeverExpire(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")

	h.step()
	assert.Equal(t, time.Duration(-1), h.net.Poller().LastWait())
	h.net.Clock().Advance(time.Hour)
	h.step()
	assert.False(t, alice.Closed())
}

func TestCapacityRejection(t *testing.T) {
	h := newHarness(t, func(c *server.Config) { c.MaxClients = 2 })
	alice := h.join("alice")
	h.join("bob", alice)

	third := h.net.Listener().Dial()
	h.step()
	st, err := third.ReadStatus()
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusNo, st)
	assert.True(t, third.Closed())
	assert.Len(t, h.srv.Sessions(), 2)
	assert.Equal(t, uint64(1), h.srv.Stats().Rejected)

	alice.HangUp()
	h.step()
	h.connect()
}

func TestAcceptorTakesPriority(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")
	alice.SendText("first")
	newcomer := h.net.Listener().Dial()

	h.step()
	st, err := newcomer.ReadStatus()
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusYes, st)
	assert.Zero(t, alice.Pending(), "message not yet handled")

	h.step()
	assert.Equal(t, []string{">      alice: first"}, alice.Texts())
}

func TestOneSessionDispatchedPerPass(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")
	bob := h.join("bob", alice)

	bob.SendText("from bob")
	alice.SendText("from alice")
	h.step()
	assert.Equal(t, []string{">      alice: from alice"}, bob.Texts())
	h.step()
	assert.Equal(t, []string{">        bob: from bob"}, bob.Texts())
}

func TestFailedSendDoesNotAbortBroadcast(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")
	bob := h.join("bob", alice)
	carol := h.join("carol", alice, bob)

	bob.SetSendError(errors.New("buffer full"))
	alice.SendText("hi")
	h.step()

	assert.Equal(t, []string{">      alice: hi"}, carol.Texts())
	assert.Equal(t, []string{">      alice: hi"}, alice.Texts())
	assert.False(t, bob.Closed())
	assert.Equal(t, uint64(1), h.srv.Metrics().Counter("chat.send_failed"))
}

func TestShortSendEvictsReceiver(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")
	bob := h.join("bob", alice)
	carol := h.join("carol", alice, bob)

	bob.SetShortSend(3)
	alice.SendText("hi")
	h.step()

	want := []string{">      alice: hi", "User bob has left", "%alice\ncarol\n"}
	assert.Equal(t, want, alice.Texts())
	assert.Equal(t, want, carol.Texts())
	assert.True(t, bob.Closed())
	assert.Equal(t, 3, bob.Pending(), "nothing follows the cut frame")
	assert.False(t, h.net.Poller().Watching(bob.FD()))

	st := h.srv.Stats()
	assert.Equal(t, uint64(1), st.Evicted["stalled"])
	assert.Equal(t, uint64(1), st.Relayed)
	assert.Equal(t, uint64(1), h.srv.Metrics().Counter("chat.send_failed"))
	assert.Contains(t, h.logs.String(), "stalled receiver")
}

func TestStalledReceiversAreReapedInOrder(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")
	bob := h.join("bob", alice)
	carol := h.join("carol", alice, bob)

	bob.SetShortSend(1)
	carol.SetShortSend(1)
	alice.SendText("hi")
	h.step()

	assert.Equal(t, []string{
		">      alice: hi",
		"User bob has left",
		"%alice\ncarol\n",
		"User carol has left",
		"%alice\n",
	}, alice.Texts())
	assert.True(t, bob.Closed())
	assert.True(t, carol.Closed())
	assert.Equal(t, uint64(2), h.srv.Stats().Evicted["stalled"])
	assert.Equal(t, []string{"alice"}, names(h.srv.Sessions()))
}

func names(infos []server.SessionInfo) []string {
	var out []string
	for _, si := range infos {
		out = append(out, si.Name)
	}
	return out
}

func TestTransientAcceptErrorIsLogged(t *testing.T) {
	h := newHarness(t)
	h.net.Listener().Dial()
	h.net.Listener().FailNextAccept(errors.New("too many open files"))
	h.step()
	assert.Contains(t, h.logs.String(), "too many open files")
	assert.Empty(t, h.srv.Sessions())
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	alice := h.join("alice")
	pending := h.connect()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.srv.Run(ctx))

	assert.True(t, alice.Closed())
	assert.True(t, pending.Closed())
	assert.True(t, h.net.Listener().Closed())
	assert.Empty(t, h.srv.Sessions())
	assert.Equal(t, uint64(2), h.srv.Stats().Evicted["shutdown"])
}

func TestRunWakesOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, h.net.Listener().Closed())
	assert.Eventually(t, func() bool { return h.net.Poller().Wakes() > 0 }, time.Second, 5*time.Millisecond)
}

func TestRunReturnsPollerFailure(t *testing.T) {
	h := newHarness(t)
	h.net.Poller().Fail(errors.New("epoll broke"))
	err := h.srv.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "epoll broke")
}

func TestDumpSessions(t *testing.T) {
	h := newHarness(t)
	h.join("alice")
	h.connect()

	var buf bytes.Buffer
	require.NoError(t, h.srv.DumpSessions(&buf))
	out := buf.String()
	assert.Contains(t, out, "chat.sessions:\n")
	assert.Contains(t, out, "sessions: 2")
	assert.Contains(t, out, "active")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "ttl=1m0s")
	assert.Contains(t, out, "chat.counters: accepted=2")
	assert.True(t, strings.Contains(out, "platform.os: "))
}

func TestNewServerValidates(t *testing.T) {
	n := fake.NewNet(epoch)
	_, err := server.NewServer(nil, nil)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	cfg := server.DefaultConfig()
	cfg.MaxClients = 0
	_, err = server.NewServer(n.Listener(), cfg, server.WithPoller(n.Poller()))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	srv, err := server.NewServer(n.Listener(), nil, server.WithPoller(n.Poller()))
	require.NoError(t, err)
	assert.Equal(t, 4000, srv.Port())
	assert.True(t, n.Poller().Watching(n.Listener().FD()))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, server.DefaultConfig().Validate())
	assert.Equal(t, 200*time.Millisecond, server.DefaultConfig().FrameReadTimeout)
	for name, mutate := range map[string]func(*server.Config){
		"clients": func(c *server.Config) { c.MaxClients = -1 },
		"timeout": func(c *server.Config) { c.RegistrationTimeout = 0 },
		"message": func(c *server.Config) { c.MaxMessageLength = 70000 },
		"frame":   func(c *server.Config) { c.FrameReadTimeout = 0 },
		"backlog": func(c *server.Config) { c.ListenBacklog = 0 },
	} {
		cfg := server.DefaultConfig()
		mutate(cfg)
		assert.ErrorIs(t, cfg.Validate(), api.ErrInvalidArgument, name)
	}
}
