package client_test

import (
	"bufio"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-chat/api"
	"github.com/momentics/hioload-chat/client"
	"github.com/momentics/hioload-chat/protocol"
)

// pipeServer returns the server end of a pipe whose client end is wrapped by
// a Client once admit has been written.
func pipeServer(t *testing.T, admit protocol.Status) (net.Conn, *client.Client, error) {
	t.Helper()
	srvEnd, cliEnd := net.Pipe()
	t.Cleanup(func() { srvEnd.Close() })
	go srvEnd.Write([]byte{byte(admit)})
	c, err := client.New(cliEnd, client.DefaultConfig())
	if c != nil {
		t.Cleanup(func() { c.Close() })
	}
	return srvEnd, c, err
}

func TestAdmissionRejected(t *testing.T) {
	_, c, err := pipeServer(t, protocol.StatusNo)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, api.ErrServerFull)
}

func TestAdmissionGarbage(t *testing.T) {
	_, _, err := pipeServer(t, protocol.Status('?'))
	assert.ErrorIs(t, err, api.ErrProtocolViolation)
}

func TestRegisterRejectsMalformedLocally(t *testing.T) {
	_, c, err := pipeServer(t, protocol.StatusYes)
	require.NoError(t, err)
	// nothing reads the pipe, so any write would block forever
	assert.ErrorIs(t, c.Register("bad name"), api.ErrNameInvalid)
	assert.ErrorIs(t, c.Register(""), api.ErrNameInvalid)
	assert.ErrorIs(t, c.Register("abcdefghijk"), api.ErrNameInvalid)
}

func TestRegisterUntilRetriesTakenNames(t *testing.T) {
	srv, c, err := pipeServer(t, protocol.StatusYes)
	require.NoError(t, err)

	got := make(chan []string, 1)
	go func() {
		r := bufio.NewReader(srv)
		var names []string
		for _, st := range []protocol.Status{protocol.StatusTaken, protocol.StatusYes} {
			name, err := protocol.ReadNameFrame(r)
			if err != nil {
				break
			}
			names = append(names, string(name))
			srv.Write([]byte{byte(st)})
		}
		got <- names
	}()

	candidates := []string{"bad name", "bob", "bob2"}
	var refusals []error
	name, err := c.RegisterUntil(func(prev error) (string, error) {
		refusals = append(refusals, prev)
		next := candidates[0]
		candidates = candidates[1:]
		return next, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "bob2", name)
	assert.Equal(t, "bob2", c.Name())
	assert.Equal(t, []string{"bob", "bob2"}, <-got)

	require.Len(t, refusals, 3)
	assert.NoError(t, refusals[0])
	assert.ErrorIs(t, refusals[1], api.ErrNameInvalid)
	assert.ErrorIs(t, refusals[2], api.ErrNameTaken)
}

func TestRegisterUntilStopsOnPromptError(t *testing.T) {
	_, c, err := pipeServer(t, protocol.StatusYes)
	require.NoError(t, err)
	_, err = c.RegisterUntil(func(error) (string, error) { return "", io.EOF })
	assert.ErrorIs(t, err, io.EOF)
}

func TestSendAndReceive(t *testing.T) {
	srv, c, err := pipeServer(t, protocol.StatusYes)
	require.NoError(t, err)

	sent := make(chan string, 1)
	go func() {
		body, err := protocol.ReadMessageFrame(srv, protocol.MaxMessageLength)
		if err != nil {
			sent <- err.Error()
			return
		}
		sent <- string(body)
		frame, _ := protocol.EncodeMessageFrame(protocol.Plain("alice", "hello").Payload())
		srv.Write(frame)
		srv.Close()
	}()

	require.NoError(t, c.Send("/me waves"))
	assert.Equal(t, "/me waves", <-sent)

	msg, err := c.Receive()
	require.NoError(t, err)
	assert.Equal(t, protocol.Plain("alice", "hello"), msg)

	_, err = c.Receive()
	assert.ErrorIs(t, err, api.ErrDisconnected)
}

func TestSendValidatesLength(t *testing.T) {
	_, c, err := pipeServer(t, protocol.StatusYes)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Send(""), api.ErrInvalidArgument)
	assert.ErrorIs(t, c.Send(string(make([]byte, 1001))), api.ErrInvalidArgument)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
