// File: gateway/bridge.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// One browser connection paired with one chat client. The read pump owns the
// name handshake; the receive pump starts once a name is accepted so the two
// never read the chat socket at the same time.

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/momentics/hioload-chat/api"
	"github.com/momentics/hioload-chat/client"
)

type bridge struct {
	g    *Gateway
	id   string
	ws   *websocket.Conn
	chat *client.Client
	out  chan Envelope
	quit chan struct{}
	once sync.Once

	joined bool // read pump only
}

func newBridge(g *Gateway, ws *websocket.Conn, chat *client.Client) *bridge {
	return &bridge{
		g:    g,
		id:   uuid.NewString(),
		ws:   ws,
		chat: chat,
		out:  make(chan Envelope, g.cfg.SendQueue),
		quit: make(chan struct{}),
	}
}

// run blocks until the browser or the chat server goes away.
func (b *bridge) run() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.writePump()
	}()
	b.push(Envelope{Type: TypeHello, ID: b.id})
	b.readPump()
	b.stop()
	<-done
}

func (b *bridge) stop() {
	b.once.Do(func() {
		close(b.quit)
		b.chat.Close()
	})
}

// push queues env for the browser; false once the bridge is stopping.
func (b *bridge) push(env Envelope) bool {
	select {
	case b.out <- env:
		return true
	case <-b.quit:
		return false
	}
}

func (b *bridge) readPump() {
	b.ws.SetReadLimit(b.g.cfg.MaxEnvelopeSize)
	_ = b.ws.SetReadDeadline(time.Now().Add(b.g.cfg.PongWait))
	b.ws.SetPongHandler(func(string) error {
		return b.ws.SetReadDeadline(time.Now().Add(b.g.cfg.PongWait))
	})

	for {
		_, data, err := b.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.g.log.Printf("[gateway] bridge %s: read: %v", b.id, err)
			}
			return
		}
		b.g.metrics.Inc(MetricEnvelopesIn)

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			b.push(errorEnvelope(fmt.Errorf("malformed envelope: %w", err)))
			continue
		}
		if !b.handle(env) {
			return
		}
	}
}

// handle applies one browser envelope; false ends the bridge.
func (b *bridge) handle(env Envelope) bool {
	switch env.Type {
	case TypeJoin:
		if b.joined {
			b.push(errorEnvelope(fmt.Errorf("already joined as %q: %w", b.chat.Name(), api.ErrInvalidArgument)))
			return true
		}
		err := b.chat.Register(env.Name)
		switch {
		case err == nil:
			b.joined = true
			b.push(Envelope{Type: TypeJoined, Name: env.Name})
			go b.receivePump()
		case errors.Is(err, api.ErrNameInvalid), errors.Is(err, api.ErrNameTaken):
			b.push(Envelope{Type: TypeRefused, Name: env.Name, Error: err.Error()})
		default:
			b.push(errorEnvelope(err))
			return false
		}

	case TypeSay:
		if !b.joined {
			b.push(errorEnvelope(fmt.Errorf("join first: %w", api.ErrInvalidArgument)))
			return true
		}
		if err := b.chat.Send(env.Text); err != nil {
			b.push(errorEnvelope(err))
			return errors.Is(err, api.ErrInvalidArgument)
		}

	default:
		b.push(errorEnvelope(fmt.Errorf("envelope type %q: %w", env.Type, api.ErrInvalidArgument)))
	}
	return true
}

func (b *bridge) receivePump() {
	for {
		msg, err := b.chat.Receive()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				b.g.log.Printf("[gateway] bridge %s: chat: %v", b.id, err)
				b.push(errorEnvelope(fmt.Errorf("chat server: %w", api.ErrDisconnected)))
			}
			b.stop()
			return
		}
		if !b.push(fromMessage(msg)) {
			return
		}
	}
}

func (b *bridge) writePump() {
	ticker := time.NewTicker(b.g.cfg.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		b.ws.Close()
	}()

	for {
		select {
		case env := <-b.out:
			if err := b.write(env); err != nil {
				b.stop()
				return
			}
		case <-ticker.C:
			_ = b.ws.SetWriteDeadline(time.Now().Add(b.g.cfg.WriteWait))
			if err := b.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				b.stop()
				return
			}
		case <-b.quit:
			b.flush()
			_ = b.ws.SetWriteDeadline(time.Now().Add(b.g.cfg.WriteWait))
			_ = b.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever is still queued.
func (b *bridge) flush() {
	for {
		select {
		case env := <-b.out:
			if b.write(env) != nil {
				return
			}
		default:
			return
		}
	}
}

func (b *bridge) write(env Envelope) error {
	_ = b.ws.SetWriteDeadline(time.Now().Add(b.g.cfg.WriteWait))
	return b.ws.WriteJSON(env)
}
