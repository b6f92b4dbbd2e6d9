// File: server/broadcast.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Best-effort delivery to Active sessions. A failed send is counted and
// dropped; it never affects other recipients and is never retried. A send
// that left part of a frame on the wire marks the recipient stalled; reap
// evicts it once the current handler is done with the registry.

package server

import (
	"errors"
	"slices"

	"github.com/momentics/hioload-chat/api"
	"github.com/momentics/hioload-chat/control"
	"github.com/momentics/hioload-chat/internal/session"
	"github.com/momentics/hioload-chat/protocol"
)

// broadcast delivers msg to every Active session in slot order.
func (s *Server) broadcast(msg protocol.Message) {
	hdr, payload, ok := s.frame(msg)
	if !ok {
		return
	}
	for sess := range s.reg.Active() {
		s.deliver(sess, hdr, payload)
	}
}

// sendPrivate delivers body from sender to the Active session named dest,
// echoing it back to a sender who is not the recipient. An unknown dest gets
// the sender a warning instead.
func (s *Server) sendPrivate(sender *session.Session, dest, body string) {
	recipient, ok := s.reg.FindByName(dest)
	if !ok {
		s.send(sender, protocol.Warning(dest))
		return
	}
	msg := protocol.Private(sender.Name, body)
	s.send(recipient, msg)
	if recipient != sender {
		s.send(sender, msg)
	}
}

// sendRoster broadcasts the Active names.
func (s *Server) sendRoster() {
	s.broadcast(protocol.Roster(s.reg.Names()))
}

func (s *Server) send(sess *session.Session, msg protocol.Message) {
	if hdr, payload, ok := s.frame(msg); ok {
		s.deliver(sess, hdr, payload)
	}
}

func (s *Server) frame(msg protocol.Message) (hdr, payload []byte, ok bool) {
	payload = msg.Payload()
	h, err := protocol.MessageHeader(len(payload))
	if err != nil {
		s.log.Printf("[chat] drop %s message: %v", msg.Kind, err)
		return nil, nil, false
	}
	return h[:], payload, true
}

func (s *Server) deliver(sess *session.Session, hdr, payload []byte) {
	if slices.Contains(s.stalled, sess) {
		return
	}
	if err := sess.Conn.Send(hdr, payload); err != nil {
		s.metrics.Inc(control.MetricSendFailed)
		s.log.Printf("[chat] send to %s slot=%d: %v", sess.Name, sess.Slot, err)
		if errors.Is(err, api.ErrShortSend) {
			s.stalled = append(s.stalled, sess)
		}
	}
}

// reap evicts stalled sessions. Their departures may stall others, which
// are appended and handled in the same pass.
func (s *Server) reap() {
	for len(s.stalled) > 0 {
		if sess := s.stalled[0]; !sess.Evicted() {
			s.depart(sess, api.EvictStalled, api.ErrShortSend)
		}
		s.stalled = s.stalled[1:]
	}
	s.stalled = nil
}
