// File: server/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Admission, name registration, message relay and eviction.

package server

import (
	"errors"

	"github.com/momentics/hioload-chat/api"
	"github.com/momentics/hioload-chat/control"
	"github.com/momentics/hioload-chat/internal/session"
	"github.com/momentics/hioload-chat/protocol"
)

// accept admits one pending connection or turns it away when the registry is
// full. Accept failures are not fatal.
func (s *Server) accept() {
	conn, err := s.ln.Accept()
	if err != nil {
		s.log.Printf("[chat] accept: %v", err)
		return
	}

	if s.reg.Full() {
		_ = conn.Send([]byte{byte(protocol.StatusNo)})
		conn.Close()
		s.metrics.Inc(control.MetricRejected)
		s.log.Printf("[chat] rejected %s: %d/%d sessions", conn.RemoteAddr(), s.reg.Len(), s.reg.Cap())
		return
	}

	if err := conn.Send([]byte{byte(protocol.StatusYes)}); err != nil {
		s.log.Printf("[chat] admit %s: %v", conn.RemoteAddr(), err)
	}
	sess, err := s.reg.Allocate(conn, s.clock.Now())
	if err != nil {
		conn.Close()
		s.log.Printf("[chat] allocate %s: %v", conn.RemoteAddr(), err)
		return
	}
	if err := s.poller.Add(conn.FD()); err != nil {
		s.reg.Evict(sess)
		s.log.Printf("[chat] watch %s: %v", conn.RemoteAddr(), err)
		return
	}
	s.sched.Arm(sess)
	s.metrics.Inc(control.MetricAccepted)
	s.log.Printf("[chat] admitted %s slot=%d fd=%d", conn.RemoteAddr(), sess.Slot, conn.FD())
}

// handle services one readable session.
func (s *Server) handle(sess *session.Session) {
	if sess.Active() {
		s.relay(sess)
		return
	}
	s.register(sess)
}

// register consumes a name frame and answers with a status byte.
func (s *Server) register(sess *session.Session) {
	raw, err := protocol.ReadNameFrame(sess.Conn)
	if err != nil {
		s.drop(sess, err)
		return
	}
	name := string(raw)

	switch {
	case !protocol.ValidName(name):
		s.reply(sess, protocol.StatusInvalid)
		return
	case !s.reg.NameIsAvailable(name):
		s.sched.Arm(sess)
		s.reply(sess, protocol.StatusTaken)
		return
	}

	if err := s.reg.Activate(sess, name); err != nil {
		s.log.Printf("[chat] activate slot=%d %q: %v", sess.Slot, name, err)
		s.reply(sess, protocol.StatusTaken)
		return
	}
	s.sched.Disarm(sess)
	s.reply(sess, protocol.StatusYes)
	s.metrics.Inc(control.MetricRegistered)
	s.log.Printf("[chat] %s joined slot=%d", name, sess.Slot)

	s.broadcast(protocol.Join(name))
	s.sendRoster()
}

// relay consumes a message frame from an Active session and delivers it.
func (s *Server) relay(sess *session.Session) {
	payload, err := protocol.ReadMessageFrame(sess.Conn, s.cfg.MaxMessageLength)
	if err != nil {
		s.drop(sess, err)
		return
	}
	in, err := protocol.ParseInbound(payload)
	if err != nil {
		s.drop(sess, err)
		return
	}

	switch in.Kind {
	case protocol.KindPrivate:
		s.sendPrivate(sess, in.Dest, in.Body)
	case protocol.KindAction:
		s.broadcast(protocol.Action(sess.Name, in.Body))
	default:
		s.broadcast(protocol.Plain(sess.Name, in.Body))
	}
	s.metrics.Inc(control.MetricRelayed)
}

func (s *Server) reply(sess *session.Session, st protocol.Status) {
	if err := sess.Conn.Send([]byte{byte(st)}); err != nil {
		s.log.Printf("[chat] status %s to slot=%d: %v", st, sess.Slot, err)
	}
}

// drop evicts sess after a read failure.
func (s *Server) drop(sess *session.Session, cause error) {
	reason := api.EvictViolation
	if api.CodeOf(cause) == api.ErrCodeDisconnected {
		reason = api.EvictDisconnect
		cause = nil
	}
	s.depart(sess, reason, cause)
}

// depart evicts sess. An Active leaver's notice goes out first, itself
// included, and the roster of those remaining follows.
func (s *Server) depart(sess *session.Session, reason api.EvictReason, cause error) {
	if !sess.Active() {
		s.evict(sess, reason, cause)
		return
	}
	s.broadcast(protocol.Leave(sess.Name))
	s.evict(sess, reason, cause)
	s.sendRoster()
}

// evict removes sess from the interest set and the registry.
func (s *Server) evict(sess *session.Session, reason api.EvictReason, cause error) {
	fd, name, slot := sess.FD(), sess.Name, sess.Slot
	if err := s.poller.Remove(fd); err != nil && !errors.Is(err, api.ErrPollerClosed) {
		s.log.Printf("[chat] unwatch fd=%d: %v", fd, err)
	}
	if err := s.reg.Evict(sess); err != nil {
		s.log.Printf("[chat] close fd=%d: %v", fd, err)
	}
	s.metrics.Inc(control.MetricEvictedPrefix + reason.Key())
	if cause != nil {
		s.log.Printf("[chat] evicted slot=%d fd=%d name=%q: %s: %v", slot, fd, name, reason, cause)
		return
	}
	s.log.Printf("[chat] evicted slot=%d fd=%d name=%q: %s", slot, fd, name, reason)
}
