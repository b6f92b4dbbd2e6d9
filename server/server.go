// File: server/server.go
// Package server implements the chat event loop: one goroutine owns the
// listener, every client socket, the session registry and the registration
// timeout schedule.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-chat/api"
	"github.com/momentics/hioload-chat/control"
	"github.com/momentics/hioload-chat/internal/session"
	"github.com/momentics/hioload-chat/reactor"
)

var ErrAlreadyRunning = errors.New("server already running")

// Server is the chat server.
type Server struct {
	cfg     *Config
	ln      api.Listener
	poller  api.Poller
	reg     *session.Registry
	sched   *session.Scheduler
	clock   Clock
	log     *log.Logger
	metrics *control.MetricsRegistry
	probes  *control.DebugProbes

	startedAt time.Time
	lastTick  time.Time
	table     atomic.Pointer[SessionTable]
	running   atomic.Bool

	stalled []*session.Session // partial sends awaiting eviction
}

// NewServer builds a server around ln. The server owns ln and the poller and
// closes both when Run returns.
func NewServer(ln api.Listener, cfg *Config, opts ...ServerOption) (*Server, error) {
	if ln == nil {
		return nil, fmt.Errorf("server: nil listener: %w", api.ErrInvalidArgument)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		ln:      ln,
		clock:   systemClock{},
		log:     log.New(os.Stderr, "", log.LstdFlags),
		metrics: control.NewMetricsRegistry(),
		probes:  control.NewDebugProbes(),
	}
	for _, o := range opts {
		o(s)
	}

	if s.poller == nil {
		p, err := reactor.New(cfg.Backend)
		if err != nil {
			return nil, fmt.Errorf("server: poller: %w", err)
		}
		s.poller = p
	}
	if err := s.poller.Add(ln.FD()); err != nil {
		s.poller.Close()
		return nil, fmt.Errorf("server: watch listener: %w", err)
	}

	s.reg = session.NewRegistry(cfg.MaxClients)
	s.sched = session.NewScheduler(s.reg, cfg.RegistrationTimeout)
	s.startedAt = s.clock.Now()
	s.lastTick = s.startedAt
	s.registerProbes()
	s.refresh()
	return s, nil
}

// Port reports the port the listener is bound to.
func (s *Server) Port() int { return s.ln.Port() }

// Metrics exposes the runtime counters.
func (s *Server) Metrics() *control.MetricsRegistry { return s.metrics }

// Run drives the event loop until ctx is cancelled or the poller fails.
// Cancellation is not an error. On return every session is closed together
// with the listener and the poller.
func (s *Server) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	stop := context.AfterFunc(ctx, func() {
		if err := s.poller.Wake(); err != nil {
			s.log.Printf("[chat] wake: %v", err)
		}
	})
	defer stop()
	defer s.shutdown()

	s.log.Printf("[chat] serving on port %d (capacity %d, registration timeout %s)",
		s.ln.Port(), s.cfg.MaxClients, s.sched.Timeout())
	for ctx.Err() == nil {
		if err := s.Iterate(); err != nil {
			s.log.Printf("[chat] event loop stopped: %v", err)
			return err
		}
	}
	return nil
}

// Iterate runs one pass of the event loop: wait for readiness bounded by the
// nearest registration deadline, expire overdue sessions, then dispatch at
// most one ready source, the listener first. The returned error is fatal.
func (s *Server) Iterate() error {
	timeout := time.Duration(-1)
	if d, ok := s.sched.Next(); ok {
		timeout = d
	}

	ready, err := s.poller.Wait(timeout)
	if err != nil {
		return fmt.Errorf("server: wait: %w", err)
	}

	now := s.clock.Now()
	elapsed := now.Sub(s.lastTick)
	s.lastTick = now
	if n := s.sched.Advance(elapsed, s.expire); n > 0 {
		s.log.Printf("[chat] %d session(s) timed out during registration", n)
	}

	if len(ready) > 0 {
		s.dispatch(ready)
	}
	s.reap()
	s.refresh()
	return nil
}

func (s *Server) dispatch(ready []int) {
	lfd := s.ln.FD()
	var next *session.Session
	for _, fd := range ready {
		if fd == lfd {
			s.accept()
			return
		}
		sess, ok := s.reg.FindByFD(fd)
		if !ok {
			continue // evicted earlier in this pass
		}
		if next == nil || sess.Slot < next.Slot {
			next = sess
		}
	}
	if next != nil {
		s.handle(next)
	}
}

func (s *Server) expire(sess *session.Session) {
	s.evict(sess, api.EvictTimeout, nil)
}

// shutdown releases every resource owned by the loop.
func (s *Server) shutdown() {
	for sess := range s.reg.All() {
		s.evict(sess, api.EvictShutdown, nil)
	}
	if err := s.ln.Close(); err != nil {
		s.log.Printf("[chat] close listener: %v", err)
	}
	if err := s.poller.Close(); err != nil {
		s.log.Printf("[chat] close poller: %v", err)
	}
	s.refresh()
	s.running.Store(false)
}

// Stats returns a snapshot of the server counters. Safe for concurrent use.
func (s *Server) Stats() api.Stats {
	st := api.Stats{
		Sessions:       s.metrics.Gauge(control.MetricSessions),
		ActiveSessions: s.metrics.Gauge(control.MetricActive),
		Accepted:       s.metrics.Counter(control.MetricAccepted),
		Rejected:       s.metrics.Counter(control.MetricRejected),
		Registered:     s.metrics.Counter(control.MetricRegistered),
		Relayed:        s.metrics.Counter(control.MetricRelayed),
		Evicted:        make(map[string]uint64, len(api.EvictReasons)),
		StartedAt:      s.startedAt,
	}
	for _, r := range api.EvictReasons {
		st.Evicted[r.Key()] = s.metrics.Counter(control.MetricEvictedPrefix + r.Key())
	}
	return st
}

// DumpSessions writes the session table and server counters to w. Safe for
// concurrent use; the table reflects the end of the last loop pass.
func (s *Server) DumpSessions(w io.Writer) error {
	_, err := s.probes.WriteTo(w)
	return err
}
