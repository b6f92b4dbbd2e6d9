// File: server/debug.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Session table snapshots for debug dumps and gauges.

package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/momentics/hioload-chat/api"
	"github.com/momentics/hioload-chat/control"
)

// SessionInfo is a read-only view of one occupied slot.
type SessionInfo struct {
	Slot        int
	FD          int
	Name        string
	Status      api.SessionStatus
	Deadline    time.Duration
	RemoteAddr  string
	ConnectedAt time.Time
}

// SessionTable lists occupied slots in slot order.
type SessionTable []SessionInfo

func (t SessionTable) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  sessions: %d\n", len(t))
	for _, si := range t {
		fmt.Fprintf(&b, "  [%3d] fd=%-4d %-12s %-10s", si.Slot, si.FD, si.Status, si.Name)
		if si.Status == api.SessionUnregistered {
			fmt.Fprintf(&b, " ttl=%s", si.Deadline.Round(time.Millisecond))
		}
		fmt.Fprintf(&b, " peer=%s\n", si.RemoteAddr)
	}
	return b.String()
}

// Sessions returns the table captured at the end of the last loop pass.
// Safe for concurrent use.
func (s *Server) Sessions() SessionTable {
	if t := s.table.Load(); t != nil {
		return *t
	}
	return nil
}

// refresh publishes the registry state to concurrent readers.
func (s *Server) refresh() {
	t := make(SessionTable, 0, s.reg.Len())
	for sess := range s.reg.All() {
		t = append(t, SessionInfo{
			Slot:        sess.Slot,
			FD:          sess.FD(),
			Name:        sess.Name,
			Status:      sess.Status(),
			Deadline:    sess.Deadline,
			RemoteAddr:  sess.Conn.RemoteAddr(),
			ConnectedAt: sess.ConnectedAt,
		})
	}
	s.table.Store(&t)
	s.metrics.Set(control.MetricSessions, s.reg.Len())
	s.metrics.Set(control.MetricActive, s.reg.ActiveLen())
}

func (s *Server) registerProbes() {
	s.probes.RegisterProbe("chat.sessions", func() any { return s.Sessions() })
	s.probes.RegisterProbe("chat.counters", func() any {
		st := s.Stats()
		return fmt.Sprintf("accepted=%d rejected=%d registered=%d relayed=%d evicted=%v",
			st.Accepted, st.Rejected, st.Registered, st.Relayed, st.Evicted)
	})
	s.probes.RegisterProbe("chat.uptime", func() any {
		return s.clock.Now().Sub(s.startedAt).Round(time.Second)
	})
	control.RegisterPlatformProbes(s.probes)
}
