// File: internal/session/session.go
// Package session
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-connection session state.

package session

import (
	"time"

	"github.com/momentics/hioload-chat/api"
)

// Session is one connected client occupying a registry slot.
type Session struct {
	// Slot is the stable arena index of this session.
	Slot int
	// Conn is exclusively owned by the session and closed on eviction.
	Conn api.Conn
	// Name is empty until registration succeeds.
	Name string
	// Deadline is the remaining registration time; zero once Active.
	Deadline time.Duration
	// ConnectedAt records admission time.
	ConnectedAt time.Time

	active  bool
	evicted bool
}

// Status derives the lifecycle state.
func (s *Session) Status() api.SessionStatus {
	switch {
	case s.evicted:
		return api.SessionFree
	case s.active:
		return api.SessionActive
	default:
		return api.SessionUnregistered
	}
}

// Active reports whether the session completed registration.
func (s *Session) Active() bool {
	return s.active && !s.evicted
}

// Evicted reports whether the session has left the registry.
func (s *Session) Evicted() bool {
	return s.evicted
}

// FD is a shortcut for the connection descriptor.
func (s *Session) FD() int {
	return s.Conn.FD()
}
