// File: server/options.go
// Package server defines functional options for the chat Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log"
	"time"

	"github.com/momentics/hioload-chat/api"
	"github.com/momentics/hioload-chat/control"
)

// Clock supplies wall time to the event loop.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithLogger replaces the default stderr logger.
func WithLogger(l *log.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source used for registration deadlines.
func WithClock(c Clock) ServerOption {
	return func(s *Server) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithPoller supplies the readiness multiplexer instead of building one from
// Config.Backend. The server takes ownership and closes it.
func WithPoller(p api.Poller) ServerOption {
	return func(s *Server) {
		s.poller = p
	}
}

// WithMetrics shares a metrics registry with the caller.
func WithMetrics(m *control.MetricsRegistry) ServerOption {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}
