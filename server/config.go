// File: server/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server configuration with defaults matching the classic chat server limits.

package server

import (
	"fmt"
	"runtime"
	"time"

	"github.com/momentics/hioload-chat/api"
	"github.com/momentics/hioload-chat/protocol"
	"github.com/momentics/hioload-chat/reactor"
)

// Config holds all server-side configuration parameters.
type Config struct {
	MaxClients          int             // registry capacity
	RegistrationTimeout time.Duration   // time allowed to complete the name handshake
	MaxMessageLength    int             // largest accepted inbound message payload
	FrameReadTimeout    time.Duration   // bound on reading the rest of a frame once readable
	ListenBacklog       int             // listen(2) queue length
	Backend             reactor.Backend // readiness primitive
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	backend := reactor.BackendPoll
	if runtime.GOOS == "linux" {
		backend = reactor.BackendEpoll
	}
	return &Config{
		MaxClients:          255,
		RegistrationTimeout: 60 * time.Second,
		MaxMessageLength:    protocol.MaxMessageLength,
		FrameReadTimeout:    200 * time.Millisecond,
		ListenBacklog:       6,
		Backend:             backend,
	}
}

// Validate rejects values the event loop cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.MaxClients <= 0:
		return fmt.Errorf("config: MaxClients %d: %w", c.MaxClients, api.ErrInvalidArgument)
	case c.RegistrationTimeout <= 0:
		return fmt.Errorf("config: RegistrationTimeout %v: %w", c.RegistrationTimeout, api.ErrInvalidArgument)
	case c.MaxMessageLength <= 0 || c.MaxMessageLength > protocol.MaxFramePayload:
		return fmt.Errorf("config: MaxMessageLength %d: %w", c.MaxMessageLength, api.ErrInvalidArgument)
	case c.FrameReadTimeout <= 0:
		return fmt.Errorf("config: FrameReadTimeout %v: %w", c.FrameReadTimeout, api.ErrInvalidArgument)
	case c.ListenBacklog <= 0:
		return fmt.Errorf("config: ListenBacklog %d: %w", c.ListenBacklog, api.ErrInvalidArgument)
	}
	return nil
}
