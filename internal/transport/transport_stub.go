//go:build !unix

// internal/transport/transport_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-chat/api"
)

// Options configures Listen.
type Options struct {
	Backlog     int
	ReadTimeout time.Duration
}

// Listener is unavailable on this platform.
type Listener struct{ api.Listener }

// Listen always fails on platforms without unix sockets.
func Listen(host string, port int, opts Options) (*Listener, error) {
	return nil, fmt.Errorf("transport: %w", api.ErrNotSupported)
}
