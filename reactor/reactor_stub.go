//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// epoll is Linux-only; other platforms fall back to poll where available.

package reactor

import (
	"fmt"

	"github.com/momentics/hioload-chat/api"
)

func newEpoll() (api.Poller, error) {
	return nil, fmt.Errorf("reactor: epoll: %w", api.ErrNotSupported)
}
