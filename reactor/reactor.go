// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral backend selection and timeout conversion.

package reactor

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-chat/api"
)

// Backend names a readiness primitive.
type Backend string

const (
	BackendEpoll Backend = "epoll"
	BackendPoll  Backend = "poll"
)

// New constructs a poller for the requested backend.
func New(b Backend) (api.Poller, error) {
	switch b {
	case BackendEpoll:
		return newEpoll()
	case BackendPoll, "":
		return newPoll()
	default:
		return nil, fmt.Errorf("reactor: backend %q: %w", b, api.ErrNotSupported)
	}
}

// timeoutMillis converts a wait bound to the millisecond argument of
// epoll_wait/poll. Partial milliseconds round up so a wait never ends before
// the deadline it was computed from.
func timeoutMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	const maxMillis = 1<<31 - 1
	if ms > maxMillis {
		return maxMillis
	}
	return int(ms)
}
