//go:build !unix

// File: reactor/poll_stub.go
// Author: momentics <momentics@gmail.com>

package reactor

import (
	"fmt"

	"github.com/momentics/hioload-chat/api"
)

func newPoll() (api.Poller, error) {
	return nil, fmt.Errorf("reactor: poll: %w", api.ErrNotSupported)
}
