// internal/transport/sendflags_other.go
//go:build unix && !linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import "golang.org/x/sys/unix"

// MSG_NOSIGNAL is Linux-only; the Go runtime already reports EPIPE for sockets.
const sendFlags = unix.MSG_DONTWAIT
