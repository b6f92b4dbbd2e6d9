// internal/transport/sendflags_linux.go
//go:build linux
// +build linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import "golang.org/x/sys/unix"

// sendFlags never blocks and suppresses SIGPIPE on a vanished peer.
const sendFlags = unix.MSG_DONTWAIT | unix.MSG_NOSIGNAL
