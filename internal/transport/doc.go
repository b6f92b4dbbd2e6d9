// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw socket layer for the chat server, built directly on golang.org/x/sys/unix
// so every connection is a plain descriptor that can join a poller interest set.
// Reads are whole-frame (MSG_WAITALL bounded by SO_RCVTIMEO); sends are gathered,
// non-blocking and best-effort.

package transport
