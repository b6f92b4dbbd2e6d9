// Package session
// Author: momentics <momentics@gmail.com>
//
// Client session table for the chat event loop.
// Sessions live in a fixed-capacity slot arena addressed by stable indices,
// with descriptor and name indices beside it. The table is owned by a single
// goroutine and is not safe for concurrent use.
//
// The timeout scheduler tracks the remaining registration time of every
// unregistered session and expires them as wall time advances.

package session
