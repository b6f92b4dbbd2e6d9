// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for readiness multiplexing used by the
// chat event loop, independent of the polling mechanism (epoll, poll).

package api

import "time"

// Poller waits on many descriptors and reports which are readable.
type Poller interface {
	// Add places fd in the interest set.
	Add(fd int) error

	// Remove drops fd from the interest set.
	Remove(fd int) error

	// Wait blocks until at least one descriptor is readable, the timeout
	// elapses, or Wake is called. A negative timeout blocks indefinitely.
	// Timeout and wake-ups return an empty slice and a nil error.
	Wait(timeout time.Duration) ([]int, error)

	// Wake interrupts a blocked Wait from another goroutine.
	Wake() error

	// Close releases the poller backend.
	Close() error
}
