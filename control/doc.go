// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection for the chat server.
//
// Provides concurrent-safe state handling primitives including:
//   - Named counters and gauges with snapshot reads
//   - Debug probe registration and text dumps of their state
//
// The event loop writes; any goroutine may read.
package control
