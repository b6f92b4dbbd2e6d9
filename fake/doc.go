// Package fake
// Author: momentics <momentics@gmail.com>
//
// In-memory stand-ins for the socket, listener, poller and clock contracts.
// A Net ties them together: the poller reports a descriptor ready exactly when
// its fake listener has a pending dial or its fake conn has buffered input or
// a hang-up, and a timed wait with nothing ready advances the manual clock by
// the full timeout. Engine tests stay deterministic without real sockets.

package fake
