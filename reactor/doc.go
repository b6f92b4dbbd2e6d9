// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides readiness multiplexing for the chat event loop:
// an epoll backend on Linux and a poll(2) backend on every unix, both
// interruptible through a self-pipe.
package reactor
