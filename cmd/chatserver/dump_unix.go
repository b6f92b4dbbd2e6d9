//go:build unix

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/momentics/hioload-chat/server"
)

// watchDump prints the session table on SIGUSR1 until the returned func runs.
func watchDump(srv *server.Server) func() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sig:
				srv.DumpSessions(os.Stderr)
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sig)
		close(done)
	}
}
