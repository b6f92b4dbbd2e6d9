// File: cmd/chatserver/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// chatserver <port>
//
// Runs the chat server on all IPv4 interfaces until SIGINT or SIGTERM.
// SIGUSR1 prints the session table to stderr.

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/momentics/hioload-chat/internal/transport"
	"github.com/momentics/hioload-chat/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chatserver:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "chatserver <port>",
		Short:         "Run the chat server on the given TCP port",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := parsePort(args[0])
			if err != nil {
				return err
			}
			return run(cmd.Context(), port)
		},
	}
}

// parsePort accepts 0..65535; zero binds an ephemeral port.
func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port < 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return port, nil
}

func run(ctx context.Context, port int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := server.DefaultConfig()
	logger := log.New(os.Stderr, "", log.LstdFlags)

	ln, err := transport.Listen("", port, transport.Options{
		Backlog:     cfg.ListenBacklog,
		ReadTimeout: cfg.FrameReadTimeout,
	})
	if err != nil {
		return err
	}
	srv, err := server.NewServer(ln, cfg, server.WithLogger(logger))
	if err != nil {
		ln.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer watchDump(srv)()

	return srv.Run(ctx)
}
