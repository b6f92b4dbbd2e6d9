// File: cmd/chatgateway/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// chatgateway <listen-addr> <chat-host> <chat-port>
//
// Serves browsers on ws://<listen-addr>/ws and bridges each connection to the
// chat server.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/momentics/hioload-chat/api"
	"github.com/momentics/hioload-chat/gateway"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chatgateway:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "chatgateway <listen-addr> <chat-host> <chat-port>",
		Short:         "Bridge WebSocket browsers to a chat server",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[2])
			if err != nil || port < 1 || port > 65535 {
				return fmt.Errorf("invalid chat port %q", args[2])
			}
			return run(cmd.Context(), args[0], net.JoinHostPort(args[1], args[2]))
		},
	}
}

func run(ctx context.Context, listenAddr, chatAddr string) error {
	logger := log.New(os.Stderr, "", log.LstdFlags)
	g := gateway.New(gateway.DefaultConfig(chatAddr),
		gateway.WithLogger(logger),
		gateway.WithServiceInfo(api.ServiceInfo{
			Name:      "chatgateway",
			Version:   version,
			StartedAt: time.Now(),
		}),
	)

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	logger.Printf("[gateway] listening on %s, chat server %s", ln.Addr(), chatAddr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	g.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
