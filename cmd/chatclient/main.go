// File: cmd/chatclient/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// chatclient <host> <port>
//
// Interactive terminals get the full-screen interface; anything else (pipes,
// scripts) gets a plain line mode.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/momentics/hioload-chat/api"
	"github.com/momentics/hioload-chat/client"
	"github.com/momentics/hioload-chat/internal/tui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chatclient:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "chatclient <host> <port>",
		Short:         "Join a chat server",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[1])
			if err != nil || port < 0 || port > 65535 {
				return fmt.Errorf("invalid port %q", args[1])
			}
			return run(cmd.Context(), net.JoinHostPort(args[0], args[1]))
		},
	}
}

func run(ctx context.Context, addr string) error {
	cfg := client.DefaultConfig()
	c, err := client.Dial(ctx, addr, cfg)
	if errors.Is(err, api.ErrServerFull) {
		return fmt.Errorf("%s: server is full, try again later", addr)
	}
	if err != nil {
		return err
	}
	defer c.Close()

	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		return runTUI(c)
	}
	return runLines(c, os.Stdin, os.Stdout, cfg.MaxMessageLength)
}

func runTUI(c *client.Client) error {
	final, err := tea.NewProgram(tui.New(c), tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(tui.Model); ok {
		if err := m.Err(); err != nil && !errors.Is(err, api.ErrDisconnected) {
			return err
		}
	}
	return nil
}
