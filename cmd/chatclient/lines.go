package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/momentics/hioload-chat/api"
	"github.com/momentics/hioload-chat/protocol"
)

var (
	systemColor  = color.New(color.FgHiBlack, color.Italic)
	warningColor = color.New(color.FgRed)
	emoteColor   = color.New(color.FgMagenta)
	selfColor    = color.New(color.FgCyan)
	rosterColor  = color.New(color.FgBlue)
)

// lineChat is what line mode needs from a connection.
type lineChat interface {
	RegisterUntil(next func(prev error) (string, error)) (string, error)
	Send(text string) error
	Receive() (protocol.Message, error)
	Close() error
}

// syncWriter serializes output from the reader and receiver goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) println(c *color.Color, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == nil {
		fmt.Fprintln(s.w, text)
		return
	}
	c.Fprintln(s.w, text)
}

// runLines prompts for a name, then relays stdin lines as messages and prints
// incoming ones until either side ends.
func runLines(chat lineChat, in io.Reader, w io.Writer, max int) error {
	out := &syncWriter{w: w}
	sc := bufio.NewScanner(in)

	name, err := chat.RegisterUntil(func(prev error) (string, error) {
		switch {
		case errors.Is(prev, api.ErrNameInvalid):
			out.println(warningColor, fmt.Sprintf("Names are 1-%d letters, digits or '_'.", protocol.MaxNameLength))
		case errors.Is(prev, api.ErrNameTaken):
			out.println(warningColor, "That name is taken.")
		}
		out.mu.Lock()
		fmt.Fprint(out.w, "Name: ")
		out.mu.Unlock()
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return strings.TrimSpace(sc.Text()), nil
	})
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	out.println(systemColor, fmt.Sprintf("Joined as %s. /me <action>, @name <text> for private.", name))

	lines := make(chan string)
	go func() {
		defer close(lines)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	recvErr := make(chan error, 1)
	go func() {
		for {
			msg, err := chat.Receive()
			if err != nil {
				recvErr <- err
				return
			}
			printMessage(out, msg, name)
		}
	}()

	for {
		select {
		case text, ok := <-lines:
			if !ok {
				chat.Close()
				<-recvErr
				return nil
			}
			if text == "" {
				continue
			}
			if len(text) > max {
				out.println(warningColor, fmt.Sprintf("Message too long (%d > %d bytes).", len(text), max))
				continue
			}
			if err := chat.Send(text); err != nil {
				chat.Close()
				<-recvErr
				return err
			}
		case err := <-recvErr:
			chat.Close()
			if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, api.ErrDisconnected) {
				out.println(systemColor, "Disconnected.")
				return nil
			}
			return err
		}
	}
}

func printMessage(out *syncWriter, msg protocol.Message, self string) {
	switch msg.Kind {
	case protocol.KindJoin, protocol.KindLeave:
		out.println(systemColor, msg.Text())
	case protocol.KindWarning:
		out.println(warningColor, msg.Text())
	case protocol.KindAction, protocol.KindPrivate:
		out.println(emoteColor, msg.Text())
	case protocol.KindRoster:
		out.println(rosterColor, "Online: "+strings.Join(msg.Names, ", "))
	default:
		if msg.From == self {
			out.println(selfColor, msg.Text())
			return
		}
		out.println(nil, msg.Text())
	}
}
