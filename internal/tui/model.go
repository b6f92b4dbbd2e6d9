// File: internal/tui/model.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package tui is the interactive chat front end: a name prompt followed by a
// scrolling message log, a roster pane and an input line.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/momentics/hioload-chat/api"
	"github.com/momentics/hioload-chat/protocol"
)

// Chat is the connection the model drives. *client.Client satisfies it.
type Chat interface {
	Register(name string) error
	Send(text string) error
	Receive() (protocol.Message, error)
}

const (
	defaultWidth  = 80
	defaultHeight = 24
	rosterWidth   = protocol.MaxNameLength + 4
	maxLogLines   = 1000
)

type phase int

const (
	phaseName phase = iota
	phaseChat
	phaseDone
)

type registeredMsg struct {
	name string
	err  error
}

type incomingMsg struct{ msg protocol.Message }

type sentMsg struct{ err error }

type closedMsg struct{ err error }

// Model is the bubbletea model of a chat session.
type Model struct {
	chat   Chat
	phase  phase
	self   string
	input  textinput.Model
	log    viewport.Model
	lines  []string
	roster []string
	status string
	width  int
	height int
	err    error
}

// New builds a model over an admitted, not yet registered connection.
func New(chat Chat) Model {
	in := textinput.New()
	in.Placeholder = "name"
	in.CharLimit = protocol.MaxNameLength
	in.Focus()

	m := Model{
		chat:   chat,
		input:  in,
		width:  defaultWidth,
		height: defaultHeight,
	}
	m.log = viewport.New(m.logSize())
	return m
}

// Err returns the error that ended the session, if any.
func (m Model) Err() error { return m.err }

// Name returns the registered name.
func (m Model) Name() string { return m.self }

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.log.Width, m.log.Height = m.logSize()
		m.input.Width = max(10, m.width-4)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.phase = phaseDone
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.log, cmd = m.log.Update(msg)
			return m, cmd
		}

	case registeredMsg:
		return m.registered(msg)

	case incomingMsg:
		m.receive(msg.msg)
		return m, m.receiveCmd()

	case sentMsg:
		if msg.err != nil {
			m.err = msg.err
			m.phase = phaseDone
			return m, tea.Quit
		}
		return m, nil

	case closedMsg:
		m.err = msg.err
		m.phase = phaseDone
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	switch m.phase {
	case phaseName:
		if !protocol.ValidName(text) {
			m.status = "Invalid name: use 1-10 letters, digits or underscores."
			return m, nil
		}
		m.status = "Registering..."
		return m, m.registerCmd(text)
	case phaseChat:
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		return m, m.sendCmd(text)
	}
	return m, nil
}

func (m Model) registered(msg registeredMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		m.self = msg.name
		m.phase = phaseChat
		m.status = ""
		m.input.Reset()
		m.input.Placeholder = "message, /me action, @name private"
		m.input.CharLimit = protocol.MaxMessageLength
		return m, m.receiveCmd()
	case errors.Is(msg.err, api.ErrNameTaken):
		m.status = fmt.Sprintf("Name %q is taken, pick another.", msg.name)
	case errors.Is(msg.err, api.ErrNameInvalid):
		m.status = fmt.Sprintf("Name %q was refused as invalid.", msg.name)
	default:
		m.err = msg.err
		m.phase = phaseDone
		return m, tea.Quit
	}
	m.input.Reset()
	return m, nil
}

func (m *Model) receive(msg protocol.Message) {
	if msg.Kind == protocol.KindRoster {
		m.roster = msg.Names
		return
	}
	m.lines = append(m.lines, renderLine(msg, m.self))
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
	m.log.SetContent(strings.Join(m.lines, "\n"))
	m.log.GotoBottom()
}

func (m Model) registerCmd(name string) tea.Cmd {
	chat := m.chat
	return func() tea.Msg {
		return registeredMsg{name: name, err: chat.Register(name)}
	}
}

func (m Model) sendCmd(text string) tea.Cmd {
	chat := m.chat
	return func() tea.Msg {
		return sentMsg{err: chat.Send(text)}
	}
}

func (m Model) receiveCmd() tea.Cmd {
	chat := m.chat
	return func() tea.Msg {
		msg, err := chat.Receive()
		if err != nil {
			return closedMsg{err: err}
		}
		return incomingMsg{msg: msg}
	}
}

func (m Model) logSize() (int, int) {
	return max(10, m.width-rosterWidth-4), max(3, m.height-4)
}

func (m Model) View() string {
	var b strings.Builder
	switch m.phase {
	case phaseName:
		b.WriteString(titleStyle.Render("Choose a name"))
		b.WriteString("\n")
		b.WriteString(m.input.View())
	case phaseChat, phaseDone:
		_, h := m.logSize()
		roster := rosterTitleStyle.Render("online") + "\n" + strings.Join(m.roster, "\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			m.log.View(),
			rosterStyle.Width(rosterWidth).Height(h).Render(roster),
		))
		b.WriteString("\n")
		b.WriteString(m.input.View())
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	return b.String()
}
