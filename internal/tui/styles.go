// File: internal/tui/styles.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/momentics/hioload-chat/protocol"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			MarginBottom(1)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	emoteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	selfStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)

	rosterStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	rosterTitleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// renderLine styles one chat line by message kind. self is the local name.
func renderLine(msg protocol.Message, self string) string {
	text := msg.Text()
	switch msg.Kind {
	case protocol.KindJoin, protocol.KindLeave:
		return systemStyle.Render(text)
	case protocol.KindWarning:
		return warningStyle.Render(text)
	case protocol.KindAction, protocol.KindPrivate:
		return emoteStyle.Render(text)
	case protocol.KindPlain:
		if msg.From != "" && msg.From == self {
			return selfStyle.Render(text)
		}
	}
	return text
}
