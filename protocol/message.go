// File: protocol/message.go
// Author: momentics <momentics@gmail.com>
//
// Tagged chat message variants and their single text serialization.

package protocol

import (
	"strings"
)

// Kind tags a chat message variant.
type Kind int

const (
	KindPlain Kind = iota + 1
	KindAction
	KindPrivate
	KindJoin
	KindLeave
	KindWarning
	KindRoster
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindAction:
		return "action"
	case KindPrivate:
		return "private"
	case KindJoin:
		return "join"
	case KindLeave:
		return "leave"
	case KindWarning:
		return "warning"
	case KindRoster:
		return "roster"
	default:
		return "unknown"
	}
}

const (
	// SigilRoster prefixes server-originated roster updates.
	SigilRoster = '%'
	// SigilPrivate prefixes a client private message ("@bob hi").
	SigilPrivate = '@'
	// SigilPlain prefixes relayed plain messages.
	SigilPlain = '>'
	// SigilEmote prefixes relayed action and private messages.
	SigilEmote = '*'

	// nameField is the column width names are right-aligned to.
	nameField = MaxNameLength

	joinPrefix  = "User "
	joinSuffix  = " has joined"
	leaveSuffix = " has left"
	warnPrefix  = "Warning: user "
	warnSuffix  = " doesn't exist..."
)

// Message is one server-originated chat line. From is the author (or subject
// for Join/Leave), To the unknown recipient for Warning, Body the text, and
// Names the roster for RosterUpdate.
type Message struct {
	Kind  Kind
	From  string
	To    string
	Body  string
	Names []string
}

// Plain builds a relayed plain message.
func Plain(from, body string) Message { return Message{Kind: KindPlain, From: from, Body: body} }

// Action builds a relayed "/me" action; body keeps its leading space.
func Action(from, body string) Message { return Message{Kind: KindAction, From: from, Body: body} }

// Private builds a private message rendering.
func Private(from, body string) Message { return Message{Kind: KindPrivate, From: from, Body: body} }

// Join announces a newly registered name.
func Join(name string) Message { return Message{Kind: KindJoin, From: name} }

// Leave announces a departed name.
func Leave(name string) Message { return Message{Kind: KindLeave, From: name} }

// Warning tells a sender that the private destination does not exist.
func Warning(dest string) Message { return Message{Kind: KindWarning, To: dest} }

// Roster lists the active names in slot order.
func Roster(names []string) Message { return Message{Kind: KindRoster, Names: names} }

// Text renders the message into its wire payload.
func (m Message) Text() string {
	var b strings.Builder
	switch m.Kind {
	case KindPlain:
		b.WriteByte(SigilPlain)
		b.WriteByte(' ')
		pad(&b, m.From)
		b.WriteString(m.From)
		b.WriteString(": ")
		b.WriteString(m.Body)
	case KindPrivate:
		b.WriteByte(SigilEmote)
		pad(&b, m.From)
		b.WriteString(m.From)
		b.WriteString(": ")
		b.WriteString(m.Body)
	case KindAction:
		b.WriteByte(SigilEmote)
		b.WriteString(m.From)
		b.WriteString(m.Body)
	case KindJoin:
		b.WriteString(joinPrefix + m.From + joinSuffix)
	case KindLeave:
		b.WriteString(joinPrefix + m.From + leaveSuffix)
	case KindWarning:
		b.WriteString(warnPrefix + m.To + warnSuffix)
	case KindRoster:
		b.WriteByte(SigilRoster)
		for _, name := range m.Names {
			b.WriteString(name)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Payload renders the message as frame payload bytes.
func (m Message) Payload() []byte {
	return []byte(m.Text())
}

// pad right-aligns name in the name column; padding never goes negative.
func pad(b *strings.Builder, name string) {
	if n := nameField - len(name); n > 0 {
		b.WriteString(strings.Repeat(" ", n))
	}
}

// DecodeServerText classifies a payload received from the server. Action and
// private renderings share the '*' sigil and both decode as KindAction with
// the rest of the line in Body, so Text reproduces the payload.
func DecodeServerText(payload []byte) Message {
	text := string(payload)
	switch {
	case len(text) > 0 && text[0] == SigilRoster:
		var names []string
		for _, line := range strings.Split(text[1:], "\n") {
			if line = strings.TrimSpace(line); line != "" {
				names = append(names, line)
			}
		}
		return Roster(names)
	case len(text) > 0 && text[0] == SigilPlain:
		if from, body, ok := strings.Cut(strings.TrimLeft(text[1:], " "), ": "); ok {
			return Plain(from, body)
		}
	case len(text) > 0 && text[0] == SigilEmote:
		return Message{Kind: KindAction, Body: text[1:]}
	case strings.HasPrefix(text, warnPrefix) && strings.HasSuffix(text, warnSuffix):
		return Warning(strings.TrimSuffix(strings.TrimPrefix(text, warnPrefix), warnSuffix))
	case strings.HasPrefix(text, joinPrefix) && strings.HasSuffix(text, joinSuffix):
		return Join(strings.TrimSuffix(strings.TrimPrefix(text, joinPrefix), joinSuffix))
	case strings.HasPrefix(text, joinPrefix) && strings.HasSuffix(text, leaveSuffix):
		return Leave(strings.TrimSuffix(strings.TrimPrefix(text, joinPrefix), leaveSuffix))
	}
	return Message{Kind: KindPlain, Body: text}
}
