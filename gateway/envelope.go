// File: gateway/envelope.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// JSON envelopes exchanged with browsers.

package gateway

import "github.com/momentics/hioload-chat/protocol"

// Envelope types.
const (
	// browser -> gateway
	TypeJoin = "join"
	TypeSay  = "say"

	// gateway -> browser
	TypeHello   = "hello"
	TypeJoined  = "joined"
	TypeRefused = "refused"
	TypeMessage = "message"
	TypeRoster  = "roster"
	TypeError   = "error"
)

// Envelope is the single JSON shape used in both directions. Unused fields
// are omitted.
type Envelope struct {
	Type  string   `json:"type"`
	ID    string   `json:"id,omitempty"`
	Name  string   `json:"name,omitempty"`
	Kind  string   `json:"kind,omitempty"`
	From  string   `json:"from,omitempty"`
	To    string   `json:"to,omitempty"`
	Text  string   `json:"text,omitempty"`
	Names []string `json:"names,omitempty"`
	Error string   `json:"error,omitempty"`
}

// fromMessage converts a decoded chat frame. Text carries the line exactly as
// a terminal client would print it.
func fromMessage(m protocol.Message) Envelope {
	if m.Kind == protocol.KindRoster {
		return Envelope{Type: TypeRoster, Names: m.Names}
	}
	return Envelope{
		Type: TypeMessage,
		Kind: m.Kind.String(),
		From: m.From,
		To:   m.To,
		Text: m.Text(),
	}
}

func errorEnvelope(err error) Envelope {
	return Envelope{Type: TypeError, Error: err.Error()}
}
