// File: protocol/inbound.go
// Author: momentics <momentics@gmail.com>
//
// Classification of client message text by its leading sigil.

package protocol

import (
	"strings"

	"github.com/momentics/hioload-chat/api"
)

// Inbound is a client message after sigil interpretation.
type Inbound struct {
	Kind Kind   // KindPlain, KindAction or KindPrivate
	Dest string // private destination
	Body string
}

// ParseInbound interprets a client payload. Text after the first newline is
// dropped. A private destination longer than MaxNameLength is a protocol
// violation.
func ParseInbound(payload []byte) (Inbound, error) {
	text := string(payload)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}

	if len(text) > 0 && text[0] == SigilPrivate {
		dest, body, _ := strings.Cut(text[1:], " ")
		if len(dest) > MaxNameLength {
			return Inbound{}, api.Violation("private destination too long", nil).
				WithContext("length", len(dest))
		}
		return Inbound{Kind: KindPrivate, Dest: dest, Body: body}, nil
	}

	if rest, ok := cutAction(text); ok {
		return Inbound{Kind: KindAction, Body: rest}, nil
	}
	return Inbound{Kind: KindPlain, Body: text}, nil
}

// cutAction strips a "/me" or "\me" prefix followed by a space or end of text.
func cutAction(text string) (string, bool) {
	if len(text) < 3 || (text[0] != '/' && text[0] != '\\') || text[1:3] != "me" {
		return "", false
	}
	rest := text[3:]
	if rest != "" && rest[0] != ' ' {
		return "", false
	}
	return rest, true
}
