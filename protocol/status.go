// File: protocol/status.go
// Author: momentics <momentics@gmail.com>
//
// Single-byte status replies and display-name validation.

package protocol

import "github.com/momentics/hioload-chat/api"

// Status is a one-byte server reply on the admission and naming steps.
type Status byte

const (
	// StatusYes admits a connection or accepts a name.
	StatusYes Status = 'Y'
	// StatusNo rejects a connection because the server is full.
	StatusNo Status = 'N'
	// StatusInvalid rejects a malformed name.
	StatusInvalid Status = 'I'
	// StatusTaken rejects a name held by an active session.
	StatusTaken Status = 'T'
)

func (s Status) String() string {
	switch s {
	case StatusYes:
		return "accepted"
	case StatusNo:
		return "rejected"
	case StatusInvalid:
		return "invalid"
	case StatusTaken:
		return "taken"
	default:
		return "unknown"
	}
}

// Err maps a naming reply onto the api error taxonomy; StatusYes maps to nil.
func (s Status) Err() error {
	switch s {
	case StatusYes:
		return nil
	case StatusNo:
		return api.ErrServerFull
	case StatusInvalid:
		return api.ErrNameInvalid
	case StatusTaken:
		return api.ErrNameTaken
	default:
		return api.Violation("unknown status byte", nil).WithContext("status", byte(s))
	}
}

// ValidName reports whether name is 1..MaxNameLength ASCII letters, digits
// or underscores.
func ValidName(name string) bool {
	if len(name) == 0 || len(name) > MaxNameLength {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}
