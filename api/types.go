// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations, DTOs, and constants.

package api

import "time"

// SessionStatus enumerates the state of a chat session slot.
type SessionStatus int

const (
	SessionFree SessionStatus = iota
	SessionUnregistered
	SessionActive
)

func (s SessionStatus) String() string {
	switch s {
	case SessionUnregistered:
		return "unregistered"
	case SessionActive:
		return "active"
	default:
		return "free"
	}
}

// EvictReason records why a session left the registry.
type EvictReason int

const (
	EvictDisconnect EvictReason = iota
	EvictViolation
	EvictTimeout
	EvictShutdown
	EvictStalled
)

func (r EvictReason) String() string {
	switch r {
	case EvictViolation:
		return "protocol violation"
	case EvictTimeout:
		return "registration timeout"
	case EvictShutdown:
		return "shutdown"
	case EvictStalled:
		return "stalled receiver"
	default:
		return "disconnect"
	}
}

// Key is a compact identifier for metric names.
func (r EvictReason) Key() string {
	switch r {
	case EvictViolation:
		return "violation"
	case EvictTimeout:
		return "timeout"
	case EvictShutdown:
		return "shutdown"
	case EvictStalled:
		return "stalled"
	default:
		return "disconnect"
	}
}

// EvictReasons lists every reason in declaration order.
var EvictReasons = []EvictReason{EvictDisconnect, EvictViolation, EvictTimeout, EvictShutdown, EvictStalled}

// Stats provides a standard layout for server health/statistics reporting.
type Stats struct {
	Sessions       int
	ActiveSessions int
	Accepted       uint64
	Rejected       uint64
	Registered     uint64
	Evicted        map[string]uint64 // keyed by EvictReason.Key
	Relayed        uint64
	StartedAt      time.Time
}

// ServiceInfo exposes descriptive build- and runtime info for external tools.
type ServiceInfo struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`
}
