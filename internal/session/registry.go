// File: internal/session/registry.go
// Package session
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed-capacity slot arena with a free-slot FIFO and name/descriptor indices.

package session

import (
	"fmt"
	"iter"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-chat/api"
)

// Registry holds every live session.
type Registry struct {
	slots  []*Session
	free   *queue.Queue
	byFD   map[int]int
	byName map[string]int
	active int
}

// NewRegistry creates a registry holding at most capacity sessions.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = 1
	}
	free := queue.New()
	for i := 0; i < capacity; i++ {
		free.Add(i)
	}
	return &Registry{
		slots:  make([]*Session, capacity),
		free:   free,
		byFD:   make(map[int]int, capacity),
		byName: make(map[string]int, capacity),
	}
}

// Cap returns the registry capacity.
func (r *Registry) Cap() int { return len(r.slots) }

// Len returns the number of occupied slots.
func (r *Registry) Len() int { return len(r.slots) - r.free.Length() }

// ActiveLen returns the number of registered sessions.
func (r *Registry) ActiveLen() int { return r.active }

// Full reports whether no slot is free.
func (r *Registry) Full() bool { return r.free.Length() == 0 }

// Allocate places conn in a free slot as an Unregistered session.
func (r *Registry) Allocate(conn api.Conn, now time.Time) (*Session, error) {
	if conn == nil {
		return nil, fmt.Errorf("allocate: nil conn: %w", api.ErrInvalidArgument)
	}
	if r.Full() {
		return nil, api.ErrRegistryFull
	}
	if _, dup := r.byFD[conn.FD()]; dup {
		return nil, fmt.Errorf("allocate: fd %d already registered: %w", conn.FD(), api.ErrInvalidArgument)
	}
	slot := r.free.Remove().(int)
	s := &Session{Slot: slot, Conn: conn, ConnectedAt: now}
	r.slots[slot] = s
	r.byFD[conn.FD()] = slot
	return s, nil
}

// Activate promotes s to Active under name. Names are matched exactly and
// only Active sessions hold them.
func (r *Registry) Activate(s *Session, name string) error {
	if !r.owns(s) {
		return api.ErrNotFound
	}
	if s.active {
		return fmt.Errorf("activate slot %d: already active: %w", s.Slot, api.ErrInvalidArgument)
	}
	if !r.NameIsAvailable(name) {
		return api.ErrNameTaken
	}
	s.Name = name
	s.Deadline = 0
	s.active = true
	r.byName[name] = s.Slot
	r.active++
	return nil
}

// Evict closes the session connection, frees the slot and releases the name.
// Evicting a session twice is a no-op.
func (r *Registry) Evict(s *Session) error {
	if !r.owns(s) {
		return nil
	}
	r.slots[s.Slot] = nil
	delete(r.byFD, s.Conn.FD())
	if s.active {
		delete(r.byName, s.Name)
		r.active--
	}
	s.evicted = true
	s.Deadline = 0
	r.free.Add(s.Slot)
	return s.Conn.Close()
}

// NameIsAvailable reports whether no Active session holds name.
func (r *Registry) NameIsAvailable(name string) bool {
	_, taken := r.byName[name]
	return !taken
}

// FindByName returns the Active session holding name.
func (r *Registry) FindByName(name string) (*Session, bool) {
	slot, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.slots[slot], true
}

// FindByFD returns the session owning descriptor fd.
func (r *Registry) FindByFD(fd int) (*Session, bool) {
	slot, ok := r.byFD[fd]
	if !ok {
		return nil, false
	}
	return r.slots[slot], true
}

// All yields every live session in slot order.
func (r *Registry) All() iter.Seq[*Session] {
	return func(yield func(*Session) bool) {
		for _, s := range r.slots {
			if s != nil && !yield(s) {
				return
			}
		}
	}
}

// Active yields Active sessions in slot order.
func (r *Registry) Active() iter.Seq[*Session] {
	return r.filter(func(s *Session) bool { return s.active })
}

// Unregistered yields sessions still completing the name handshake.
func (r *Registry) Unregistered() iter.Seq[*Session] {
	return r.filter(func(s *Session) bool { return !s.active })
}

// Names lists Active names in slot order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.active)
	for s := range r.Active() {
		names = append(names, s.Name)
	}
	return names
}

func (r *Registry) filter(keep func(*Session) bool) iter.Seq[*Session] {
	return func(yield func(*Session) bool) {
		for s := range r.All() {
			if keep(s) && !yield(s) {
				return
			}
		}
	}
}

func (r *Registry) owns(s *Session) bool {
	return s != nil && s.Slot >= 0 && s.Slot < len(r.slots) && r.slots[s.Slot] == s
}
