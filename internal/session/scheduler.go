// File: internal/session/scheduler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Registration timeout tracking without per-session timers.

package session

import "time"

// Scheduler keeps the remaining registration time of Unregistered sessions.
// The minimum is recomputed from the registry on demand.
type Scheduler struct {
	reg     *Registry
	timeout time.Duration
}

// NewScheduler binds a scheduler to reg with the full registration timeout.
func NewScheduler(reg *Registry, timeout time.Duration) *Scheduler {
	return &Scheduler{reg: reg, timeout: timeout}
}

// Timeout returns the full registration timeout.
func (s *Scheduler) Timeout() time.Duration { return s.timeout }

// Arm (re)starts the full registration timeout for sess.
func (s *Scheduler) Arm(sess *Session) {
	sess.Deadline = s.timeout
}

// Disarm clears the deadline of sess.
func (s *Scheduler) Disarm(sess *Session) {
	sess.Deadline = 0
}

// Next returns the smallest remaining deadline. ok is false when no session
// is waiting to register, meaning the caller may block indefinitely.
func (s *Scheduler) Next() (d time.Duration, ok bool) {
	for sess := range s.reg.Unregistered() {
		if !ok || sess.Deadline < d {
			d, ok = sess.Deadline, true
		}
	}
	if ok && d < 0 {
		d = 0
	}
	return d, ok
}

// Advance subtracts elapsed from every Unregistered deadline and hands each
// session that reached zero to expire. It returns the number expired.
func (s *Scheduler) Advance(elapsed time.Duration, expire func(*Session)) int {
	if elapsed < 0 {
		elapsed = 0
	}
	var expired []*Session
	for sess := range s.reg.Unregistered() {
		sess.Deadline -= elapsed
		if sess.Deadline <= 0 {
			expired = append(expired, sess)
		}
	}
	for _, sess := range expired {
		expire(sess)
	}
	return len(expired)
}
