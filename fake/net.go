// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake network: listener, poller and clock sharing one descriptor space.

package fake

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/momentics/hioload-chat/api"
)

// Net owns the fake descriptor space.
type Net struct {
	mu       sync.Mutex
	nextFD   int
	clock    *Clock
	listener *Listener
	poller   *Poller
	conns    map[int]*Conn
}

// NewNet creates a network with one listener, one poller and a clock at start.
func NewNet(start time.Time) *Net {
	n := &Net{nextFD: 3, clock: NewClock(start), conns: make(map[int]*Conn)}
	n.listener = &Listener{net: n, fd: n.allocFD(), port: 4000}
	n.poller = &Poller{net: n, watched: make(map[int]bool)}
	return n
}

// Clock returns the shared manual clock.
func (n *Net) Clock() *Clock { return n.clock }

// Listener returns the fake acceptor.
func (n *Net) Listener() *Listener { return n.listener }

// Poller returns the fake readiness multiplexer.
func (n *Net) Poller() *Poller { return n.poller }

func (n *Net) allocFD() int {
	fd := n.nextFD
	n.nextFD++
	return fd
}

func (n *Net) readable(fd int) bool {
	n.mu.Lock()
	l := n.listener
	c := n.conns[fd]
	n.mu.Unlock()
	if fd == l.fd {
		return l.Readable()
	}
	return c != nil && c.Readable()
}

// Listener is a fake api.Listener fed by Dial.
type Listener struct {
	mu        sync.Mutex
	net       *Net
	fd        int
	port      int
	pending   []*Conn
	acceptErr error
	closed    bool
}

var _ api.Listener = (*Listener)(nil)

// Dial queues a new client connection and returns the client's view of it.
func (l *Listener) Dial() *Conn {
	l.net.mu.Lock()
	c := NewConn(l.net.allocFD())
	l.net.conns[c.fd] = c
	l.net.mu.Unlock()

	l.mu.Lock()
	l.pending = append(l.pending, c)
	l.mu.Unlock()
	return c
}

// FailNextAccept makes the next Accept return err.
func (l *Listener) FailNextAccept(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acceptErr = err
}

// Accept pops the oldest pending dial.
func (l *Listener) Accept() (api.Conn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.acceptErr != nil {
		err := l.acceptErr
		l.acceptErr = nil
		if len(l.pending) > 0 {
			l.pending = l.pending[1:]
		}
		return nil, err
	}
	if len(l.pending) == 0 {
		return nil, fmt.Errorf("fake accept: nothing pending")
	}
	c := l.pending[0]
	l.pending = l.pending[1:]
	return c, nil
}

// Readable reports whether a dial is pending.
func (l *Listener) Readable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.closed && len(l.pending) > 0
}

// Close stops the listener.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Closed reports whether Close was called.
func (l *Listener) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// FD returns the listener descriptor.
func (l *Listener) FD() int { return l.fd }

// Port returns a fixed fake port.
func (l *Listener) Port() int { return l.port }

// Poller is a fake api.Poller. Wait never blocks: with nothing ready it
// advances the clock by a non-negative timeout and returns empty.
type Poller struct {
	mu      sync.Mutex
	net     *Net
	watched map[int]bool
	waits   []time.Duration
	wakes   int
	failErr error
	closed  bool
}

var _ api.Poller = (*Poller)(nil)

// Add watches fd.
func (p *Poller) Add(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.ErrPollerClosed
	}
	if p.watched[fd] {
		return fmt.Errorf("fake poller: fd %d already watched", fd)
	}
	p.watched[fd] = true
	return nil
}

// Remove stops watching fd.
func (p *Poller) Remove(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.ErrPollerClosed
	}
	if !p.watched[fd] {
		return fmt.Errorf("fake poller: fd %d not watched", fd)
	}
	delete(p.watched, fd)
	return nil
}

// Wait reports every watched readable descriptor in ascending order.
func (p *Poller) Wait(timeout time.Duration) ([]int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, api.ErrPollerClosed
	}
	p.waits = append(p.waits, timeout)
	if p.failErr != nil {
		err := p.failErr
		p.mu.Unlock()
		return nil, err
	}
	fds := make([]int, 0, len(p.watched))
	for fd := range p.watched {
		fds = append(fds, fd)
	}
	p.mu.Unlock()

	slices.Sort(fds)
	var ready []int
	for _, fd := range fds {
		if p.net.readable(fd) {
			ready = append(ready, fd)
		}
	}
	if len(ready) == 0 && timeout > 0 {
		p.net.clock.Advance(timeout)
	}
	return ready, nil
}

// Wake counts wake-ups.
func (p *Poller) Wake() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wakes++
	return nil
}

// Close stops the poller.
func (p *Poller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Fail makes every following Wait return err.
func (p *Poller) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failErr = err
}

// Watching reports whether fd is in the interest set.
func (p *Poller) Watching(fd int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watched[fd]
}

// Waits returns the timeouts passed to Wait so far.
func (p *Poller) Waits() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.waits)
}

// LastWait returns the most recent Wait timeout.
func (p *Poller) LastWait() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.waits) == 0 {
		return 0
	}
	return p.waits[len(p.waits)-1]
}

// Wakes returns the number of Wake calls.
func (p *Poller) Wakes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wakes
}
