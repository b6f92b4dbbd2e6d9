//go:build unix

// File: reactor/poll_unix.go
// Author: momentics <momentics@gmail.com>
//
// poll(2) implementation. The descriptor array is rebuilt from the interest
// set on every Wait.

package reactor

import (
	"fmt"
	"slices"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-chat/api"
)

type pollPoller struct {
	fds    []int
	wake   wakePipe
	pfds   []unix.PollFd
	closed bool
}

func newPoll() (api.Poller, error) {
	wake, err := newWakePipe()
	if err != nil {
		return nil, err
	}
	return &pollPoller{wake: wake}, nil
}

func (p *pollPoller) Add(fd int) error {
	if p.closed {
		return api.ErrPollerClosed
	}
	if slices.Contains(p.fds, fd) {
		return fmt.Errorf("poll add fd=%d: %w", fd, unix.EEXIST)
	}
	p.fds = append(p.fds, fd)
	return nil
}

func (p *pollPoller) Remove(fd int) error {
	if p.closed {
		return api.ErrPollerClosed
	}
	i := slices.Index(p.fds, fd)
	if i < 0 {
		return fmt.Errorf("poll remove fd=%d: %w", fd, unix.ENOENT)
	}
	p.fds = slices.Delete(p.fds, i, i+1)
	return nil
}

func (p *pollPoller) Wait(timeout time.Duration) ([]int, error) {
	if p.closed {
		return nil, api.ErrPollerClosed
	}
	p.pfds = p.pfds[:0]
	p.pfds = append(p.pfds, unix.PollFd{Fd: int32(p.wake.r), Events: unix.POLLIN})
	for _, fd := range p.fds {
		p.pfds = append(p.pfds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	}

	n, err := unix.Poll(p.pfds, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("poll: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	const readable = unix.POLLIN | unix.POLLHUP | unix.POLLERR
	ready := make([]int, 0, n)
	for _, pfd := range p.pfds {
		if pfd.Revents&unix.POLLNVAL != 0 {
			return nil, fmt.Errorf("poll: fd=%d: %w", pfd.Fd, unix.EBADF)
		}
		if pfd.Revents&readable == 0 {
			continue
		}
		if int(pfd.Fd) == p.wake.r {
			p.wake.drain()
			continue
		}
		ready = append(ready, int(pfd.Fd))
	}
	return ready, nil
}

func (p *pollPoller) Wake() error {
	return p.wake.signal()
}

func (p *pollPoller) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.fds = nil
	return p.wake.close()
}
