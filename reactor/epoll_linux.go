//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - Linux epoll implementation.

package reactor

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-chat/api"
)

// epollPoller implements api.Poller using level-triggered Linux epoll.
type epollPoller struct {
	epfd   int
	wake   wakePipe
	events []unix.EpollEvent
	closed bool
}

// newEpoll creates a new instance of epollPoller.
func newEpoll() (api.Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wake, err := newWakePipe()
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	p := &epollPoller{
		epfd:   epfd,
		wake:   wake,
		events: make([]unix.EpollEvent, 128),
	}
	if err := p.ctl(unix.EPOLL_CTL_ADD, wake.r); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *epollPoller) ctl(op, fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, op, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl fd=%d: %w", fd, err)
	}
	return nil
}

// Add registers fd for read readiness.
func (p *epollPoller) Add(fd int) error {
	if p.closed {
		return api.ErrPollerClosed
	}
	return p.ctl(unix.EPOLL_CTL_ADD, fd)
}

// Remove drops fd from the watch list.
func (p *epollPoller) Remove(fd int) error {
	if p.closed {
		return api.ErrPollerClosed
	}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del fd=%d: %w", fd, err)
	}
	return nil
}

// Wait blocks for readiness. Error and hang-up conditions are reported as
// readable so the owner observes them on its next read.
func (p *epollPoller) Wait(timeout time.Duration) ([]int, error) {
	if p.closed {
		return nil, api.ErrPollerClosed
	}
	n, err := unix.EpollWait(p.epfd, p.events, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return nil, nil // interrupted by signal - normal
		}
		return nil, fmt.Errorf("epoll wait: %w", err)
	}
	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		fd := int(p.events[i].Fd)
		if fd == p.wake.r {
			p.wake.drain()
			continue
		}
		ready = append(ready, fd)
	}
	return ready, nil
}

// Wake interrupts a blocked Wait.
func (p *epollPoller) Wake() error {
	return p.wake.signal()
}

// Close releases the epoll descriptor and wake pipe.
func (p *epollPoller) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	err := unix.Close(p.epfd)
	if werr := p.wake.close(); err == nil {
		err = werr
	}
	return err
}
