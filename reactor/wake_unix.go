//go:build unix

// File: reactor/wake_unix.go
// Author: momentics <momentics@gmail.com>
//
// Self-pipe used to interrupt a blocked wait.

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type wakePipe struct {
	r, w int
}

func newWakePipe() (wakePipe, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return wakePipe{}, fmt.Errorf("wake pipe: %w", err)
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return wakePipe{}, fmt.Errorf("wake pipe nonblock: %w", err)
		}
	}
	return wakePipe{r: p[0], w: p[1]}, nil
}

// signal makes the read end readable; a full pipe already is.
func (w wakePipe) signal() error {
	_, err := unix.Write(w.w, []byte{1})
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

// drain empties the read end.
func (w wakePipe) drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(w.r, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (w wakePipe) close() error {
	err := unix.Close(w.r)
	if cerr := unix.Close(w.w); err == nil {
		err = cerr
	}
	return err
}
