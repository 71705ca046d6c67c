//go:build linux

// File: internal/descriptor/descriptor.go
// Author: momentics <momentics@gmail.com>
//
// Explicit descriptor ownership: Owned closes exactly once, Borrowed never does.

package descriptor

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-io/api"
)

// FD is a descriptor view. Close releases it only if the view owns it.
type FD interface {
	Fd() int
	Close() error
}

// Owned is a descriptor closed exactly once by Close.
type Owned struct {
	fd int
}

// Own takes ownership of fd.
func Own(fd int) *Owned {
	return &Owned{fd: fd}
}

// Fd returns the descriptor, or -1 once closed.
func (o *Owned) Fd() int {
	if o == nil {
		return -1
	}
	return o.fd
}

// Close closes the descriptor. Subsequent calls are no-ops.
func (o *Owned) Close() error {
	if o == nil || o.fd < 0 {
		return nil
	}
	fd := o.fd
	o.fd = -1
	return closeFD(fd)
}

// Borrowed is a view of a descriptor owned by someone else.
type Borrowed int

// Fd returns the descriptor.
func (b Borrowed) Fd() int { return int(b) }

// Close is a no-op: the owner closes the descriptor.
func (Borrowed) Close() error { return nil }

// Dup duplicates fd with close-on-exec set; the copy is owned by the caller.
func Dup(fd int) (*Owned, error) {
	nfd, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, api.NewError(api.ErrCodeIO, "dup", fd, err)
	}
	return Own(nfd), nil
}

func closeFD(fd int) error {
	// EINTR on close still releases the descriptor on Linux: never retry.
	if err := unix.Close(fd); err != nil && !errors.Is(err, unix.EINTR) {
		return api.NewError(api.ErrCodeIO, "close", fd, err)
	}
	return nil
}

// Read reads without blocking, retrying on EINTR. A would-block condition is
// reported as unix.EAGAIN, unwrapped, so callers can test it cheaply.
func Read(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

// Write writes without blocking, retrying on EINTR. Errors are raw errnos.
func Write(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Write(fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

// IsWouldBlock reports whether err is EAGAIN/EWOULDBLOCK.
func IsWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

// Pipe creates a non-blocking, close-on-exec pipe: [0] reads, [1] writes.
func Pipe() (r, w *Owned, err error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, nil, api.NewError(api.ErrCodeIO, "pipe2", -1, err)
	}
	return Own(p[0]), Own(p[1]), nil
}

// SocketPair creates a non-blocking, close-on-exec AF_UNIX stream pair.
func SocketPair() (a, b *Owned, err error) {
	p, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, api.NewError(api.ErrCodeIO, "socketpair", -1, err)
	}
	return Own(p[0]), Own(p[1]), nil
}
