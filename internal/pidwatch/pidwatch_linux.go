//go:build linux

// File: internal/pidwatch/pidwatch_linux.go
// Author: momentics <momentics@gmail.com>
//
// Process-death notification over pidfd. A private epoll instance gives the
// watcher one stable descriptor while the watched pidfd changes with SetPID.

package pidwatch

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/internal/descriptor"
)

// Watcher reports the death of at most one target process at a time.
type Watcher struct {
	ep    *descriptor.Owned
	pidfd *descriptor.Owned
	pid   int
}

// New creates a watcher with no target. Its descriptor is non-blocking and
// close-on-exec.
func New() (*Watcher, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, api.NewError(api.ErrCodeIO, "epoll_create1", -1, err)
	}
	return &Watcher{ep: descriptor.Own(epfd)}, nil
}

// Fd returns the descriptor to poll for readability.
func (w *Watcher) Fd() int {
	return w.ep.Fd()
}

// PID returns the current target, 0 when none.
func (w *Watcher) PID() int {
	return w.pid
}

// SetPID re-targets the watcher. It fails with ErrNoSuchProcess when pid does
// not exist or has already exited and waits to be reaped.
func (w *Watcher) SetPID(pid int) error {
	if pid <= 0 {
		return api.Invalid("pid must be positive")
	}
	if err := w.Disable(); err != nil {
		return err
	}

	pfd, err := unix.PidfdOpen(pid, 0)
	if err != nil {
		return pidfdError(pid, err)
	}
	owned := descriptor.Own(pfd)

	// a zombie already reports readable: treat it as gone
	pfds := []unix.PollFd{{Fd: int32(pfd), Events: unix.POLLIN}}
	if n, err := unix.Poll(pfds, 0); err == nil && n > 0 {
		owned.Close()
		return api.NewError(api.ErrCodeNoSuchProcess, "pidfd_open", -1, unix.ESRCH).WithContext("pid", pid)
	}

	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(pfd)}
	if err := unix.EpollCtl(w.ep.Fd(), unix.EPOLL_CTL_ADD, pfd, &ev); err != nil {
		owned.Close()
		return api.NewError(api.ErrCodeIO, "epoll_ctl", pfd, err)
	}
	w.pidfd = owned
	w.pid = pid
	return nil
}

// pidfdError classifies a pidfd_open failure. ENOSYS means a kernel older
// than 5.3.
func pidfdError(pid int, err error) error {
	code := api.ErrCodeIO
	switch err {
	case unix.ESRCH:
		code = api.ErrCodeNoSuchProcess
	case unix.ENOSYS:
		code = api.ErrCodeNotSupported
	}
	return api.NewError(code, "pidfd_open", -1, err).WithContext("pid", pid)
}

// Disable drops the current target, if any.
func (w *Watcher) Disable() error {
	if w.pidfd == nil {
		w.pid = 0
		return nil
	}
	pfd := w.pidfd.Fd()
	_ = unix.EpollCtl(w.ep.Fd(), unix.EPOLL_CTL_DEL, pfd, nil)
	err := w.pidfd.Close()
	w.pidfd = nil
	w.pid = 0
	return err
}

// Wait collects the death of the target. It returns ErrWouldBlock when the
// target is still alive. Children are reaped and their wait status returned;
// for non-children the status is zero.
func (w *Watcher) Wait() (int, unix.WaitStatus, error) {
	var status unix.WaitStatus
	if w.pidfd == nil {
		return 0, status, api.NewError(api.ErrCodeNoSuchProcess, "pidwatch_wait", w.Fd(), nil)
	}

	var evs [1]unix.EpollEvent
	n, err := unix.EpollWait(w.ep.Fd(), evs[:], 0)
	if err != nil && err != unix.EINTR {
		return 0, status, api.NewError(api.ErrCodeIO, "epoll_wait", w.Fd(), err)
	}
	if n == 0 {
		return 0, status, api.NewError(api.ErrCodeWouldBlock, "pidwatch_wait", w.Fd(), unix.EAGAIN)
	}

	pid := w.pid
	for {
		_, err = unix.Wait4(pid, &status, unix.WNOHANG, nil)
		if err != unix.EINTR {
			break
		}
	}
	if err == unix.ECHILD {
		status = 0
	} else if err != nil {
		return 0, status, api.NewError(api.ErrCodeIO, "wait4", -1, err).WithContext("pid", pid)
	}
	return pid, status, nil
}

// Close releases the target and the watcher descriptor.
func (w *Watcher) Close() error {
	err := w.Disable()
	if cerr := w.ep.Close(); err == nil {
		err = cerr
	}
	return err
}
