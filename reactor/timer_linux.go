//go:build linux

// File: reactor/timer_linux.go
// Author: momentics <momentics@gmail.com>
//
// timerfd-backed Source firing a callback on expiry.

package reactor

import (
	"encoding/binary"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/internal/descriptor"
)

// TimerFunc runs when the timer expires. expirations counts the periods
// elapsed since the last callback, usually 1.
type TimerFunc func(t *TimerSource, expirations uint64)

// TimerSource is a monotonic one-shot or periodic timer. It is created
// disarmed; arming it does not require it to be registered.
type TimerSource struct {
	src Source
	fd  *descriptor.Owned
	cb  TimerFunc
}

// NewTimer creates a disarmed timer.
func NewTimer(cb TimerFunc) (*TimerSource, error) {
	if cb == nil {
		return nil, api.Invalid("nil timer callback")
	}
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, api.NewError(api.ErrCodeResourceExhausted, "timerfd_create", -1, err)
	}
	t := &TimerSource{fd: descriptor.Own(fd), cb: cb}
	if err := t.src.init(fd, EventIn, KindTimer, t.onEvent, nil); err != nil {
		_ = t.fd.Close()
		return nil, err
	}
	return t, nil
}

// Source returns the embedded Source for Monitor registration.
func (t *TimerSource) Source() *Source { return &t.src }

// Set arms a one-shot expiry after d, replacing any previous setting. A
// zero d disarms.
func (t *TimerSource) Set(d time.Duration) error {
	return t.arm(d, 0)
}

// SetPeriodic arms the timer to fire every period, first after period.
func (t *TimerSource) SetPeriodic(period time.Duration) error {
	if period <= 0 {
		return api.Invalid("period must be positive")
	}
	return t.arm(period, period)
}

// Disarm stops the timer. Pending expirations are discarded.
func (t *TimerSource) Disarm() error {
	return t.arm(0, 0)
}

func (t *TimerSource) arm(value, interval time.Duration) error {
	if value < 0 || interval < 0 {
		return api.Invalid("negative duration")
	}
	fd := t.fd.Fd()
	if fd < 0 {
		return api.ErrClosed
	}
	spec := unix.ItimerSpec{
		Interval: unix.NsecToTimespec(int64(interval)),
		Value:    unix.NsecToTimespec(int64(value)),
	}
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		return api.NewError(api.ErrCodeIO, "timerfd_settime", fd, err)
	}
	return nil
}

func (t *TimerSource) onEvent(s *Source) {
	var buf [8]byte
	n, err := descriptor.Read(t.fd.Fd(), buf[:])
	if err != nil {
		if !descriptor.IsWouldBlock(err) {
			s.logger().Warning().Int("fd", s.fd).Err(err).Log("timer read failed")
		}
		return
	}
	if n != len(buf) {
		return
	}
	t.cb(t, binary.NativeEndian.Uint64(buf[:]))
}

// Close removes the timer from its Monitor and releases the timerfd.
func (t *TimerSource) Close() error {
	if t == nil {
		return nil
	}
	t.src.Clean()
	return t.fd.Close()
}
