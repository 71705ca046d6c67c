//go:build linux

// File: reactor/events.go
// Author: momentics <momentics@gmail.com>
//
// Readiness bitmask and its epoll mapping.

package reactor

import (
	"strings"

	"golang.org/x/sys/unix"
)

// Events is a readiness / interest bitmask.
type Events uint32

const (
	// EventIn: the descriptor is readable.
	EventIn Events = 1 << iota
	// EventOut: the descriptor is writable.
	EventOut
	// EventError: an error condition is pending on the descriptor.
	EventError
	// EventHangup: the peer hung up.
	EventHangup
)

// interestMask lists the bits a Source may ask for; error and hang-up are
// always reported by the kernel.
const interestMask = EventIn | EventOut

// Has reports whether any bit of f is set.
func (e Events) Has(f Events) bool {
	return e&f != 0
}

func (e Events) String() string {
	if e == 0 {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		bit  Events
		name string
	}{{EventIn, "in"}, {EventOut, "out"}, {EventError, "err"}, {EventHangup, "hup"}} {
		if e&f.bit != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// eventsToEpoll converts an interest mask to level-triggered epoll flags.
func eventsToEpoll(e Events) uint32 {
	var ev uint32
	if e&EventIn != 0 {
		ev |= unix.EPOLLIN
	}
	if e&EventOut != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

// epollToEvents converts reported epoll flags to Events.
func epollToEvents(ev uint32) Events {
	var e Events
	if ev&unix.EPOLLIN != 0 {
		e |= EventIn
	}
	if ev&unix.EPOLLOUT != 0 {
		e |= EventOut
	}
	if ev&unix.EPOLLERR != 0 {
		e |= EventError
	}
	if ev&unix.EPOLLHUP != 0 {
		e |= EventHangup
	}
	return e
}
