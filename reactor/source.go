//go:build linux

// File: reactor/source.go
// Author: momentics <momentics@gmail.com>
//
// Source: one descriptor, one interest mask, one event callback.

package reactor

import (
	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/control"
)

// Handle identifies a Source inside the Monitor registry. Zero means the
// Source is not registered.
type Handle uint32

// Kind tags the variant wrapping a Source.
type Kind uint8

const (
	KindPlain Kind = iota
	KindTimer
	KindProcess
	KindMessage
)

func (k Kind) String() string {
	switch k {
	case KindTimer:
		return "timer"
	case KindProcess:
		return "process"
	case KindMessage:
		return "message"
	default:
		return "plain"
	}
}

// EventFunc is invoked by the Monitor when the Source is ready. Events()
// holds the observed readiness for the duration of the call.
type EventFunc func(s *Source)

// CleanFunc is invoked once by Source.Clean.
type CleanFunc func(s *Source)

// Source is the unit of monitorability. It is owned by whoever created it
// and registered in at most one Monitor at a time.
type Source struct {
	fd       int
	interest Events
	events   Events
	kind     Kind
	onEvent  EventFunc
	onClean  CleanFunc
	mon      *Monitor
	handle   Handle
}

// NewSource creates a plain Source. interest may combine EventIn and
// EventOut; onClean is optional.
func NewSource(fd int, interest Events, onEvent EventFunc, onClean CleanFunc) (*Source, error) {
	return newSource(fd, interest, KindPlain, onEvent, onClean)
}

func newSource(fd int, interest Events, kind Kind, onEvent EventFunc, onClean CleanFunc) (*Source, error) {
	s := new(Source)
	if err := s.init(fd, interest, kind, onEvent, onClean); err != nil {
		return nil, err
	}
	return s, nil
}

// Init (re)initializes a cleaned or zero Source.
func (s *Source) Init(fd int, interest Events, onEvent EventFunc, onClean CleanFunc) error {
	return s.init(fd, interest, KindPlain, onEvent, onClean)
}

func (s *Source) init(fd int, interest Events, kind Kind, onEvent EventFunc, onClean CleanFunc) error {
	switch {
	case s == nil:
		return api.Invalid("nil source")
	case fd < 0:
		return api.Invalid("negative descriptor")
	case onEvent == nil:
		return api.Invalid("nil event callback")
	case interest&^interestMask != 0:
		return api.Invalid("interest must combine EventIn and EventOut only")
	case s.mon != nil:
		return api.ErrBusy
	}
	*s = Source{
		fd:       fd,
		interest: interest,
		kind:     kind,
		onEvent:  onEvent,
		onClean:  onClean,
	}
	return nil
}

// Fd returns the wrapped descriptor, -1 once cleaned.
func (s *Source) Fd() int { return s.fd }

// Interest returns the current interest mask.
func (s *Source) Interest() Events { return s.interest }

// Events returns the readiness observed for the running callback. Outside a
// callback it is zero.
func (s *Source) Events() Events { return s.events }

// Kind returns the variant tag.
func (s *Source) Kind() Kind { return s.kind }

// Handle returns the registry handle, zero when unregistered.
func (s *Source) Handle() Handle { return s.handle }

// Monitor returns the Monitor the Source is registered in, or nil.
func (s *Source) Monitor() *Monitor { return s.mon }

// Registered reports whether the Source is in a Monitor.
func (s *Source) Registered() bool { return s != nil && s.mon != nil }

// Clean removes the Source from its Monitor if needed, invokes the clean
// callback once and zeroes the Source. Cleaning twice is safe.
func (s *Source) Clean() {
	if s == nil {
		return
	}
	if s.mon != nil {
		_ = s.mon.RemoveSource(s)
	}
	clean := s.onClean
	s.onClean = nil
	if clean != nil {
		clean(s)
	}
	*s = Source{fd: -1}
}

// logger returns the logger of the owning Monitor.
func (s *Source) logger() *control.Logger {
	if s.mon != nil {
		return s.mon.log
	}
	return control.DefaultLogger()
}
