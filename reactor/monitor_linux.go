//go:build linux

// File: reactor/monitor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7) Monitor: owns the epoll descriptor and the Source registry,
// and dispatches one readiness batch per call. Level-triggered.

package reactor

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/control"
	"github.com/momentics/hioload-io/internal/descriptor"
)

// Monitor multiplexes registered Sources over one epoll instance.
//
// A Monitor is not safe for concurrent use: every method, and every Source
// callback, runs on the goroutine calling ProcessEvents. Callbacks may add and
// remove Sources, including their own, but must not Close the Monitor that
// is dispatching them.
type Monitor struct {
	epfd      *descriptor.Owned
	events    []unix.EpollEvent
	sources   map[Handle]*Source
	byFD      map[int]Handle
	next      Handle
	maxEvents int
	log       *control.Logger
}

// NewMonitor creates the epoll instance.
func NewMonitor(opts ...MonitorOption) (*Monitor, error) {
	m := &Monitor{
		maxEvents: control.DefaultMaxEvents,
		log:       control.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.maxEvents <= 0 {
		return nil, api.Invalid("max events must be positive")
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, api.NewError(api.ErrCodeIO, "epoll_create1", -1, err)
	}
	m.epfd = descriptor.Own(epfd)
	m.events = make([]unix.EpollEvent, m.maxEvents)
	m.sources = make(map[Handle]*Source)
	m.byFD = make(map[int]Handle)

	m.log.Debug().Int("epfd", epfd).Int("max_events", m.maxEvents).Log("monitor created")
	return m, nil
}

// Fd returns the epoll descriptor. It becomes readable when at least one
// registered Source is ready, so a Monitor can be nested in another loop.
func (m *Monitor) Fd() int {
	return m.epfd.Fd()
}

// Len returns the number of registered Sources.
func (m *Monitor) Len() int {
	return len(m.sources)
}

func (m *Monitor) closed() bool {
	return m == nil || m.epfd.Fd() < 0
}

func (m *Monitor) allocHandle() Handle {
	for {
		m.next++
		if m.next == 0 {
			continue
		}
		if _, used := m.sources[m.next]; !used {
			return m.next
		}
	}
}

// AddSource registers s with its current interest mask.
func (m *Monitor) AddSource(s *Source) error {
	switch {
	case m.closed():
		return api.ErrClosed
	case s == nil:
		return api.Invalid("nil source")
	case s.onEvent == nil || s.fd < 0:
		return api.Invalid("source not initialized")
	case s.mon != nil:
		return api.Invalid("source already registered")
	}
	if _, dup := m.byFD[s.fd]; dup {
		return fmt.Errorf("%w: fd %d already monitored", api.ErrInvalidArgument, s.fd)
	}

	h := m.allocHandle()
	// the data word carries the registry handle, not the descriptor
	ev := unix.EpollEvent{Events: eventsToEpoll(s.interest), Fd: int32(h)}
	if err := unix.EpollCtl(m.epfd.Fd(), unix.EPOLL_CTL_ADD, s.fd, &ev); err != nil {
		code := api.ErrCodeIO
		if err == unix.EEXIST || err == unix.EBADF || err == unix.EPERM {
			code = api.ErrCodeInvalidArgument
		}
		return api.NewError(code, "epoll_ctl add", s.fd, err)
	}

	s.mon = m
	s.handle = h
	m.sources[h] = s
	m.byFD[s.fd] = h
	m.log.Debug().Int("fd", s.fd).Int64("handle", int64(h)).Stringer("kind", s.kind).Stringer("interest", s.interest).Log("source added")
	return nil
}

// AddSources registers every Source or none: on failure the ones already
// added are removed again.
func (m *Monitor) AddSources(srcs ...*Source) error {
	for i, s := range srcs {
		if err := m.AddSource(s); err != nil {
			for _, prev := range srcs[:i] {
				_ = m.RemoveSource(prev)
			}
			return err
		}
	}
	return nil
}

// RemoveSource deregisters s. Removing a Source that is not registered in m
// is a no-op. After it returns, s receives no further callback, including in
// the batch currently being dispatched.
func (m *Monitor) RemoveSource(s *Source) error {
	if s == nil {
		return api.Invalid("nil source")
	}
	if m == nil || s.mon != m {
		return nil
	}

	var err error
	if !m.closed() {
		if cerr := unix.EpollCtl(m.epfd.Fd(), unix.EPOLL_CTL_DEL, s.fd, nil); cerr != nil &&
			cerr != unix.ENOENT && cerr != unix.EBADF {
			err = api.NewError(api.ErrCodeIO, "epoll_ctl del", s.fd, cerr)
		}
	}
	delete(m.sources, s.handle)
	delete(m.byFD, s.fd)
	m.log.Debug().Int("fd", s.fd).Int64("handle", int64(s.handle)).Log("source removed")
	s.mon = nil
	s.handle = 0
	return err
}

// ActivateIn toggles the readable interest of a registered Source.
func (m *Monitor) ActivateIn(s *Source, enable bool) error {
	return m.activate(s, EventIn, enable)
}

// ActivateOut toggles the writable interest of a registered Source. Turning
// it off is the cheap way to pause output polling while nothing is queued.
func (m *Monitor) ActivateOut(s *Source, enable bool) error {
	return m.activate(s, EventOut, enable)
}

func (m *Monitor) activate(s *Source, flag Events, enable bool) error {
	if s == nil {
		return api.Invalid("nil source")
	}
	if m.closed() {
		return api.ErrClosed
	}
	if s.mon != m {
		return api.ErrNotRegistered
	}
	interest := s.interest &^ flag
	if enable {
		interest |= flag
	}
	if interest == s.interest {
		return nil
	}
	ev := unix.EpollEvent{Events: eventsToEpoll(interest), Fd: int32(s.handle)}
	if err := unix.EpollCtl(m.epfd.Fd(), unix.EPOLL_CTL_MOD, s.fd, &ev); err != nil {
		return api.NewError(api.ErrCodeIO, "epoll_ctl mod", s.fd, err)
	}
	s.interest = interest
	return nil
}

// ProcessEvents blocks until at least one Source is ready, then runs the
// callback of every ready Source once. It returns the number of callbacks
// run. Callback failures are reported by each Source to its owner; only
// multiplexer failures are returned here.
func (m *Monitor) ProcessEvents() (int, error) {
	return m.wait(-1)
}

// ProcessEventsTimeout is ProcessEvents bounded by timeout. A zero timeout
// polls without blocking.
func (m *Monitor) ProcessEventsTimeout(timeout time.Duration) (int, error) {
	if timeout < 0 {
		return m.wait(-1)
	}
	msec := int((timeout + time.Millisecond - 1) / time.Millisecond)
	return m.wait(msec)
}

func (m *Monitor) wait(msec int) (int, error) {
	if m.closed() {
		return 0, api.ErrClosed
	}
	n, err := unix.EpollWait(m.epfd.Fd(), m.events, msec)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, api.NewError(api.ErrCodeIO, "epoll_wait", m.epfd.Fd(), err)
	}

	dispatched := 0
	for i := 0; i < n; i++ {
		h := Handle(uint32(m.events[i].Fd))
		s, ok := m.sources[h]
		if !ok {
			// removed earlier in this batch
			m.log.Debug().Uint64("handle", uint64(h)).Log("event for unknown handle dropped")
			continue
		}
		s.events = epollToEvents(m.events[i].Events)
		s.onEvent(s)
		s.events = 0
		dispatched++
	}
	return dispatched, nil
}

// Close releases the epoll descriptor. Registered Sources are detached but
// not cleaned: their owners remain responsible for them.
func (m *Monitor) Close() error {
	if m.closed() {
		return nil
	}
	if len(m.sources) != 0 {
		m.log.Debug().Int("sources", len(m.sources)).Log("monitor closed with registered sources")
	}
	for _, s := range m.sources {
		s.mon = nil
		s.handle = 0
	}
	m.sources = make(map[Handle]*Source)
	m.byFD = make(map[int]Handle)
	return m.epfd.Close()
}

// SourceInfo describes one registry entry.
type SourceInfo struct {
	Handle   Handle
	Fd       int
	Kind     string
	Interest string
}

// Snapshot lists registered Sources ordered by handle.
func (m *Monitor) Snapshot() []SourceInfo {
	out := make([]SourceInfo, 0, len(m.sources))
	for h, s := range m.sources {
		out = append(out, SourceInfo{Handle: h, Fd: s.fd, Kind: s.kind.String(), Interest: s.interest.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// RegisterProbes publishes the registry under name. Dump the probes from the
// reactor goroutine: the registry is not synchronized.
func (m *Monitor) RegisterProbes(dp api.Debug, name string) {
	dp.RegisterProbe(name+".sources", func() any { return m.Len() })
	dp.RegisterProbe(name+".registry", func() any { return m.Snapshot() })
}
