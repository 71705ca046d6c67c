//go:build linux

// File: reactor/message.go
// Author: momentics <momentics@gmail.com>
//
// Fixed-size message framing over a stream descriptor.

package reactor

import (
	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/internal/descriptor"
)

// MessageFunc is the callback of a MessageSource.
//
// In the IN direction it runs once per complete frame with EventIn; the frame
// is m.Message() and is only valid during the call. On end of stream or a read
// error it runs a last time with EventHangup or EventError, after the Source
// has been removed from its Monitor.
//
// In the OUT direction it runs with EventOut when the descriptor is writable
// and no frame is pending; it supplies the next frame with m.SetNextMessage or
// leaves it unset to pause output.
type MessageFunc func(m *MessageSource, evt Events) error

// MessageSource exchanges frames of len(buf) bytes over a descriptor it does
// not own. Release the descriptor from the clean callback.
type MessageSource struct {
	src     Source
	dir     Events
	buf     []byte
	off     int
	pending bool
	cb      MessageFunc
	clean   func(m *MessageSource)
}

// NewMessageSource creates a frame source for one direction, EventIn or
// EventOut. buf is the frame storage: its length is the frame size.
// An OUT source starts with no interest; SetNextMessage or
// Monitor.ActivateOut starts it.
func NewMessageSource(fd int, dir Events, buf []byte, cb MessageFunc, clean func(m *MessageSource)) (*MessageSource, error) {
	switch {
	case fd < 0:
		return nil, api.Invalid("negative descriptor")
	case cb == nil:
		return nil, api.Invalid("nil message callback")
	case buf == nil:
		return nil, api.Invalid("nil message buffer")
	case len(buf) == 0:
		return nil, api.Invalid("zero message size")
	case dir != EventIn && dir != EventOut:
		return nil, api.Invalid("direction must be EventIn or EventOut")
	}
	m := &MessageSource{dir: dir, buf: buf, cb: cb, clean: clean}
	var interest Events
	if dir == EventIn {
		interest = EventIn
	}
	if err := m.src.init(fd, interest, KindMessage, m.onEvent, m.onClean); err != nil {
		return nil, err
	}
	return m, nil
}

// Source returns the embedded Source for Monitor registration.
func (m *MessageSource) Source() *Source { return &m.src }

// Message returns the frame storage.
func (m *MessageSource) Message() []byte { return m.buf }

// Direction returns EventIn or EventOut.
func (m *MessageSource) Direction() Events { return m.dir }

// Pending reports whether an outbound frame is waiting to be written.
func (m *MessageSource) Pending() bool { return m.pending }

// SetNextMessage queues the next outbound frame and arms write interest.
// msg is copied.
func (m *MessageSource) SetNextMessage(msg []byte) error {
	switch {
	case m.dir != EventOut:
		return api.Invalid("not an output message source")
	case len(msg) != len(m.buf):
		return api.Invalid("message size mismatch")
	case m.pending:
		return api.ErrBusy
	}
	copy(m.buf, msg)
	m.off = 0
	m.pending = true
	if mon := m.src.mon; mon != nil {
		return mon.ActivateOut(&m.src, true)
	}
	return nil
}

func (m *MessageSource) onEvent(s *Source) {
	if m.dir == EventIn {
		m.readFrames(s)
		return
	}
	m.writeFrame(s)
}

func (m *MessageSource) readFrames(s *Source) {
	for s.mon != nil {
		n, err := descriptor.Read(s.fd, m.buf[m.off:])
		switch {
		case err != nil && descriptor.IsWouldBlock(err):
			return
		case err != nil:
			m.fail(s, EventError, err)
			return
		case n == 0:
			m.fail(s, EventHangup, nil)
			return
		}
		m.off += n
		if m.off < len(m.buf) {
			continue
		}
		m.off = 0
		if err := m.cb(m, EventIn); err != nil {
			s.logger().Debug().Int("fd", s.fd).Err(err).Log("message callback failed")
		}
	}
}

func (m *MessageSource) writeFrame(s *Source) {
	if s.events.Has(EventError) && !s.events.Has(EventOut) {
		m.fail(s, EventError, api.ErrIOFault)
		return
	}
	if !m.pending {
		if err := m.cb(m, EventOut); err != nil {
			s.logger().Debug().Int("fd", s.fd).Err(err).Log("message callback failed")
		}
		if s.mon == nil {
			return
		}
		if !m.pending {
			_ = s.mon.ActivateOut(s, false)
			return
		}
	}
	n, err := descriptor.Write(s.fd, m.buf[m.off:])
	if err != nil {
		if !descriptor.IsWouldBlock(err) {
			m.fail(s, EventError, err)
		}
		return
	}
	m.off += n
	if m.off == len(m.buf) {
		m.off = 0
		m.pending = false
	}
}

func (m *MessageSource) fail(s *Source, evt Events, err error) {
	log := s.logger()
	if s.mon != nil {
		_ = s.mon.RemoveSource(s)
	}
	m.off = 0
	m.pending = false
	if err != nil {
		log.Warning().Int("fd", s.fd).Err(err).Log("message source failed")
	} else {
		log.Debug().Int("fd", s.fd).Log("message source reached end of stream")
	}
	_ = m.cb(m, evt)
}

func (m *MessageSource) onClean(*Source) {
	if m.clean != nil {
		m.clean(m)
	}
}

// Close removes the source from its Monitor and runs the clean callback.
func (m *MessageSource) Close() {
	if m == nil {
		return
	}
	m.src.Clean()
	m.pending = false
	m.off = 0
}
