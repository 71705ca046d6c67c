//go:build linux

// File: transport/atio/read.go
// Author: momentics <momentics@gmail.com>
//
// Read pump: fills the ring from the input descriptor and hands new bytes
// to the client callback.

package atio

import (
	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/internal/descriptor"
	"github.com/momentics/hioload-io/pool"
	"github.com/momentics/hioload-io/reactor"
)

// ReadState is the read pump state.
type ReadState int

const (
	ReadStopped ReadState = iota
	ReadStarted
	// ReadError is terminal: the read source is gone.
	ReadError
)

func (s ReadState) String() string {
	switch s {
	case ReadStopped:
		return "stopped"
	case ReadStarted:
		return "started"
	case ReadError:
		return "error"
	default:
		return "unknown"
	}
}

// ReadFunc receives the ring after newBytes bytes were appended during the
// current dispatch. The client consumes with rb.ReadSlice/ReadIncr. Returning
// stop ends the dispatch early; more data is delivered on the next one.
// After a terminal end of stream or error the callback runs once more with
// t.ReadState() == ReadError.
type ReadFunc func(t *Transport, rb *pool.ByteRing, newBytes int, data any) (stop bool)

type readCtx struct {
	src      *reactor.Source
	state    ReadState
	cb       ReadFunc
	data     any
	newBytes int
}

// ReadState returns the read pump state.
func (t *Transport) ReadState() ReadState {
	if t == nil {
		return ReadStopped
	}
	return t.read.state
}

// ReadStart starts delivering input to cb. With clear, bytes left in the
// ring are dropped first. It fails with ErrBusy unless the pump is stopped.
func (t *Transport) ReadStart(cb ReadFunc, data any, clear bool) error {
	if t == nil || cb == nil {
		return api.Invalid("nil transport or read callback")
	}
	if t.mon == nil {
		return api.ErrClosed
	}
	if t.read.state != ReadStopped {
		return api.ErrBusy
	}
	if !t.read.src.Registered() {
		if err := t.mon.AddSource(t.read.src); err != nil {
			return err
		}
	}
	if err := t.mon.ActivateIn(t.read.src, true); err != nil {
		return err
	}

	t.read.cb = cb
	t.read.data = data
	if clear {
		t.rb.Empty()
	}
	t.read.state = ReadStarted
	return nil
}

// ReadStop stops delivery and unregisters the read source. It fails with
// ErrBusy unless the pump is started.
func (t *Transport) ReadStop() error {
	if t == nil {
		return api.Invalid("nil transport")
	}
	if t.read.state != ReadStarted {
		return api.ErrBusy
	}
	t.read.cb = nil
	t.read.data = nil
	t.read.state = ReadStopped
	return t.mon.RemoveSource(t.read.src)
}

func (t *Transport) onRead(s *reactor.Source) {
	ev := s.Events()
	r := &t.read
	if r.state != ReadStarted {
		// hang-up and error are reported regardless of interest
		if ev.Has(reactor.EventHangup | reactor.EventError) {
			t.log.Debug().Str("transport", t.name).Stringer("events", ev).Log("read source idle with hang-up, unregistered")
			_ = t.mon.RemoveSource(s)
		}
		return
	}

	fd := s.Fd()
	var err error
	eof := false
	r.newBytes = 0
	for err == nil && !eof && t.rb.WriteLen() > 0 {
		n, rerr := descriptor.Read(fd, t.rb.WriteSlice())
		switch {
		case rerr != nil:
			err = rerr
		case n == 0:
			eof = true
		default:
			if t.logRx {
				t.traffic("rx", fd, t.rb.WriteSlice()[:n])
			}
			t.rb.WriteIncr(n)
			r.newBytes += n
			t.count("rx_bytes", n)
			if t.rb.WriteLen() > 0 {
				continue
			}
		}

		if r.newBytes > 0 {
			if r.cb(t, t.rb, r.newBytes, r.data) {
				return
			}
			// the callback may have stopped or destroyed the transport
			if r.state != ReadStarted {
				return
			}
		}
	}

	if t.rb.WriteLen() == 0 {
		// TODO: report the overflow to the client instead of dropping silently
		t.log.Warning().Str("transport", t.name).Int("fd", fd).Int("size", t.rb.Size()).Log("read buffer full, data lost")
		t.count("rx_overflow", 1)
		t.rb.Empty()
	}

	wouldBlock := err != nil && descriptor.IsWouldBlock(err)
	if ev.Has(reactor.EventError) && (err == nil || wouldBlock) && !eof {
		err = api.ErrIOFault
		wouldBlock = false
	}

	if eof && t.ignoreEOF {
		if ev.Has(reactor.EventHangup) {
			t.log.Debug().Str("transport", t.name).Int("fd", fd).Log("peer hung up, read source unregistered")
			_ = t.mon.RemoveSource(s)
		}
		return
	}
	if !eof && (err == nil || wouldBlock) {
		return
	}

	if err != nil {
		t.log.Warning().Str("transport", t.name).Int("fd", fd).Err(err).Log("read failed")
	} else {
		t.log.Info().Str("transport", t.name).Int("fd", fd).Log("end of input")
	}
	s.Clean()
	r.state = ReadError
	cb, data := r.cb, r.data
	cb(t, t.rb, r.newBytes, data)
}
