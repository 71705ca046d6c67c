//go:build linux

// File: transport/atio/write.go
// Author: momentics <momentics@gmail.com>
//
// Write pump: a FIFO of buffers written one at a time, each bounded by the
// write timer and by the EAGAIN ceiling.

package atio

import (
	"time"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/internal/descriptor"
	"github.com/momentics/hioload-io/reactor"
)

// WriteStatus is the terminal status of a WriteBuffer.
type WriteStatus int

const (
	WriteOK WriteStatus = iota
	WriteError
	WriteTimeout
	WriteAborted
)

func (s WriteStatus) String() string {
	switch s {
	case WriteOK:
		return "ok"
	case WriteError:
		return "error"
	case WriteTimeout:
		return "timeout"
	case WriteAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// WriteFunc runs exactly once per buffer, with its terminal status.
type WriteFunc func(buf *WriteBuffer, status WriteStatus)

// WriteBuffer is one queued write. Data must stay untouched until Callback
// runs.
type WriteBuffer struct {
	Data     []byte
	Callback WriteFunc
	UserData any
	// Err holds the cause of a WriteError.
	Err error
}

func defaultWriteCallback(*WriteBuffer, WriteStatus) {}

type writeCtx struct {
	src     *reactor.Source
	timer   *reactor.TimerSource
	queue   *queue.Queue
	current *WriteBuffer
	written int
	eagain  int
	timeout time.Duration
	fault   error
}

// Pending returns the number of buffers not completed yet, current included.
func (t *Transport) Pending() int {
	if t == nil || t.write.queue == nil {
		return 0
	}
	n := t.write.queue.Length()
	if t.write.current != nil {
		n++
	}
	return n
}

// WriteAdd queues buf. A buffer without Callback gets a no-op one and, when
// UserData is nil, the Transport as UserData.
func (t *Transport) WriteAdd(buf *WriteBuffer) error {
	if t == nil || t.mon == nil {
		return api.ErrClosed
	}
	if buf == nil || len(buf.Data) == 0 {
		return api.Invalid("empty write buffer")
	}
	if t.write.fault != nil {
		return api.NewError(api.ErrCodeIO, "write_add", t.tx.Fd(), t.write.fault)
	}
	if buf.Callback == nil {
		buf.Callback = defaultWriteCallback
		if buf.UserData == nil {
			buf.UserData = t
		}
	}
	buf.Err = nil

	t.write.queue.Add(buf)
	if t.write.current == nil {
		t.processNext()
	}
	return nil
}

// WriteAbort completes the current and every queued buffer with
// WriteAborted, in queue order, and leaves the pump empty.
func (t *Transport) WriteAbort() error {
	if t == nil || t.mon == nil {
		return api.ErrClosed
	}
	aborted := t.drain()
	t.processNext()
	for _, buf := range aborted {
		t.complete(buf, WriteAborted)
	}
	return nil
}

// drain detaches the current and queued buffers, in order.
func (t *Transport) drain() []*WriteBuffer {
	w := &t.write
	var out []*WriteBuffer
	if w.current != nil {
		out = append(out, w.current)
		w.current = nil
	}
	for w.queue.Length() > 0 {
		out = append(out, w.queue.Remove().(*WriteBuffer))
	}
	return out
}

// processNext promotes the next queued buffer, arming the timer and the
// write interest, or pauses the pump when the queue is empty.
func (t *Transport) processNext() {
	w := &t.write
	w.current = nil
	w.written = 0
	w.eagain = 0

	if w.queue.Length() == 0 {
		_ = w.timer.Disarm()
		_ = t.mon.ActivateOut(w.src, false)
		return
	}
	w.current = w.queue.Remove().(*WriteBuffer)
	if err := t.mon.ActivateOut(w.src, true); err != nil && w.fault == nil {
		t.log.Warning().Str("transport", t.name).Err(err).Log("cannot arm write interest")
	}
	_ = w.timer.Set(w.timeout)
}

func (t *Transport) complete(buf *WriteBuffer, status WriteStatus) {
	switch status {
	case WriteOK:
		t.count("write_ok", 1)
	case WriteError:
		t.count("write_error", 1)
	case WriteTimeout:
		t.count("write_timeout", 1)
	case WriteAborted:
		t.count("write_aborted", 1)
	}
	buf.Callback(buf, status)
}

func (t *Transport) onWrite(s *reactor.Source) {
	w := &t.write
	ev := s.Events()
	if ev.Has(reactor.EventError) || (ev.Has(reactor.EventHangup) && !ev.Has(reactor.EventOut)) {
		t.writeFault(s, ev)
		return
	}
	if !ev.Has(reactor.EventOut) {
		return
	}

	cur := w.current
	if cur == nil {
		_ = t.mon.ActivateOut(s, false)
		return
	}

	fd := s.Fd()
	var err error
	for w.written < len(cur.Data) {
		n, werr := descriptor.Write(fd, cur.Data[w.written:])
		if werr != nil {
			err = werr
			break
		}
		if t.logTx {
			t.traffic("tx", fd, cur.Data[w.written:w.written+n])
		}
		w.eagain = 0
		w.written += n
		t.count("tx_bytes", n)
	}

	if err != nil && descriptor.IsWouldBlock(err) {
		w.eagain++
		if w.eagain < t.cfg.EAGAINCeiling {
			return
		}
		// reported writable yet never accepting bytes
		t.log.Err().Str("transport", t.name).Int("fd", fd).Int("eagain", w.eagain).Log("write EAGAIN ceiling reached")
		t.count("eagain_ceiling", 1)
		err = api.NewError(api.ErrCodeResourceExhausted, "write", fd, unix.ENOBUFS)
	} else if err != nil {
		err = api.NewError(api.ErrCodeIO, "write", fd, err)
	}

	status := WriteOK
	if err != nil {
		status = WriteError
		cur.Err = err
	}
	t.processNext()
	t.complete(cur, status)
}

// writeFault tears the write side down and fails every pending buffer.
func (t *Transport) writeFault(s *reactor.Source, ev reactor.Events) {
	fd := s.Fd()
	w := &t.write
	w.fault = api.ErrIOFault
	t.log.Err().Str("transport", t.name).Int("fd", fd).Stringer("events", ev).Log("write descriptor fault")
	_ = t.mon.RemoveSource(s)

	failed := t.drain()
	t.processNext()
	for _, buf := range failed {
		buf.Err = api.NewError(api.ErrCodeIO, "write", fd, api.ErrIOFault)
		t.complete(buf, WriteError)
	}
}

func (t *Transport) onWriteTimeout(tm *reactor.TimerSource, _ uint64) {
	cur := t.write.current
	if cur == nil {
		_ = tm.Disarm()
		return
	}
	t.log.Warning().
		Str("transport", t.name).
		Int("written", t.write.written).
		Int("length", len(cur.Data)).
		Dur("timeout", t.write.timeout).
		Log("write timed out")
	t.processNext()
	t.complete(cur, WriteTimeout)
}
