//go:build linux

// File: reactor/process_linux.go
// Author: momentics <momentics@gmail.com>
//
// Process-death Source over internal/pidwatch.

package reactor

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/internal/pidwatch"
)

// PIDDisable is the target value of a watch that monitors nothing.
const PIDDisable = -1

// ProcessFunc runs once when the watched process dies. pid is the process
// that died; the watch has already been disabled, so p.GetPID no longer
// reports it.
type ProcessFunc func(p *ProcessWatchSource, pid int, status unix.WaitStatus)

// ProcessWatchSource notifies the death of one target process.
type ProcessWatchSource struct {
	src    Source
	w      *pidwatch.Watcher
	cb     ProcessFunc
	status unix.WaitStatus
}

// NewProcessWatch creates a watch with no target.
func NewProcessWatch(cb ProcessFunc) (*ProcessWatchSource, error) {
	if cb == nil {
		return nil, api.Invalid("nil process callback")
	}
	w, err := pidwatch.New()
	if err != nil {
		return nil, err
	}
	p := &ProcessWatchSource{w: w, cb: cb}
	if err := p.src.init(w.Fd(), EventIn, KindProcess, p.onEvent, nil); err != nil {
		_ = w.Close()
		return nil, err
	}
	return p, nil
}

// Source returns the embedded Source for Monitor registration.
func (p *ProcessWatchSource) Source() *Source { return &p.src }

// SetPID re-targets the watch. PIDDisable stops watching. On failure the
// watch is left disabled.
func (p *ProcessWatchSource) SetPID(pid int) error {
	if p == nil || p.w == nil {
		return api.ErrClosed
	}
	if pid == PIDDisable {
		return p.w.Disable()
	}
	return p.w.SetPID(pid)
}

// GetPID returns the watched process, or PIDDisable with ErrNoSuchProcess.
func (p *ProcessWatchSource) GetPID() (int, error) {
	if p == nil || p.w == nil || p.w.PID() == 0 {
		return PIDDisable, api.ErrNoSuchProcess
	}
	return p.w.PID(), nil
}

// Status returns the wait status collected at the last death.
func (p *ProcessWatchSource) Status() unix.WaitStatus { return p.status }

func (p *ProcessWatchSource) onEvent(s *Source) {
	pid, status, err := p.w.Wait()
	if err != nil {
		if api.CodeOf(err) != api.ErrCodeWouldBlock {
			s.logger().Warning().Int("fd", s.fd).Err(err).Log("process wait failed")
		}
		return
	}
	_ = p.w.Disable()
	p.status = status
	s.logger().Debug().Int("pid", pid).Int("exit_status", status.ExitStatus()).Log("watched process died")
	p.cb(p, pid, status)
}

// Close removes the watch from its Monitor and releases its descriptors.
// Closing twice is safe.
func (p *ProcessWatchSource) Close() error {
	if p == nil || p.w == nil {
		return nil
	}
	p.src.Clean()
	err := p.w.Close()
	p.w = nil
	p.cb = nil
	return err
}
