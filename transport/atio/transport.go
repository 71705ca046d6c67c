//go:build linux

// File: transport/atio/transport.go
// Author: momentics <momentics@gmail.com>
//
// AT-IO transport: a read pump into a ring buffer and a timed write queue
// over one or two descriptors, driven by a reactor.Monitor.

package atio

import (
	"encoding/base64"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/control"
	"github.com/momentics/hioload-io/internal/descriptor"
	"github.com/momentics/hioload-io/pool"
	"github.com/momentics/hioload-io/reactor"
)

// Transport pumps bytes between a pair of descriptors and its client.
// Like the Monitor driving it, a Transport belongs to one goroutine.
type Transport struct {
	name      string
	mon       *reactor.Monitor
	ignoreEOF bool
	tx        descriptor.FD
	logRx     bool
	logTx     bool

	rb    *pool.ByteRing
	read  readCtx
	write writeCtx

	cfg     control.Config
	log     *control.Logger
	metrics *control.Metrics
}

// New builds a Transport reading fdIn and writing fdOut, and registers its
// sources in mon. The descriptors stay owned by the caller. When fdIn equals
// fdOut the write side uses a private duplicate, closed by Destroy.
// With ignoreEOF a zero-length read does not end the read pump.
func New(name string, mon *reactor.Monitor, fdIn, fdOut int, ignoreEOF bool, opts ...Option) (*Transport, error) {
	switch {
	case name == "":
		return nil, api.Invalid("empty transport name")
	case mon == nil:
		return nil, api.Invalid("nil monitor")
	case fdIn < 0 || fdOut < 0:
		return nil, api.Invalid("negative descriptor")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Transport{
		name:      name,
		mon:       mon,
		ignoreEOF: ignoreEOF,
		cfg:       o.cfg,
		log:       o.log,
		metrics:   o.metrics,
	}
	if err := t.init(fdIn, fdOut); err != nil {
		t.release()
		return nil, err
	}
	t.log.Debug().Str("transport", name).Int("fd_in", fdIn).Int("fd_out", t.tx.Fd()).Log("transport created")
	return t, nil
}

func (t *Transport) init(fdIn, fdOut int) error {
	if fdIn == fdOut {
		dup, err := descriptor.Dup(fdOut)
		if err != nil {
			return err
		}
		t.tx = dup
	} else {
		t.tx = descriptor.Borrowed(fdOut)
	}

	rb, err := pool.NewByteRing(make([]byte, t.cfg.RingSize))
	if err != nil {
		return err
	}
	t.rb = rb

	// both sources start without interest: reads wait for ReadStart, writes
	// for a queued buffer
	if t.read.src, err = reactor.NewSource(fdIn, 0, t.onRead, nil); err != nil {
		return err
	}
	t.read.state = ReadStopped

	if t.write.timer, err = reactor.NewTimer(t.onWriteTimeout); err != nil {
		return err
	}
	if t.write.src, err = reactor.NewSource(t.tx.Fd(), 0, t.onWrite, nil); err != nil {
		return err
	}
	t.write.queue = queue.New()
	t.write.timeout = t.cfg.WriteTimeout

	return t.mon.AddSources(t.write.timer.Source(), t.read.src, t.write.src)
}

// release frees what init managed to create.
func (t *Transport) release() {
	if t.write.timer != nil {
		_ = t.write.timer.Close()
	}
	if t.tx != nil {
		_ = t.tx.Close()
	}
}

// Destroy stops the pumps, aborts pending writes and unregisters every
// source. The Transport is unusable afterwards. Write callbacks may call
// Destroy again.
func (t *Transport) Destroy() error {
	if t == nil || t.mon == nil {
		return nil
	}
	if t.read.state == ReadStarted {
		_ = t.ReadStop()
	}

	_ = t.mon.RemoveSource(t.write.timer.Source())
	_ = t.mon.RemoveSource(t.write.src)
	t.rb.Clean()
	t.read.src.Clean()

	_ = t.WriteAbort()
	if t.mon == nil {
		// an abort callback destroyed the transport
		return nil
	}

	err := t.write.timer.Close()
	t.write.src.Clean()
	if cerr := t.tx.Close(); err == nil {
		err = cerr
	}
	t.log.Debug().Str("transport", t.name).Log("transport destroyed")
	*t = Transport{}
	return err
}

// Name returns the name given at construction.
func (t *Transport) Name() string { return t.name }

// LogRx toggles debug logging of received bytes.
func (t *Transport) LogRx(enable bool) error {
	if t == nil {
		return api.Invalid("nil transport")
	}
	t.logRx = enable
	return nil
}

// LogTx toggles debug logging of written bytes.
func (t *Transport) LogTx(enable bool) error {
	if t == nil {
		return api.Invalid("nil transport")
	}
	t.logTx = enable
	return nil
}

func (t *Transport) traffic(dir string, fd int, p []byte) {
	t.log.Debug().
		Str("transport", t.name).
		Str("dir", dir).
		Int("fd", fd).
		Int("length", len(p)).
		Base64("data", p, base64.StdEncoding).
		Log("traffic")
}

func (t *Transport) count(counter string, n int) {
	t.metrics.Add(t.name+"."+counter, uint64(n))
}

// SetWriteTimeout changes the write timeout. It applies from the next
// buffer that becomes current.
func (t *Transport) SetWriteTimeout(d time.Duration) error {
	if d <= 0 {
		return api.Invalid("write timeout must be positive")
	}
	if t.mon == nil {
		return api.ErrClosed
	}
	t.write.timeout = d
	return nil
}

// WriteTimeout returns the configured write timeout.
func (t *Transport) WriteTimeout() time.Duration { return t.write.timeout }

// ApplyConfig takes the write timeout and the EAGAIN ceiling from cfg. The
// ring is sized once: a different RingSize only affects new transports.
// Its signature fits control.ReloadHooks.Register.
func (t *Transport) ApplyConfig(cfg control.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if t == nil || t.mon == nil {
		return api.ErrClosed
	}
	if cfg.RingSize != t.cfg.RingSize {
		t.log.Info().Str("transport", t.name).Int("ring_size", t.cfg.RingSize).Int("requested", cfg.RingSize).Log("ring size kept until the transport is recreated")
	}
	t.cfg.WriteTimeout = cfg.WriteTimeout
	t.cfg.EAGAINCeiling = cfg.EAGAINCeiling
	t.write.timeout = cfg.WriteTimeout
	return nil
}

// RegisterProbes publishes the pump state under the transport name.
func (t *Transport) RegisterProbes(dp api.Debug) {
	name := t.name
	dp.RegisterProbe(name+".read_state", func() any { return t.ReadState().String() })
	dp.RegisterProbe(name+".ring_fill", func() any {
		if t.rb == nil {
			return 0
		}
		return t.rb.ReadLen()
	})
	dp.RegisterProbe(name+".write_pending", func() any { return t.Pending() })
	dp.RegisterProbe(name+".write_progress", func() any {
		if t.write.current == nil {
			return [2]int{}
		}
		return [2]int{t.write.written, len(t.write.current.Data)}
	})
}
