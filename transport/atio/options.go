//go:build linux

// File: transport/atio/options.go
// Functional options for Transport construction.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package atio

import (
	"time"

	"github.com/momentics/hioload-io/control"
)

// Option customizes a Transport.
type Option func(*options)

type options struct {
	cfg     control.Config
	log     *control.Logger
	metrics *control.Metrics
}

func defaultOptions() options {
	return options{
		cfg: control.DefaultConfig(),
		log: control.DefaultLogger(),
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg control.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithRingSize sets the read ring capacity, a power of two.
func WithRingSize(n int) Option {
	return func(o *options) { o.cfg.RingSize = n }
}

// WithWriteTimeout sets the per-buffer write timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.cfg.WriteTimeout = d }
}

// WithEAGAINCeiling sets the number of consecutive would-block writes
// tolerated before a buffer fails.
func WithEAGAINCeiling(n int) Option {
	return func(o *options) { o.cfg.EAGAINCeiling = n }
}

// WithLogger sets the logger. A nil logger is silent.
func WithLogger(l *control.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics enables the transport counters.
func WithMetrics(m *control.Metrics) Option {
	return func(o *options) { o.metrics = m }
}
