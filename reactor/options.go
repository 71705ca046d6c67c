//go:build linux

// File: reactor/options.go
// Functional options for Monitor construction.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import "github.com/momentics/hioload-io/control"

// MonitorOption customizes Monitor initialization.
type MonitorOption func(*Monitor)

// WithMaxEvents overrides the epoll_wait batch size.
func WithMaxEvents(n int) MonitorOption {
	return func(m *Monitor) {
		m.maxEvents = n
	}
}

// WithConfig applies the MaxEvents field of cfg.
func WithConfig(cfg control.Config) MonitorOption {
	return func(m *Monitor) {
		m.maxEvents = cfg.MaxEvents
	}
}

// WithLogger sets the logger used by the Monitor and its Sources.
func WithLogger(l *control.Logger) MonitorOption {
	return func(m *Monitor) {
		m.log = l
	}
}
