// Package api
// Author: momentics
//
// Live debug support: components publish named probes into a Debug sink.

package api

// Debug collects named probes and dumps their current values.
type Debug interface {
	// DumpState evaluates every probe.
	DumpState() map[string]any

	// RegisterProbe adds or replaces a probe.
	RegisterProbe(name string, fn func() any)
}
