// control/hotreload.go
// Author: momentics <momentics@gmail.com>
//
// Config hot-reload: validated configs fanned out to registered components.

package control

import "sync"

// ReloadHooks dispatches configuration changes to registered components.
// Hooks run on the goroutine calling Trigger; for reactor-owned components
// that must be the reactor goroutine.
type ReloadHooks struct {
	mu    sync.Mutex
	hooks []func(Config) error
}

// NewReloadHooks creates an empty hook set.
func NewReloadHooks() *ReloadHooks {
	return &ReloadHooks{}
}

// Register adds a component reload listener.
func (r *ReloadHooks) Register(fn func(Config) error) {
	r.mu.Lock()
	r.hooks = append(r.hooks, fn)
	r.mu.Unlock()
}

// Trigger validates cfg and hands it to every hook in registration order.
// Every hook runs; the first hook error is returned.
func (r *ReloadHooks) Trigger(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	hooks := append([]func(Config) error(nil), r.hooks...)
	r.mu.Unlock()

	var first error
	for _, fn := range hooks {
		if err := fn(cfg); err != nil && first == nil {
			first = err
		}
	}
	return first
}
