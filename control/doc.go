// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics, logging and debug introspection layer.
//
// Provides:
//   - Config with validated defaults for reactor and transport instances
//   - Metrics counter registry fed by transports
//   - DebugProbes registry fed by monitors and transports
//   - logiface/stumpy logger construction and the package default logger
//
// Metrics and DebugProbes are safe for concurrent readers; the reactor that
// feeds them stays single-threaded.
package control
