// control/logging.go
// Author: momentics <momentics@gmail.com>
//
// Structured logger construction shared by reactor and transport components.

package control

import (
	"io"
	"os"
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the type-erased logiface logger accepted by every component.
// A nil *Logger is valid and discards everything.
type Logger = logiface.Logger[logiface.Event]

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewLogger(os.Stderr, logiface.LevelWarning)
)

// NewLogger builds a JSON-lines logger writing to w at the given level.
func NewLogger(w io.Writer, level logiface.Level) *Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	).Logger()
}

// DefaultLogger returns the package-level logger used when a component is not
// given one explicitly.
func DefaultLogger() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefaultLogger replaces the package-level logger; nil silences it.
func SetDefaultLogger(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
