// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Tunables for reactor and AT-IO transport instances.

package control

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-io/api"
)

// Defaults.
const (
	DefaultRingSize      = 2048
	DefaultWriteTimeout  = 10 * time.Second
	DefaultEAGAINCeiling = 20
	DefaultMaxEvents     = 64
)

// Config holds the per-instance tunables.
type Config struct {
	// RingSize is the read ring capacity in bytes, a power of two.
	RingSize int
	// WriteTimeout bounds the time one write buffer may stay current.
	WriteTimeout time.Duration
	// EAGAINCeiling is the number of consecutive would-block results, with
	// the descriptor reported writable, after which a write fails.
	EAGAINCeiling int
	// MaxEvents is the epoll_wait batch size.
	MaxEvents int
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		RingSize:      DefaultRingSize,
		WriteTimeout:  DefaultWriteTimeout,
		EAGAINCeiling: DefaultEAGAINCeiling,
		MaxEvents:     DefaultMaxEvents,
	}
}

// Validate checks every field.
func (c Config) Validate() error {
	switch {
	case c.RingSize <= 0 || c.RingSize&(c.RingSize-1) != 0:
		return fmt.Errorf("%w: ring size %d is not a power of two", api.ErrInvalidArgument, c.RingSize)
	case c.WriteTimeout <= 0:
		return fmt.Errorf("%w: write timeout must be positive", api.ErrInvalidArgument)
	case c.EAGAINCeiling <= 0:
		return fmt.Errorf("%w: EAGAIN ceiling must be positive", api.ErrInvalidArgument)
	case c.MaxEvents <= 0:
		return fmt.Errorf("%w: max events must be positive", api.ErrInvalidArgument)
	}
	return nil
}
