// Package descriptor wraps raw file descriptors with explicit ownership and
// provides the non-blocking read/write helpers used by reactor sources.
package descriptor
