// Package pool
// Author: momentics <momentics@gmail.com>
//
// Memory layer for hioload-io.
// ByteRing (ring.go) is the fixed-capacity, power-of-two byte ring used by the
// AT-IO read pump. Index arithmetic masks with size-1; the ring never grows,
// and callers check WriteLen before committing bytes.
package pool
