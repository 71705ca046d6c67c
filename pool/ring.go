// File: pool/ring.go
// Author: momentics <momentics@gmail.com>
//
// Fixed-capacity byte ring over caller-owned storage.
// Single-owner: no internal synchronization, cursors are plain ints.

package pool

import (
	"io"

	"github.com/momentics/hioload-io/api"
)

// ByteRing is a circular byte store whose size is a power of two.
//
// Invariants: 0 <= len <= size and write == (read + len) & mask.
type ByteRing struct {
	data  []byte
	mask  int
	read  int
	write int
	len   int
}

func isPowerOfTwo(x int) bool {
	return x > 0 && x&(x-1) == 0
}

// NewByteRing wraps storage, whose length must be a power of two.
func NewByteRing(storage []byte) (*ByteRing, error) {
	r := new(ByteRing)
	if err := r.Init(storage); err != nil {
		return nil, err
	}
	return r, nil
}

// Init (re)binds the ring to storage and resets the cursors.
func (r *ByteRing) Init(storage []byte) error {
	if r == nil || storage == nil || !isPowerOfTwo(len(storage)) {
		return api.Invalid("ring storage length must be a non-zero power of two")
	}
	r.data = storage
	r.mask = len(storage) - 1
	r.read, r.write, r.len = 0, 0, 0
	return nil
}

// Size returns the capacity in bytes.
func (r *ByteRing) Size() int {
	return len(r.data)
}

// Empty resets the cursors without touching storage.
func (r *ByteRing) Empty() {
	r.read, r.write, r.len = 0, 0, 0
}

// Clean detaches the storage; the ring must be re-initialized before reuse.
func (r *ByteRing) Clean() {
	*r = ByteRing{}
}

// ReadLen returns the number of buffered bytes.
func (r *ByteRing) ReadLen() int {
	return r.len
}

// ReadLenNoWrap returns the buffered bytes reachable from the read cursor
// without crossing the end of storage.
func (r *ByteRing) ReadLenNoWrap() int {
	return min(r.len, len(r.data)-r.read)
}

// ReadSlice returns the contiguous readable region.
func (r *ByteRing) ReadSlice() []byte {
	return r.data[r.read : r.read+r.ReadLenNoWrap()]
}

// ReadIncr consumes n bytes. It panics if n exceeds ReadLen.
func (r *ByteRing) ReadIncr(n int) {
	if n < 0 || n > r.len {
		panic("pool: ByteRing.ReadIncr beyond buffered length")
	}
	r.len -= n
	r.read = (r.read + n) & r.mask
}

// ReadAt returns the byte at offset from the read cursor. It panics if
// offset is not below ReadLen.
func (r *ByteRing) ReadAt(offset int) byte {
	if offset < 0 || offset >= r.len {
		panic("pool: ByteRing.ReadAt offset out of range")
	}
	return r.data[(r.read+offset)&r.mask]
}

// WriteLen returns the free space in bytes.
func (r *ByteRing) WriteLen() int {
	return len(r.data) - r.len
}

// WriteLenNoWrap returns the free bytes reachable from the write cursor
// without crossing the end of storage. After WriteIncr past the wrap point a
// second call exposes the remainder.
func (r *ByteRing) WriteLenNoWrap() int {
	return min(len(r.data)-r.len, len(r.data)-r.write)
}

// WriteSlice returns the contiguous writable region.
func (r *ByteRing) WriteSlice() []byte {
	return r.data[r.write : r.write+r.WriteLenNoWrap()]
}

// WriteIncr commits n bytes written into WriteSlice. It panics if n exceeds
// WriteLen.
func (r *ByteRing) WriteIncr(n int) {
	if n < 0 || r.len+n > len(r.data) {
		panic("pool: ByteRing.WriteIncr overflows capacity")
	}
	r.len += n
	r.write = (r.write + n) & r.mask
}

// Read copies buffered bytes into p and consumes them. It returns io.EOF when
// the ring is empty and p is not.
func (r *ByteRing) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.len == 0 {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) && r.len > 0 {
		c := copy(p[n:], r.ReadSlice())
		r.ReadIncr(c)
		n += c
	}
	return n, nil
}

// Write copies p into the ring. It never overwrites buffered data: when p
// does not fit, the fitting prefix is stored and ErrResourceExhausted is
// returned.
func (r *ByteRing) Write(p []byte) (int, error) {
	n := 0
	for n < len(p) && r.WriteLen() > 0 {
		c := copy(r.WriteSlice(), p[n:])
		r.WriteIncr(c)
		n += c
	}
	if n < len(p) {
		return n, api.ErrResourceExhausted
	}
	return n, nil
}

// Bytes returns a copy of the buffered bytes in order, without consuming.
func (r *ByteRing) Bytes() []byte {
	out := make([]byte, r.len)
	for i := range out {
		out[i] = r.ReadAt(i)
	}
	return out
}
