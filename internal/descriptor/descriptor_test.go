//go:build linux

package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestOwnedClosesOnce(t *testing.T) {
	r, w, err := Pipe()
	require.NoError(t, err)
	defer r.Close()

	fd := w.Fd()
	require.NoError(t, w.Close())
	assert.Equal(t, -1, w.Fd())
	require.NoError(t, w.Close())

	_, err = unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	assert.ErrorIs(t, err, unix.EBADF)
}

func TestBorrowedNeverCloses(t *testing.T) {
	r, w, err := Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	var view FD = Borrowed(w.Fd())
	require.NoError(t, view.Close())
	n, err := Write(view.Fd(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDupIsIndependent(t *testing.T) {
	r, w, err := Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	d, err := Dup(w.Fd())
	require.NoError(t, err)
	assert.NotEqual(t, w.Fd(), d.Fd())

	_, err = Write(d.Fd(), []byte("dup"))
	require.NoError(t, err)
	require.NoError(t, d.Close())

	buf := make([]byte, 8)
	n, err := Read(r.Fd(), buf)
	require.NoError(t, err)
	assert.Equal(t, "dup", string(buf[:n]))
}

func TestReadWouldBlock(t *testing.T) {
	r, w, err := Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	_, err = Read(r.Fd(), make([]byte, 4))
	assert.True(t, IsWouldBlock(err))
}

func TestSocketPairFullDuplex(t *testing.T) {
	a, b, err := SocketPair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	_, err = Write(a.Fd(), []byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	n, err := Read(b.Fd(), buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))
}
