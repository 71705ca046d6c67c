//go:build linux

package pidwatch

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-io/api"
)

func waitReadable(t *testing.T, fd int, timeout time.Duration) bool {
	t.Helper()
	pfds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(pfds, int(timeout/time.Millisecond))
	require.NoError(t, err)
	return n > 0
}

func TestWatcherReportsChildExit(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	defer w.Close()

	cmd := exec.Command("sh", "-c", "sleep 0.1; exit 3")
	require.NoError(t, cmd.Start())

	require.NoError(t, w.SetPID(cmd.Process.Pid))
	assert.Equal(t, cmd.Process.Pid, w.PID())

	_, _, err = w.Wait()
	require.ErrorIs(t, err, api.ErrWouldBlock)

	require.True(t, waitReadable(t, w.Fd(), 5*time.Second))
	pid, status, err := w.Wait()
	require.NoError(t, err)
	assert.Equal(t, cmd.Process.Pid, pid)
	assert.True(t, status.Exited())
	assert.Equal(t, 3, status.ExitStatus())

	require.NoError(t, w.Disable())
	assert.Equal(t, 0, w.PID())
	assert.False(t, waitReadable(t, w.Fd(), 0))
}

func TestWatcherRejectsMissingProcess(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	defer w.Close()

	err = w.SetPID(1 << 30)
	require.ErrorIs(t, err, api.ErrNoSuchProcess)
	require.ErrorIs(t, w.SetPID(0), api.ErrInvalidArgument)
}

func TestPidfdErrorCodes(t *testing.T) {
	err := pidfdError(42, unix.ESRCH)
	assert.ErrorIs(t, err, api.ErrNoSuchProcess)
	assert.ErrorIs(t, err, unix.ESRCH)

	err = pidfdError(42, unix.ENOSYS)
	assert.ErrorIs(t, err, api.ErrNotSupported)
	assert.Equal(t, api.ErrCodeNotSupported, api.CodeOf(err))

	assert.ErrorIs(t, pidfdError(42, unix.EMFILE), api.ErrIOFault)
}

func TestWatcherRejectsZombie(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	defer w.Close()

	cmd := exec.Command("true")
	require.NoError(t, cmd.Start())
	// leave it unreaped long enough to become a zombie
	time.Sleep(200 * time.Millisecond)

	err = w.SetPID(cmd.Process.Pid)
	require.ErrorIs(t, err, api.ErrNoSuchProcess)
	require.NoError(t, cmd.Wait())
	assert.Equal(t, 0, w.PID())
}
