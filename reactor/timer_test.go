//go:build linux

package reactor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/reactor"
)

// pump runs the monitor until done reports true or the deadline passes.
func pump(t *testing.T, m *reactor.Monitor, deadline time.Duration, done func() bool) {
	t.Helper()
	end := time.Now().Add(deadline)
	for !done() {
		require.True(t, time.Now().Before(end), "condition not reached within %s", deadline)
		_, err := m.ProcessEventsTimeout(20 * time.Millisecond)
		require.NoError(t, err)
	}
}

func TestTimerOneShot(t *testing.T) {
	m := newMonitor(t)

	var fired []uint64
	tm, err := reactor.NewTimer(func(_ *reactor.TimerSource, n uint64) {
		fired = append(fired, n)
	})
	require.NoError(t, err)
	defer tm.Close()
	assert.Equal(t, reactor.KindTimer, tm.Source().Kind())
	require.NoError(t, m.AddSource(tm.Source()))

	start := time.Now()
	require.NoError(t, tm.Set(30*time.Millisecond))
	pump(t, m, time.Second, func() bool { return len(fired) > 0 })
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, []uint64{1}, fired)

	n, err := m.ProcessEventsTimeout(60 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestTimerPeriodicAndDisarm(t *testing.T) {
	m := newMonitor(t)

	var total uint64
	tm, err := reactor.NewTimer(func(_ *reactor.TimerSource, n uint64) {
		total += n
	})
	require.NoError(t, err)
	defer tm.Close()
	require.NoError(t, m.AddSource(tm.Source()))

	require.NoError(t, tm.SetPeriodic(10*time.Millisecond))
	pump(t, m, time.Second, func() bool { return total >= 3 })

	require.NoError(t, tm.Disarm())
	n, err := m.ProcessEventsTimeout(40 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, tm.Set(20*time.Millisecond))
	require.NoError(t, tm.Set(0))
	n, err = m.ProcessEventsTimeout(50 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestTimerValidation(t *testing.T) {
	_, err := reactor.NewTimer(nil)
	require.ErrorIs(t, err, api.ErrInvalidArgument)

	tm, err := reactor.NewTimer(func(*reactor.TimerSource, uint64) {})
	require.NoError(t, err)
	assert.ErrorIs(t, tm.Set(-time.Second), api.ErrInvalidArgument)
	assert.ErrorIs(t, tm.SetPeriodic(0), api.ErrInvalidArgument)

	require.NoError(t, tm.Close())
	assert.ErrorIs(t, tm.Set(time.Second), api.ErrClosed)
	require.NoError(t, tm.Close())
}
