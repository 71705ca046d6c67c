//go:build linux

package reactor_test

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/internal/descriptor"
	"github.com/momentics/hioload-io/reactor"
)

type frame struct {
	A byte
	_ [3]byte
	B int32
	C float64
}

func encodeFrame(t *testing.T, f frame) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, f))
	return buf.Bytes()
}

func testFrames(t *testing.T) [][]byte {
	return [][]byte{
		encodeFrame(t, frame{A: 11, B: 11111, C: 11.111}),
		encodeFrame(t, frame{A: 22, B: 22222, C: 22.222}),
		encodeFrame(t, frame{A: 33, B: 33333, C: 33.333}),
		encodeFrame(t, frame{A: 44, B: 44444, C: 44.444}),
	}
}

func TestMessageSourceValidation(t *testing.T) {
	buf := make([]byte, 16)
	cb := func(*reactor.MessageSource, reactor.Events) error { return nil }

	for name, build := range map[string]func() (*reactor.MessageSource, error){
		"negative fd": func() (*reactor.MessageSource, error) {
			return reactor.NewMessageSource(-1, reactor.EventIn, buf, cb, nil)
		},
		"nil callback": func() (*reactor.MessageSource, error) {
			return reactor.NewMessageSource(0, reactor.EventIn, buf, nil, nil)
		},
		"nil buffer": func() (*reactor.MessageSource, error) {
			return reactor.NewMessageSource(0, reactor.EventOut, nil, cb, nil)
		},
		"empty buffer": func() (*reactor.MessageSource, error) {
			return reactor.NewMessageSource(0, reactor.EventOut, []byte{}, cb, nil)
		},
		"both directions": func() (*reactor.MessageSource, error) {
			return reactor.NewMessageSource(0, reactor.EventIn|reactor.EventOut, buf, cb, nil)
		},
	} {
		_, err := build()
		assert.ErrorIs(t, err, api.ErrInvalidArgument, name)
	}
}

func TestMessageSourceRead(t *testing.T) {
	m := newMonitor(t)
	r, w := newPipe(t)
	frames := testFrames(t)

	var received [][]byte
	src, err := reactor.NewMessageSource(r.Fd(), reactor.EventIn, make([]byte, len(frames[0])),
		func(ms *reactor.MessageSource, evt reactor.Events) error {
			assert.Equal(t, reactor.EventIn, evt)
			received = append(received, bytes.Clone(ms.Message()))
			// each frame triggers the next, split in two writes
			if next := len(received); next < len(frames) {
				f := frames[next]
				_, err := descriptor.Write(w.Fd(), f[:5])
				require.NoError(t, err)
				_, err = descriptor.Write(w.Fd(), f[5:])
				require.NoError(t, err)
			}
			return nil
		}, nil)
	require.NoError(t, err)
	require.NoError(t, m.AddSource(src.Source()))

	_, err = descriptor.Write(w.Fd(), frames[0])
	require.NoError(t, err)

	pump(t, m, time.Second, func() bool { return len(received) == len(frames) })
	assert.Equal(t, frames, received)
}

func TestMessageSourceWriteToReader(t *testing.T) {
	m := newMonitor(t)
	r, w := newPipe(t)
	frames := testFrames(t)

	sent := 0
	writer, err := reactor.NewMessageSource(w.Fd(), reactor.EventOut, make([]byte, len(frames[0])),
		func(ms *reactor.MessageSource, evt reactor.Events) error {
			assert.Equal(t, reactor.EventOut, evt)
			if sent == len(frames) {
				return nil
			}
			sent++
			return ms.SetNextMessage(frames[sent-1])
		}, nil)
	require.NoError(t, err)
	assert.Equal(t, reactor.Events(0), writer.Source().Interest())

	var received [][]byte
	reader, err := reactor.NewMessageSource(r.Fd(), reactor.EventIn, make([]byte, len(frames[0])),
		func(ms *reactor.MessageSource, _ reactor.Events) error {
			received = append(received, bytes.Clone(ms.Message()))
			return nil
		}, nil)
	require.NoError(t, err)

	require.NoError(t, m.AddSources(writer.Source(), reader.Source()))
	require.NoError(t, m.ActivateOut(writer.Source(), true))

	pump(t, m, time.Second, func() bool {
		return len(received) == len(frames) && writer.Source().Interest() == 0
	})
	assert.Equal(t, frames, received)
	assert.False(t, writer.Pending())
}

func TestMessageSourceSetNextMessage(t *testing.T) {
	_, w := newPipe(t)
	cb := func(*reactor.MessageSource, reactor.Events) error { return nil }

	out, err := reactor.NewMessageSource(w.Fd(), reactor.EventOut, make([]byte, 4), cb, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, out.SetNextMessage([]byte{1, 2, 3}), api.ErrInvalidArgument)
	require.NoError(t, out.SetNextMessage([]byte{1, 2, 3, 4}))
	assert.True(t, out.Pending())
	assert.ErrorIs(t, out.SetNextMessage([]byte{1, 2, 3, 4}), api.ErrBusy)

	in, err := reactor.NewMessageSource(w.Fd(), reactor.EventIn, make([]byte, 4), cb, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, in.SetNextMessage([]byte{1, 2, 3, 4}), api.ErrInvalidArgument)
}

func TestMessageSourceHangup(t *testing.T) {
	m := newMonitor(t)
	r, w := newPipe(t)

	var events []reactor.Events
	cleaned := 0
	src, err := reactor.NewMessageSource(r.Fd(), reactor.EventIn, make([]byte, 8),
		func(_ *reactor.MessageSource, evt reactor.Events) error {
			events = append(events, evt)
			return nil
		},
		func(*reactor.MessageSource) { cleaned++ })
	require.NoError(t, err)
	require.NoError(t, m.AddSource(src.Source()))

	// a partial frame followed by end of stream
	_, err = descriptor.Write(w.Fd(), []byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	pump(t, m, time.Second, func() bool { return len(events) > 0 })
	assert.Equal(t, []reactor.Events{reactor.EventHangup}, events)
	assert.False(t, src.Source().Registered())
	assert.Equal(t, 0, m.Len())

	src.Close()
	src.Close()
	assert.Equal(t, 1, cleaned)
}
